package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casaverde/config"
	"casaverde/cron"
	"casaverde/database"
	bookingRepo "casaverde/database/repository/booking"
	"casaverde/handlers"
	"casaverde/middleware"
	"casaverde/routes"
	"casaverde/services/booking"
	"casaverde/services/channel"
	"casaverde/services/gateway"
	"casaverde/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	utils.InitializeLogger(cfg.IsProduction(), cfg.LogLevel)
	logger := utils.GetLogger()
	defer logger.Sync()

	mongoClient, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("main: database connection failed", zap.Error(err))
	}

	cacheClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisCacheDB,
	})

	stripe.Key = cfg.StripeKey

	// Create the Gin router.
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(routes.CORSMiddleware())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	// Repositories.
	repo := bookingRepo.NewMongoBookingRepo(mongoClient, cfg.DatabaseName)

	// External clients.
	stripeGateway := gateway.NewStripeGateway(logger)
	beds24 := channel.NewBeds24Client(cfg.Beds24URL, cfg.Beds24APIKey, logger)
	cachedChannel := channel.NewCachedChannelManager(beds24, cacheClient, logger)

	// Services.
	reservationService := &booking.DefaultReservationService{
		Repo:       repo,
		Gateway:    stripeGateway,
		Channel:    cachedChannel,
		Properties: cfg,
		Currency:   cfg.Currency,
		Logger:     logger,
	}

	// Handlers and routes.
	reservationHandler := handlers.NewReservationHandler(reservationService, logger)
	adminHandler := handlers.NewAdminHandler(reservationService, logger)

	routes.RegisterHealthRoute(router)
	routes.RegisterReservationRoutes(router, reservationHandler)
	routes.RegisterAdminRoutes(router, adminHandler, cfg)

	// Background scheduler for the nightly charge run and periodic
	// reconciliation.
	workerSrv, scheduler := cron.InitScheduler(cfg, reservationService, logger)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("Starting server on %s...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("main: server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	scheduler.Shutdown()
	workerSrv.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server shutdown failed", zap.Error(err))
	}
	if err := mongoClient.Disconnect(ctx); err != nil {
		logger.Error("main: mongo disconnect failed", zap.Error(err))
	}
	logger.Info("Server exited")
}
