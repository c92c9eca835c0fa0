package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casaverde/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no booking exists for the given id.
var ErrNotFound = errors.New("booking not found")

// ErrStaleStatus is returned when a conditional status update finds the
// stored status no longer matches the caller's expectation. The caller read
// a stale row; it must re-read and re-decide.
var ErrStaleStatus = errors.New("booking status changed since read")

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo and
// ensures its indexes.
func NewMongoBookingRepo(client *mongo.Client, dbName string) *MongoBookingRepo {
	coll := client.Database(dbName).Collection("bookings")
	repo := &MongoBookingRepo{coll: coll}
	repo.ensureIndexes()
	return repo
}

func (repo *MongoBookingRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "approved_for_charge", Value: 1},
				{Key: "charge_date", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "manual_review_status", Value: 1}},
		},
	}
	// Index creation is idempotent; a failure here is not fatal at startup.
	_, _ = repo.coll.Indexes().CreateMany(ctx, indexes)
}

// Create inserts a new ledger row.
func (repo *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error inserting booking %s: %w", booking.ID, err)
	}
	return nil
}

// GetByID retrieves a booking by its internal id.
func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &booking, nil
}

// UpdateStatus performs the conditional status write that serializes all
// lifecycle transitions. The filter matches both id and the expected current
// status; MatchedCount zero means another writer got there first.
func (repo *MongoBookingRepo) UpdateStatus(ctx context.Context, id string, expected models.BookingStatus, update StatusUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": update.Status}
	if update.ReviewStatus != nil {
		set["manual_review_status"] = *update.ReviewStatus
	}
	if update.ApprovedForCharge != nil {
		set["approved_for_charge"] = *update.ApprovedForCharge
	}
	if update.PaymentIntentID != nil {
		set["stripe_payment_intent_id"] = *update.PaymentIntentID
	}
	if update.PaidAt != nil {
		set["paid_at"] = *update.PaidAt
	}
	if update.ReviewedAt != nil {
		set["reviewed_at"] = *update.ReviewedAt
	}
	if update.ReviewedBy != nil {
		set["reviewed_by"] = *update.ReviewedBy
	}
	if update.RejectReason != nil {
		set["reject_reason"] = *update.RejectReason
	}

	filter := bson.M{"id": id, "status": expected}
	res, err := repo.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating booking %s status: %w", id, err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a vanished row from a concurrent transition.
		if _, getErr := repo.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrStaleStatus
	}
	return nil
}

// DueForCharge selects the nightly charge-run working set.
func (repo *MongoBookingRepo) DueForCharge(ctx context.Context, day time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status":              models.StatusPending,
		"approved_for_charge": true,
		"charge_date":         bson.M{"$lte": day},
	}
	return repo.find(ctx, filter)
}

// PendingIntents selects all pending bookings holding a payment intent id.
func (repo *MongoBookingRepo) PendingIntents(ctx context.Context) ([]models.Booking, error) {
	filter := bson.M{
		"status":                   models.StatusPending,
		"stripe_payment_intent_id": bson.M{"$exists": true, "$ne": ""},
	}
	return repo.find(ctx, filter)
}

// PendingReview selects all bookings awaiting a manual-review decision.
func (repo *MongoBookingRepo) PendingReview(ctx context.Context) ([]models.Booking, error) {
	filter := bson.M{
		"manual_review_status": models.ReviewPending,
		"status":               bson.M{"$in": []models.BookingStatus{models.StatusRequest, models.StatusPending}},
	}
	return repo.find(ctx, filter)
}

func (repo *MongoBookingRepo) find(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := repo.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}
