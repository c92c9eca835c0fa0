package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Beds24Client implements ChannelManager against the Beds24 JSON API.
// Every call carries a request timeout; a timeout surfaces as
// ErrUnavailable, never as a hang.
type Beds24Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewBeds24Client constructs a Beds24Client.
func NewBeds24Client(baseURL, apiKey string, logger *zap.Logger) *Beds24Client {
	return &Beds24Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type beds24Auth struct {
	APIKey  string `json:"apiKey"`
	PropKey string `json:"propKey"`
}

type getRoomDatesRequest struct {
	Authentication beds24Auth `json:"authentication"`
	RoomID         string     `json:"roomId"`
	From           string     `json:"from"`
	To             string     `json:"to"`
	IncPrice       string     `json:"incPrice"`
}

type roomDateEntry struct {
	Inventory string `json:"i"`
	Price1    string `json:"p1"`
}

// FetchRoomDates queries per-date inventory and price for a room.
func (c *Beds24Client) FetchRoomDates(ctx context.Context, roomID, propKey, from, to string) (map[string]RoomDate, error) {
	reqBody := getRoomDatesRequest{
		Authentication: beds24Auth{APIKey: c.apiKey, PropKey: propKey},
		RoomID:         roomID,
		From:           from,
		To:             to,
		IncPrice:       "1",
	}

	var raw map[string]json.RawMessage
	if err := c.post(ctx, "/getRoomDates", reqBody, &raw); err != nil {
		return nil, err
	}
	if errMsg, ok := raw["error"]; ok {
		return nil, fmt.Errorf("%w: getRoomDates: %s", ErrRejected, string(errMsg))
	}

	dates := make(map[string]RoomDate, len(raw))
	for date, entry := range raw {
		// Beds24 mixes metadata keys into the top-level object; only
		// YYYY-MM-DD keys are room dates.
		if len(date) != 10 || date[4] != '-' {
			continue
		}
		var rd roomDateEntry
		if err := json.Unmarshal(entry, &rd); err != nil {
			return nil, fmt.Errorf("%w: malformed room date %s: %v", ErrUnavailable, date, err)
		}
		inv, err := strconv.Atoi(strings.TrimSpace(rd.Inventory))
		if err != nil {
			return nil, fmt.Errorf("%w: malformed inventory for %s: %q", ErrUnavailable, date, rd.Inventory)
		}
		price, err := parsePriceMinor(rd.Price1)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed price for %s: %q", ErrUnavailable, date, rd.Price1)
		}
		dates[date] = RoomDate{Inventory: inv, PriceMinor: price}
	}
	return dates, nil
}

type setBookingRequest struct {
	Authentication beds24Auth `json:"authentication"`
	RoomID         string     `json:"roomId,omitempty"`
	BookID         string     `json:"bookId,omitempty"`
	Status         string     `json:"status"`
	FirstNight     string     `json:"firstNight,omitempty"`
	LastNight      string     `json:"lastNight,omitempty"`
	GuestFirstName string     `json:"guestFirstName,omitempty"`
	GuestEmail     string     `json:"guestEmail,omitempty"`
	Message        string     `json:"message,omitempty"`
	Price          string     `json:"price,omitempty"`
	NumAdult       string     `json:"numAdult,omitempty"`
}

type setBookingResponse struct {
	BookID json.Number `json:"bookId"`
	Error  string      `json:"error"`
}

// Channel-side status flags: 1 confirmed, 0 cancelled.
const (
	beds24StatusConfirmed = "1"
	beds24StatusCancelled = "0"
)

// CreateBooking creates the channel-side booking record.
func (c *Beds24Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (string, error) {
	status := beds24StatusCancelled
	if req.Confirmed {
		status = beds24StatusConfirmed
	}
	reqBody := setBookingRequest{
		Authentication: beds24Auth{APIKey: c.apiKey, PropKey: req.PropKey},
		RoomID:         req.RoomID,
		Status:         status,
		FirstNight:     req.FirstNight,
		LastNight:      req.LastNight,
		GuestFirstName: req.GuestName,
		GuestEmail:     req.GuestEmail,
		Message:        req.Message,
		Price:          formatPriceMajor(req.PriceMinor),
		NumAdult:       "2",
	}

	var resp setBookingResponse
	if err := c.post(ctx, "/setBooking", reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: setBooking: %s", ErrRejected, resp.Error)
	}
	if resp.BookID.String() == "" {
		return "", fmt.Errorf("%w: setBooking returned no bookId", ErrUnavailable)
	}
	c.logger.Info("beds24 booking created", zap.String("bookId", resp.BookID.String()))
	return resp.BookID.String(), nil
}

// SetBookingStatus flips the channel booking's confirmed/cancelled flag.
func (c *Beds24Client) SetBookingStatus(ctx context.Context, propKey, bookID string, confirmed bool) error {
	status := beds24StatusCancelled
	if confirmed {
		status = beds24StatusConfirmed
	}
	reqBody := setBookingRequest{
		Authentication: beds24Auth{APIKey: c.apiKey, PropKey: propKey},
		BookID:         bookID,
		Status:         status,
	}

	var resp setBookingResponse
	if err := c.post(ctx, "/setBooking", reqBody, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: setBookingStatus: %s", ErrRejected, resp.Error)
	}
	return nil
}

func (c *Beds24Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("beds24 request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrUnavailable, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", ErrUnavailable, path, err)
	}
	return nil
}

// parsePriceMinor converts a decimal price string in major units ("123.45")
// to an integer in minor units without going through floating point.
func parsePriceMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	whole, frac, _ := strings.Cut(s, ".")
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	switch len(frac) {
	case 0:
		return major * 100, nil
	case 1:
		frac += "0"
	case 2:
	default:
		return 0, fmt.Errorf("price %q has sub-cent precision", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	return major*100 + cents, nil
}

// formatPriceMajor renders a minor-unit amount as the decimal string the
// channel API expects.
func formatPriceMajor(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
