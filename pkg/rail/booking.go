package rail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	models "github.com/raildesk/raildesk/internal"
)

var (
	ErrNoBookingID = errors.New("rail: no booking id in response")
	ErrNoCheckout  = errors.New("rail: no checkout url in response")
)

// CreateBooking creates a pending-payment booking record and returns its id.
// The backend has answered with either "bookingId" or "id" across versions.
func (c *Client) CreateBooking(ctx context.Context, token string, req models.BookingRequest) (string, error) {
	var ans struct {
		BookingID string `json:"bookingId"`
		ID        string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/bookings/book", token, nil, req, &ans); err != nil {
		return "", err
	}
	if ans.BookingID != "" {
		return ans.BookingID, nil
	}
	if ans.ID != "" {
		return ans.ID, nil
	}
	return "", ErrNoBookingID
}

// CreateCheckoutSession creates a payment session for a booking and returns
// the external payment page URL the browser must be redirected to.
func (c *Client) CreateCheckoutSession(ctx context.Context, token string, req models.CheckoutRequest) (string, error) {
	var ans struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/payment/checkout", token, nil, req, &ans); err != nil {
		return "", err
	}
	if ans.URL == "" {
		return "", ErrNoCheckout
	}
	return ans.URL, nil
}

// GetBooking fetches one booking by id. The payload shape varies with the
// backend version, so the raw object is handed to the normalization layer
// undecoded.
func (c *Client) GetBooking(ctx context.Context, token, id string) (map[string]interface{}, error) {
	var raw map[string]interface{}
	path := fmt.Sprintf("/api/bookings/%s", url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, token, nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) GetBookingByPNR(ctx context.Context, token, pnr string) (map[string]interface{}, error) {
	var raw map[string]interface{}
	path := fmt.Sprintf("/api/bookings/pnr/%s", url.PathEscape(pnr))
	if err := c.do(ctx, http.MethodGet, path, token, nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) CancelBooking(ctx context.Context, token, pnr string) error {
	path := fmt.Sprintf("/api/bookings/cancel/%s", url.PathEscape(pnr))
	return c.do(ctx, http.MethodDelete, path, token, nil, nil, nil)
}
