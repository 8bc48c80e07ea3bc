package ports

import (
	"context"
	"time"

	models "github.com/raildesk/raildesk/internal"
	"github.com/raildesk/raildesk/internal/session"
)

// RailGateway is the session-bound view of the upstream backend. Every call
// already carries the session's bearer token and the retry-once refresh
// behaviour.
type RailGateway interface {
	SearchTrains(ctx context.Context, criteria models.SearchCriteria) ([]models.TrainOption, error)
	ListCoaches(ctx context.Context, trainID string) ([]models.CoachOption, error)
	ListSeats(ctx context.Context, coachID string) ([]models.Seat, error)
	CreateBooking(ctx context.Context, req models.BookingRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (string, error)
	GetBooking(ctx context.Context, id string) (map[string]interface{}, error)
	GetBookingByPNR(ctx context.Context, pnr string) (map[string]interface{}, error)
	CancelBooking(ctx context.Context, pnr string) error
	ListTrains(ctx context.Context) ([]models.Train, error)
	AddTrain(ctx context.Context, train models.Train) (*models.Train, error)
	UpdateTrain(ctx context.Context, train models.Train) (*models.Train, error)
	DeleteTrain(ctx context.Context, id string) error
	CreateSupportTicket(ctx context.Context, ticket models.SupportTicket) (*models.SupportTicket, error)
	ListSupportTickets(ctx context.Context) ([]models.SupportTicket, error)
}

// SessionStore is the single injected owner of session state; no component
// reads the persisted records directly.
type SessionStore interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	Put(ctx context.Context, sess *session.Session) error
	Touch(ctx context.Context, id string, seen time.Time) error
	Delete(ctx context.Context, id string) error
	UpdateToken(ctx context.Context, id, token string, expiry time.Time) error
	SetBreadcrumb(ctx context.Context, id, bookingID string) error
	Breadcrumb(ctx context.Context, id string) (string, error)
	ClearBreadcrumb(ctx context.Context, id string) error
}

// Breadcrumbs is the slice of SessionStore the wizard and confirmation
// layers need for payment-failure recovery.
type Breadcrumbs interface {
	SetBreadcrumb(ctx context.Context, id, bookingID string) error
	Breadcrumb(ctx context.Context, id string) (string, error)
	ClearBreadcrumb(ctx context.Context, id string) error
}
