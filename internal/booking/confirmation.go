package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	models "github.com/raildesk/raildesk/internal"
	"github.com/raildesk/raildesk/internal/ports"
)

// ErrNoBookingRef means neither a booking id, a breadcrumb, nor a usable
// payment session reference was available to resolve the booking.
var ErrNoBookingRef = errors.New("no booking or session information found")

// ConfirmationService resolves a created booking after the payment redirect
// and produces the canonical ticket for rendering.
type ConfirmationService struct {
	crumbs ports.Breadcrumbs
	log    *logrus.Logger
}

func NewConfirmationService(crumbs ports.Breadcrumbs, log *logrus.Logger) *ConfirmationService {
	return &ConfirmationService{crumbs: crumbs, log: log}
}

// Confirm fetches one booking by id, falling back to the session's pending
// booking breadcrumb left behind by a failed checkout. paymentSessionID is
// accepted from the payment provider's return URL but cannot resolve a
// booking on its own. The breadcrumb is cleared once a fetch succeeds.
func (s *ConfirmationService) Confirm(ctx context.Context, gw ports.RailGateway, sessionID, bookingID, paymentSessionID string) (models.Ticket, error) {
	if bookingID == "" {
		crumb, err := s.crumbs.Breadcrumb(ctx, sessionID)
		if err != nil {
			s.log.WithError(err).Warn("failed to read pending booking breadcrumb")
		}
		bookingID = crumb
	}
	if bookingID == "" {
		return models.Ticket{}, ErrNoBookingRef
	}

	raw, err := gw.GetBooking(ctx, bookingID)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("fetching booking %s: %w", bookingID, err)
	}

	if err := s.crumbs.ClearBreadcrumb(ctx, sessionID); err != nil {
		s.log.WithError(err).Warn("failed to clear pending booking breadcrumb")
	}

	return Normalize(raw), nil
}

// LookupPNR fetches a booking by its PNR for the lookup screen.
func (s *ConfirmationService) LookupPNR(ctx context.Context, gw ports.RailGateway, pnr string) (models.Ticket, error) {
	raw, err := gw.GetBookingByPNR(ctx, pnr)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("fetching booking by pnr: %w", err)
	}
	return Normalize(raw), nil
}
