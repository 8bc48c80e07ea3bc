package auth

import (
	"context"

	models "github.com/raildesk/raildesk/internal"
	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/pkg/rail"
)

// Gateway binds the rail client to one session, routing every call through
// the refresher so token expiry is invisible to the layers above. It
// implements ports.RailGateway.
type Gateway struct {
	rail      *rail.Client
	refresher *Refresher
	sess      *session.Session
}

func NewGateway(client *rail.Client, refresher *Refresher, sess *session.Session) *Gateway {
	return &Gateway{rail: client, refresher: refresher, sess: sess}
}

func (g *Gateway) SearchTrains(ctx context.Context, criteria models.SearchCriteria) ([]models.TrainOption, error) {
	var out []models.TrainOption
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.SearchTrains(ctx, token, criteria)
		return err
	})
	return out, err
}

func (g *Gateway) ListCoaches(ctx context.Context, trainID string) ([]models.CoachOption, error) {
	var out []models.CoachOption
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.ListCoaches(ctx, token, trainID)
		return err
	})
	return out, err
}

func (g *Gateway) ListSeats(ctx context.Context, coachID string) ([]models.Seat, error) {
	var out []models.Seat
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.ListSeats(ctx, token, coachID)
		return err
	})
	return out, err
}

func (g *Gateway) CreateBooking(ctx context.Context, req models.BookingRequest) (string, error) {
	var out string
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.CreateBooking(ctx, token, req)
		return err
	})
	return out, err
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (string, error) {
	var out string
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.CreateCheckoutSession(ctx, token, req)
		return err
	})
	return out, err
}

func (g *Gateway) GetBooking(ctx context.Context, id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.GetBooking(ctx, token, id)
		return err
	})
	return out, err
}

func (g *Gateway) GetBookingByPNR(ctx context.Context, pnr string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.GetBookingByPNR(ctx, token, pnr)
		return err
	})
	return out, err
}

func (g *Gateway) CancelBooking(ctx context.Context, pnr string) error {
	return g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		return g.rail.CancelBooking(ctx, token, pnr)
	})
}

func (g *Gateway) ListTrains(ctx context.Context) ([]models.Train, error) {
	var out []models.Train
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.ListTrains(ctx, token)
		return err
	})
	return out, err
}

func (g *Gateway) AddTrain(ctx context.Context, train models.Train) (*models.Train, error) {
	var out *models.Train
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.AddTrain(ctx, token, train)
		return err
	})
	return out, err
}

func (g *Gateway) UpdateTrain(ctx context.Context, train models.Train) (*models.Train, error) {
	var out *models.Train
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.UpdateTrain(ctx, token, train)
		return err
	})
	return out, err
}

func (g *Gateway) DeleteTrain(ctx context.Context, id string) error {
	return g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		return g.rail.DeleteTrain(ctx, token, id)
	})
}

func (g *Gateway) CreateSupportTicket(ctx context.Context, ticket models.SupportTicket) (*models.SupportTicket, error) {
	var out *models.SupportTicket
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.CreateSupportTicket(ctx, token, ticket)
		return err
	})
	return out, err
}

func (g *Gateway) ListSupportTickets(ctx context.Context) ([]models.SupportTicket, error) {
	var out []models.SupportTicket
	err := g.refresher.Do(ctx, g.sess, func(ctx context.Context, token string) error {
		var err error
		out, err = g.rail.ListSupportTickets(ctx, token)
		return err
	})
	return out, err
}
