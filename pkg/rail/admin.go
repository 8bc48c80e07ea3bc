package rail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	models "github.com/raildesk/raildesk/internal"
)

// Train management and support desk endpoints. Plain CRUD proxied for the
// admin and help-desk screens; authorization is enforced upstream as well.

func (c *Client) ListTrains(ctx context.Context, token string) ([]models.Train, error) {
	var trains []models.Train
	if err := c.do(ctx, http.MethodGet, "/trains", token, nil, nil, &trains); err != nil {
		return nil, fmt.Errorf("listing trains: %w", err)
	}
	return trains, nil
}

func (c *Client) AddTrain(ctx context.Context, token string, train models.Train) (*models.Train, error) {
	var ans models.Train
	if err := c.do(ctx, http.MethodPost, "/trains", token, nil, train, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

func (c *Client) UpdateTrain(ctx context.Context, token string, train models.Train) (*models.Train, error) {
	var ans models.Train
	path := fmt.Sprintf("/trains/%s", url.PathEscape(train.ID))
	if err := c.do(ctx, http.MethodPut, path, token, nil, train, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

func (c *Client) DeleteTrain(ctx context.Context, token, id string) error {
	path := fmt.Sprintf("/trains/%s", url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, path, token, nil, nil, nil)
}

func (c *Client) CreateSupportTicket(ctx context.Context, token string, ticket models.SupportTicket) (*models.SupportTicket, error) {
	var ans models.SupportTicket
	if err := c.do(ctx, http.MethodPost, "/api/support", token, nil, ticket, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

func (c *Client) ListSupportTickets(ctx context.Context, token string) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	if err := c.do(ctx, http.MethodGet, "/api/support", token, nil, nil, &tickets); err != nil {
		return nil, fmt.Errorf("listing support tickets: %w", err)
	}
	return tickets, nil
}
