package rail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	models "github.com/raildesk/raildesk/internal"
)

// SearchTrains lists trains for a (source, destination, date) triple. An
// empty slice is a valid result, distinct from an error.
func (c *Client) SearchTrains(ctx context.Context, token string, criteria models.SearchCriteria) ([]models.TrainOption, error) {
	query := url.Values{}
	query.Set("source", criteria.Source)
	query.Set("destination", criteria.Destination)
	query.Set("date", criteria.Date)

	var trains []models.TrainOption
	if err := c.do(ctx, http.MethodGet, "/trains/search", token, query, nil, &trains); err != nil {
		return nil, fmt.Errorf("searching trains: %w", err)
	}
	return trains, nil
}

func (c *Client) ListCoaches(ctx context.Context, token, trainID string) ([]models.CoachOption, error) {
	var coaches []models.CoachOption
	path := fmt.Sprintf("/trains/%s/coaches", url.PathEscape(trainID))
	if err := c.do(ctx, http.MethodGet, path, token, nil, nil, &coaches); err != nil {
		return nil, fmt.Errorf("listing coaches: %w", err)
	}
	return coaches, nil
}

func (c *Client) ListSeats(ctx context.Context, token, coachID string) ([]models.Seat, error) {
	var seats []models.Seat
	path := fmt.Sprintf("/trains/coaches/%s/seats", url.PathEscape(coachID))
	if err := c.do(ctx, http.MethodGet, path, token, nil, nil, &seats); err != nil {
		return nil, fmt.Errorf("listing seats: %w", err)
	}
	return seats, nil
}
