package rail

import (
	"context"
	"errors"
	"net/http"

	models "github.com/raildesk/raildesk/internal"
)

var ErrNoToken = errors.New("rail: no token in refresh response")

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	payload := map[string]string{"email": email, "password": password}
	var ans models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/login", "", nil, payload, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.AuthResponse, error) {
	var ans models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/register", "", nil, reg, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

// RefreshToken exchanges a refresh token for a new bearer token. An empty
// token in a 2xx response is treated as a refresh failure.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	payload := map[string]string{"refreshToken": refreshToken}
	var ans struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh-token", "", nil, payload, &ans); err != nil {
		return "", err
	}
	if ans.Token == "" {
		return "", ErrNoToken
	}
	return ans.Token, nil
}
