package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	models "github.com/raildesk/raildesk/internal"
)

// Session is the server-held record for one browser session. The browser
// only ever sees the opaque session id; the upstream bearer and refresh
// tokens stay on this side.
//
// A session may exist before login (anonymous browsing); it becomes
// authenticated when login populates the user fields and tokens.
type Session struct {
	ID           string
	UserID       string
	Email        string
	Username     string
	Role         models.Role
	Token        string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	LastSeen     time.Time
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != "" && s.Token != ""
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == models.RoleAdmin
}

func (s *Session) IsAgent() bool {
	return s != nil && (s.Role == models.RoleAgent || s.Role == models.RoleAdmin)
}

// AuthHeader returns the outbound Authorization header for this session,
// or an empty map when no token is held.
func (s *Session) AuthHeader() map[string]string {
	if s == nil || s.Token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + s.Token}
}

// TokenExpiry reads the exp claim from an upstream JWT without verifying
// the signature; the upstream owns validation, this side only needs to know
// when a token is due to lapse. Returns the zero time when the token is not
// a parsable JWT or carries no expiry.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
