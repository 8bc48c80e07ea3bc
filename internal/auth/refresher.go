package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/pkg/rail"
)

// ErrSessionExpired means the bearer token lapsed and could not be
// refreshed; the session has been destroyed and the caller must log in
// again.
var ErrSessionExpired = errors.New("session expired")

var errNoRefreshToken = errors.New("no refresh token held for session")

type RefreshClient interface {
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

type TokenStore interface {
	UpdateToken(ctx context.Context, id, token string, expiry time.Time) error
	Delete(ctx context.Context, id string) error
}

// Refresher makes upstream token expiry transparent. A call that fails with
// 401 triggers one refresh and one replay; concurrent 401s for the same
// session share a single in-flight refresh, so at most one refresh call is
// ever outstanding per session no matter how many requests fail together.
type Refresher struct {
	client   RefreshClient
	sessions TokenStore
	group    singleflight.Group
	log      *logrus.Logger
}

func NewRefresher(client RefreshClient, sessions TokenStore, log *logrus.Logger) *Refresher {
	return &Refresher{client: client, sessions: sessions, log: log}
}

// Do runs call with the session's bearer token. On 401 it refreshes the
// token (joining any refresh already in flight for this session) and
// replays call exactly once with the new token; a second 401 is surfaced to
// the caller unchanged. Non-401 errors pass through untouched.
//
// sess is the caller's own copy of the session record; only that copy is
// mutated here. The persisted record is rotated inside the shared refresh.
func (r *Refresher) Do(ctx context.Context, sess *session.Session, call func(ctx context.Context, token string) error) error {
	var token string
	if sess != nil {
		token = sess.Token
	}

	err := call(ctx, token)
	if err == nil || !errors.Is(err, rail.ErrUnauthorized) {
		return err
	}

	newToken, refreshErr := r.refresh(ctx, sess)
	if refreshErr != nil {
		// Waiters all land here: the session is gone, the original
		// failure is what they report.
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	sess.Token = newToken
	sess.TokenExpiry = session.TokenExpiry(newToken)
	return call(ctx, newToken)
}

// refresh performs the single-flight token exchange. Late callers attach to
// the in-flight call instead of issuing their own, which is what bounds the
// system to one refresh regardless of concurrency.
func (r *Refresher) refresh(ctx context.Context, sess *session.Session) (string, error) {
	if sess == nil || sess.ID == "" {
		return "", errNoRefreshToken
	}

	v, err, shared := r.group.Do(sess.ID, func() (interface{}, error) {
		if sess.RefreshToken == "" {
			r.dropSession(ctx, sess.ID)
			return nil, errNoRefreshToken
		}

		token, err := r.client.RefreshToken(ctx, sess.RefreshToken)
		if err != nil {
			r.log.WithError(err).WithField("session", sess.ID).Info("token refresh failed, destroying session")
			r.dropSession(ctx, sess.ID)
			return nil, err
		}

		if err := r.sessions.UpdateToken(ctx, sess.ID, token, session.TokenExpiry(token)); err != nil {
			r.log.WithError(err).WithField("session", sess.ID).Warn("failed to persist rotated token")
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		r.log.WithField("session", sess.ID).Debug("joined in-flight token refresh")
	}
	return v.(string), nil
}

func (r *Refresher) dropSession(ctx context.Context, id string) {
	if err := r.sessions.Delete(ctx, id); err != nil {
		r.log.WithError(err).WithField("session", id).Warn("failed to delete expired session")
	}
}
