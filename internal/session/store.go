package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	models "github.com/raildesk/raildesk/internal"
)

// Store persists sessions in Postgres. Expected schema:
//
//	CREATE TABLE sessions (
//	    id                 TEXT PRIMARY KEY,
//	    user_id            TEXT NOT NULL DEFAULT '',
//	    email              TEXT NOT NULL DEFAULT '',
//	    username           TEXT NOT NULL DEFAULT '',
//	    role               TEXT NOT NULL DEFAULT '',
//	    token              TEXT NOT NULL DEFAULT '',
//	    refresh_token      TEXT NOT NULL DEFAULT '',
//	    token_expiry       TIMESTAMPTZ,
//	    pending_booking_id TEXT NOT NULL DEFAULT '',
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    last_seen          TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	db  DBConn
	log *logrus.Logger
}

type DBConn interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func NewStore(db DBConn, log *logrus.Logger) *Store {
	return &Store{db: db, log: log}
}

// Put writes the session wholesale, replacing any previous record with the
// same id.
func (s *Store) Put(ctx context.Context, sess *Session) error {
	query := `
        INSERT INTO sessions (id, user_id, email, username, role, token, refresh_token, token_expiry, created_at, last_seen)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            user_id = EXCLUDED.user_id,
            email = EXCLUDED.email,
            username = EXCLUDED.username,
            role = EXCLUDED.role,
            token = EXCLUDED.token,
            refresh_token = EXCLUDED.refresh_token,
            token_expiry = EXCLUDED.token_expiry,
            last_seen = EXCLUDED.last_seen
    `
	_, err := s.db.Exec(ctx, query,
		sess.ID, sess.UserID, sess.Email, sess.Username, string(sess.Role),
		sess.Token, sess.RefreshToken, sess.TokenExpiry, sess.CreatedAt, sess.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Get returns the session for an id. An absent or malformed record is "no
// session": the caller receives (nil, nil) and treats the visitor as
// anonymous, matching the contract that a broken stored session never
// surfaces as an error.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	query := `
        SELECT id, user_id, email, username, role, token, refresh_token,
               COALESCE(token_expiry, 'epoch'::timestamptz), created_at, last_seen
        FROM sessions WHERE id = $1
    `
	var sess Session
	var role string
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.UserID, &sess.Email, &sess.Username, &role,
		&sess.Token, &sess.RefreshToken, &sess.TokenExpiry, &sess.CreatedAt, &sess.LastSeen,
	)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.WithError(err).Warn("session lookup failed, treating as no session")
		}
		return nil, nil
	}
	switch models.Role(role) {
	case models.RoleUser, models.RoleAdmin, models.RoleAgent, "":
		sess.Role = models.Role(role)
	default:
		s.log.WithField("role", role).Warn("session has unknown role, treating as no session")
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Touch bumps last_seen for an existing record. Liveness updates go through
// here rather than Put so they can never write a token that was read before
// a concurrent refresh rotated it.
func (s *Store) Touch(ctx context.Context, id string, seen time.Time) error {
	if _, err := s.db.Exec(ctx, `UPDATE sessions SET last_seen = $2 WHERE id = $1`, id, seen); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// UpdateToken rotates the bearer token in place after a successful refresh.
func (s *Store) UpdateToken(ctx context.Context, id, token string, expiry time.Time) error {
	query := `UPDATE sessions SET token = $2, token_expiry = $3, last_seen = $4 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, token, expiry, time.Now().UTC()); err != nil {
		return fmt.Errorf("rotating session token: %w", err)
	}
	return nil
}

// SetBreadcrumb records a booking id whose payment session could not be
// created, so a later confirmation visit can still resolve the booking.
func (s *Store) SetBreadcrumb(ctx context.Context, id, bookingID string) error {
	query := `UPDATE sessions SET pending_booking_id = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, bookingID); err != nil {
		return fmt.Errorf("storing pending booking id: %w", err)
	}
	return nil
}

func (s *Store) Breadcrumb(ctx context.Context, id string) (string, error) {
	var bookingID string
	err := s.db.QueryRow(ctx, `SELECT pending_booking_id FROM sessions WHERE id = $1`, id).Scan(&bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("reading pending booking id: %w", err)
	}
	return bookingID, nil
}

func (s *Store) ClearBreadcrumb(ctx context.Context, id string) error {
	return s.SetBreadcrumb(ctx, id, "")
}

// PurgeStale removes sessions idle for longer than ttl. Run periodically
// from the server loop.
func (s *Store) PurgeStale(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE last_seen < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging stale sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
