package auth_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildesk/raildesk/internal/auth"
	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/pkg/rail"
)

type fakeRefreshClient struct {
	refreshFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (f *fakeRefreshClient) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return f.refreshFunc(ctx, refreshToken)
}

type fakeTokenStore struct {
	mu      sync.Mutex
	updated []string
	deleted []string
}

func (f *fakeTokenStore) UpdateToken(ctx context.Context, id, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, token)
	return nil
}

func (f *fakeTokenStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func unauthorized() error {
	return &rail.StatusError{Code: http.StatusUnauthorized, Message: "token expired"}
}

func testSession() *session.Session {
	return &session.Session{
		ID:           "sess-1",
		UserID:       "u1",
		Token:        "old",
		RefreshToken: "refresh-1",
	}
}

func TestRefresher_PassthroughWithout401(t *testing.T) {
	refresher := auth.NewRefresher(&fakeRefreshClient{
		refreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
			t.Fatal("refresh must not be called")
			return "", nil
		},
	}, &fakeTokenStore{}, quietLogger())

	calls := 0
	err := refresher.Do(context.Background(), testSession(), func(ctx context.Context, token string) error {
		calls++
		assert.Equal(t, "old", token)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRefresher_NonAuthErrorsPassThrough(t *testing.T) {
	refresher := auth.NewRefresher(&fakeRefreshClient{
		refreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
			t.Fatal("refresh must not be called")
			return "", nil
		},
	}, &fakeTokenStore{}, quietLogger())

	wantErr := &rail.StatusError{Code: http.StatusForbidden, Message: "Access denied"}
	calls := 0
	err := refresher.Do(context.Background(), testSession(), func(ctx context.Context, token string) error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, rail.ErrForbidden)
	assert.Equal(t, 1, calls)
}

func TestRefresher_RefreshAndReplayOnce(t *testing.T) {
	store := &fakeTokenStore{}
	refresher := auth.NewRefresher(&fakeRefreshClient{
		refreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
			assert.Equal(t, "refresh-1", refreshToken)
			return "new", nil
		},
	}, store, quietLogger())

	sess := testSession()
	var seen []string
	err := refresher.Do(context.Background(), sess, func(ctx context.Context, token string) error {
		seen = append(seen, token)
		if token == "old" {
			return unauthorized()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, seen)
	assert.Equal(t, "new", sess.Token)
	assert.Equal(t, []string{"new"}, store.updated)
}

func TestRefresher_SecondUnauthorizedIsNotRetried(t *testing.T) {
	refresher := auth.NewRefresher(&fakeRefreshClient{
		refreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
			return "new", nil
		},
	}, &fakeTokenStore{}, quietLogger())

	calls := 0
	err := refresher.Do(context.Background(), testSession(), func(ctx context.Context, token string) error {
		calls++
		return unauthorized()
	})

	assert.ErrorIs(t, err, rail.ErrUnauthorized)
	assert.Equal(t, 2, calls, "exactly one replay, never a loop")
}

func TestRefresher_RefreshFailureDestroysSession(t *testing.T) {
	store := &fakeTokenStore{}
	refresher := auth.NewRefresher(&fakeRefreshClient{
		refreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
			return "", &rail.StatusError{Code: http.StatusUnauthorized, Message: "refresh token expired"}
		},
	}, store, quietLogger())

	err := refresher.Do(context.Background(), testSession(), func(ctx context.Context, token string) error {
		if token == "old" {
			return unauthorized()
		}
		return nil
	})

	assert.ErrorIs(t, err, auth.ErrSessionExpired)
	assert.Equal(t, []string{"sess-1"}, store.deleted)
}

func TestRefresher_NoRefreshTokenDestroysSession(t *testing.T) {
	store := &fakeTokenStore{}
	refresher := auth.NewRefresher(&fakeRefreshClient{
		refreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
			t.Fatal("refresh must not be called without a refresh token")
			return "", nil
		},
	}, store, quietLogger())

	sess := testSession()
	sess.RefreshToken = ""
	err := refresher.Do(context.Background(), sess, func(ctx context.Context, token string) error {
		return unauthorized()
	})

	assert.ErrorIs(t, err, auth.ErrSessionExpired)
	assert.Equal(t, []string{"sess-1"}, store.deleted)
}

func TestRefresher_ConcurrentFailuresShareOneRefresh(t *testing.T) {
	const workers = 25

	var refreshCalls int32
	var failed sync.WaitGroup
	failed.Add(workers)

	refresher := auth.NewRefresher(&fakeRefreshClient{
		refreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
			atomic.AddInt32(&refreshCalls, 1)
			// hold the refresh open until every worker has taken its 401,
			// so all of them join this in-flight exchange
			failed.Wait()
			time.Sleep(50 * time.Millisecond)
			return "new", nil
		},
	}, &fakeTokenStore{}, quietLogger())

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// each request carries its own copy of the session record
			sess := testSession()
			first := true
			errs[i] = refresher.Do(context.Background(), sess, func(ctx context.Context, token string) error {
				if first {
					first = false
					failed.Done()
					return unauthorized()
				}
				assert.Equal(t, "new", token)
				return nil
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls), "all workers must share one refresh")
}
