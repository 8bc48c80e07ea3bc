package wizard_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "github.com/raildesk/raildesk/internal"
	"github.com/raildesk/raildesk/internal/ports"
	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/internal/validator"
	"github.com/raildesk/raildesk/internal/wizard"
	"github.com/raildesk/raildesk/pkg/rail"
)

type fakeGateway struct {
	searchTrains   func(ctx context.Context, criteria models.SearchCriteria) ([]models.TrainOption, error)
	listCoaches    func(ctx context.Context, trainID string) ([]models.CoachOption, error)
	listSeats      func(ctx context.Context, coachID string) ([]models.Seat, error)
	createBooking  func(ctx context.Context, req models.BookingRequest) (string, error)
	createCheckout func(ctx context.Context, req models.CheckoutRequest) (string, error)
}

func (f *fakeGateway) SearchTrains(ctx context.Context, criteria models.SearchCriteria) ([]models.TrainOption, error) {
	return f.searchTrains(ctx, criteria)
}

func (f *fakeGateway) ListCoaches(ctx context.Context, trainID string) ([]models.CoachOption, error) {
	return f.listCoaches(ctx, trainID)
}

func (f *fakeGateway) ListSeats(ctx context.Context, coachID string) ([]models.Seat, error) {
	return f.listSeats(ctx, coachID)
}

func (f *fakeGateway) CreateBooking(ctx context.Context, req models.BookingRequest) (string, error) {
	return f.createBooking(ctx, req)
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (string, error) {
	return f.createCheckout(ctx, req)
}

func (f *fakeGateway) GetBooking(ctx context.Context, id string) (map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeGateway) GetBookingByPNR(ctx context.Context, pnr string) (map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeGateway) CancelBooking(ctx context.Context, pnr string) error { return nil }

func (f *fakeGateway) ListTrains(ctx context.Context) ([]models.Train, error) { return nil, nil }

func (f *fakeGateway) AddTrain(ctx context.Context, train models.Train) (*models.Train, error) {
	return nil, nil
}

func (f *fakeGateway) UpdateTrain(ctx context.Context, train models.Train) (*models.Train, error) {
	return nil, nil
}

func (f *fakeGateway) DeleteTrain(ctx context.Context, id string) error { return nil }

func (f *fakeGateway) CreateSupportTicket(ctx context.Context, ticket models.SupportTicket) (*models.SupportTicket, error) {
	return nil, nil
}

func (f *fakeGateway) ListSupportTickets(ctx context.Context) ([]models.SupportTicket, error) {
	return nil, nil
}

type fakeCrumbs struct {
	mu     sync.Mutex
	crumbs map[string]string
}

func newFakeCrumbs() *fakeCrumbs {
	return &fakeCrumbs{crumbs: map[string]string{}}
}

func (f *fakeCrumbs) SetBreadcrumb(ctx context.Context, id, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crumbs[id] = bookingID
	return nil
}

func (f *fakeCrumbs) Breadcrumb(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.crumbs[id], nil
}

func (f *fakeCrumbs) ClearBreadcrumb(ctx context.Context, id string) error {
	return f.SetBreadcrumb(ctx, id, "")
}

var (
	testTrains = []models.TrainOption{
		{ID: "t1", Name: "Rajdhani Express", Number: "12301", FromStation: "New Delhi", ToStation: "Mumbai"},
	}
	testCoaches = []models.CoachOption{
		{ID: "c1", CoachNumber: "B1", CoachType: models.CoachAC3Tier, FarePerSeat: 800},
	}
	testSeats = []models.Seat{
		{ID: "s1", SeatNumber: "1", Available: true},
		{ID: "s2", SeatNumber: "2", Available: true},
		{ID: "s3", SeatNumber: "3", Available: true},
		{ID: "s4", SeatNumber: "4", Available: false},
	}
	testCriteria = models.SearchCriteria{Source: "Delhi", Destination: "Mumbai", Date: "2025-01-01"}
)

func seededGateway() *fakeGateway {
	return &fakeGateway{
		searchTrains: func(ctx context.Context, criteria models.SearchCriteria) ([]models.TrainOption, error) {
			return testTrains, nil
		},
		listCoaches: func(ctx context.Context, trainID string) ([]models.CoachOption, error) {
			return testCoaches, nil
		},
		listSeats: func(ctx context.Context, coachID string) ([]models.Seat, error) {
			return testSeats, nil
		},
		createBooking: func(ctx context.Context, req models.BookingRequest) (string, error) {
			return "B1", nil
		},
		createCheckout: func(ctx context.Context, req models.CheckoutRequest) (string, error) {
			return "https://pay.example/x", nil
		},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testPayment() wizard.Payment {
	return wizard.Payment{
		Currency:           "inr",
		SuccessURLTemplate: "https://ui.test/confirm?booking_id=%s",
		CancelURLTemplate:  "https://ui.test/cancel?booking_id=%s",
	}
}

func authedSession() *session.Session {
	return &session.Session{ID: "sess-1", UserID: "u1", Token: "tok", RefreshToken: "refresh", Role: models.RoleUser}
}

func newTestWizard(gw ports.RailGateway, crumbs ports.Breadcrumbs, sess *session.Session) *wizard.Wizard {
	return wizard.New(sess, gw, crumbs, validator.NewCustomValidator(), testPayment(), quietLogger())
}

// advance drives a fresh wizard up to the seats-chosen step with two seats.
func advance(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	ctx := context.Background()

	trains, err := w.Search(ctx, testCriteria)
	require.NoError(t, err)
	require.Len(t, trains, 1)

	coaches, err := w.SelectTrain(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, coaches, 1)

	seats, err := w.SelectCoach(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, seats, 4)

	require.NoError(t, w.ToggleSeat("s1"))
	require.NoError(t, w.ToggleSeat("s2"))
}

func TestWizard_SearchValidation(t *testing.T) {
	called := false
	gw := seededGateway()
	gw.searchTrains = func(ctx context.Context, criteria models.SearchCriteria) ([]models.TrainOption, error) {
		called = true
		return nil, nil
	}
	w := newTestWizard(gw, newFakeCrumbs(), authedSession())

	_, err := w.Search(context.Background(), models.SearchCriteria{Source: "D3lhi", Destination: "Mumbai", Date: "2025-01-01"})

	var ve *wizard.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Source station must contain only letters and spaces.", ve.Fields["source"])
	assert.False(t, called, "invalid criteria must not reach the backend")
}

func TestWizard_SearchNoTrains(t *testing.T) {
	gw := seededGateway()
	gw.searchTrains = func(ctx context.Context, criteria models.SearchCriteria) ([]models.TrainOption, error) {
		return []models.TrainOption{}, nil
	}
	w := newTestWizard(gw, newFakeCrumbs(), authedSession())

	_, err := w.Search(context.Background(), testCriteria)
	assert.ErrorIs(t, err, wizard.ErrNoTrains)
	assert.Equal(t, wizard.StateSearch, w.Snapshot().State)
}

func TestWizard_SeatSelectionRules(t *testing.T) {
	t.Run("toggle removes a selected seat", func(t *testing.T) {
		w := newTestWizard(seededGateway(), newFakeCrumbs(), authedSession())
		advance(t, w)

		require.NoError(t, w.ToggleSeat("s1"))
		assert.Equal(t, []string{"s2"}, w.Snapshot().Selection)
	})

	t.Run("unavailable seat is a no-op", func(t *testing.T) {
		w := newTestWizard(seededGateway(), newFakeCrumbs(), authedSession())
		advance(t, w)

		require.NoError(t, w.ToggleSeat("s4"))
		assert.Equal(t, []string{"s1", "s2"}, w.Snapshot().Selection)
	})

	t.Run("seventh seat is rejected and the selection stands", func(t *testing.T) {
		gw := seededGateway()
		gw.listSeats = func(ctx context.Context, coachID string) ([]models.Seat, error) {
			seats := make([]models.Seat, 8)
			for i := range seats {
				seats[i] = models.Seat{ID: string(rune('a' + i)), SeatNumber: string(rune('1' + i)), Available: true}
			}
			return seats, nil
		}
		w := newTestWizard(gw, newFakeCrumbs(), authedSession())

		ctx := context.Background()
		_, err := w.Search(ctx, testCriteria)
		require.NoError(t, err)
		_, err = w.SelectTrain(ctx, "t1")
		require.NoError(t, err)
		_, err = w.SelectCoach(ctx, "c1")
		require.NoError(t, err)

		for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
			require.NoError(t, w.ToggleSeat(id))
		}
		err = w.ToggleSeat("g")
		assert.ErrorIs(t, err, wizard.ErrTooManySeats)
		assert.Len(t, w.Snapshot().Selection, 6)
	})

	t.Run("switching coaches clears the selection", func(t *testing.T) {
		gw := seededGateway()
		gw.listCoaches = func(ctx context.Context, trainID string) ([]models.CoachOption, error) {
			return []models.CoachOption{
				{ID: "c1", CoachNumber: "B1", CoachType: models.CoachAC3Tier, FarePerSeat: 800},
				{ID: "c2", CoachNumber: "S2", CoachType: models.CoachSleeper, FarePerSeat: 300},
			}, nil
		}
		w := newTestWizard(gw, newFakeCrumbs(), authedSession())
		advance(t, w)

		_, err := w.SelectCoach(context.Background(), "c2")
		require.NoError(t, err)

		snap := w.Snapshot()
		assert.Empty(t, snap.Selection)
		assert.Equal(t, "c2", snap.Coach.ID)
		assert.Equal(t, wizard.StateCoachSelected, snap.State)
	})
}

func TestWizard_StaleSeatFetchIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	slowSeats := []models.Seat{{ID: "slow", SeatNumber: "9", Available: true}}

	gw := seededGateway()
	gw.listCoaches = func(ctx context.Context, trainID string) ([]models.CoachOption, error) {
		return []models.CoachOption{
			{ID: "c1", CoachNumber: "B1", CoachType: models.CoachAC3Tier, FarePerSeat: 800},
			{ID: "c2", CoachNumber: "S2", CoachType: models.CoachSleeper, FarePerSeat: 300},
		}, nil
	}
	gw.listSeats = func(ctx context.Context, coachID string) ([]models.Seat, error) {
		if coachID == "c1" {
			close(entered)
			<-release
			return slowSeats, nil
		}
		return testSeats, nil
	}

	w := newTestWizard(gw, newFakeCrumbs(), authedSession())
	ctx := context.Background()
	_, err := w.Search(ctx, testCriteria)
	require.NoError(t, err)
	_, err = w.SelectTrain(ctx, "t1")
	require.NoError(t, err)

	done := make(chan []models.Seat, 1)
	go func() {
		seats, err := w.SelectCoach(ctx, "c1")
		assert.NoError(t, err)
		done <- seats
	}()

	<-entered
	seats, err := w.SelectCoach(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, seats, 4)

	close(release)
	assert.Nil(t, <-done, "stale fetch result must be discarded")

	snap := w.Snapshot()
	assert.Equal(t, "c2", snap.Coach.ID)
	assert.Len(t, snap.Seats, 4, "newer coach owns the seat state")
}

func TestWizard_PassengerDraftsFollowSelectionOrder(t *testing.T) {
	w := newTestWizard(seededGateway(), newFakeCrumbs(), authedSession())
	advance(t, w)

	drafts, err := w.ProceedToPassengers()
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "s1", drafts[0].SeatID)
	assert.Equal(t, "s2", drafts[1].SeatID)
}

func TestWizard_ProceedWithoutSeats(t *testing.T) {
	w := newTestWizard(seededGateway(), newFakeCrumbs(), authedSession())
	advance(t, w)
	require.NoError(t, w.ToggleSeat("s1"))
	require.NoError(t, w.ToggleSeat("s2"))

	_, err := w.ProceedToPassengers()
	assert.ErrorIs(t, err, wizard.ErrNoSeats)
}

func TestWizard_SubmitHappyPath(t *testing.T) {
	var bookingReq models.BookingRequest
	var checkoutReq models.CheckoutRequest

	gw := seededGateway()
	gw.createBooking = func(ctx context.Context, req models.BookingRequest) (string, error) {
		bookingReq = req
		return "B1", nil
	}
	gw.createCheckout = func(ctx context.Context, req models.CheckoutRequest) (string, error) {
		checkoutReq = req
		return "https://pay.example/x", nil
	}

	w := newTestWizard(gw, newFakeCrumbs(), authedSession())
	advance(t, w)

	_, err := w.ProceedToPassengers()
	require.NoError(t, err)
	require.NoError(t, w.SetPassengerField(0, "name", "Asha Rao"))
	require.NoError(t, w.SetPassengerField(0, "age", 30))
	require.NoError(t, w.SetPassengerField(0, "gender", "female"))
	require.NoError(t, w.SetPassengerField(1, "name", "Ravi Kumar"))
	require.NoError(t, w.SetPassengerField(1, "age", 34))
	require.NoError(t, w.SetPassengerField(1, "gender", "male"))

	redirectURL, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/x", redirectURL)

	assert.Equal(t, "t1", bookingReq.TrainID)
	assert.Equal(t, "c1", bookingReq.CoachID)
	assert.Equal(t, "Delhi", bookingReq.FromStation)
	assert.Equal(t, "Mumbai", bookingReq.ToStation)
	assert.Equal(t, "2025-01-01", bookingReq.TravelDate)
	assert.Equal(t, []string{"s1", "s2"}, bookingReq.SeatIDs)
	assert.Equal(t, "pending_payment", bookingReq.Status)

	// 800 x 2 + 60 reservation + ceil(5% of 1660)
	assert.Equal(t, float64(1743), bookingReq.TotalFare)

	require.Len(t, bookingReq.Passengers, 2)
	assert.Equal(t, "Asha Rao", bookingReq.Passengers[0].Name)
	assert.Equal(t, "s1", bookingReq.Passengers[0].SeatID)
	assert.Equal(t, "Ravi Kumar", bookingReq.Passengers[1].Name)
	assert.Equal(t, "s2", bookingReq.Passengers[1].SeatID)

	assert.Equal(t, "B1", checkoutReq.BookingID)
	assert.Equal(t, int64(174300), checkoutReq.Amount)
	assert.Equal(t, "inr", checkoutReq.Currency)
	assert.Equal(t, "https://ui.test/confirm?booking_id=B1", checkoutReq.SuccessURL)
	assert.Equal(t, "B1", checkoutReq.Metadata["bookingId"])
	assert.Equal(t, "u1", checkoutReq.Metadata["userId"])

	snap := w.Snapshot()
	assert.Equal(t, wizard.StatePaymentRedirected, snap.State)
	assert.Equal(t, "https://pay.example/x", snap.RedirectURL)
}

func TestWizard_SubmitRequiresAuthentication(t *testing.T) {
	gw := seededGateway()
	gw.createBooking = func(ctx context.Context, req models.BookingRequest) (string, error) {
		t.Fatal("booking must not be created for an anonymous session")
		return "", nil
	}

	anon := &session.Session{ID: "sess-anon"}
	w := newTestWizard(gw, newFakeCrumbs(), anon)
	advance(t, w)

	_, err := w.ProceedToPassengers()
	require.NoError(t, err)
	require.NoError(t, w.SetPassengerField(0, "name", "Asha Rao"))
	require.NoError(t, w.SetPassengerField(0, "age", 30))
	require.NoError(t, w.SetPassengerField(0, "gender", "female"))
	require.NoError(t, w.SetPassengerField(1, "name", "Ravi Kumar"))
	require.NoError(t, w.SetPassengerField(1, "age", 34))
	require.NoError(t, w.SetPassengerField(1, "gender", "male"))

	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, wizard.ErrNotAuthenticated)
}

func TestWizard_SubmitBlocksOnInvalidPassengers(t *testing.T) {
	gw := seededGateway()
	gw.createBooking = func(ctx context.Context, req models.BookingRequest) (string, error) {
		t.Fatal("booking must not be created with invalid passengers")
		return "", nil
	}

	w := newTestWizard(gw, newFakeCrumbs(), authedSession())
	advance(t, w)
	_, err := w.ProceedToPassengers()
	require.NoError(t, err)
	require.NoError(t, w.SetPassengerField(0, "name", "X"))

	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, wizard.ErrInvalidPassengers)

	snap := w.Snapshot()
	assert.Equal(t, "Name must be at least 2 characters and contain only letters.",
		snap.FieldErrors["passenger-0-name"])
}

func TestWizard_SnapshotFieldErrorsAreDetached(t *testing.T) {
	w := newTestWizard(seededGateway(), newFakeCrumbs(), authedSession())
	advance(t, w)
	_, err := w.ProceedToPassengers()
	require.NoError(t, err)
	require.NoError(t, w.SetPassengerField(0, "name", "X"))

	_, err = w.Submit(context.Background())
	require.ErrorIs(t, err, wizard.ErrInvalidPassengers)

	snap := w.Snapshot()
	require.Contains(t, snap.FieldErrors, "passenger-0-name")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = w.SetPassengerField(0, "name", "Asha Rao")
			_ = w.SetPassengerField(0, "name", "X")
		}
	}()
	for i := 0; i < 100; i++ {
		for range snap.FieldErrors {
		}
	}
	<-done

	assert.Contains(t, snap.FieldErrors, "passenger-0-name",
		"edits after the snapshot must not reach it")
}

func TestWizard_CheckoutFailureLeavesBreadcrumb(t *testing.T) {
	crumbs := newFakeCrumbs()
	gw := seededGateway()
	gw.createCheckout = func(ctx context.Context, req models.CheckoutRequest) (string, error) {
		return "", &rail.StatusError{Code: http.StatusBadGateway, Message: "payment provider down"}
	}

	w := newTestWizard(gw, crumbs, authedSession())
	advance(t, w)
	_, err := w.ProceedToPassengers()
	require.NoError(t, err)
	require.NoError(t, w.SetPassengerField(0, "name", "Asha Rao"))
	require.NoError(t, w.SetPassengerField(0, "age", 30))
	require.NoError(t, w.SetPassengerField(0, "gender", "female"))
	require.NoError(t, w.SetPassengerField(1, "name", "Ravi Kumar"))
	require.NoError(t, w.SetPassengerField(1, "age", 34))
	require.NoError(t, w.SetPassengerField(1, "gender", "male"))

	_, err = w.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking B1 created")

	crumb, _ := crumbs.Breadcrumb(context.Background(), "sess-1")
	assert.Equal(t, "B1", crumb)
	assert.Equal(t, wizard.StatePassengerForm, w.Snapshot().State)
}

func TestWizard_ForbiddenBookingSurfacesVerbatim(t *testing.T) {
	gw := seededGateway()
	gw.createBooking = func(ctx context.Context, req models.BookingRequest) (string, error) {
		return "", &rail.StatusError{Code: http.StatusForbidden, Message: "Access denied: account suspended"}
	}

	w := newTestWizard(gw, newFakeCrumbs(), authedSession())
	advance(t, w)
	_, err := w.ProceedToPassengers()
	require.NoError(t, err)
	require.NoError(t, w.SetPassengerField(0, "name", "Asha Rao"))
	require.NoError(t, w.SetPassengerField(0, "age", 30))
	require.NoError(t, w.SetPassengerField(0, "gender", "female"))
	require.NoError(t, w.SetPassengerField(1, "name", "Ravi Kumar"))
	require.NoError(t, w.SetPassengerField(1, "age", 34))
	require.NoError(t, w.SetPassengerField(1, "gender", "male"))

	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, rail.ErrForbidden)

	var se *rail.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Access denied: account suspended", se.Message)
}

func TestWizard_BackTransitions(t *testing.T) {
	w := newTestWizard(seededGateway(), newFakeCrumbs(), authedSession())
	advance(t, w)
	_, err := w.ProceedToPassengers()
	require.NoError(t, err)

	require.NoError(t, w.Back())
	snap := w.Snapshot()
	assert.Equal(t, wizard.StateSeatsChosen, snap.State)
	assert.Equal(t, []string{"s1", "s2"}, snap.Selection, "backing out keeps the seat selection")

	require.NoError(t, w.Back())
	assert.Equal(t, wizard.StateTrainSelected, w.Snapshot().State)

	require.NoError(t, w.Back())
	assert.Equal(t, wizard.StateSearch, w.Snapshot().State)

	assert.ErrorIs(t, w.Back(), wizard.ErrBadTransition)
}

func TestWizard_SnapshotFare(t *testing.T) {
	w := newTestWizard(seededGateway(), newFakeCrumbs(), authedSession())
	advance(t, w)

	snap := w.Snapshot()
	require.NotNil(t, snap.Fare)
	assert.Equal(t, float64(1600), snap.Fare.BaseFare)
	assert.Equal(t, float64(1743), snap.Fare.Total)
}

func TestManager(t *testing.T) {
	gw := seededGateway()
	m := wizard.NewManager(
		func(sess *session.Session) ports.RailGateway { return gw },
		newFakeCrumbs(),
		validator.NewCustomValidator(),
		testPayment(),
		quietLogger(),
	)

	sess := authedSession()
	w1 := m.GetOrCreate(sess)
	w2 := m.GetOrCreate(sess)
	assert.Same(t, w1, w2, "one wizard per session")

	got, err := m.Get(sess)
	require.NoError(t, err)
	assert.Same(t, w1, got)

	m.Evict(sess.ID)
	_, err = m.Get(sess)
	assert.True(t, errors.Is(err, wizard.ErrNoWizard))
}
