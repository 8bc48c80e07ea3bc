package wizard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	models "github.com/raildesk/raildesk/internal"
	"github.com/raildesk/raildesk/internal/booking"
	"github.com/raildesk/raildesk/internal/ports"
	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/internal/validator"
)

// State is the wizard's position in the booking flow. Transitions are
// linear; going back is explicit, skipping forward is not possible.
type State string

const (
	StateSearch            State = "SEARCH"
	StateTrainSelected     State = "TRAIN_SELECTED"
	StateCoachSelected     State = "COACH_SELECTED"
	StateSeatsChosen       State = "SEATS_CHOSEN"
	StatePassengerForm     State = "PASSENGER_FORM"
	StatePaymentPending    State = "PAYMENT_PENDING"
	StatePaymentRedirected State = "PAYMENT_REDIRECTED"
)

// MaxSeats is the per-booking seat selection cap.
const MaxSeats = 6

var (
	// user-visible messages; handlers render them verbatim
	ErrTooManySeats      = fmt.Errorf("You can select a maximum of %d seats.", MaxSeats)
	ErrNoSeats           = errors.New("Please select at least one seat")
	ErrInvalidPassengers = errors.New("Please correct the passenger details.")
	ErrNotAuthenticated  = errors.New("Please log in to continue with the booking.")
	ErrBusy              = errors.New("A booking request is already in progress.")
	ErrBadTransition     = errors.New("That action is not available at this step.")
	ErrUnknownTrain      = errors.New("The selected train is not in the search results.")
	ErrUnknownCoach      = errors.New("The selected coach is not available for this train.")
	ErrNoTrains          = errors.New("No trains found for the selected route and date.")
)

// Payment carries the checkout parameters the wizard needs to build a
// payment session: URL templates receive the booking id.
type Payment struct {
	Currency           string
	SuccessURLTemplate string
	CancelURLTemplate  string
}

// Wizard drives one user's booking flow. All methods are safe for
// concurrent use; upstream fetches run outside the lock and re-validate
// the selection before writing results back, so a stale response can never
// clobber a newer selection.
type Wizard struct {
	mu sync.Mutex

	state     State
	criteria  models.SearchCriteria
	trains    []models.TrainOption
	train     *models.TrainOption
	coaches   []models.CoachOption
	coach     *models.CoachOption
	seats     []models.Seat
	seatEpoch int
	selection []string
	drafts    []models.PassengerDraft
	fieldErrs map[string]string
	redirect  string
	busy      bool

	sess     *session.Session
	gateway  ports.RailGateway
	crumbs   ports.Breadcrumbs
	validate *validator.CustomValidator
	payment  Payment
	log      *logrus.Logger
}

func New(sess *session.Session, gateway ports.RailGateway, crumbs ports.Breadcrumbs, validate *validator.CustomValidator, payment Payment, log *logrus.Logger) *Wizard {
	return &Wizard{
		state:     StateSearch,
		fieldErrs: map[string]string{},
		sess:      sess,
		gateway:   gateway,
		crumbs:    crumbs,
		validate:  validate,
		payment:   payment,
		log:       log,
	}
}

// Search fetches trains for the criteria. An empty result returns
// ErrNoTrains, which is a message, not a request failure; the wizard stays
// in the search step either way until a train is selected.
func (w *Wizard) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.TrainOption, error) {
	if errs := w.validate.SearchErrors(criteria); len(errs) > 0 {
		w.mu.Lock()
		w.fieldErrs = errs
		w.mu.Unlock()
		return nil, ErrInvalidSearch(errs)
	}

	w.mu.Lock()
	gw := w.gateway
	w.mu.Unlock()

	trains, err := gw.SearchTrains(ctx, criteria)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
	w.criteria = criteria
	w.trains = trains
	if len(trains) == 0 {
		return nil, ErrNoTrains
	}
	return trains, nil
}

// SelectTrain moves into coach selection and fetches the train's coaches.
func (w *Wizard) SelectTrain(ctx context.Context, trainID string) ([]models.CoachOption, error) {
	w.mu.Lock()
	train := findTrain(w.trains, trainID)
	if train == nil {
		w.mu.Unlock()
		return nil, ErrUnknownTrain
	}
	w.train = train
	w.coach = nil
	w.seats = nil
	w.selection = nil
	w.drafts = nil
	w.state = StateTrainSelected
	gw := w.gateway
	w.mu.Unlock()

	coaches, err := gw.ListCoaches(ctx, trainID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.train == nil || w.train.ID != trainID {
		// selection changed while the fetch was in flight
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.coaches = coaches
	return coaches, nil
}

// SelectCoach fetches the seat layout for a coach. Switching coaches always
// clears the seat selection: selections are not portable across coaches. A
// seat fetch that completes after the user has already moved to another
// coach is discarded.
func (w *Wizard) SelectCoach(ctx context.Context, coachID string) ([]models.Seat, error) {
	w.mu.Lock()
	if w.state == StateSearch {
		w.mu.Unlock()
		return nil, ErrBadTransition
	}
	coach := findCoach(w.coaches, coachID)
	if coach == nil {
		w.mu.Unlock()
		return nil, ErrUnknownCoach
	}
	w.coach = coach
	w.seats = nil
	w.selection = nil
	w.drafts = nil
	w.state = StateCoachSelected
	w.seatEpoch++
	epoch := w.seatEpoch
	gw := w.gateway
	w.mu.Unlock()

	seats, err := gw.ListSeats(ctx, coachID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seatEpoch != epoch || w.coach == nil || w.coach.ID != coachID {
		// stale fetch; a newer coach selection owns the seat state now
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.seats = seats
	return seats, nil
}

// ToggleSeat adds or removes a seat from the pending selection. Selecting
// beyond the cap is rejected with a visible error and leaves the selection
// untouched; toggling an unavailable seat is a no-op. Selection order is
// stable and later fixes the passenger-to-seat pairing.
func (w *Wizard) ToggleSeat(seatID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateCoachSelected && w.state != StateSeatsChosen {
		return ErrBadTransition
	}

	for i, id := range w.selection {
		if id == seatID {
			w.selection = append(w.selection[:i], w.selection[i+1:]...)
			if len(w.selection) == 0 {
				w.state = StateCoachSelected
			}
			return nil
		}
	}

	seat := findSeat(w.seats, seatID)
	if seat == nil || !seat.Available {
		return nil
	}
	if len(w.selection) >= MaxSeats {
		return ErrTooManySeats
	}
	w.selection = append(w.selection, seatID)
	w.state = StateSeatsChosen
	return nil
}

// ProceedToPassengers initializes one empty draft per selected seat, in
// selection order.
func (w *Wizard) ProceedToPassengers() ([]models.PassengerDraft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSeatsChosen {
		if w.state == StateCoachSelected {
			return nil, ErrNoSeats
		}
		return nil, ErrBadTransition
	}

	w.drafts = make([]models.PassengerDraft, len(w.selection))
	for i, seatID := range w.selection {
		w.drafts[i] = models.PassengerDraft{SeatID: seatID}
	}
	w.fieldErrs = map[string]string{}
	w.state = StatePassengerForm
	return w.drafts, nil
}

// SetPassengerField updates one draft field and clears that field's
// validation error, mirroring the form's field-by-field editing.
func (w *Wizard) SetPassengerField(index int, field string, value interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StatePassengerForm {
		return ErrBadTransition
	}
	if index < 0 || index >= len(w.drafts) {
		return fmt.Errorf("no passenger at index %d", index)
	}

	switch field {
	case "name":
		s, _ := value.(string)
		w.drafts[index].Name = s
	case "age":
		switch v := value.(type) {
		case float64:
			w.drafts[index].Age = int(v)
		case int:
			w.drafts[index].Age = v
		default:
			return fmt.Errorf("age must be a number")
		}
	case "gender":
		s, _ := value.(string)
		w.drafts[index].Gender = s
	default:
		return fmt.Errorf("unknown passenger field %q", field)
	}

	delete(w.fieldErrs, fmt.Sprintf("passenger-%d-%s", index, field))
	return nil
}

// Submit validates all drafts, creates the booking and the payment session,
// and returns the payment page URL. If the booking is created but the
// payment session fails, the booking id is stored as a recovery breadcrumb
// and the error is surfaced without retrying. Only one Submit may be in
// flight per wizard.
func (w *Wizard) Submit(ctx context.Context) (string, error) {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return "", ErrBusy
	}
	if w.state != StatePassengerForm {
		w.mu.Unlock()
		return "", ErrBadTransition
	}

	if errs := w.validate.PassengerErrors(w.drafts); len(errs) > 0 {
		w.fieldErrs = errs
		w.mu.Unlock()
		return "", ErrInvalidPassengers
	}

	sess := w.sess
	if !sess.IsAuthenticated() {
		w.mu.Unlock()
		return "", ErrNotAuthenticated
	}

	fare := booking.Fare(w.coach.FarePerSeat, len(w.selection))
	passengers := make([]models.BookingPassenger, len(w.drafts))
	for i, d := range w.drafts {
		passengers[i] = models.BookingPassenger{
			Name:   d.Name,
			Age:    d.Age,
			Gender: d.Gender,
			SeatID: w.selection[i],
		}
	}
	req := models.BookingRequest{
		TrainID:     w.train.ID,
		CoachID:     w.coach.ID,
		FromStation: w.criteria.Source,
		ToStation:   w.criteria.Destination,
		TravelDate:  w.criteria.Date,
		Passengers:  passengers,
		SeatIDs:     append([]string(nil), w.selection...),
		TotalFare:   fare.Total,
		Status:      "pending_payment",
	}
	train := *w.train
	coach := *w.coach
	gw := w.gateway
	w.busy = true
	w.state = StatePaymentPending
	w.mu.Unlock()

	bookingID, err := gw.CreateBooking(ctx, req)
	if err != nil {
		// 403s surface verbatim; nothing here is retried
		w.fail()
		return "", err
	}

	checkout := models.CheckoutRequest{
		BookingID:   bookingID,
		Description: fmt.Sprintf("Ticket for %s (%s)", train.Name, train.Number),
		Amount:      int64(math.Round(fare.Total * 100)),
		Currency:    w.payment.Currency,
		SuccessURL:  fmt.Sprintf(w.payment.SuccessURLTemplate, bookingID),
		CancelURL:   fmt.Sprintf(w.payment.CancelURLTemplate, bookingID),
		Metadata: map[string]string{
			"bookingId": bookingID,
			"trainId":   train.ID,
			"coachId":   coach.ID,
			"userId":    sess.UserID,
		},
	}

	redirectURL, err := gw.CreateCheckoutSession(ctx, checkout)
	if err != nil {
		if crumbErr := w.crumbs.SetBreadcrumb(ctx, sess.ID, bookingID); crumbErr != nil {
			w.log.WithError(crumbErr).WithField("booking", bookingID).Warn("failed to store pending booking breadcrumb")
		}
		w.fail()
		return "", fmt.Errorf("booking %s created but payment session failed: %w", bookingID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.redirect = redirectURL
	w.state = StatePaymentRedirected
	return redirectURL, nil
}

// Back steps one state backwards. Forward skipping is impossible; backing
// out of the passenger form keeps the seat selection.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	switch w.state {
	case StatePassengerForm:
		w.drafts = nil
		w.fieldErrs = map[string]string{}
		if len(w.selection) > 0 {
			w.state = StateSeatsChosen
		} else {
			w.state = StateCoachSelected
		}
	case StateSeatsChosen, StateCoachSelected:
		w.coach = nil
		w.seats = nil
		w.selection = nil
		w.state = StateTrainSelected
	case StateTrainSelected:
		w.train = nil
		w.coaches = nil
		w.state = StateSearch
	default:
		return ErrBadTransition
	}
	return nil
}

// Snapshot is the wizard's renderable view.
type Snapshot struct {
	State       State                   `json:"state"`
	Criteria    models.SearchCriteria   `json:"criteria"`
	Trains      []models.TrainOption    `json:"trains,omitempty"`
	Train       *models.TrainOption     `json:"train,omitempty"`
	Coaches     []models.CoachOption    `json:"coaches,omitempty"`
	Coach       *models.CoachOption     `json:"coach,omitempty"`
	Seats       []models.Seat           `json:"seats,omitempty"`
	Selection   []string                `json:"selection,omitempty"`
	Drafts      []models.PassengerDraft `json:"passengers,omitempty"`
	FieldErrors map[string]string       `json:"fieldErrors,omitempty"`
	Fare        *models.FareBreakdown   `json:"fare,omitempty"`
	RedirectURL string                  `json:"redirectUrl,omitempty"`
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	fieldErrs := make(map[string]string, len(w.fieldErrs))
	for k, v := range w.fieldErrs {
		fieldErrs[k] = v
	}
	snap := Snapshot{
		State:       w.state,
		Criteria:    w.criteria,
		Trains:      w.trains,
		Train:       w.train,
		Coaches:     w.coaches,
		Coach:       w.coach,
		Seats:       w.seats,
		Selection:   append([]string(nil), w.selection...),
		Drafts:      append([]models.PassengerDraft(nil), w.drafts...),
		FieldErrors: fieldErrs,
		RedirectURL: w.redirect,
	}
	if w.coach != nil && len(w.selection) > 0 {
		fare := booking.Fare(w.coach.FarePerSeat, len(w.selection))
		snap.Fare = &fare
	}
	return snap
}

// fail returns the wizard to the passenger form after a submit failure so
// the user can retry explicitly.
func (w *Wizard) fail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.state = StatePassengerForm
}

// reset clears everything below the search step.
func (w *Wizard) reset() {
	w.trains = nil
	w.train = nil
	w.coaches = nil
	w.coach = nil
	w.seats = nil
	w.selection = nil
	w.drafts = nil
	w.fieldErrs = map[string]string{}
	w.redirect = ""
	w.state = StateSearch
}

func findTrain(trains []models.TrainOption, id string) *models.TrainOption {
	for i := range trains {
		if trains[i].ID == id {
			return &trains[i]
		}
	}
	return nil
}

func findCoach(coaches []models.CoachOption, id string) *models.CoachOption {
	for i := range coaches {
		if coaches[i].ID == id {
			return &coaches[i]
		}
	}
	return nil
}

func findSeat(seats []models.Seat, id string) *models.Seat {
	for i := range seats {
		if seats[i].ID == id {
			return &seats[i]
		}
	}
	return nil
}
