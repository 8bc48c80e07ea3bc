package models

// Role is the upstream-assigned user role carried on a session.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	RoleAgent Role = "AGENT"
)

type CoachType string

const (
	CoachSleeper             CoachType = "SLEEPER"
	CoachAC3Tier             CoachType = "AC_3_TIER"
	CoachAC2Tier             CoachType = "AC_2_TIER"
	CoachACFirstClass        CoachType = "AC_FIRST_CLASS"
	CoachFirstClass          CoachType = "FIRST_CLASS"
	CoachChairCar            CoachType = "CHAIR_CAR"
	CoachACChairCar          CoachType = "AC_CHAIR_CAR"
	CoachACExecutiveChairCar CoachType = "AC_EXECUTIVE_CHAIR_CAR"
	CoachSecondSitting       CoachType = "SECOND_SITTING"
	CoachAC3TierEconomy      CoachType = "AC_3_TIER_ECONOMY"
)

// SearchCriteria is one search submission. Station names are restricted to
// letters and spaces; the date is the journey date in YYYY-MM-DD form.
type SearchCriteria struct {
	Source      string `json:"source" validate:"required,station_name"`
	Destination string `json:"destination" validate:"required,station_name"`
	Date        string `json:"date" validate:"required,journey_date"`
}

type TrainOption struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Number        string `json:"number"`
	FromStation   string `json:"fromStation"`
	ToStation     string `json:"toStation"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
}

type CoachOption struct {
	ID          string    `json:"id"`
	CoachNumber string    `json:"coachNumber"`
	CoachType   CoachType `json:"coachType"`
	FarePerSeat float64   `json:"farePerSeat"`
}

type Seat struct {
	ID         string `json:"id"`
	SeatNumber string `json:"seatNumber"`
	Available  bool   `json:"available"`
}

// PassengerDraft is the form state for one passenger, created per selected
// seat. SeatID is assigned when the passenger form is initialized and keeps
// draft order aligned with seat-selection order.
type PassengerDraft struct {
	Name   string `json:"name" validate:"passenger_name"`
	Age    int    `json:"age" validate:"gte=1,lte=120"`
	Gender string `json:"gender" validate:"required,gender"`
	SeatID string `json:"seatId"`
}

type BookingPassenger struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	SeatID string `json:"seatId"`
}

// BookingRequest is the outbound payload for booking creation. TotalFare is
// the client-side display estimate; the upstream recomputes the charged
// amount itself.
type BookingRequest struct {
	TrainID     string             `json:"trainId"`
	CoachID     string             `json:"coachId"`
	FromStation string             `json:"fromStation"`
	ToStation   string             `json:"toStation"`
	TravelDate  string             `json:"travelDate"`
	Passengers  []BookingPassenger `json:"passengers"`
	SeatIDs     []string           `json:"seatIds"`
	TotalFare   float64            `json:"totalFare"`
	Status      string             `json:"status"`
}

// CheckoutRequest creates a payment session for an existing booking. Amount
// is in the currency's smallest unit.
type CheckoutRequest struct {
	BookingID   string            `json:"bookingId"`
	Description string            `json:"description"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type Registration struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResponse is the upstream login/register/refresh payload.
type AuthResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Train is the admin-facing train record proxied to the upstream CRUD
// endpoints.
type Train struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name" validate:"required,min=2"`
	Number        string `json:"number" validate:"required"`
	FromStation   string `json:"fromStation" validate:"required,station_name"`
	ToStation     string `json:"toStation" validate:"required,station_name"`
	DepartureTime string `json:"departureTime" validate:"required"`
	ArrivalTime   string `json:"arrivalTime" validate:"required"`
}

type SupportTicket struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Subject   string `json:"subject" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// FareBreakdown is the display estimate recomputed client-side; the payment
// session amount from the upstream is authoritative.
type FareBreakdown struct {
	BaseFare          float64 `json:"baseFare"`
	ReservationCharge float64 `json:"reservationCharge"`
	GST               float64 `json:"gst"`
	Total             float64 `json:"total"`
}

// Ticket is the canonical display model produced by normalizing the
// heterogeneous upstream booking payloads. No field is ever left unset: the
// normalizer substitutes documented placeholders instead.
type Ticket struct {
	PNR         string            `json:"pnr"`
	FromStation string            `json:"fromStation"`
	ToStation   string            `json:"toStation"`
	TravelDate  string            `json:"travelDate"`
	Status      string            `json:"bookingStatus"`
	Train       TicketTrain       `json:"train"`
	Coach       TicketCoach       `json:"coach"`
	Passengers  []TicketPassenger `json:"passengers"`
	Fare        FareBreakdown     `json:"fare"`
}

type TicketTrain struct {
	Number        string `json:"number"`
	Name          string `json:"name"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
}

type TicketCoach struct {
	Number string  `json:"number"`
	Class  string  `json:"class"`
	Fare   float64 `json:"fare"`
}

type TicketPassenger struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	SeatNumber string `json:"seatNumber"`
	Status     string `json:"status"`
}
