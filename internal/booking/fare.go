package booking

import (
	"math"

	models "github.com/raildesk/raildesk/internal"
)

const (
	// ReservationCharge is the flat per-booking charge in the display
	// estimate.
	ReservationCharge = 60
	// GSTRate applies to base fare plus reservation charge, rounded up to
	// the next whole unit.
	GSTRate = 0.05
)

// Fare computes the display fare estimate. The upstream's payment-session
// amount is authoritative; this only exists so the UI can show a breakdown
// before redirecting to payment.
func Fare(farePerSeat float64, passengers int) models.FareBreakdown {
	if passengers <= 0 {
		return models.FareBreakdown{}
	}
	base := farePerSeat * float64(passengers)
	gst := math.Ceil(GSTRate * (base + ReservationCharge))
	return models.FareBreakdown{
		BaseFare:          base,
		ReservationCharge: ReservationCharge,
		GST:               gst,
		Total:             base + ReservationCharge + gst,
	}
}
