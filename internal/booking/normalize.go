package booking

import (
	"strings"

	models "github.com/raildesk/raildesk/internal"
)

// The upstream has shipped several shapes for the booking payload: flat
// fields, nested train/coach objects, and a wrapping "booking" object, with
// field-name drift inside each. Normalize probes an ordered list of paths
// per canonical field and takes the first value present, so the view layer
// only ever sees one shape.
//
// Placeholders for unresolved fields: "N/A" for names and stations, "--"
// for codes, times and seat numbers, 0 for amounts and ages. Nothing is
// left unset.

// Probe paths per canonical field, in priority order. Dots descend into
// nested objects.
var (
	pnrPaths         = []string{"pnr", "PNR", "booking.pnr"}
	fromPaths        = []string{"fromStation", "source", "from", "booking.fromStation"}
	toPaths          = []string{"toStation", "destination", "to", "booking.toStation"}
	travelDatePaths  = []string{"travelDate", "journeyDate", "date", "booking.travelDate"}
	statusPaths      = []string{"bookingStatus", "status"}
	trainNumberPaths = []string{"train.trainNumber", "train.number", "train.code", "trainNumber", "number"}
	trainNamePaths   = []string{"train.trainName", "train.name", "trainName"}
	departurePaths   = []string{"train.departureTime", "departureTime"}
	arrivalPaths     = []string{"train.arrivalTime", "arrivalTime"}
	coachNumberPaths = []string{"coach.coachNumber", "coach.number", "coach.code", "coachNumber", "coachCode"}
	coachClassPaths  = []string{"coach.class", "coach.coachClass", "class", "travelClass"}
	coachFarePaths   = []string{"coach.fare", "fare.perPassenger", "fare.baseFare", "fare.amount"}
	passengerPaths   = []string{"passengers", "passengerList", "booking.passengers"}
	seatNumberPaths  = []string{"seatNumber", "seat", "berthNo", "seatAssignment.number", "allocation.seatNumber"}
)

// Normalize turns a raw booking payload into the canonical ticket model.
// It is total: any subset of populated fields, including none, yields a
// fully populated ticket.
func Normalize(raw map[string]interface{}) models.Ticket {
	ticket := models.Ticket{
		PNR:         str(raw, "N/A", pnrPaths),
		FromStation: str(raw, "N/A", fromPaths),
		ToStation:   str(raw, "N/A", toPaths),
		TravelDate:  str(raw, "--", travelDatePaths),
		Status:      str(raw, "CONFIRMED", statusPaths),
		Train: models.TicketTrain{
			Number:        str(raw, "--", trainNumberPaths),
			Name:          str(raw, "N/A", trainNamePaths),
			DepartureTime: str(raw, "--", departurePaths),
			ArrivalTime:   str(raw, "--", arrivalPaths),
		},
		Coach: models.TicketCoach{
			Number: str(raw, "--", coachNumberPaths),
			Class:  str(raw, "N/A", coachClassPaths),
			Fare:   num(raw, coachFarePaths),
		},
		Passengers: normalizePassengers(raw),
	}
	ticket.Fare = Fare(ticket.Coach.Fare, len(ticket.Passengers))
	return ticket
}

func normalizePassengers(raw map[string]interface{}) []models.TicketPassenger {
	list := rawPassengers(raw)
	passengers := make([]models.TicketPassenger, 0, len(list))
	for _, item := range list {
		p, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		passengers = append(passengers, models.TicketPassenger{
			Name:       str(p, "N/A", []string{"name"}),
			Age:        int(num(p, []string{"age"})),
			Gender:     str(p, "--", []string{"gender", "sex"}),
			SeatNumber: str(p, "--", seatNumberPaths),
			Status:     str(p, "Confirmed", []string{"status", "bookingStatus"}),
		})
	}
	return passengers
}

func rawPassengers(raw map[string]interface{}) []interface{} {
	for _, path := range passengerPaths {
		if v, ok := lookup(raw, path); ok {
			if list, ok := v.([]interface{}); ok {
				return list
			}
		}
	}
	return nil
}

// lookup resolves a dot path against nested JSON objects.
func lookup(m map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = m
	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

// str takes the first path resolving to a non-empty string, else the
// placeholder.
func str(m map[string]interface{}, placeholder string, paths []string) string {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return placeholder
}

// num takes the first path resolving to a number, else 0. JSON numbers
// decode as float64; integers stored as strings are not probed.
func num(m map[string]interface{}, paths []string) float64 {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}
