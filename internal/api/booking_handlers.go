package api

import (
	"errors"
	"net/http"

	"github.com/raildesk/raildesk/internal/utils"
	"github.com/raildesk/raildesk/pkg/rail"
)

func (s *Server) bookingConfirmation(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if !sess.IsAuthenticated() {
		ae := utils.NewUnauthorized("Please log in to view your bookings.")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	bookingID := r.URL.Query().Get("booking_id")
	paymentSessionID := r.URL.Query().Get("session_id")

	gw := s.gateways(sess)
	ticket, err := s.confirm.Confirm(r.Context(), gw, sess.ID, bookingID, paymentSessionID)
	if err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, ticket)
}

func (s *Server) bookingByPNR(w http.ResponseWriter, r *http.Request) {
	pnr := r.URL.Query().Get("pnr")
	if pnr == "" {
		ae := utils.NewBadRequest("Please enter a PNR number.")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	sess := s.loadSession(w, r)
	gw := s.gateways(sess)
	ticket, err := s.confirm.LookupPNR(r.Context(), gw, pnr)
	if err != nil {
		if errors.Is(err, rail.ErrNotFound) {
			ae := utils.NewNotFound("No booking found for this PNR")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, ticket)
}

// bookingCancel cancels by PNR. A 404 here never touches the session: the
// user stays logged in and only sees the lookup failure.
func (s *Server) bookingCancel(w http.ResponseWriter, r *http.Request) {
	pnr := r.URL.Query().Get("pnr")
	if pnr == "" {
		ae := utils.NewBadRequest("Please enter a PNR number.")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	sess := s.loadSession(w, r)
	gw := s.gateways(sess)
	if err := gw.CancelBooking(r.Context(), pnr); err != nil {
		if errors.Is(err, rail.ErrNotFound) {
			ae := utils.NewNotFound("Booking not found with the provided PNR.")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: "Booking cancelled successfully."})
}
