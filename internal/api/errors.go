package api

import (
	"errors"
	"net/http"

	"github.com/raildesk/raildesk/internal/auth"
	"github.com/raildesk/raildesk/internal/booking"
	"github.com/raildesk/raildesk/internal/utils"
	"github.com/raildesk/raildesk/internal/wizard"
	"github.com/raildesk/raildesk/pkg/rail"
)

// getApiError folds any error from the layers below into the JSON envelope.
// Upstream 403 messages pass through verbatim; everything unrecognized
// collapses to a generic retry-later message rather than leaking internals.
func getApiError(err error) utils.ApiError {
	var ve *wizard.ValidationError
	if errors.As(err, &ve) {
		return utils.NewFieldErrors(ve.Fields)
	}

	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		return utils.NewUnauthorized("Session expired. Please log in again.")
	case errors.Is(err, wizard.ErrNotAuthenticated):
		return utils.NewUnauthorized(err.Error())
	case errors.Is(err, rail.ErrUnauthorized):
		return utils.NewUnauthorized("Please log in to continue.")
	case errors.Is(err, rail.ErrForbidden):
		if msg := upstreamMessage(err); msg != "" {
			return utils.NewForbidden(msg)
		}
		return utils.NewForbidden("You do not have permission to perform this action.")
	case errors.Is(err, rail.ErrNotFound):
		if msg := upstreamMessage(err); msg != "" {
			return utils.NewNotFound(msg)
		}
		return utils.NewNotFound("The requested resource was not found.")
	case errors.Is(err, rail.ErrUnavailable):
		return utils.ApiError{StatusCode: http.StatusBadGateway, Msg: "Unable to reach the booking service. Please try again."}
	case errors.Is(err, booking.ErrNoBookingRef):
		return utils.NewNotFound(err.Error())
	case errors.Is(err, wizard.ErrBusy):
		return utils.ApiError{StatusCode: http.StatusConflict, Msg: err.Error()}
	case errors.Is(err, wizard.ErrNoWizard),
		errors.Is(err, wizard.ErrBadTransition),
		errors.Is(err, wizard.ErrTooManySeats),
		errors.Is(err, wizard.ErrNoSeats),
		errors.Is(err, wizard.ErrNoTrains),
		errors.Is(err, wizard.ErrUnknownTrain),
		errors.Is(err, wizard.ErrUnknownCoach),
		errors.Is(err, wizard.ErrInvalidPassengers):
		return utils.NewBadRequest(err.Error())
	}
	return utils.NewInternalServerError("Something went wrong. Please try again later.")
}

// upstreamMessage pulls the backend-supplied message out of a wrapped
// rail.StatusError chain.
func upstreamMessage(err error) string {
	var se *rail.StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

func renderError(w http.ResponseWriter, err error) {
	ae := getApiError(err)
	utils.RenderResponse(w, ae.StatusCode, &ae)
}
