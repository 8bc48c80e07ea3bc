package api

import (
	"net/http"

	models "github.com/raildesk/raildesk/internal"
	"github.com/raildesk/raildesk/internal/utils"
)

// trains proxies the upstream train CRUD. The role gate here is a shortcut
// for the UI; the upstream enforces authorization itself and its 403s pass
// through verbatim.
func (s *Server) trains(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if !sess.IsAdmin() {
		ae := utils.NewForbidden("You do not have permission to manage trains.")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}
	gw := s.gateways(sess)

	switch r.Method {
	case http.MethodGet:
		trains, err := gw.ListTrains(r.Context())
		if err != nil {
			renderError(w, err)
			return
		}
		utils.RenderResponse(w, http.StatusOK, trains)

	case http.MethodPost:
		var train models.Train
		if err := utils.JsonDecodeBody(r, &train); err != nil {
			ae := utils.NewBadRequest("error json decoding body")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		if err := s.validate.Validate(train); err != nil {
			ae := utils.NewBadRequest(err.Error())
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		created, err := gw.AddTrain(r.Context(), train)
		if err != nil {
			renderError(w, err)
			return
		}
		utils.RenderResponse(w, http.StatusCreated, created)

	case http.MethodPut:
		var train models.Train
		if err := utils.JsonDecodeBody(r, &train); err != nil {
			ae := utils.NewBadRequest("error json decoding body")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		if train.ID == "" {
			ae := utils.NewBadRequest("train id is required")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		if err := s.validate.Validate(train); err != nil {
			ae := utils.NewBadRequest(err.Error())
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		updated, err := gw.UpdateTrain(r.Context(), train)
		if err != nil {
			renderError(w, err)
			return
		}
		utils.RenderResponse(w, http.StatusOK, updated)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			ae := utils.NewBadRequest("train id is required")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		if err := gw.DeleteTrain(r.Context(), id); err != nil {
			renderError(w, err)
			return
		}
		utils.RenderResponse(w, http.StatusNoContent, nil)

	default:
		utils.RenderResponse(w, http.StatusMethodNotAllowed, nil)
	}
}

func (s *Server) support(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var ticket models.SupportTicket
		if err := utils.JsonDecodeBody(r, &ticket); err != nil {
			ae := utils.NewBadRequest("error json decoding body")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		if err := s.validate.Validate(ticket); err != nil {
			ae := utils.NewBadRequest(err.Error())
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}

		sess := s.loadSession(w, r)
		if !sess.IsAuthenticated() {
			ae := utils.NewUnauthorized("Please log in to submit a support ticket.")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		created, err := s.gateways(sess).CreateSupportTicket(r.Context(), ticket)
		if err != nil {
			renderError(w, err)
			return
		}
		utils.RenderResponse(w, http.StatusCreated, created)

	case http.MethodGet:
		sess := s.loadSession(w, r)
		if !sess.IsAgent() {
			ae := utils.NewForbidden("You do not have permission to view support tickets.")
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		tickets, err := s.gateways(sess).ListSupportTickets(r.Context())
		if err != nil {
			renderError(w, err)
			return
		}
		utils.RenderResponse(w, http.StatusOK, tickets)

	default:
		utils.RenderResponse(w, http.StatusMethodNotAllowed, nil)
	}
}
