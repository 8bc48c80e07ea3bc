package api

import (
	"errors"
	"net/http"

	models "github.com/raildesk/raildesk/internal"
	"github.com/raildesk/raildesk/internal/utils"
	"github.com/raildesk/raildesk/internal/wizard"
)

func (s *Server) wizardSnapshot(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	wiz := s.wizards.GetOrCreate(sess)
	utils.RenderResponse(w, http.StatusOK, wiz.Snapshot())
}

func (s *Server) wizardSearch(w http.ResponseWriter, r *http.Request) {
	var criteria models.SearchCriteria
	if err := utils.JsonDecodeBody(r, &criteria); err != nil {
		ae := utils.NewBadRequest("error json decoding body")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	sess := s.loadSession(w, r)
	wiz := s.wizards.GetOrCreate(sess)

	trains, err := wiz.Search(r.Context(), criteria)
	if errors.Is(err, wizard.ErrNoTrains) {
		// an empty result is a message, not a failure
		utils.RenderResponse(w, http.StatusOK, struct {
			Trains  []models.TrainOption `json:"trains"`
			Message string               `json:"message"`
		}{Trains: []models.TrainOption{}, Message: err.Error()})
		return
	}
	if err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, struct {
		Trains []models.TrainOption `json:"trains"`
	}{Trains: trains})
}

func (s *Server) wizardSelectTrain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrainID string `json:"trainId"`
	}
	if err := utils.JsonDecodeBody(r, &body); err != nil {
		ae := utils.NewBadRequest("error json decoding body")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	sess := s.loadSession(w, r)
	wiz, err := s.wizards.Get(sess)
	if err != nil {
		renderError(w, err)
		return
	}
	if _, err := wiz.SelectTrain(r.Context(), body.TrainID); err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, wiz.Snapshot())
}

func (s *Server) wizardSelectCoach(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CoachID string `json:"coachId"`
	}
	if err := utils.JsonDecodeBody(r, &body); err != nil {
		ae := utils.NewBadRequest("error json decoding body")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	sess := s.loadSession(w, r)
	wiz, err := s.wizards.Get(sess)
	if err != nil {
		renderError(w, err)
		return
	}
	if _, err := wiz.SelectCoach(r.Context(), body.CoachID); err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, wiz.Snapshot())
}

func (s *Server) wizardToggleSeat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SeatID string `json:"seatId"`
	}
	if err := utils.JsonDecodeBody(r, &body); err != nil {
		ae := utils.NewBadRequest("error json decoding body")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	sess := s.loadSession(w, r)
	wiz, err := s.wizards.Get(sess)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := wiz.ToggleSeat(body.SeatID); err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, wiz.Snapshot())
}

func (s *Server) wizardPassengers(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	wiz, err := s.wizards.Get(sess)
	if err != nil {
		renderError(w, err)
		return
	}
	if _, err := wiz.ProceedToPassengers(); err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, wiz.Snapshot())
}

func (s *Server) wizardPassengerField(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int         `json:"index"`
		Field string      `json:"field"`
		Value interface{} `json:"value"`
	}
	if err := utils.JsonDecodeBody(r, &body); err != nil {
		ae := utils.NewBadRequest("error json decoding body")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	sess := s.loadSession(w, r)
	wiz, err := s.wizards.Get(sess)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := wiz.SetPassengerField(body.Index, body.Field, body.Value); err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, wiz.Snapshot())
}

func (s *Server) wizardSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	wiz, err := s.wizards.Get(sess)
	if err != nil {
		renderError(w, err)
		return
	}

	redirectURL, err := wiz.Submit(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, struct {
		RedirectURL string `json:"redirectUrl"`
	}{RedirectURL: redirectURL})
}

func (s *Server) wizardBack(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	wiz, err := s.wizards.Get(sess)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := wiz.Back(); err != nil {
		renderError(w, err)
		return
	}
	utils.RenderResponse(w, http.StatusOK, wiz.Snapshot())
}
