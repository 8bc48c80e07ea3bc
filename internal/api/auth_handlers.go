package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	models "github.com/raildesk/raildesk/internal"
	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/internal/utils"
	"github.com/raildesk/raildesk/pkg/rail"
)

// userView is the browser-facing slice of a session; tokens stay server-side.
type userView struct {
	ID       string      `json:"id"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

func viewOf(sess *session.Session) userView {
	return userView{ID: sess.UserID, Email: sess.Email, Username: sess.Username, Role: sess.Role}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := utils.JsonDecodeBody(r, &creds); err != nil {
		ae := utils.NewBadRequest("error json decoding body")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	old := s.peekSession(r)

	ans, err := s.rail.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		var se *rail.StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			ae := utils.ApiError{
				StatusCode: http.StatusUnauthorized,
				Msg:        "login failed",
				Fields:     loginFieldErrors(se.Message),
			}
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		renderError(w, err)
		return
	}

	sess, err := s.startSession(r, ans)
	if err != nil {
		renderError(w, err)
		return
	}
	if old != nil {
		if err := s.sessions.Delete(r.Context(), old.ID); err != nil {
			s.log.WithError(err).Warn("failed to drop pre-login session")
		}
		s.wizards.Evict(old.ID)
	}
	s.setSessionCookie(w, sess.ID)
	s.setRememberCookie(w, creds)

	utils.RenderResponse(w, http.StatusOK, viewOf(sess))
}

// loginFieldErrors maps the upstream 401 message onto the login form's
// field errors. The upstream wording is probed, never shown.
func loginFieldErrors(upstream string) map[string]string {
	msg := strings.ToLower(upstream)
	hasEmail := strings.Contains(msg, "email")
	hasPassword := strings.Contains(msg, "password")
	switch {
	case hasEmail && hasPassword:
		return map[string]string{
			"email":    "Email and password are invalid",
			"password": "Email and password are invalid",
		}
	case hasPassword:
		return map[string]string{"password": "Password is incorrect"}
	case hasEmail:
		return map[string]string{"email": "Email is not registered"}
	}
	return map[string]string{
		"email":    "Email and password are invalid",
		"password": "Email and password are invalid",
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := utils.JsonDecodeBody(r, &reg); err != nil {
		ae := utils.NewBadRequest("error json decoding body")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}
	if err := s.validate.Validate(reg); err != nil {
		ae := utils.NewBadRequest(err.Error())
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}

	old := s.peekSession(r)

	ans, err := s.rail.Register(r.Context(), reg)
	if err != nil {
		var se *rail.StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Message != "" {
			ae := utils.ApiError{StatusCode: se.Code, Msg: se.Message}
			utils.RenderResponse(w, ae.StatusCode, &ae)
			return
		}
		renderError(w, err)
		return
	}

	// some deployments return tokens straight from /register; log the user
	// in when they do, otherwise they proceed to the login form
	if ans.Token == "" {
		utils.RenderResponse(w, http.StatusCreated, userView{ID: ans.ID, Email: ans.Email, Username: ans.Username, Role: ans.Role})
		return
	}

	sess, err := s.startSession(r, ans)
	if err != nil {
		renderError(w, err)
		return
	}
	if old != nil {
		if err := s.sessions.Delete(r.Context(), old.ID); err != nil {
			s.log.WithError(err).Warn("failed to drop pre-login session")
		}
		s.wizards.Evict(old.ID)
	}
	s.setSessionCookie(w, sess.ID)
	utils.RenderResponse(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if sess := s.peekSession(r); sess != nil {
		if err := s.sessions.Delete(r.Context(), sess.ID); err != nil {
			s.log.WithError(err).Warn("failed to delete session on logout")
		}
		s.wizards.Evict(sess.ID)
	}
	// the remembered email cookie outlives the session on purpose
	s.clearSessionCookie(w)
	utils.RenderResponse(w, http.StatusNoContent, nil)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if !sess.IsAuthenticated() {
		ae := utils.NewUnauthorized("Please log in to continue.")
		utils.RenderResponse(w, ae.StatusCode, &ae)
		return
	}
	utils.RenderResponse(w, http.StatusOK, viewOf(sess))
}

// startSession mints a fresh authenticated session. The id is always new;
// the anonymous session's id never survives a login.
func (s *Server) startSession(r *http.Request, ans *models.AuthResponse) (*session.Session, error) {
	now := time.Now().UTC()
	sess := &session.Session{
		ID:           uuid.NewString(),
		UserID:       ans.ID,
		Email:        ans.Email,
		Username:     ans.Username,
		Role:         ans.Role,
		Token:        ans.Token,
		RefreshToken: ans.RefreshToken,
		TokenExpiry:  session.TokenExpiry(ans.Token),
		CreatedAt:    now,
		LastSeen:     now,
	}
	if err := s.sessions.Put(r.Context(), sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// setRememberCookie stores or clears the login email. It is readable by the
// page script so the form can prefill; it holds no secret.
func (s *Server) setRememberCookie(w http.ResponseWriter, creds models.Credentials) {
	cookie := &http.Cookie{
		Name:     s.cookies.RememberName,
		Path:     "/",
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if creds.Remember {
		cookie.Value = creds.Email
		cookie.MaxAge = int(s.cookies.RememberTTL.Seconds())
	} else {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}
