package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/raildesk/raildesk/internal/booking"
	"github.com/raildesk/raildesk/internal/ports"
	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/internal/utils"
	"github.com/raildesk/raildesk/internal/validator"
	"github.com/raildesk/raildesk/internal/wizard"
	"github.com/raildesk/raildesk/pkg/rail"
)

// Cookies configures the two cookies this side owns: the opaque session id
// and the remembered login email. Upstream tokens never become cookies.
type Cookies struct {
	SessionName  string
	RememberName string
	Secure       bool
	SessionTTL   time.Duration
	RememberTTL  time.Duration
}

func DefaultCookies() Cookies {
	return Cookies{
		SessionName:  "rd_session",
		RememberName: "rd_remembered_email",
		SessionTTL:   24 * time.Hour,
		RememberTTL:  30 * 24 * time.Hour,
	}
}

// Server is the HTTP edge. Handlers resolve the browser session, drive the
// wizard or the session-bound gateway, and render JSON.
type Server struct {
	sessions ports.SessionStore
	wizards  *wizard.Manager
	rail     *rail.Client
	gateways wizard.GatewayFactory
	confirm  *booking.ConfirmationService
	validate *validator.CustomValidator
	cookies  Cookies
	log      *logrus.Logger
}

func NewServer(
	sessions ports.SessionStore,
	wizards *wizard.Manager,
	client *rail.Client,
	gateways wizard.GatewayFactory,
	confirm *booking.ConfirmationService,
	validate *validator.CustomValidator,
	cookies Cookies,
	log *logrus.Logger,
) *Server {
	return &Server{
		sessions: sessions,
		wizards:  wizards,
		rail:     client,
		gateways: gateways,
		confirm:  confirm,
		validate: validate,
		cookies:  cookies,
		log:      log,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/auth/login", utils.AllowedContentTypes(utils.AllowedMethods(s.login, http.MethodPost), "application/json"))
	mux.HandleFunc("/v1/auth/register", utils.AllowedContentTypes(utils.AllowedMethods(s.register, http.MethodPost), "application/json"))
	mux.HandleFunc("/v1/auth/logout", utils.AllowedMethods(s.logout, http.MethodPost))
	mux.HandleFunc("/v1/auth/me", utils.AllowedMethods(s.me, http.MethodGet))

	mux.HandleFunc("/v1/wizard", utils.AllowedMethods(s.wizardSnapshot, http.MethodGet))
	mux.HandleFunc("/v1/wizard/search", utils.AllowedContentTypes(utils.AllowedMethods(s.wizardSearch, http.MethodPost), "application/json"))
	mux.HandleFunc("/v1/wizard/train", utils.AllowedContentTypes(utils.AllowedMethods(s.wizardSelectTrain, http.MethodPost), "application/json"))
	mux.HandleFunc("/v1/wizard/coach", utils.AllowedContentTypes(utils.AllowedMethods(s.wizardSelectCoach, http.MethodPost), "application/json"))
	mux.HandleFunc("/v1/wizard/seats", utils.AllowedContentTypes(utils.AllowedMethods(s.wizardToggleSeat, http.MethodPost), "application/json"))
	mux.HandleFunc("/v1/wizard/passengers", utils.AllowedMethods(s.wizardPassengers, http.MethodPost))
	mux.HandleFunc("/v1/wizard/passenger-field", utils.AllowedContentTypes(utils.AllowedMethods(s.wizardPassengerField, http.MethodPost), "application/json"))
	mux.HandleFunc("/v1/wizard/submit", utils.AllowedMethods(s.wizardSubmit, http.MethodPost))
	mux.HandleFunc("/v1/wizard/back", utils.AllowedMethods(s.wizardBack, http.MethodPost))

	mux.HandleFunc("/v1/booking/confirmation", utils.AllowedMethods(s.bookingConfirmation, http.MethodGet))
	mux.HandleFunc("/v1/booking/pnr", utils.AllowedMethods(s.bookingByPNR, http.MethodGet))
	mux.HandleFunc("/v1/booking/cancel", utils.AllowedMethods(s.bookingCancel, http.MethodDelete))

	mux.HandleFunc("/v1/trains", utils.AllowedContentTypes(s.trains, "application/json"))
	mux.HandleFunc("/v1/support", utils.AllowedContentTypes(s.support, "application/json"))

	return mux
}

// loadSession resolves the session cookie, minting an anonymous session when
// the browser has none or the stored record is gone. The cookie is refreshed
// on every request and last_seen keeps the record out of the stale purge.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) *session.Session {
	var sess *session.Session
	if cookie, err := r.Cookie(s.cookies.SessionName); err == nil && cookie.Value != "" {
		sess, _ = s.sessions.Get(r.Context(), cookie.Value)
	}

	now := time.Now().UTC()
	if sess == nil {
		sess = &session.Session{ID: uuid.NewString(), CreatedAt: now, LastSeen: now}
		if err := s.sessions.Put(r.Context(), sess); err != nil {
			s.log.WithError(err).Warn("failed to persist session")
		}
	} else {
		// only last_seen moves here; a full Put could overwrite a token
		// that a concurrent refresh rotated after our read
		sess.LastSeen = now
		if err := s.sessions.Touch(r.Context(), sess.ID, now); err != nil {
			s.log.WithError(err).Warn("failed to touch session")
		}
	}
	s.setSessionCookie(w, sess.ID)
	return sess
}

// peekSession resolves the cookie without creating anything; logout uses it
// so a cookieless request does not mint a session just to destroy it.
func (s *Server) peekSession(r *http.Request) *session.Session {
	cookie, err := r.Cookie(s.cookies.SessionName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, _ := s.sessions.Get(r.Context(), cookie.Value)
	return sess
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookies.SessionName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cookies.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookies.SessionName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
