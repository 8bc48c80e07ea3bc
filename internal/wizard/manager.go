package wizard

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/raildesk/raildesk/internal/ports"
	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/internal/validator"
)

// ErrNoWizard means no wizard exists for the session; operations against a
// gone wizard are answered with this instead of touching any state.
var ErrNoWizard = errors.New("no booking in progress for this session")

// GatewayFactory builds the session-bound upstream gateway for a wizard.
type GatewayFactory func(sess *session.Session) ports.RailGateway

// Manager keeps one wizard per session.
type Manager struct {
	mu      sync.RWMutex
	wizards map[string]*Wizard

	gateways GatewayFactory
	crumbs   ports.Breadcrumbs
	validate *validator.CustomValidator
	payment  Payment
	log      *logrus.Logger
}

func NewManager(gateways GatewayFactory, crumbs ports.Breadcrumbs, validate *validator.CustomValidator, payment Payment, log *logrus.Logger) *Manager {
	return &Manager{
		wizards:  map[string]*Wizard{},
		gateways: gateways,
		crumbs:   crumbs,
		validate: validate,
		payment:  payment,
		log:      log,
	}
}

// GetOrCreate returns the session's wizard, creating a fresh one at the
// search step if none exists. The wizard holds the caller's session record;
// subsequent requests refresh it.
func (m *Manager) GetOrCreate(sess *session.Session) *Wizard {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wizards[sess.ID]; ok {
		m.rebind(w, sess)
		return w
	}
	w := New(sess, m.gateways(sess), m.crumbs, m.validate, m.payment, m.log)
	m.wizards[sess.ID] = w
	return w
}

// Get returns the session's wizard or ErrNoWizard. A wizard evicted on
// logout stays gone; operations against it fail instead of reviving state.
func (m *Manager) Get(sess *session.Session) (*Wizard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wizards[sess.ID]
	if !ok {
		return nil, ErrNoWizard
	}
	m.rebind(w, sess)
	return w, nil
}

// rebind points the wizard at the freshly loaded session record so the
// gateway uses the current token.
func (m *Manager) rebind(w *Wizard, sess *session.Session) {
	w.mu.Lock()
	w.sess = sess
	w.gateway = m.gateways(sess)
	w.mu.Unlock()
}

// Evict drops the session's wizard, e.g. on logout.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.wizards, sessionID)
}
