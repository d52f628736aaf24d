package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerdocs/authclient/internal/event"
	"github.com/ledgerdocs/authclient/snapshot"
	"github.com/ledgerdocs/authclient/transport"
)

// Manager is the single source of truth for authentication state. It
// mediates every call to the remote authentication API, converts remote
// failures into one normalized error message, keeps the session alive via
// two background pollers, and persists a restart snapshot.
//
// Managers are built through [Builder.Build] and must be released with
// [Manager.Close].
type Manager struct {
	config  Config
	api     *transport.Client
	store   snapshot.Store
	log     *zap.Logger
	metrics *Metrics
	events  *eventDispatcher

	mu         sync.Mutex
	user       *User
	aux        json.RawMessage
	token      string
	phase      Phase
	lastError  string
	inflight   int
	generation uint64
	polls      *pollers
	closed     bool

	pollWG sync.WaitGroup
}

type authOp uint8

const (
	opLogin authOp = iota
	opGoogleLogin
	opRegister
	opAdminLogin
)

func (o authOp) eventType() EventType {
	switch o {
	case opGoogleLogin:
		return event.TypeGoogleLogin
	case opRegister:
		return event.TypeRegister
	case opAdminLogin:
		return event.TypeAdminLogin
	default:
		return event.TypeLogin
	}
}

func (o authOp) successMetric() MetricID {
	switch o {
	case opGoogleLogin:
		return MetricGoogleLoginSuccess
	case opRegister:
		return MetricRegisterSuccess
	case opAdminLogin:
		return MetricAdminLoginSuccess
	default:
		return MetricLoginSuccess
	}
}

func (o authOp) failureMetric() MetricID {
	switch o {
	case opGoogleLogin:
		return MetricGoogleLoginFailure
	case opRegister:
		return MetricRegisterFailure
	case opAdminLogin:
		return MetricAdminLoginFailure
	default:
		return MetricLoginFailure
	}
}

// Start runs the startup protocol once per Manager: restore the persisted
// snapshot optimistically (tentative phase), then confirm it against the
// remote session endpoint. An authoritative "unauthenticated" answer clears
// the restored state; an ambiguous failure (network, 5xx) leaves it
// standing and is returned so the embedder can decide whether to retry.
// Loading is cleared before Start returns.
func (m *Manager) Start(ctx context.Context) error {
	m.begin()
	defer m.end()

	snap, err := m.store.Load(ctx)
	switch {
	case err == nil && snap != nil:
		m.mu.Lock()
		if !m.closed && m.user == nil {
			m.user = snap.User
			m.aux = snap.Data
			m.token = snap.Token
			m.phase = PhaseTentative
			m.startPollersLocked()
		}
		m.mu.Unlock()
		m.metricInc(MetricSnapshotRestored)
		m.emit(event.TypeRestore, snap.User.ID, true, "", false)
	case errors.Is(err, snapshot.ErrCorrupt):
		m.metricInc(MetricSnapshotCorrupt)
		m.log.Warn("discarding corrupt session snapshot", zap.Error(err))
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.log.Warn("corrupt snapshot removal failed", zap.Error(clearErr))
		}
	case err != nil && !errors.Is(err, snapshot.ErrNotFound):
		m.log.Warn("session snapshot load failed", zap.Error(err))
	}

	if _, err := m.VerifySession(ctx); err != nil {
		// Optimistic trust: ambiguous failures do not revert the restore.
		m.log.Warn("startup session verification failed", zap.Error(err))
		return err
	}
	return nil
}

// Login authenticates with email/password credentials. On success the user
// is set, the snapshot persisted, and LastError cleared; on failure the
// session is unchanged and LastError carries the normalized message.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*User, error) {
	if creds.Email == "" || creds.Password == "" {
		m.failValidation(opLogin, ErrMissingCredentials)
		return nil, ErrMissingCredentials
	}

	gen := m.begin()
	defer m.end()

	resp, err := m.api.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		m.failAuth(opLogin, err)
		return nil, err
	}
	return m.establish(ctx, gen, opLogin, resp)
}

// LoginWithGoogle exchanges an opaque identity-provider credential for a
// session. An absent credential fails locally without a remote call.
func (m *Manager) LoginWithGoogle(ctx context.Context, credential string) (*User, error) {
	if credential == "" {
		m.failValidation(opGoogleLogin, ErrMissingGoogleCredential)
		return nil, ErrMissingGoogleCredential
	}

	gen := m.begin()
	defer m.end()

	resp, err := m.api.GoogleLogin(ctx, credential)
	if err != nil {
		m.failAuth(opGoogleLogin, err)
		return nil, err
	}
	return m.establish(ctx, gen, opGoogleLogin, resp)
}

// Register creates an account and establishes a session on success.
func (m *Manager) Register(ctx context.Context, reg Registration) (*User, error) {
	if reg.Email == "" || reg.Password == "" || reg.Name == "" {
		m.failValidation(opRegister, ErrMissingRegistrationFields)
		return nil, ErrMissingRegistrationFields
	}

	gen := m.begin()
	defer m.end()

	resp, err := m.api.Register(ctx, reg.Email, reg.Password, reg.Name)
	if err != nil {
		m.failAuth(opRegister, err)
		return nil, err
	}
	return m.establish(ctx, gen, opRegister, resp)
}

// AdminLogin authenticates with the elevated-privilege credential pair. The
// elevated flag arrives on the response's user record.
func (m *Manager) AdminLogin(ctx context.Context, creds AdminCredentials) (*User, error) {
	if creds.Email == "" || creds.AdminPassword == "" {
		m.failValidation(opAdminLogin, ErrMissingAdminCredentials)
		return nil, ErrMissingAdminCredentials
	}

	gen := m.begin()
	defer m.end()

	resp, err := m.api.AdminLogin(ctx, creds.Email, creds.AdminPassword)
	if err != nil {
		m.failAuth(opAdminLogin, err)
		return nil, err
	}
	return m.establish(ctx, gen, opAdminLogin, resp)
}

// Logout clears the local session and snapshot unconditionally, then tells
// the server best-effort. A remote failure is logged, never surfaced: by
// the time the request leaves, the local session is already gone.
func (m *Manager) Logout(ctx context.Context) error {
	m.begin()
	defer m.end()

	m.mu.Lock()
	uid := ""
	if m.user != nil {
		uid = m.user.ID
	}
	m.user = nil
	m.aux = nil
	m.token = ""
	m.phase = PhaseUnauthenticated
	m.generation++
	m.stopPollersLocked()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("snapshot clear failed on logout", zap.Error(err))
	}
	m.mu.Unlock()

	if err := m.api.Logout(ctx); err != nil {
		m.log.Warn("remote logout failed, local session already cleared", zap.Error(err))
	}

	m.metricInc(MetricLogout)
	m.emit(event.TypeLogout, uid, true, "", false)
	return nil
}

// VerifySession reconciles the local session with remote truth and reports
// validity. An authoritative negative (unauthorized, or a clean
// "authenticated: false") invalidates local state; a transient failure
// leaves it untouched and is returned as the error.
func (m *Manager) VerifySession(ctx context.Context) (bool, error) {
	gen := m.begin()
	defer m.end()

	resp, err := m.api.Session(ctx)
	if err != nil {
		if transport.IsUnauthorized(err) {
			m.invalidate(ctx, gen, err)
			return false, nil
		}
		m.metricInc(MetricVerifyFailure)
		return false, err
	}

	if !resp.Authenticated {
		m.invalidate(ctx, gen, nil)
		m.metricInc(MetricVerifySuccess)
		return false, nil
	}

	m.mu.Lock()
	if gen == m.generation && !m.closed {
		if resp.User != nil {
			m.user = resp.User
		}
		if m.user != nil {
			if resp.Data != nil {
				m.aux = resp.Data
			}
			m.phase = PhaseConfirmed
			m.persistLocked(ctx)
			m.startPollersLocked()
		}
	}
	valid := m.user != nil
	m.mu.Unlock()

	m.metricInc(MetricVerifySuccess)
	return valid, nil
}

// RefreshToken rotates the session credential. A no-op without an active
// user. Only an authorization denial invalidates the session; every other
// failure is transient, returned for logging, and retried on the next
// poller tick.
func (m *Manager) RefreshToken(ctx context.Context) error {
	if !m.hasUser() {
		return nil
	}

	gen := m.begin()
	defer m.end()

	resp, err := m.api.Refresh(ctx)
	if err != nil {
		m.metricInc(MetricRefreshFailure)
		if transport.IsUnauthorized(err) {
			m.invalidate(ctx, gen, err)
			m.emit(event.TypeRefresh, "", false, transport.Message(err, msgSessionExpired), true)
		}
		return err
	}

	uid := ""
	m.mu.Lock()
	if gen == m.generation && !m.closed && m.user != nil {
		if resp.User != nil {
			m.user = resp.User
		}
		if resp.Token != "" {
			m.token = resp.Token
		}
		m.phase = PhaseConfirmed
		m.persistLocked(ctx)
		uid = m.user.ID
	}
	m.mu.Unlock()

	m.metricInc(MetricRefreshSuccess)
	m.emit(event.TypeRefresh, uid, true, "", true)
	return nil
}

// ClearError dismisses the last error message. Calling it with no error
// pending is a no-op.
func (m *Manager) ClearError() {
	m.mu.Lock()
	m.lastError = ""
	m.mu.Unlock()
}

// State returns a point-in-time copy of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{
		Phase:     m.phase,
		Loading:   m.inflight > 0,
		LastError: m.lastError,
	}
	if m.user != nil {
		u := *m.user
		st.User = &u
		st.Authenticated = m.phase != PhaseUnauthenticated
	}
	if m.aux != nil {
		st.AuxiliaryData = append(json.RawMessage(nil), m.aux...)
	}
	return st
}

// Authenticated reports whether a tentative or confirmed user is present.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil && m.phase != PhaseUnauthenticated
}

// CurrentUser returns a copy of the signed-in principal, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// LastError returns the normalized message of the most recent failure, or
// the empty string.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// MetricsSnapshot copies the operation counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return m.metrics.Snapshot()
}

// EventsDropped reports how many session events were discarded because the
// dispatcher buffer was full.
func (m *Manager) EventsDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.events.Dropped()
}

// Close cancels both background pollers, waits for them, and shuts down the
// event dispatcher. In-flight requests are not interrupted; their late
// responses are discarded by generation tagging.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopPollersLocked()
	m.mu.Unlock()

	m.pollWG.Wait()
	m.events.Close()
}

/*
====================================
INTERNAL STATE TRANSITIONS
====================================
*/

// begin marks an operation in flight and captures the session generation it
// belongs to. Responses are applied only while that generation is current.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	m.inflight++
	gen := m.generation
	m.mu.Unlock()
	return gen
}

func (m *Manager) end() {
	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()
}

func (m *Manager) hasUser() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil
}

func (m *Manager) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// establish applies a successful session-establishing response, unless the
// generation it belongs to was superseded by a logout or invalidation in
// the meantime.
func (m *Manager) establish(ctx context.Context, gen uint64, op authOp, resp *transport.AuthResponse) (*User, error) {
	if resp.User == nil || resp.User.ID == "" {
		m.failAuth(op, ErrMalformedResponse)
		return nil, ErrMalformedResponse
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if gen != m.generation {
		m.mu.Unlock()
		return nil, ErrOperationSuperseded
	}

	m.user = resp.User
	m.aux = resp.Data
	if resp.Token != "" {
		m.token = resp.Token
	}
	m.phase = PhaseConfirmed
	m.lastError = ""
	m.persistLocked(ctx)
	m.startPollersLocked()
	u := *m.user
	m.mu.Unlock()

	m.metricInc(op.successMetric())
	m.emit(op.eventType(), u.ID, true, "", false)
	return &u, nil
}

// invalidate clears the session after an authoritative negative. cause is
// non-nil for authorization denials, which also surface through LastError;
// a clean "not authenticated" answer clears silently.
func (m *Manager) invalidate(ctx context.Context, gen uint64, cause error) {
	m.mu.Lock()
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		return
	}
	had := m.user != nil
	uid := ""
	if m.user != nil {
		uid = m.user.ID
	}
	m.user = nil
	m.aux = nil
	m.token = ""
	m.phase = PhaseUnauthenticated
	if had {
		// Nothing to supersede when no session existed.
		m.generation++
	}
	m.stopPollersLocked()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("snapshot clear failed on invalidation", zap.Error(err))
	}
	msg := ""
	if cause != nil {
		msg = transport.Message(cause, msgSessionExpired)
		m.lastError = msg
	}
	m.mu.Unlock()

	if had {
		m.metricInc(MetricSessionInvalidated)
		m.emit(event.TypeInvalidated, uid, false, msg, true)
	}
}

// persistLocked writes the snapshot best-effort. Persistence failures never
// fail the operation that established the session.
func (m *Manager) persistLocked(ctx context.Context) {
	if m.user == nil {
		return
	}
	snap := &snapshot.Snapshot{
		User:    m.user,
		Token:   m.token,
		Data:    m.aux,
		SavedAt: time.Now().UTC(),
	}
	if err := m.store.Save(ctx, snap); err != nil {
		m.log.Warn("session snapshot save failed", zap.Error(err))
	}
}

// failValidation records a locally rejected operation. Validation errors
// never reach the wire and are not logged as server failures.
func (m *Manager) failValidation(op authOp, err error) {
	m.mu.Lock()
	m.lastError = err.Error()
	m.mu.Unlock()

	m.metricInc(op.failureMetric())
	m.emit(op.eventType(), "", false, err.Error(), false)
}

// failAuth records a remote failure of a user-initiated operation. The
// session is left as it was: a failed login does not clear an existing
// session.
func (m *Manager) failAuth(op authOp, err error) {
	msg := transport.Message(err, genericAuthFailure)

	m.mu.Lock()
	m.lastError = msg
	m.mu.Unlock()

	m.metricInc(op.failureMetric())
	m.emit(op.eventType(), "", false, msg, false)
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

func (m *Manager) emit(t EventType, userID string, success bool, errMsg string, background bool) {
	if m.events == nil {
		return
	}
	m.events.Emit(context.Background(), SessionEvent{
		Timestamp:  time.Now().UTC(),
		Type:       t,
		UserID:     userID,
		Success:    success,
		Error:      errMsg,
		Background: background,
	})
}
