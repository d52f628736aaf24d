package authclient

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerdocs/authclient/transport"
)

// pollers is one scheduling epoch of the two background protocols. Closing
// stop cancels both loops together; a new epoch gets a fresh pollers value
// so a late tick from a cancelled epoch can never act on the next session.
type pollers struct {
	stop chan struct{}
}

// startPollersLocked launches the liveness and refresh loops. Caller holds
// m.mu. No-op while an epoch is already running or after Close.
func (m *Manager) startPollersLocked() {
	if m.polls != nil || m.closed {
		return
	}
	p := &pollers{stop: make(chan struct{})}
	m.polls = p

	m.pollWG.Add(2)
	go m.verifyLoop(p)
	go m.refreshLoop(p)
}

// stopPollersLocked cancels the running epoch without waiting: the caller
// may be a poller goroutine itself (refresh hitting an authorization
// denial). Close waits on pollWG after releasing the lock.
func (m *Manager) stopPollersLocked() {
	if m.polls == nil {
		return
	}
	close(m.polls.stop)
	m.polls = nil
}

// verifyLoop is the session liveness check: a silent VerifySession on a
// fixed cadence. Only a definitive invalid answer clears the session (the
// user logged out remotely, e.g. in another tab); ambiguous failures are
// logged and ignored.
func (m *Manager) verifyLoop(p *pollers) {
	defer m.pollWG.Done()

	ticker := time.NewTicker(m.config.Poll.VerifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if !m.hasUser() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), m.config.API.RequestTimeout)
			ok, err := m.VerifySession(ctx)
			cancel()
			switch {
			case err != nil:
				m.log.Warn("background session check failed", zap.Error(err))
			case !ok:
				m.log.Info("session no longer valid remotely, cleared local state")
			}
		}
	}
}

// refreshLoop rotates the session credential ahead of expiry. The delay is
// recomputed after every attempt so a bearer token with a near expiry pulls
// the next refresh forward.
func (m *Manager) refreshLoop(p *pollers) {
	defer m.pollWG.Done()

	timer := time.NewTimer(m.nextRefreshDelay())
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-timer.C:
			if m.hasUser() {
				ctx, cancel := context.WithTimeout(context.Background(), m.config.API.RequestTimeout)
				err := m.RefreshToken(ctx)
				cancel()
				if err != nil && !transport.IsUnauthorized(err) {
					m.log.Warn("background token refresh failed, will retry", zap.Error(err))
				}
			}
			timer.Reset(m.nextRefreshDelay())
		}
	}
}

// nextRefreshDelay is the configured refresh interval, clamped below the
// held bearer token's remaining lifetime when clamping is enabled.
func (m *Manager) nextRefreshDelay() time.Duration {
	d := m.config.Poll.RefreshInterval
	if !m.config.Poll.ClampToTokenExpiry {
		return d
	}

	exp := transport.TokenExpiry(m.currentToken())
	if exp.IsZero() {
		return d
	}

	until := time.Until(exp)
	if until <= 0 {
		return m.config.Poll.MinRefreshInterval
	}
	// Refresh at three quarters of the remaining lifetime.
	if c := until * 3 / 4; c < d {
		d = c
	}
	if d < m.config.Poll.MinRefreshInterval {
		d = m.config.Poll.MinRefreshInterval
	}
	return d
}
