package immich

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session is the bearer token obtained from a login. There is no expiry; a
// Session lives until it is invalidated by a 401, a logout or a new Client.
type Session struct {
	Token      string
	ObtainedAt time.Time
}

// sessionHolder guards the held session. The lock is never held across a
// request; epoch is bumped on every invalidation so a login that finishes
// after one is not kept.
type sessionHolder struct {
	mu      sync.Mutex
	session *Session
	epoch   uint64
}

// EnsureSession returns the held token, logging in first if there is none.
// Missing configuration fails with ErrConfigIncomplete without a request. On
// failure the held session stays absent.
//
// A login that races InvalidateSession or Logout still returns its token to
// the caller but is not held.
func (c *Client) EnsureSession(ctx context.Context) (string, error) {
	c.session.mu.Lock()
	if c.session.session != nil {
		token := c.session.session.Token
		c.session.mu.Unlock()
		return token, nil
	}
	epoch := c.session.epoch
	c.session.mu.Unlock()
	if !c.conf.Complete() {
		return "", ErrConfigIncomplete
	}

	resp, err := c.remote.Login(ctx, c.conf.Credentials())
	if err != nil {
		return "", err
	}

	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	if c.session.epoch != epoch {
		slog.Debug("session invalidated during login, not keeping it")
		return resp.AccessToken, nil
	}
	if c.session.session != nil {
		// A concurrent login finished first.
		return c.session.session.Token, nil
	}
	c.session.session = &Session{Token: resp.AccessToken, ObtainedAt: c.now()}
	slog.Info("authenticated with immich", "user", resp.UserEmail)
	return resp.AccessToken, nil
}

// Session returns a copy of the held session, or nil if there is none.
func (c *Client) Session() *Session {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	if c.session.session == nil {
		return nil
	}
	s := *c.session.session
	return &s
}

// InvalidateSession drops the held token so the next EnsureSession logs in
// again.
func (c *Client) InvalidateSession() {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	c.session.session = nil
	c.session.epoch++
}

// Logout invalidates the held token on the server (best-effort) and drops it
// locally.
func (c *Client) Logout(ctx context.Context) {
	c.session.mu.Lock()
	s := c.session.session
	c.session.session = nil
	c.session.epoch++
	c.session.mu.Unlock()
	if s == nil {
		return
	}
	if err := c.remote.Logout(ctx, s.Token); err != nil {
		slog.Debug("failed to log out of immich", "error", err)
	}
}
