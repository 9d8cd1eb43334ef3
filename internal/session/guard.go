// Package session gates the admin surface behind a password. This is a UX
// gate against casual access, not a security boundary: there is a single
// admin, a single shared secret, and no user registry.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bekeleetsub857-cloud/etsub-shop/internal/kvstore"
)

type State string

const (
	StateLoggedOut State = "logged_out"
	StateLoggedIn  State = "logged_in"
	StateLockedOut State = "locked_out"
)

const (
	maxFailedAttempts = 3
	lockoutWindow     = 5 * time.Minute

	// SessionTTL bounds every admin session.
	SessionTTL = time.Hour

	sweepSpec = "@every 1m"
)

var ErrBadPassword = errors.New("invalid password")

// LockedOutError rejects a login attempt made inside the lockout window,
// regardless of whether the password was right.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("locked out, retry in %d seconds", int(e.Remaining.Seconds()+0.5))
}

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Hooks let the owning process tie other lifecycles to the session: the rate
// refresh schedule starts on login and stops on logout.
type Hooks struct {
	OnLogin  func()
	OnLogout func()
}

type persistedSession struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type persistedGuard struct {
	FailedAttempts int       `json:"failed_attempts"`
	LockedUntil    time.Time `json:"locked_until,omitzero"`
}

// Guard is the admin login state machine: logged-out → logged-in on a correct
// password, three straight failures lock it for five minutes, sessions expire
// after an hour. All of its state survives a restart through the substrate.
type Guard struct {
	log          *zap.Logger
	kv           kvstore.Store
	tokens       *TokenMaker
	passwordHash []byte
	hooks        Hooks

	mu             sync.Mutex
	failedAttempts int
	lockedUntil    time.Time
	sessionID      string
	expiresAt      time.Time
	sweeper        *cron.Cron

	now func() time.Time
}

// NewGuard restores persisted lockout and session state. A stored session
// that has already expired is discarded. Timers are not started here; call
// SetHooks and then ResumeIfActive once wiring is complete.
func NewGuard(kv kvstore.Store, tokens *TokenMaker, passwordHash []byte, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Guard{
		log:          log,
		kv:           kv,
		tokens:       tokens,
		passwordHash: passwordHash,
		now:          time.Now,
	}

	if raw, ok, err := kv.Get(kvstore.KeyAdminGuard); err == nil && ok {
		var pg persistedGuard
		if json.Unmarshal(raw, &pg) == nil {
			g.failedAttempts = pg.FailedAttempts
			g.lockedUntil = pg.LockedUntil
		}
	}
	if raw, ok, err := kv.Get(kvstore.KeyAdminSession); err == nil && ok {
		var ps persistedSession
		if json.Unmarshal(raw, &ps) == nil && ps.TokenID != "" {
			if g.now().Before(ps.ExpiresAt) {
				g.sessionID = ps.TokenID
				g.expiresAt = ps.ExpiresAt
			} else {
				_ = kv.Delete(kvstore.KeyAdminSession)
			}
		}
	}
	return g
}

func (g *Guard) SetHooks(h Hooks) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = h
}

// ResumeIfActive restarts the session timers after a process restart when a
// live session was restored. It reports whether a session resumed.
func (g *Guard) ResumeIfActive() bool {
	g.mu.Lock()
	active := g.sessionID != "" && g.now().Before(g.expiresAt)
	if active {
		g.startSweeperLocked()
	}
	onLogin := g.hooks.OnLogin
	g.mu.Unlock()

	if active {
		g.log.Info("admin session resumed")
		if onLogin != nil {
			onLogin()
		}
	}
	return active
}

// State reports the current position in the machine, lazily clearing an
// expired lockout.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *Guard) stateLocked() State {
	now := g.now()
	if !g.lockedUntil.IsZero() {
		if now.Before(g.lockedUntil) {
			return StateLockedOut
		}
		g.failedAttempts = 0
		g.lockedUntil = time.Time{}
		g.persistGuardLocked()
	}
	if g.sessionID != "" && now.Before(g.expiresAt) {
		return StateLoggedIn
	}
	return StateLoggedOut
}

// Submit runs one login attempt through the machine.
func (g *Guard) Submit(password string) (Session, error) {
	g.mu.Lock()

	now := g.now()
	if st := g.stateLocked(); st == StateLockedOut {
		remaining := g.lockedUntil.Sub(now)
		g.mu.Unlock()
		return Session{}, &LockedOutError{Remaining: remaining}
	}

	if bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)) != nil {
		g.failedAttempts++
		if g.failedAttempts >= maxFailedAttempts {
			g.lockedUntil = now.Add(lockoutWindow)
			g.persistGuardLocked()
			remaining := lockoutWindow
			g.mu.Unlock()
			g.log.Warn("admin login locked out", zap.Int("failed_attempts", maxFailedAttempts))
			return Session{}, &LockedOutError{Remaining: remaining}
		}
		g.persistGuardLocked()
		attempts := g.failedAttempts
		g.mu.Unlock()
		g.log.Warn("admin login failed", zap.Int("failed_attempts", attempts))
		return Session{}, ErrBadPassword
	}

	g.failedAttempts = 0
	g.lockedUntil = time.Time{}
	g.sessionID = "s_" + uuid.NewString()
	g.expiresAt = now.Add(SessionTTL)
	g.persistGuardLocked()
	g.persistSessionLocked()

	token, err := g.tokens.New(g.sessionID, g.expiresAt)
	if err != nil {
		g.sessionID = ""
		g.expiresAt = time.Time{}
		_ = g.kv.Delete(kvstore.KeyAdminSession)
		g.mu.Unlock()
		return Session{}, err
	}

	sess := Session{Token: token, ExpiresAt: g.expiresAt}
	g.startSweeperLocked()
	onLogin := g.hooks.OnLogin
	g.mu.Unlock()

	g.log.Info("admin logged in", zap.Time("expires_at", sess.ExpiresAt))
	if onLogin != nil {
		onLogin()
	}
	return sess, nil
}

// Logout tears the session down immediately.
func (g *Guard) Logout() {
	g.mu.Lock()
	if g.sessionID == "" {
		g.mu.Unlock()
		return
	}
	g.clearSessionLocked()
	onLogout := g.hooks.OnLogout
	g.mu.Unlock()

	g.log.Info("admin logged out")
	if onLogout != nil {
		onLogout()
	}
}

// Validate reports whether the bearer token belongs to the live session.
func (g *Guard) Validate(tokenStr string) bool {
	claims, err := g.tokens.Parse(tokenStr)
	if err != nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionID != "" &&
		claims.ID == g.sessionID &&
		g.now().Before(g.expiresAt)
}

// ExpiresAt returns the live session deadline, zero when logged out.
func (g *Guard) ExpiresAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sessionID == "" {
		return time.Time{}
	}
	return g.expiresAt
}

// checkExpiry is the periodic sweep comparing now against the deadline.
func (g *Guard) checkExpiry() {
	g.mu.Lock()
	if g.sessionID == "" || g.now().Before(g.expiresAt) {
		g.mu.Unlock()
		return
	}
	g.clearSessionLocked()
	onLogout := g.hooks.OnLogout
	g.mu.Unlock()

	g.log.Info("admin session expired")
	if onLogout != nil {
		onLogout()
	}
}

func (g *Guard) startSweeperLocked() {
	if g.sweeper != nil {
		return
	}
	g.sweeper = cron.New()
	if _, err := g.sweeper.AddFunc(sweepSpec, g.checkExpiry); err != nil {
		g.log.Error("schedule session sweep", zap.Error(err))
	}
	g.sweeper.Start()
}

// clearSessionLocked wipes session state and cancels the sweeper so no timer
// outlives the session it watched.
func (g *Guard) clearSessionLocked() {
	g.sessionID = ""
	g.expiresAt = time.Time{}
	_ = g.kv.Delete(kvstore.KeyAdminSession)
	if g.sweeper != nil {
		g.sweeper.Stop()
		g.sweeper = nil
	}
}

func (g *Guard) persistGuardLocked() {
	raw, err := json.Marshal(persistedGuard{
		FailedAttempts: g.failedAttempts,
		LockedUntil:    g.lockedUntil,
	})
	if err != nil {
		return
	}
	if err := g.kv.Set(kvstore.KeyAdminGuard, raw); err != nil {
		g.log.Warn("persist guard state", zap.Error(err))
	}
}

func (g *Guard) persistSessionLocked() {
	raw, err := json.Marshal(persistedSession{
		TokenID:   g.sessionID,
		ExpiresAt: g.expiresAt,
	})
	if err != nil {
		return
	}
	if err := g.kv.Set(kvstore.KeyAdminSession, raw); err != nil {
		g.log.Warn("persist session", zap.Error(err))
	}
}
