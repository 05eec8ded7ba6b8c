package guard

import (
	"context"
	"net/http"
	"time"
)

const (
	DefaultLoginPath = "/auth/login"
	DefaultHomePath  = "/"
	// EscapeHatchAfter is the number of waited seconds after which the
	// waiting state offers a manual continue action.
	EscapeHatchAfter = 10
)

// AuthState is reported by an external authentication source. The admin
// gate only reads it.
type AuthState struct {
	IsAuthenticated bool
	IsInitialized   bool
	IsAdmin         bool
	Loading         bool
}

func (s AuthState) Pending() bool { return !s.IsInitialized || s.Loading }

// AuthProvider resolves the auth state of a request. ForceInit makes the
// provider leave its pending state even if it never finished initialising.
type AuthProvider interface {
	State(r *http.Request) AuthState
	ForceInit(r *http.Request)
}

type AdminStatus int

const (
	StatusChecking AdminStatus = iota
	StatusRedirectLogin
	StatusRedirectHome
	StatusAuthorized
	StatusBlank
)

func (s AdminStatus) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusRedirectLogin:
		return "redirecting-to-login"
	case StatusRedirectHome:
		return "redirecting-to-home"
	case StatusAuthorized:
		return "authorized"
	case StatusBlank:
		return "unauthorized-blank"
	default:
		return "unknown"
	}
}

type AdminPolicy struct {
	LoginPath string
	HomePath  string
}

func (p AdminPolicy) loginPath() string {
	if p.LoginPath == "" {
		return DefaultLoginPath
	}
	return p.LoginPath
}

func (p AdminPolicy) homePath() string {
	if p.HomePath == "" {
		return DefaultHomePath
	}
	return p.HomePath
}

type AdminDecision struct {
	Status     AdminStatus
	RedirectTo string
	// Elapsed is the number of seconds spent in the checking state.
	Elapsed     int
	EscapeHatch bool
}

func DecideAdmin(s AuthState, p AdminPolicy) AdminDecision {
	switch {
	case s.Pending():
		return AdminDecision{Status: StatusChecking}
	case !s.IsAuthenticated:
		return AdminDecision{Status: StatusRedirectLogin, RedirectTo: p.loginPath()}
	case !s.IsAdmin:
		return AdminDecision{Status: StatusRedirectHome, RedirectTo: p.homePath()}
	default:
		return AdminDecision{Status: StatusAuthorized}
	}
}

// EscapeHatchAvailable reports whether a wait of elapsed seconds should
// surface the continue action.
func EscapeHatchAvailable(elapsed int) bool { return elapsed > EscapeHatchAfter }

// AdminMachine tracks one admin gate instance across auth state changes. It
// issues each redirect once and renders blank afterwards until the state
// changes again.
type AdminMachine struct {
	policy  AdminPolicy
	seen    bool
	last    AuthState
	current AdminDecision
	elapsed int
}

func NewAdminMachine(p AdminPolicy) *AdminMachine {
	return &AdminMachine{policy: p, current: AdminDecision{Status: StatusChecking}}
}

// Observe re-evaluates when s differs from the last observed state and
// reports whether a new decision was produced.
func (m *AdminMachine) Observe(s AuthState) (AdminDecision, bool) {
	if m.seen && s == m.last {
		if m.current.Status == StatusRedirectLogin || m.current.Status == StatusRedirectHome {
			m.current = AdminDecision{Status: StatusBlank}
		}
		return m.current, false
	}
	m.seen = true
	m.last = s
	d := DecideAdmin(s, m.policy)
	if d.Status == StatusChecking {
		d.Elapsed = m.elapsed
		d.EscapeHatch = EscapeHatchAvailable(m.elapsed)
	}
	m.current = d
	return d, true
}

// Tick advances the waiting counter by one second while checking and
// reports whether the escape hatch just became available.
func (m *AdminMachine) Tick() bool {
	if m.current.Status != StatusChecking {
		return false
	}
	m.elapsed++
	m.current.Elapsed = m.elapsed
	before := m.current.EscapeHatch
	m.current.EscapeHatch = EscapeHatchAvailable(m.elapsed)
	return m.current.EscapeHatch && !before
}

func (m *AdminMachine) Current() AdminDecision { return m.current }

// Continue invokes force when the escape hatch is available.
func (m *AdminMachine) Continue(force func()) bool {
	if m.current.Status != StatusChecking || !m.current.EscapeHatch {
		return false
	}
	force()
	return true
}

// Watch drives an AdminMachine from ticks (one per second in production)
// until ctx is done. onChange receives every new decision, including the
// moment the escape hatch appears.
func Watch(ctx context.Context, ticks <-chan time.Time, p AdminPolicy, state func() AuthState, onChange func(AdminDecision)) {
	m := NewAdminMachine(p)
	if d, changed := m.Observe(state()); changed {
		onChange(d)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if m.Tick() {
				onChange(m.Current())
			}
			if d, changed := m.Observe(state()); changed {
				onChange(d)
			}
		}
	}
}
