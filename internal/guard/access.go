// Package guard holds route access decisions: the developer access gate,
// the admin gate and the stores that persist an access grant.
//
// Decisions are pure functions of their inputs. Redirects, cookies and
// rendering happen in the HTTP layer.
package guard

import (
	"net"
	"net/url"
	"strings"
)

const (
	BypassParam         = "only4us"
	BypassValue         = "1"
	DefaultDenyRedirect = "/nothing-found"
)

// DefaultPublicPaths are always reachable through the access gate.
var DefaultPublicPaths = []string{"/api/", "/not-found", "/nothing-found", "/auth/login"}

type Outcome int

const (
	Unknown Outcome = iota
	Granted
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

type AccessRequest struct {
	Host  string
	Path  string
	Query url.Values
	// HasGrant reports a grant already persisted for this client.
	HasGrant bool
}

type AccessPolicy struct {
	PublicPaths []string
	RedirectTo  string
}

type AccessDecision struct {
	Outcome    Outcome
	Persist    bool
	RedirectTo string
	Reason     string
}

// DecideAccess evaluates the gate rules in order; the first match wins:
// loopback host, public path, the fallback page itself, bypass parameter,
// persisted grant, deny.
func DecideAccess(req AccessRequest, policy AccessPolicy) AccessDecision {
	redirect := policy.RedirectTo
	if redirect == "" {
		redirect = DefaultDenyRedirect
	}
	fallback, _, _ := strings.Cut(redirect, "?")

	switch {
	case IsLoopbackHost(req.Host):
		return AccessDecision{Outcome: Granted, Persist: true, Reason: "loopback"}
	case IsPublicPath(req.Path, policy.PublicPaths):
		return AccessDecision{Outcome: Granted, Reason: "public_path"}
	case req.Path == fallback:
		return AccessDecision{Outcome: Granted, Reason: "fallback"}
	case req.Query.Get(BypassParam) == BypassValue:
		return AccessDecision{Outcome: Granted, Persist: true, Reason: "bypass"}
	case req.HasGrant:
		return AccessDecision{Outcome: Granted, Reason: "stored_grant"}
	}
	return AccessDecision{Outcome: Denied, RedirectTo: redirect, Reason: "no_grant"}
}

func IsLoopbackHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return host == "localhost" || host == "127.0.0.1"
}

// IsPublicPath matches path against DefaultPublicPaths plus extra. Entries
// ending in "/" match as a prefix. Any other entry matches when path equals
// it or merely contains it, so "/auth/login" also admits "/x/auth/login/y".
func IsPublicPath(path string, extra []string) bool {
	for _, list := range [][]string{DefaultPublicPaths, extra} {
		for _, p := range list {
			if p == "" {
				continue
			}
			if strings.HasSuffix(p, "/") {
				if strings.HasPrefix(path, p) {
					return true
				}
				continue
			}
			if path == p || strings.Contains(path, p) {
				return true
			}
		}
	}
	return false
}
