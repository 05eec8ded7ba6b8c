package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"gxshared/internal/debuglog"
	"gxshared/internal/guard"
)

// waitParam counts the seconds a client has spent on the admin waiting page.
const waitParam = "gx_wait"

type AccessGateOpts struct {
	Grants guard.GrantStore
	Policy guard.AccessPolicy
	Logger *slog.Logger
}

// AccessGate lets a request through or redirects it once to the policy's
// fallback. Grants are persisted only when the decision asks for it and the
// client has none yet.
func AccessGate(opts AccessGateOpts) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasGrant := opts.Grants != nil && opts.Grants.HasGrant(r)
			d := guard.DecideAccess(guard.AccessRequest{
				Host:     r.Host,
				Path:     r.URL.Path,
				Query:    r.URL.Query(),
				HasGrant: hasGrant,
			}, opts.Policy)
			GetDebugger(r.Context()).Server(debuglog.FeatureAuth, "access decision",
				"path", r.URL.Path, "outcome", d.Outcome.String(), "reason", d.Reason)

			if d.Outcome != guard.Granted {
				http.Redirect(w, r, d.RedirectTo, http.StatusFound)
				return
			}
			if d.Persist && !hasGrant && opts.Grants != nil {
				if err := opts.Grants.Grant(w, r); err != nil {
					logger.Warn("persist access grant", "reason", d.Reason, "err", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAdminPage guards HTML admin pages. While the auth source is still
// initialising it serves a self-refreshing waiting page; after
// guard.EscapeHatchAfter seconds that page offers to continue, which forces
// the provider out of its pending state.
func (a *api) requireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		elapsed, _ := strconv.Atoi(r.FormValue(waitParam))
		if elapsed < 0 {
			elapsed = 0
		}
		if r.Method == http.MethodPost && r.PostFormValue("continue") == "1" && guard.EscapeHatchAvailable(elapsed) {
			GetDebugger(r.Context()).Server(debuglog.FeatureAuth, "admin gate forced init", "path", r.URL.Path)
			a.admin.ForceInit(r)
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}

		d := guard.DecideAdmin(a.admin.State(r), a.adminPolicy)
		GetDebugger(r.Context()).Server(debuglog.FeatureAuth, "admin decision", "path", r.URL.Path, "status", d.Status.String())
		switch d.Status {
		case guard.StatusChecking:
			d.Elapsed = elapsed
			d.EscapeHatch = guard.EscapeHatchAvailable(elapsed)
			a.renderWaiting(w, r, d)
		case guard.StatusRedirectLogin, guard.StatusRedirectHome:
			http.Redirect(w, r, d.RedirectTo, http.StatusFound)
		case guard.StatusAuthorized:
			next.ServeHTTP(w, r)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

// requireAdminAPI is the JSON counterpart of requireAdminPage.
func (a *api) requireAdminAPI(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := guard.DecideAdmin(a.admin.State(r), a.adminPolicy)
		switch d.Status {
		case guard.StatusAuthorized:
			next(w, r)
		case guard.StatusChecking:
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusServiceUnavailable, "auth_pending", "authentication not ready")
		case guard.StatusRedirectLogin:
			WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		default:
			WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
		}
	}
}
