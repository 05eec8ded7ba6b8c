package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gxshared/internal/debuglog"
	"gxshared/internal/domain"
	"gxshared/internal/email"
	"gxshared/internal/guard"
)

const (
	purposeLogin    = "login"
	purposeRegister = "register"
	purposeAdmin    = "admin"
)

type magicLinkRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (a *api) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	fields := map[string]string{}
	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		fields["email"] = "must be a valid email"
	}
	if req.Type == "" {
		req.Type = purposeLogin
	}
	if req.Type != purposeLogin && req.Type != purposeRegister {
		fields["type"] = "must be login or register"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}
	if !a.limiter.Allow(clientIP(r)+"|"+req.Email, a.now()) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}

	tmpl := email.TemplateMagicLinkLogin
	if req.Type == purposeRegister {
		tmpl = email.TemplateMagicLinkRegister
	}
	if err := a.sendTokenEmail(r.Context(), req.Email, req.Type, tmpl); err != nil {
		a.logger.Error("send magic link", "type", req.Type, "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (a *api) sendTokenEmail(ctx context.Context, addr, purpose, tmpl string) error {
	if a.tokens == nil {
		return domain.NewConfigurationError("APP_MONGODB_URI", "token store not configured")
	}
	if a.email == nil {
		return domain.NewConfigurationError("email", "email client not configured")
	}
	token, err := a.tokens.Issue(ctx, addr, purpose, a.tokenTTL)
	if err != nil {
		return err
	}
	rendered, err := a.templates.Render(tmpl, email.Vars{
		SiteName:        a.siteName,
		Email:           addr,
		Token:           token,
		ValidityMinutes: int(a.tokenTTL / time.Minute),
	})
	if err != nil {
		return err
	}
	GetDebugger(ctx).Server(debuglog.FeatureEmail, "sending token email", "template", tmpl, "to", addr)
	return a.email.Send(ctx, rendered.Message(addr))
}

// handleVerify redeems a magic link. Outside production it also accepts
// dev tokens, which carry the login in the token itself.
func (a *api) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	purpose := q.Get("type")
	if purpose == "" {
		purpose = purposeLogin
	}
	if token == "" || (purpose != purposeLogin && purpose != purposeRegister) {
		a.renderMessage(w, http.StatusBadRequest, "Invalid link", "This login link is malformed.")
		return
	}

	if guard.IsDevToken(token) {
		login, ok := guard.ParseDevToken(token)
		if a.isProd || !ok {
			a.renderMessage(w, http.StatusBadRequest, "Invalid link", "This login link is invalid or has expired.")
			return
		}
		GetDebugger(r.Context()).Server(debuglog.FeatureAuth, "dev login", "email", login.Email, "admin", login.IsAdmin)
		a.sessions.StartSession(w, login)
		target := "/"
		if login.IsAdmin {
			target = "/cc/"
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	addr, ok := a.redeem(w, r, token, purpose)
	if !ok {
		return
	}
	a.sessions.StartSession(w, guard.DevLogin{Email: addr})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *api) redeem(w http.ResponseWriter, r *http.Request, token, purpose string) (string, bool) {
	if a.tokens == nil {
		a.renderMessage(w, http.StatusServiceUnavailable, "Unavailable", "Login is not available right now.")
		return "", false
	}
	addr, err := a.tokens.Redeem(r.Context(), token, purpose)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.renderMessage(w, http.StatusBadRequest, "Invalid link", "This login link is invalid or has expired.")
		return "", false
	case err != nil:
		a.logger.Error("redeem login token", "purpose", purpose, "err", err)
		a.renderMessage(w, http.StatusInternalServerError, "Error", "Something went wrong. Please try again.")
		return "", false
	}
	return addr, true
}

func (a *api) handleLogout(w http.ResponseWriter, _ *http.Request) {
	a.sessions.EndSession(w)
	w.WriteHeader(http.StatusNoContent)
}

type adminLoginRequest struct {
	Email string `json:"email"`
}

// handleAdminLogin answers the same way for admins and everyone else; only
// configured admins actually receive a link.
func (a *api) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "must be a valid email"}))
		return
	}
	if !a.limiter.Allow(clientIP(r)+"|"+req.Email, a.now()) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}

	if a.sessions.Admins[req.Email] {
		if err := a.sendTokenEmail(r.Context(), req.Email, purposeAdmin, email.TemplateAdminLogin); err != nil {
			a.logger.Error("send admin login", "err", err)
			WriteDomainError(w, err)
			return
		}
	} else {
		GetDebugger(r.Context()).Server(debuglog.FeatureAuth, "admin login for non-admin ignored", "email", req.Email)
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (a *api) handleAdminVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		a.renderMessage(w, http.StatusBadRequest, "Invalid link", "This login link is malformed.")
		return
	}
	addr, ok := a.redeem(w, r, token, purposeAdmin)
	if !ok {
		return
	}
	a.sessions.StartSession(w, guard.DevLogin{Email: addr, IsAdmin: true})
	http.Redirect(w, r, "/cc/", http.StatusSeeOther)
}
