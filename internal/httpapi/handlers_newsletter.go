package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gxshared/internal/domain"
	"gxshared/internal/email"
)

type newsletterRequest struct {
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}

func (a *api) handleNewsletterSubscribe(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	addr := normalizeEmail(req.Email)
	if !a.limiter.Allow(clientIP(r)+"|"+addr, a.now()) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}
	if err := a.subscribe(r.Context(), addr); err != nil {
		a.logger.Error("newsletter subscribe", "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "subscribed"})
}

func (a *api) handleNewsletterUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if err := a.unsubscribe(r.Context(), normalizeEmail(req.Email), req.Token); err != nil {
		a.logger.Error("newsletter unsubscribe", "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// handleNewsletterSubscribePage is the target of the resubscribe link in
// unsubscription emails. It only flips the stored subscription back on and
// sends nothing.
func (a *api) handleNewsletterSubscribePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	addr := normalizeEmail(q.Get("email"))
	token := q.Get("token")
	if addr == "" || token == "" {
		a.renderMessage(w, http.StatusOK, "Newsletter", "Open the link from your email to subscribe again.")
		return
	}
	if !a.limiter.Allow(clientIP(r)+"|"+addr, a.now()) {
		a.renderMessage(w, http.StatusTooManyRequests, "Newsletter", "Too many attempts. Please try again later.")
		return
	}
	if err := a.resubscribe(r.Context(), addr, token); err != nil {
		a.logger.Error("newsletter resubscribe", "err", err)
		a.renderMessage(w, pageStatus(err), "Newsletter", "This subscribe link is invalid or was already used.")
		return
	}
	a.renderMessage(w, http.StatusOK, "Newsletter", "You are subscribed again.")
}

func (a *api) handleNewsletterUnsubscribePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := a.unsubscribe(r.Context(), normalizeEmail(q.Get("email")), q.Get("token")); err != nil {
		a.logger.Error("newsletter unsubscribe", "err", err)
		a.renderMessage(w, pageStatus(err), "Newsletter", "This unsubscribe link is invalid or was already used.")
		return
	}
	a.renderMessage(w, http.StatusOK, "Newsletter", "You have been unsubscribed.")
}

func (a *api) subscribe(ctx context.Context, addr string) error {
	if !validEmail(addr) {
		return domain.NewValidationError(map[string]string{"email": "must be a valid email"})
	}
	if a.subscribers == nil || a.email == nil {
		return domain.NewConfigurationError("newsletter", "subscriber store or email not configured")
	}
	token := uuid.NewString()
	if err := a.subscribers.Subscribe(ctx, addr, token); err != nil {
		return err
	}
	rendered, err := a.templates.NewsletterSubscription(email.Vars{SiteName: a.siteName, Email: addr, Token: token})
	if err != nil {
		return err
	}
	return a.email.Send(ctx, rendered.Message(addr))
}

func (a *api) unsubscribe(ctx context.Context, addr, token string) error {
	fields := map[string]string{}
	if !validEmail(addr) {
		fields["email"] = "must be a valid email"
	}
	if token == "" {
		fields["token"] = "required"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	if a.subscribers == nil || a.email == nil {
		return domain.NewConfigurationError("newsletter", "subscriber store or email not configured")
	}
	next := uuid.NewString()
	ok, err := a.subscribers.Unsubscribe(ctx, addr, token, next)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	rendered, err := a.templates.NewsletterUnsubscription(email.Vars{SiteName: a.siteName, Email: addr, Token: next})
	if err != nil {
		return err
	}
	return a.email.Send(ctx, rendered.Message(addr))
}

func (a *api) resubscribe(ctx context.Context, addr, token string) error {
	if !validEmail(addr) {
		return domain.NewValidationError(map[string]string{"email": "must be a valid email"})
	}
	if a.subscribers == nil {
		return domain.NewConfigurationError("newsletter", "subscriber store not configured")
	}
	ok, err := a.subscribers.Resubscribe(ctx, addr, token, uuid.NewString())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func pageStatus(err error) int {
	status, _, _ := classifyError(err)
	return status
}
