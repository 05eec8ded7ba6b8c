package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gxshared/internal/email"
	"gxshared/internal/guard"
	"gxshared/internal/imagehost"
)

type stubEmail struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *stubEmail) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubTokens struct {
	issueFn  func(ctx context.Context, email, purpose string, ttl time.Duration) (string, error)
	redeemFn func(ctx context.Context, token, purpose string) (string, error)
}

func (s *stubTokens) Issue(ctx context.Context, email, purpose string, ttl time.Duration) (string, error) {
	if s.issueFn != nil {
		return s.issueFn(ctx, email, purpose, ttl)
	}
	return "tok-" + purpose, nil
}

func (s *stubTokens) Redeem(ctx context.Context, token, purpose string) (string, error) {
	if s.redeemFn != nil {
		return s.redeemFn(ctx, token, purpose)
	}
	return "user@example.com", nil
}

type stubSubscribers struct {
	subscribeFn   func(ctx context.Context, email, token string) error
	unsubscribeFn func(ctx context.Context, email, token, nextToken string) (bool, error)
	resubscribeFn func(ctx context.Context, email, token, nextToken string) (bool, error)
}

func (s *stubSubscribers) Subscribe(ctx context.Context, email, token string) error {
	if s.subscribeFn != nil {
		return s.subscribeFn(ctx, email, token)
	}
	return nil
}

func (s *stubSubscribers) Unsubscribe(ctx context.Context, email, token, nextToken string) (bool, error) {
	if s.unsubscribeFn != nil {
		return s.unsubscribeFn(ctx, email, token, nextToken)
	}
	return true, nil
}

func (s *stubSubscribers) Resubscribe(ctx context.Context, email, token, nextToken string) (bool, error) {
	if s.resubscribeFn != nil {
		return s.resubscribeFn(ctx, email, token, nextToken)
	}
	return true, nil
}

type stubImages struct {
	itemFn     func(ctx context.Context, src imagehost.Source, name string) (imagehost.UploadResult, error)
	categoryFn func(ctx context.Context, src imagehost.Source, name string) (imagehost.UploadResult, error)
	deleteFn   func(ctx context.Context, publicID string) (bool, error)
}

func (s *stubImages) UploadMenuItemImage(ctx context.Context, src imagehost.Source, name string) (imagehost.UploadResult, error) {
	if s.itemFn != nil {
		return s.itemFn(ctx, src, name)
	}
	return imagehost.UploadResult{PublicID: "menu-items/" + name}, nil
}

func (s *stubImages) UploadMenuCategoryImage(ctx context.Context, src imagehost.Source, name string) (imagehost.UploadResult, error) {
	if s.categoryFn != nil {
		return s.categoryFn(ctx, src, name)
	}
	return imagehost.UploadResult{PublicID: "menu-categories/" + name}, nil
}

func (s *stubImages) Delete(ctx context.Context, publicID string) (bool, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, publicID)
	}
	return true, nil
}

func (s *stubImages) URL(publicID string, opts imagehost.URLOptions) (string, error) {
	return "https://cdn.test/" + publicID, nil
}

type stubAuth struct {
	state  guard.AuthState
	forced bool
}

func (s *stubAuth) State(*http.Request) guard.AuthState { return s.state }

func (s *stubAuth) ForceInit(*http.Request) { s.forced = true }

var testCodec = guard.NewCookieCodec([]byte("test-secret"))

func newTestAPI() *api {
	sessions := guard.SessionProvider{Codec: testCodec, Admins: map[string]bool{"ops@example.com": true}}
	return &api{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		siteName:  "Shop",
		templates: email.Templates{URL: email.URLConfig{PublicURL: "https://shop.test"}},
		tokenTTL:  15 * time.Minute,
		grants:    guard.CookieGrantStore{Codec: testCodec},
		sessions:  sessions,
		admin:     sessions,
		limiter:   newSendLimiter(15*time.Minute, 5),
		now:       time.Now,
	}
}

// sessionCookies returns the cookies a browser would hold after login.
func sessionCookies(t *testing.T, a *api, login guard.DevLogin) []*http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	a.sessions.StartSession(rr, login)
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no session cookie issued")
	}
	return cookies
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
