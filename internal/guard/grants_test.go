package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func withCookies(r *http.Request, rr *httptest.ResponseRecorder) *http.Request {
	for _, c := range rr.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestCookieGrantStore(t *testing.T) {
	store := CookieGrantStore{Codec: NewCookieCodec(nil)}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if store.HasGrant(r) {
		t.Fatalf("expected no grant")
	}

	rr := httptest.NewRecorder()
	if err := store.Grant(rr, r); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "devAccessGranted" || c.Value != "true" || c.Path != "/" {
		t.Fatalf("unexpected grant cookie: %+v", c)
	}
	if c.MaxAge != int((30 * 24 * time.Hour).Seconds()) {
		t.Fatalf("expected 30 day cookie, got MaxAge %d", c.MaxAge)
	}

	next := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), rr)
	if !store.HasGrant(next) {
		t.Fatalf("expected grant after Grant")
	}
}

func TestCookieGrantStoreRejectsForgedWhenSigned(t *testing.T) {
	store := CookieGrantStore{Codec: NewCookieCodec([]byte("0123456789abcdef0123456789abcdef"))}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: GrantCookieName, Value: "true"})
	if store.HasGrant(r) {
		t.Fatalf("unsigned grant must be rejected")
	}
}

func TestSessionGrantStore(t *testing.T) {
	backend := NewMemoryBackend()
	store := SessionGrantStore{Backend: backend, Codec: NewCookieCodec(nil), TTL: time.Hour}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	if err := store.Grant(rr, r); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	if cookies[0].MaxAge != 0 {
		t.Fatalf("session cookie must not carry an expiry, got MaxAge %d", cookies[0].MaxAge)
	}

	next := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), rr)
	if !store.HasGrant(next) {
		t.Fatalf("expected grant for session")
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "someone-else"})
	if store.HasGrant(other) {
		t.Fatalf("unknown session must not hold a grant")
	}
}

func TestSessionGrantStoreReusesSessionID(t *testing.T) {
	store := SessionGrantStore{Backend: NewMemoryBackend(), Codec: NewCookieCodec(nil)}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sid-1"})

	rr := httptest.NewRecorder()
	if err := store.Grant(rr, r); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if got := rr.Result().Cookies()[0].Value; got != "sid-1" {
		t.Fatalf("expected existing session id, got %q", got)
	}
}

func TestMemoryBackendExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewMemoryBackend()
	b.now = func() time.Time { return now }

	ctx := context.Background()
	if err := b.Put(ctx, "s", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, _ := b.Has(ctx, "s"); !ok {
		t.Fatalf("expected entry")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := b.Has(ctx, "s"); ok {
		t.Fatalf("expected entry to expire")
	}
}
