package guard

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"gxshared/internal/domain"
)

func TestCreateDevLoginURL(t *testing.T) {
	raw, err := CreateDevLoginURL("http://localhost:3002/", DevLogin{Email: "dev@example.com", IsAdmin: true, Name: "Dev"})
	if err != nil {
		t.Fatalf("CreateDevLoginURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "localhost:3002" || u.Path != "/api/auth/verify" {
		t.Fatalf("unexpected url %q", raw)
	}
	q := u.Query()
	if q.Get("token") != "DEV_TOKEN-dev@example.com-1-auto" {
		t.Fatalf("unexpected token %q", q.Get("token"))
	}
	if q.Get("type") != "login" || q.Get("dev") != "true" || q.Get("name") != "Dev" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestCreateDevLoginURLValidatesEmail(t *testing.T) {
	_, err := CreateDevLoginURL("http://localhost", DevLogin{Email: "nope"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseDevToken(t *testing.T) {
	login, ok := ParseDevToken("DEV_TOKEN-dev@example.com-1-u42")
	if !ok || login.Email != "dev@example.com" || !login.IsAdmin || login.UserID != "u42" {
		t.Fatalf("unexpected parse %+v %v", login, ok)
	}
	login, ok = ParseDevToken(DevToken(DevLogin{Email: "a@b.c"}))
	if !ok || login.IsAdmin || login.UserID != "" {
		t.Fatalf("unexpected parse %+v %v", login, ok)
	}
	if _, ok := ParseDevToken("DEV_TOKEN-short"); ok {
		t.Fatalf("expected short token to fail")
	}
	if _, ok := ParseDevToken("abc"); ok || IsDevToken("abc") {
		t.Fatalf("expected non-dev token to fail")
	}
}

func TestSessionProvider(t *testing.T) {
	p := SessionProvider{Codec: NewCookieCodec([]byte("secret")), Admins: map[string]bool{"ops@example.com": true}}

	anon := p.State(httptest.NewRequest(http.MethodGet, "/", nil))
	if !anon.IsInitialized || anon.IsAuthenticated {
		t.Fatalf("unexpected anonymous state %+v", anon)
	}

	rr := httptest.NewRecorder()
	p.StartSession(rr, DevLogin{Email: "Ops@Example.com"})
	r := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), rr)
	s := p.State(r)
	if !s.IsAuthenticated || !s.IsAdmin {
		t.Fatalf("expected configured admin, got %+v", s)
	}

	rr = httptest.NewRecorder()
	p.StartSession(rr, DevLogin{Email: "user@example.com"})
	s = p.State(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), rr))
	if !s.IsAuthenticated || s.IsAdmin {
		t.Fatalf("expected plain user, got %+v", s)
	}

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: AuthSessionCookie, Value: "user@example.com|1"})
	if p.State(forged).IsAuthenticated {
		t.Fatalf("forged session must be rejected")
	}
}
