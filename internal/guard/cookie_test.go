package guard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCookieCodec_SignAndVerify(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("x", 32)))

	encoded := codec.Encode("true")
	if encoded == "true" {
		t.Fatalf("expected signed cookie value")
	}

	v, ok := codec.Decode(encoded)
	if !ok || v != "true" {
		t.Fatalf("expected decode ok for signed cookie")
	}

	if _, ok := codec.Decode(encoded + "x"); ok {
		t.Fatalf("expected tampered cookie to fail verification")
	}
	if _, ok := codec.Decode("true"); ok {
		t.Fatalf("expected unsigned value to be rejected when a secret is set")
	}
}

func TestCookieCodec_ValueWithDots(t *testing.T) {
	codec := NewCookieCodec([]byte("secret"))
	v, ok := codec.Decode(codec.Encode("a.b@example.com|1"))
	if !ok || v != "a.b@example.com|1" {
		t.Fatalf("unexpected decode: %q %v", v, ok)
	}
}

func TestCookieCodec_Unsigned(t *testing.T) {
	codec := NewCookieCodec(nil)
	if got := codec.Encode("true"); got != "true" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	v, ok := codec.Decode("true")
	if !ok || v != "true" {
		t.Fatalf("expected unsigned cookie to decode")
	}
}

func TestCookieHelpers(t *testing.T) {
	rr := httptest.NewRecorder()
	setCookie(rr, "c", "v", 10*time.Minute, false, true)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode || cookies[0].Path != "/" {
		t.Fatalf("unexpected cookie attributes")
	}
	if cookies[0].MaxAge != 600 {
		t.Fatalf("unexpected MaxAge %d", cookies[0].MaxAge)
	}

	rr = httptest.NewRecorder()
	clearCookie(rr, "c", false)
	cookies = rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("expected MaxAge=-1 on clear")
	}
}
