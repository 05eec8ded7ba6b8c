package guard

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// CookieCodec signs cookie values with HMAC-SHA256. With an empty secret
// values pass through unsigned.
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret []byte) CookieCodec {
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return CookieCodec{secret: secretCopy}
}

func (c CookieCodec) Encode(value string) string {
	if len(c.secret) == 0 {
		return value
	}

	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	sig := mac.Sum(nil)

	return value + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func (c CookieCodec) Decode(cookieValue string) (string, bool) {
	if len(c.secret) == 0 {
		return cookieValue, cookieValue != ""
	}

	i := strings.LastIndexByte(cookieValue, '.')
	if i <= 0 || i == len(cookieValue)-1 {
		return "", false
	}
	value, sigB64 := cookieValue[:i], cookieValue[i+1:]

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(sig) != sha256.Size {
		return "", false
	}

	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	expected := mac.Sum(nil)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", false
	}

	return value, true
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration, secure, httpOnly bool) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
		c.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, c)
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
