package guard

import (
	"net/url"
	"strings"

	"gxshared/internal/domain"
)

const (
	DevTokenPrefix   = "DEV_TOKEN-"
	DefaultDevVerify = "/api/auth/verify"
)

// DevLogin describes a development-only login that skips the email round
// trip.
type DevLogin struct {
	UserID       string
	Email        string
	IsAdmin      bool
	Name         string
	RedirectPath string
}

// DevToken encodes login as DEV_TOKEN-<email>-<0|1>-<userID|auto>.
func DevToken(login DevLogin) string {
	admin := "0"
	if login.IsAdmin {
		admin = "1"
	}
	userID := login.UserID
	if userID == "" {
		userID = "auto"
	}
	return DevTokenPrefix + login.Email + "-" + admin + "-" + userID
}

// CreateDevLoginURL builds a verify URL that authenticates immediately.
func CreateDevLoginURL(baseURL string, login DevLogin) (string, error) {
	if login.Email == "" || !strings.Contains(login.Email, "@") {
		return "", domain.NewValidationError(map[string]string{"email": "must be a valid email"})
	}
	path := login.RedirectPath
	if path == "" {
		path = DefaultDevVerify
	}
	q := url.Values{}
	q.Set("token", DevToken(login))
	q.Set("type", "login")
	q.Set("dev", "true")
	if login.Name != "" {
		q.Set("name", login.Name)
	}
	return strings.TrimRight(baseURL, "/") + path + "?" + q.Encode(), nil
}

func IsDevToken(token string) bool { return strings.HasPrefix(token, DevTokenPrefix) }

// ParseDevToken splits on "-" like the token format implies, so emails
// containing "-" do not round-trip.
func ParseDevToken(token string) (DevLogin, bool) {
	if !IsDevToken(token) {
		return DevLogin{}, false
	}
	parts := strings.Split(token, "-")
	if len(parts) < 4 {
		return DevLogin{}, false
	}
	login := DevLogin{
		Email:   parts[1],
		IsAdmin: parts[2] == "1",
	}
	if parts[3] != "auto" {
		login.UserID = parts[3]
	}
	return login, true
}
