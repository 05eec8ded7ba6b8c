package guard

import (
	"net/http"
	"strings"
)

const (
	AuthSessionCookie = "gx_session"
	sessionSeparator  = "|"
)

// SessionProvider is an AuthProvider backed by a signed session cookie set
// after a verified magic link or dev login. It is always initialised.
type SessionProvider struct {
	Codec  CookieCodec
	Secure bool
	Admins map[string]bool
}

func (p SessionProvider) State(r *http.Request) AuthState {
	state := AuthState{IsInitialized: true}
	c, err := r.Cookie(AuthSessionCookie)
	if err != nil || c.Value == "" {
		return state
	}
	v, ok := p.Codec.Decode(c.Value)
	if !ok {
		return state
	}
	email, flag, ok := strings.Cut(v, sessionSeparator)
	if !ok || email == "" {
		return state
	}
	state.IsAuthenticated = true
	state.IsAdmin = flag == "1" || p.Admins[strings.ToLower(email)]
	return state
}

func (p SessionProvider) ForceInit(*http.Request) {}

func (p SessionProvider) StartSession(w http.ResponseWriter, login DevLogin) {
	flag := "0"
	if login.IsAdmin {
		flag = "1"
	}
	setCookie(w, AuthSessionCookie, p.Codec.Encode(strings.ToLower(login.Email)+sessionSeparator+flag), 0, p.Secure, true)
}

func (p SessionProvider) EndSession(w http.ResponseWriter) {
	clearCookie(w, AuthSessionCookie, p.Secure)
}
