package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"gxshared/internal/debuglog"
	"gxshared/internal/email"
	"gxshared/internal/guard"
	"gxshared/internal/imagehost"
)

// TokenStore issues and redeems single-use magic link tokens.
type TokenStore interface {
	Issue(ctx context.Context, email, purpose string, ttl time.Duration) (string, error)
	Redeem(ctx context.Context, token, purpose string) (string, error)
}

type SubscriberStore interface {
	Subscribe(ctx context.Context, email, token string) error
	Unsubscribe(ctx context.Context, email, token, nextToken string) (bool, error)
	Resubscribe(ctx context.Context, email, token, nextToken string) (bool, error)
}

type ImageHost interface {
	UploadMenuItemImage(ctx context.Context, src imagehost.Source, name string) (imagehost.UploadResult, error)
	UploadMenuCategoryImage(ctx context.Context, src imagehost.Source, name string) (imagehost.UploadResult, error)
	Delete(ctx context.Context, publicID string) (bool, error)
	URL(publicID string, opts imagehost.URLOptions) (string, error)
}

type RouterOpts struct {
	Logger   *slog.Logger
	Debug    *debuglog.Debugger
	IsProd   bool
	SiteName string

	DBPing func(context.Context) error

	Email       email.Client
	Templates   email.Templates
	Tokens      TokenStore
	TokenTTL    time.Duration
	Subscribers SubscriberStore
	Images      ImageHost

	// AccessGate disables the developer access gate when false.
	AccessGate   bool
	Grants       guard.GrantStore
	AccessPolicy guard.AccessPolicy

	Sessions    guard.SessionProvider
	Admin       guard.AuthProvider
	AdminPolicy guard.AdminPolicy
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = email.DefaultValidityMinutes * time.Minute
	}
	if opts.SiteName == "" {
		opts.SiteName = email.DefaultSenderName
	}
	admin := opts.Admin
	if admin == nil {
		admin = opts.Sessions
	}

	api := &api{
		logger:      logger,
		isProd:      opts.IsProd,
		siteName:    opts.SiteName,
		dbPing:      opts.DBPing,
		email:       opts.Email,
		templates:   opts.Templates,
		tokens:      opts.Tokens,
		tokenTTL:    opts.TokenTTL,
		subscribers: opts.Subscribers,
		images:      opts.Images,
		grants:      opts.Grants,
		sessions:    opts.Sessions,
		admin:       admin,
		adminPolicy: opts.AdminPolicy,
		limiter:     newSendLimiter(15*time.Minute, 5),
		now:         time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", api.handleHome)
	mux.HandleFunc("GET /healthz", api.handleHealthz)
	mux.HandleFunc("GET /nothing-found", api.handleNothingFound)

	mux.HandleFunc("POST /api/auth/magic-link", api.handleMagicLink)
	mux.HandleFunc("GET /auth/verify", api.handleVerify)
	mux.HandleFunc("GET "+guard.DefaultDevVerify, api.handleVerify)
	mux.HandleFunc("POST /api/auth/logout", api.handleLogout)

	mux.HandleFunc("POST /api/newsletter/subscribe", api.handleNewsletterSubscribe)
	mux.HandleFunc("POST /api/newsletter/unsubscribe", api.handleNewsletterUnsubscribe)
	mux.HandleFunc("GET /newsletter/subscribe", api.handleNewsletterSubscribePage)
	mux.HandleFunc("GET /newsletter/unsubscribe", api.handleNewsletterUnsubscribePage)

	mux.HandleFunc("GET /api/images/url", api.handleImageURL)
	mux.HandleFunc("POST /api/images", api.requireAdminAPI(api.handleImageUpload))
	mux.HandleFunc("DELETE /api/images/{id...}", api.requireAdminAPI(api.handleImageDelete))

	mux.HandleFunc("POST /cc/auth/login", api.handleAdminLogin)
	mux.HandleFunc("GET /cc/auth/verify", api.handleAdminVerify)

	cc := http.NewServeMux()
	cc.HandleFunc("/cc/", api.handleControlCenter)
	gated := api.requireAdminPage(cc)
	mux.Handle("GET /cc/", gated)
	mux.Handle("POST /cc/", gated)

	var h http.Handler = mux
	if opts.AccessGate {
		h = AccessGate(AccessGateOpts{Grants: opts.Grants, Policy: opts.AccessPolicy, Logger: logger})(h)
	}
	h = Debug(opts.Debug)(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

type api struct {
	logger   *slog.Logger
	isProd   bool
	siteName string

	dbPing func(context.Context) error

	email       email.Client
	templates   email.Templates
	tokens      TokenStore
	tokenTTL    time.Duration
	subscribers SubscriberStore
	images      ImageHost

	grants      guard.GrantStore
	sessions    guard.SessionProvider
	admin       guard.AuthProvider
	adminPolicy guard.AdminPolicy

	limiter *sendLimiter
	now     func() time.Time
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}

func (a *api) handleControlCenter(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSuffix(r.URL.Path, "/") != "/cc" {
		a.renderPage(w, http.StatusNotFound, "Not found", notFoundBody)
		return
	}
	db := "not configured"
	if a.dbPing != nil {
		db = "ok"
		if err := a.dbPing(r.Context()); err != nil {
			db = "down"
		}
	}
	images := "not configured"
	if a.images != nil {
		images = "configured"
	}
	mail := "not configured"
	if a.email != nil {
		mail = "configured"
	}
	a.renderMessage(w, http.StatusOK, "Control Center",
		"Database: "+db+". Email: "+mail+". Images: "+images+".")
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		if ip = strings.TrimSpace(ip); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
