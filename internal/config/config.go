package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Addr     string
	LogLevel string

	// Link base resolution for outgoing email.
	PublicURL   *url.URL
	PlatformURL string
	LocalPort   string

	SiteName      string
	EmailFrom     string
	EmailFromName string

	MongoURI string
	MongoDB  string

	ImageCloudName string
	ImageAPIKey    string
	ImageAPISecret string

	BrevoAPIKey    string
	ForceSMTP      bool
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPTLSMode    string
	CookieSecret   string
	GrantStore     string
	RedisAddr      string
	RedisPassword  string
	SessionTTL     time.Duration
	AccessGate     bool
	PublicPaths    []string
	AccessRedirect string
	DebugLevel     string
	AdminEmails    []string
}

// Load merges the optional .env file into the process environment and then
// reads the configuration from it.
func Load() (Config, error) {
	path := os.Getenv("APP_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := loadDotEnvFile(path, os.Setenv, os.Getenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("APP_ENV_FILE: %w", err)
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:            getenv("APP_ENV"),
		Addr:           getenv("APP_ADDR"),
		LogLevel:       getenv("APP_LOG_LEVEL"),
		PlatformURL:    strings.TrimSpace(getenv("APP_PLATFORM_URL")),
		LocalPort:      strings.TrimSpace(getenv("APP_PORT")),
		SiteName:       strings.TrimSpace(getenv("APP_SITE_NAME")),
		EmailFrom:      strings.TrimSpace(getenv("APP_EMAIL_FROM")),
		EmailFromName:  strings.TrimSpace(getenv("APP_EMAIL_FROM_NAME")),
		MongoURI:       strings.TrimSpace(getenv("APP_MONGODB_URI")),
		MongoDB:        strings.TrimSpace(getenv("APP_MONGODB_DB")),
		ImageCloudName: strings.TrimSpace(getenv("APP_IMAGE_CLOUD_NAME")),
		ImageAPIKey:    strings.TrimSpace(getenv("APP_IMAGE_API_KEY")),
		ImageAPISecret: getenv("APP_IMAGE_API_SECRET"),
		BrevoAPIKey:    strings.TrimSpace(getenv("APP_BREVO_API_KEY")),
		SMTPHost:       strings.TrimSpace(getenv("APP_SMTP_HOST")),
		SMTPUsername:   getenv("APP_SMTP_USERNAME"),
		SMTPPassword:   getenv("APP_SMTP_PASSWORD"),
		SMTPTLSMode:    strings.ToLower(strings.TrimSpace(getenv("APP_SMTP_TLS_MODE"))),
		CookieSecret:   getenv("APP_COOKIE_SECRET"),
		GrantStore:     strings.ToLower(strings.TrimSpace(getenv("APP_GRANT_STORE"))),
		RedisAddr:      strings.TrimSpace(getenv("APP_REDIS_ADDR")),
		RedisPassword:  getenv("APP_REDIS_PASSWORD"),
		AccessRedirect: strings.TrimSpace(getenv("APP_ACCESS_REDIRECT")),
		DebugLevel:     strings.TrimSpace(getenv("APP_DEBUG_LEVEL")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.LocalPort == "" {
		cfg.LocalPort = "3000"
		if _, port, err := net.SplitHostPort(cfg.Addr); err == nil && port != "" {
			cfg.LocalPort = port
		}
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	if cfg.SiteName == "" {
		cfg.SiteName = "Website"
	}
	if cfg.EmailFrom == "" {
		cfg.EmailFrom = "no-reply@example.com"
	}
	if cfg.EmailFromName == "" {
		cfg.EmailFromName = cfg.SiteName
	}

	var err error
	if cfg.ForceSMTP, err = parseBool(getenv("APP_EMAIL_FORCE_SMTP"), false); err != nil {
		return Config{}, fmt.Errorf("APP_EMAIL_FORCE_SMTP: %w", err)
	}
	if cfg.AccessGate, err = parseBool(getenv("APP_ACCESS_GATE"), true); err != nil {
		return Config{}, fmt.Errorf("APP_ACCESS_GATE: %w", err)
	}

	if cfg.SMTPHost == "" {
		cfg.SMTPHost = "localhost"
	}
	portRaw := strings.TrimSpace(getenv("APP_SMTP_PORT"))
	if portRaw == "" {
		cfg.SMTPPort = 1025
	} else {
		port, err := strconv.Atoi(portRaw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, errors.New("APP_SMTP_PORT: must be a port number")
		}
		cfg.SMTPPort = port
	}
	switch cfg.SMTPTLSMode {
	case "":
		cfg.SMTPTLSMode = "none"
	case "none", "starttls", "tls":
	default:
		return Config{}, errors.New("APP_SMTP_TLS_MODE: must be one of none, starttls, tls")
	}

	switch cfg.GrantStore {
	case "":
		cfg.GrantStore = "cookie"
	case "cookie", "session":
	default:
		return Config{}, errors.New("APP_GRANT_STORE: must be cookie or session")
	}

	ttlRaw := getenv("APP_SESSION_TTL")
	if ttlRaw == "" {
		cfg.SessionTTL = 24 * time.Hour
	} else {
		ttl, err := time.ParseDuration(ttlRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_SESSION_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("APP_SESSION_TTL: must be > 0")
		}
		cfg.SessionTTL = ttl
	}

	if cfg.AccessRedirect == "" {
		cfg.AccessRedirect = "/nothing-found"
	}
	if !strings.HasPrefix(cfg.AccessRedirect, "/") {
		return Config{}, errors.New("APP_ACCESS_REDIRECT: must be an absolute path")
	}
	cfg.PublicPaths = parsePaths(getenv("APP_PUBLIC_PATHS"))
	cfg.AdminEmails = parseCSV(getenv("APP_ADMIN_EMAILS"))

	if cfg.IsProd() {
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

// PublicURLString returns the explicit base URL override without a trailing
// slash, or "" when none is configured.
func (c Config) PublicURLString() string {
	if c.PublicURL == nil {
		return ""
	}
	return strings.TrimRight(c.PublicURL.String(), "/")
}

func loadDotEnvFile(path string, setenv func(string, string) error, getenv func(string) string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for k, v := range values {
		if v == "" || getenv(k) != "" {
			continue
		}
		if err := setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func parseBool(s string, def bool) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

func parsePaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
