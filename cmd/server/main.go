package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gxshared/internal/config"
	"gxshared/internal/debuglog"
	"gxshared/internal/email"
	"gxshared/internal/guard"
	"gxshared/internal/httpapi"
	"gxshared/internal/imagehost"
	"gxshared/internal/store/mongodb"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := debuglog.NewLogger(cfg.LogLevel, cfg.IsProd())
	debug := debuglog.New(debuglog.Options{
		Logger: logger,
		Level:  debuglog.StaticLevel(cfg.DebugLevel),
		Prod:   cfg.IsProd(),
	})
	codec := guard.NewCookieCodec([]byte(cfg.CookieSecret))
	links := email.URLConfig{
		PublicURL:    cfg.PublicURLString(),
		PlatformHost: cfg.PlatformURL,
		LocalPort:    cfg.LocalPort,
	}

	opts := httpapi.RouterOpts{
		Logger:     logger,
		Debug:      debug,
		IsProd:     cfg.IsProd(),
		SiteName:   cfg.SiteName,
		Templates:  email.Templates{URL: links},
		AccessGate: cfg.AccessGate,
		AccessPolicy: guard.AccessPolicy{
			PublicPaths: append([]string{"/healthz"}, cfg.PublicPaths...),
			RedirectTo:  cfg.AccessRedirect,
		},
		Sessions: guard.SessionProvider{
			Codec:  codec,
			Secure: cfg.CookieSecure(),
			Admins: adminSet(cfg.AdminEmails),
		},
	}

	if cfg.MongoURI != "" {
		conn, err := mongodb.New(mongodb.Options{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDB,
			Prod:     cfg.IsProd(),
			Logger:   logger,
			Debug:    debug,
		})
		if err != nil {
			logger.Error("mongodb config invalid", "err", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if _, err := conn.Connect(ctx); err != nil {
			// The connector retries on the next use.
			logger.Warn("mongodb not reachable at startup", "uri", mongodb.RedactURI(cfg.MongoURI), "err", err)
		}
		cancel()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = conn.Close(ctx)
		}()

		opts.DBPing = conn.Ping
		opts.Tokens = mongodb.NewLoginTokensStore(conn)
		opts.Subscribers = mongodb.NewSubscribersStore(conn)
	} else {
		logger.Info("mongodb disabled", "hint", "set APP_MONGODB_URI")
	}

	mailOpts := email.Options{
		Prod:        cfg.IsProd(),
		ForceSMTP:   cfg.ForceSMTP,
		BrevoAPIKey: cfg.BrevoAPIKey,
		SMTP: email.SMTPSettings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			TLSMode:  cfg.SMTPTLSMode,
		},
		SenderEmail: cfg.EmailFrom,
		SenderName:  cfg.EmailFromName,
		Logger:      logger,
		Debug:       debug,
	}
	if kind, err := email.Select(mailOpts); err != nil {
		logger.Warn("email disabled", "err", err)
	} else {
		logger.Info("email enabled", "kind", kind)
		opts.Email = email.NewLazy(mailOpts)
	}

	if cfg.ImageCloudName != "" {
		images, err := imagehost.New(imagehost.Options{
			CloudName: cfg.ImageCloudName,
			APIKey:    cfg.ImageAPIKey,
			APISecret: cfg.ImageAPISecret,
			Logger:    logger,
			Debug:     debug,
		})
		if err != nil {
			logger.Error("image host config invalid", "err", err)
			os.Exit(1)
		}
		opts.Images = images
	}

	grants, closeGrants, err := newGrantStore(cfg, codec)
	if err != nil {
		logger.Error("grant store failed", "store", cfg.GrantStore, "err", err)
		os.Exit(1)
	}
	defer closeGrants()
	opts.Grants = grants

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "access_gate", cfg.AccessGate)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func newGrantStore(cfg config.Config, codec guard.CookieCodec) (guard.GrantStore, func(), error) {
	if cfg.GrantStore != "session" {
		return guard.CookieGrantStore{Codec: codec, Secure: cfg.CookieSecure()}, func() {}, nil
	}
	store := guard.SessionGrantStore{Codec: codec, Secure: cfg.CookieSecure(), TTL: cfg.SessionTTL}
	if cfg.RedisAddr == "" {
		store.Backend = guard.NewMemoryBackend()
		return store, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := guard.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	store.Backend = guard.NewRedisBackend(rdb)
	return store, func() { _ = rdb.Close() }, nil
}

func adminSet(emails []string) map[string]bool {
	out := make(map[string]bool, len(emails))
	for _, e := range emails {
		out[e] = true
	}
	return out
}
