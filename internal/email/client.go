package email

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"gxshared/internal/debuglog"
	"gxshared/internal/domain"
)

type Kind string

const (
	KindSMTP  Kind = "smtp"
	KindBrevo Kind = "brevo"
)

type Options struct {
	Prod        bool
	ForceSMTP   bool
	BrevoAPIKey string
	SMTP        SMTPSettings

	SenderEmail string
	SenderName  string

	HTTPClient *http.Client
	Logger     *slog.Logger
	Debug      *debuglog.Debugger
}

func (o Options) sender() Address {
	a := Address{Email: o.SenderEmail, Name: o.SenderName}
	if a.Email == "" {
		a.Email = DefaultSenderEmail
	}
	if a.Name == "" {
		a.Name = DefaultSenderName
	}
	return a
}

// Select picks the delivery variant. SMTP wins when forced or when a
// non-production process has no hosted API key.
func Select(opts Options) (Kind, error) {
	hasKey := strings.TrimSpace(opts.BrevoAPIKey) != ""
	switch {
	case opts.ForceSMTP || (!opts.Prod && !hasKey):
		return KindSMTP, nil
	case hasKey:
		return KindBrevo, nil
	default:
		return "", domain.NewConfigurationError("email", "no email configuration found: set APP_BREVO_API_KEY or force SMTP")
	}
}

func New(opts Options) (Client, error) {
	kind, err := Select(opts)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindBrevo:
		opts.Debug.Server(debuglog.FeatureEmail, "using brevo api for email delivery")
		return NewBrevoClient(opts.BrevoAPIKey, opts), nil
	default:
		opts.Debug.Server(debuglog.FeatureEmail, "using smtp for email delivery", "addr", opts.SMTP.addr())
		return NewSMTPClient(opts), nil
	}
}

// Lazy builds the client on first use. Concurrent first calls share one
// construction; a failed construction is retried on the next call.
type Lazy struct {
	opts Options
	// build is swapped in tests.
	build func(Options) (Client, error)

	mu     sync.Mutex
	client Client
}

func NewLazy(opts Options) *Lazy {
	return &Lazy{opts: opts, build: New}
}

func (l *Lazy) Client() (Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return l.client, nil
	}
	c, err := l.build(l.opts)
	if err != nil {
		return nil, err
	}
	l.client = c
	return c, nil
}

func (l *Lazy) Send(ctx context.Context, msg Message) error {
	c, err := l.Client()
	if err != nil {
		return err
	}
	return c.Send(ctx, msg)
}
