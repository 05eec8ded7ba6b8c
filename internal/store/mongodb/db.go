// Package mongodb owns the process's document database handle.
package mongodb

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"gxshared/internal/debuglog"
	"gxshared/internal/domain"
)

const (
	connectTimeout         = 10 * time.Second
	serverSelectionTimeout = 10 * time.Second
	maxPoolSize            = 10
)

var ErrNotConnected = errors.New("mongodb: not connected, call Connect first")

// client is the part of *mongo.Client the connector needs.
type client interface {
	Ping(ctx context.Context) error
	Database(name string) *mongo.Database
	Disconnect(ctx context.Context) error
}

type dialFunc func(ctx context.Context, dbName string, opts *options.ClientOptions) (client, error)

type Options struct {
	URI      string
	Database string
	Prod     bool
	Logger   *slog.Logger
	Debug    *debuglog.Debugger
}

// Connector lazily establishes one client and hands it out until Close.
// Connect is safe for concurrent use; concurrent first calls share a single
// handshake.
type Connector struct {
	uri    string
	dbName string
	prod   bool
	logger *slog.Logger
	debug  *debuglog.Debugger
	dial   dialFunc

	mu     sync.Mutex
	client client
}

func New(opts Options) (*Connector, error) {
	if strings.TrimSpace(opts.URI) == "" {
		return nil, domain.NewConfigurationError("APP_MONGODB_URI", "not set")
	}
	dbName := opts.Database
	if dbName == "" {
		cs, err := connstring.Parse(opts.URI)
		if err != nil {
			return nil, domain.NewConfigurationError("APP_MONGODB_URI", err.Error())
		}
		dbName = cs.Database
	}
	if dbName == "" {
		dbName = "test"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		uri:    opts.URI,
		dbName: dbName,
		prod:   opts.Prod,
		logger: logger,
		debug:  opts.Debug,
		dial:   dialDriver,
	}, nil
}

func (c *Connector) DatabaseName() string { return c.dbName }

// Connect returns the default database, connecting and pinging on first use.
func (c *Connector) Connect(ctx context.Context) (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.debug.Server(debuglog.FeatureMongoDB, "reusing existing connection")
		return c.client.Database(c.dbName), nil
	}

	c.debug.Server(debuglog.FeatureMongoDB, "connecting", "uri", RedactURI(c.uri))
	cl, err := c.open(ctx, c.clientOptions(false))
	if err == nil {
		c.client = cl
		c.debug.Server(debuglog.FeatureMongoDB, "connected and ping ok")
		return cl.Database(c.dbName), nil
	}

	c.debug.Server(debuglog.FeatureMongoDB, "connect failed", "err", err)
	if !c.prod && isTLSError(err) {
		c.logger.Warn("mongodb tls handshake failed, retrying with relaxed certificate validation", "err", err)
		cl, fallbackErr := c.open(ctx, c.clientOptions(true))
		if fallbackErr == nil {
			c.client = cl
			c.debug.Server(debuglog.FeatureMongoDB, "connected with relaxed tls options")
			return cl.Database(c.dbName), nil
		}
		c.logger.Error("mongodb fallback connect failed", "err", fallbackErr)
	}
	return nil, domain.NewTransportError("mongodb", "connect", err)
}

// open dials and pings; a client that fails the ping is disconnected.
func (c *Connector) open(ctx context.Context, opts *options.ClientOptions) (client, error) {
	cl, err := c.dial(ctx, c.dbName, opts)
	if err != nil {
		return nil, err
	}
	if err := cl.Ping(ctx); err != nil {
		_ = cl.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return cl, nil
}

func (c *Connector) clientOptions(relaxedTLS bool) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(c.uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetMaxPoolSize(maxPoolSize)
	if relaxedTLS {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS12,
		})
	}
	return opts
}

// Database returns a database on the established client without connecting.
func (c *Connector) Database(name string) (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, ErrNotConnected
	}
	if name == "" {
		name = c.dbName
	}
	return c.client.Database(name), nil
}

// Collection fails fast when Connect has not succeeded yet.
func (c *Connector) Collection(dbName, name string) (*mongo.Collection, error) {
	db, err := c.Database(dbName)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func (c *Connector) Ping(ctx context.Context) error {
	c.mu.Lock()
	cl := c.client
	c.mu.Unlock()

	if cl == nil {
		return ErrNotConnected
	}
	if err := cl.Ping(ctx); err != nil {
		return domain.NewTransportError("mongodb", "ping", err)
	}
	return nil
}

// TestConnection connects if needed and reports whether a ping succeeds.
func (c *Connector) TestConnection(ctx context.Context) bool {
	if _, err := c.Connect(ctx); err != nil {
		c.debug.Server(debuglog.FeatureMongoDB, "connection test failed", "err", err)
		return false
	}
	if err := c.Ping(ctx); err != nil {
		c.debug.Server(debuglog.FeatureMongoDB, "connection test failed", "err", err)
		return false
	}
	return true
}

// Close disconnects; it is a no-op when never connected or already closed.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.debug.Server(debuglog.FeatureMongoDB, "connection closed")
	if err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

// isTLSError reports transport-security failures. Go's crypto/tls errors
// are lowercase ("tls: ...", "x509: ..."), so matching is case-insensitive.
func isTLSError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "ssl") || strings.Contains(msg, "tls") || strings.Contains(msg, "x509")
}

// RedactURI masks the password of a connection string for logging.
func RedactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<unparseable uri>"
	}
	return u.Redacted()
}

type driverClient struct {
	*mongo.Client
	dbName string
}

func dialDriver(ctx context.Context, dbName string, opts *options.ClientOptions) (client, error) {
	cl, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &driverClient{Client: cl, dbName: dbName}, nil
}

func (d *driverClient) Database(name string) *mongo.Database {
	return d.Client.Database(name)
}

// Ping runs the ping command against the default database.
func (d *driverClient) Ping(ctx context.Context) error {
	return d.Client.Database(d.dbName).RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}
