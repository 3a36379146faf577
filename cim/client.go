// Package cim provides a generic object client for ConfigMgr-style
// CIM/WMI providers reached over WS-Management.
//
// A Client resolves the provider location for a site, holds the
// sessions that resolution yields, and exposes Query, Create, Update,
// Delete and Invoke against named classes in the resolved namespace.
// Connection is lazy: every operation establishes it on first use.
package cim

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smnsjas/go-cimclient/session"
	"github.com/smnsjas/go-cimclient/wsman/auth"
)

// AuthType selects the session authentication mechanism.
type AuthType = session.AuthType

// Authentication mechanisms.
const (
	AuthBasic = session.AuthBasic
	AuthNTLM  = session.AuthNTLM
)

// Default configuration values.
const (
	DefaultTimeout       = 60 * time.Second
	DefaultBatchSize     = 32
	DefaultMaxSessionAge = 15 * time.Minute
)

// Config holds client configuration.
type Config struct {
	// Server is the site server to resolve the provider through.
	// Empty means the local host name.
	Server string

	// SiteCode selects a specific site. Empty resolves the provider
	// for the local site; the resolved code becomes authoritative
	// either way.
	SiteCode string

	// Username, Password and Domain authenticate the sessions. Empty
	// username means the transport sends no explicit credentials.
	Username string
	Password string
	Domain   string

	// AuthType selects Basic or NTLM authentication.
	AuthType AuthType

	// UseTLS selects the HTTPS listener ports.
	UseTLS bool

	// InsecureSkipVerify skips TLS certificate verification.
	InsecureSkipVerify bool

	// Timeout is the per-request transport timeout.
	Timeout time.Duration

	// Port and LegacyPort override the listener ports (0 = defaults).
	Port       int
	LegacyPort int

	// BatchSize caps how many instances each enumeration batch asks
	// for.
	BatchSize int

	// MaxSessionAge bounds how long a resolved connection is trusted
	// without re-validation. Zero disables the age check.
	MaxSessionAge time.Duration

	// Logger receives operation logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		BatchSize:     DefaultBatchSize,
		MaxSessionAge: DefaultMaxSessionAge,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %v", c.Timeout)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size cannot be negative: %d", c.BatchSize)
	}
	if c.MaxSessionAge < 0 {
		return fmt.Errorf("max session age cannot be negative: %v", c.MaxSessionAge)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.LegacyPort < 0 || c.LegacyPort > 65535 {
		return fmt.Errorf("invalid legacy port: %d", c.LegacyPort)
	}
	return nil
}

// Client is a connection-resolving object client. It is safe for
// concurrent use; the connection state is guarded by a mutex and
// remote calls run outside the lock on a snapshot of that state.
type Client struct {
	mu       sync.Mutex
	cfg      Config
	logger   *slog.Logger
	sessions *session.Manager

	// Connection state, populated by Connect.
	siteCode     string
	namespace    string
	providerHost string
	entry        *session.Session
	provider     *session.Session
	validatedAt  time.Time
}

// New creates a client from cfg. Zero-value durations and sizes take
// their defaults; no connection is made until the first operation.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cim: invalid config: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mgr := session.NewManager(session.Config{
		Credentials: auth.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.Domain,
		},
		AuthType:           cfg.AuthType,
		UseTLS:             cfg.UseTLS,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Timeout:            cfg.Timeout,
		Port:               cfg.Port,
		LegacyPort:         cfg.LegacyPort,
		Logger:             logger,
	})

	return &Client{
		cfg:      cfg,
		logger:   logger,
		sessions: mgr,
	}, nil
}

// SiteCode returns the resolved site code, empty before Connect.
func (c *Client) SiteCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.siteCode
}

// Namespace returns the resolved provider namespace, empty before
// Connect.
func (c *Client) Namespace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.namespace
}

// ProviderHost returns the resolved SMS provider host, empty before
// Connect.
func (c *Client) ProviderHost() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providerHost
}

// Close clears the connection state and tears down every session.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	c.sessions.Close()
}
