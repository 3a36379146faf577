package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smnsjas/go-cimclient/wsman"
	"github.com/smnsjas/go-cimclient/wsman/auth"
	"github.com/smnsjas/go-cimclient/wsman/transport"
)

// AuthType specifies the authentication mechanism for sessions.
type AuthType int

const (
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic AuthType = iota
	// AuthNTLM uses NTLM authentication.
	AuthNTLM
)

// Default listener ports. The legacy compatibility listener predates the
// WinRM 2.0 port assignment and answers on the plain HTTP(S) ports.
const (
	DefaultPortHTTP        = 5985
	DefaultPortHTTPS       = 5986
	DefaultLegacyPortHTTP  = 80
	DefaultLegacyPortHTTPS = 443
)

// Config holds configuration shared by all sessions a Manager opens.
type Config struct {
	// Credentials for session authentication. Zero value means the
	// transport sends no explicit credentials.
	Credentials auth.Credentials

	// AuthType selects Basic or NTLM authentication.
	AuthType AuthType

	// UseTLS selects the HTTPS listener ports.
	UseTLS bool

	// InsecureSkipVerify skips TLS certificate verification.
	InsecureSkipVerify bool

	// Timeout is the per-request transport timeout.
	Timeout time.Duration

	// Port overrides the modern listener port (0 = default).
	Port int

	// LegacyPort overrides the legacy listener port (0 = default).
	LegacyPort int

	// Logger receives probe and fallback decisions. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Manager caches one session per host and negotiates the protocol on
// first use. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	logger   *slog.Logger
	sessions map[string]*Session

	// endpointFor builds the endpoint URL for a host; replaced in tests.
	endpointFor func(host string, legacy bool) string
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
	m.endpointFor = m.defaultEndpoint
	return m
}

// defaultEndpoint builds the /wsman URL for the chosen listener flavor.
func (m *Manager) defaultEndpoint(host string, legacy bool) string {
	scheme := "http"
	port := m.cfg.Port
	if m.cfg.UseTLS {
		scheme = "https"
	}
	if legacy {
		port = m.cfg.LegacyPort
		if port == 0 {
			port = DefaultLegacyPortHTTP
			if m.cfg.UseTLS {
				port = DefaultLegacyPortHTTPS
			}
		}
	} else if port == 0 {
		port = DefaultPortHTTP
		if m.cfg.UseTLS {
			port = DefaultPortHTTPS
		}
	}
	return fmt.Sprintf("%s://%s:%d/wsman", scheme, host, port)
}

// Get returns the cached session for host, or establishes one.
//
// Cached sessions are returned unchanged, without a health check. On a
// miss the modern listener is probed first; probe failures are swallowed
// and taken to mean the legacy listener is required. A modern open
// failure also falls through to the legacy attempt. Only when both
// attempts fail does Get return an error, naming the host. Session
// establishment is never retried; retry policy lives on the remote
// calls, not here.
func (m *Manager) Get(ctx context.Context, host string) (*Session, error) {
	if host == "" {
		return nil, errors.New("session: host not specified")
	}

	m.mu.Lock()
	if s, ok := m.sessions[host]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	var sess *Session
	var modernErr error

	if m.probeModern(ctx, host) {
		sess, modernErr = m.open(ctx, host, ProtocolModern)
		if modernErr != nil {
			m.logger.Debug("modern session attempt failed, falling back",
				"host", host, "error", modernErr)
		}
	}

	if sess == nil {
		var legacyErr error
		sess, legacyErr = m.open(ctx, host, ProtocolLegacy)
		if legacyErr != nil {
			if modernErr != nil {
				return nil, fmt.Errorf("session: unable to establish session to %s: %w (modern attempt: %v)",
					host, legacyErr, modernErr)
			}
			return nil, fmt.Errorf("session: unable to establish session to %s: %w", host, legacyErr)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A racing Get for the same host may have won; prefer the cache entry.
	if existing, ok := m.sessions[host]; ok {
		sess.Close()
		return existing, nil
	}
	m.sessions[host] = sess

	m.logger.Debug("session established",
		"host", host, "protocol", sess.Protocol.String())
	return sess, nil
}

// probeModern checks whether the modern listener answers an Identify
// probe. Authentication rejections count as "listener present"; the
// authenticated open will sort those out. All probe failures are
// swallowed.
func (m *Manager) probeModern(ctx context.Context, host string) bool {
	tr := transport.NewHTTPTransport(
		transport.WithTimeout(m.cfg.Timeout),
		transport.WithInsecureSkipVerify(m.cfg.InsecureSkipVerify),
	)
	probe := wsman.NewClient(m.endpointFor(host, false), tr)
	defer tr.CloseIdleConnections()

	_, err := probe.Identify(ctx)
	if err == nil {
		return true
	}
	if errors.Is(err, transport.ErrUnauthorized) {
		return true
	}
	m.logger.Debug("modern listener probe failed, assuming legacy required",
		"host", host, "error", err)
	return false
}

// open establishes an authenticated session against the chosen listener
// and validates it with an Identify exchange.
func (m *Manager) open(ctx context.Context, host string, proto Protocol) (*Session, error) {
	tr := transport.NewHTTPTransport(
		transport.WithTimeout(m.cfg.Timeout),
		transport.WithInsecureSkipVerify(m.cfg.InsecureSkipVerify),
	)

	if !m.cfg.Credentials.IsZero() {
		var authenticator auth.Authenticator
		switch m.cfg.AuthType {
		case AuthNTLM:
			authenticator = auth.NewNTLMAuth(m.cfg.Credentials)
		default:
			authenticator = auth.NewBasicAuth(m.cfg.Credentials)
		}
		tr.Client().Transport = authenticator.Transport(tr.Client().Transport)
	}

	client := wsman.NewClient(m.endpointFor(host, proto == ProtocolLegacy), tr)
	if _, err := client.Identify(ctx); err != nil {
		tr.CloseIdleConnections()
		return nil, fmt.Errorf("%s listener: %w", proto, err)
	}

	return &Session{
		Host:          host,
		Protocol:      proto,
		EstablishedAt: time.Now(),
		client:        client,
		transport:     tr,
	}, nil
}

// Remove drops the cached session for host, closing it if present.
func (m *Manager) Remove(host string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[host]; ok {
		s.Close()
		delete(m.sessions, host)
	}
}

// Close tears down every cached session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for host, s := range m.sessions {
		s.Close()
		delete(m.sessions, host)
	}
}

// Len reports the number of cached sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
