// Package session manages transport sessions to WS-Management hosts.
//
// A session is a configured protocol client bound to one host. The
// manager caches sessions by host name and negotiates the protocol:
// the modern WinRM listener is probed and preferred, with the legacy
// compatibility listener as fallback.
package session

import (
	"time"

	"github.com/smnsjas/go-cimclient/wsman"
	"github.com/smnsjas/go-cimclient/wsman/transport"
)

// Protocol identifies which listener flavor a session was opened against.
type Protocol int

const (
	// ProtocolModern is the current WinRM listener (ports 5985/5986).
	ProtocolModern Protocol = iota

	// ProtocolLegacy is the compatibility listener (ports 80/443) kept
	// for hosts where the modern listener is unavailable.
	ProtocolLegacy
)

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolModern:
		return "modern"
	case ProtocolLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Session is a transport-level handle to one host. Identity is the host
// name; the protocol tag records which listener answered.
type Session struct {
	// Host is the host this session is bound to.
	Host string

	// Protocol is the listener flavor the session was opened against.
	Protocol Protocol

	// EstablishedAt records when the session was opened, for staleness
	// checks in higher layers.
	EstablishedAt time.Time

	client    *wsman.Client
	transport *transport.HTTPTransport
}

// Client returns the WS-Management client bound to this session.
func (s *Session) Client() *wsman.Client {
	return s.client
}

// Endpoint returns the endpoint URL the session talks to.
func (s *Session) Endpoint() string {
	return s.client.Endpoint()
}

// Close releases the session's pooled connections.
func (s *Session) Close() {
	s.transport.CloseIdleConnections()
}
