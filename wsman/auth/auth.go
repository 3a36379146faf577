// Package auth provides authentication handlers for WS-Management connections.
package auth

import (
	"errors"
	"net/http"
)

// Authenticator defines the interface for authentication handlers.
type Authenticator interface {
	// Transport wraps an http.RoundTripper with authentication.
	Transport(base http.RoundTripper) http.RoundTripper

	// Name returns the authentication scheme name.
	Name() string
}

// Credentials holds authentication credentials. A zero value means
// "use the caller's ambient identity" and is valid for transports that
// support it; explicit credentials require both user name and password.
type Credentials struct {
	// Username is the user name for authentication.
	Username string

	// Password is the password for authentication.
	Password string

	// Domain is the optional domain for NTLM authentication.
	Domain string
}

// IsZero reports whether no explicit credentials were supplied.
func (c *Credentials) IsZero() bool {
	return c.Username == "" && c.Password == "" && c.Domain == ""
}

// Validate checks that required credential fields are populated.
func (c *Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// UPN returns the user name in DOMAIN\user form when a domain is set.
func (c *Credentials) UPN() string {
	if c.Domain != "" {
		return c.Domain + `\` + c.Username
	}
	return c.Username
}
