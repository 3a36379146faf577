package cim

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

// The provider location registry lives in a fixed namespace on the
// site server; the per-site namespace is resolved from it.
const (
	smsNamespace          = `root\sms`
	providerLocationClass = "SMS_ProviderLocation"
)

// Connect resolves the SMS provider for the configured server and
// site code and opens the sessions the resolution yields.
//
// The site server is asked for its provider registration; the
// registration's NamespacePath names the provider host and the site
// namespace, and its SiteCode becomes authoritative. When the
// provider runs on a different host than the site server, a second
// session to that host is opened. Any resolution failure clears the
// connection state.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	server := c.cfg.Server
	if server == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("cim: no server configured and local hostname unavailable: %w", err)
		}
		server = hostname
	}

	entry, err := c.sessions.Get(ctx, server)
	if err != nil {
		c.clearLocked()
		return fmt.Errorf("cim: connect to %s: %w", server, err)
	}

	var filter wql.Expr
	if c.cfg.SiteCode == "" {
		filter = wql.EqBool("ProviderForLocalSite", true)
	} else {
		filter = wql.Eq("SiteCode", c.cfg.SiteCode)
	}

	uri := wsman.ResourceURI(smsNamespace, providerLocationClass)
	statement := wql.SelectAll(providerLocationClass, filter)

	// Bootstrap queries are not retried; retry policy applies to the
	// generic operations only.
	rows, err := c.drainEnumeration(ctx, entry.Client(), uri, statement,
		wsman.EnumerateOptions{Optimize: true, MaxElements: c.cfg.BatchSize}, c.cfg.BatchSize, false)
	if err != nil {
		c.clearLocked()
		return fmt.Errorf("cim: resolve provider via %s: %w", server, err)
	}
	if len(rows) == 0 {
		c.clearLocked()
		return fmt.Errorf("cim: unable to connect: no provider registered on %s for site %q", server, c.cfg.SiteCode)
	}

	loc := rows[0]
	host, namespace, err := parseNamespacePath(loc.Get("NamespacePath"))
	if err != nil {
		c.clearLocked()
		return fmt.Errorf("cim: provider registration on %s: %w", server, err)
	}
	if m := loc.Get("Machine"); m != "" {
		host = m
	}

	provider := entry
	if !strings.EqualFold(host, server) {
		provider, err = c.sessions.Get(ctx, host)
		if err != nil {
			c.clearLocked()
			return fmt.Errorf("cim: connect to provider %s: %w", host, err)
		}
	}

	c.siteCode = loc.Get("SiteCode")
	c.namespace = namespace
	c.providerHost = host
	c.entry = entry
	c.provider = provider
	c.validatedAt = time.Now()

	c.logger.Debug("provider resolved",
		"server", server, "provider", host,
		"site", c.siteCode, "namespace", c.namespace)
	return nil
}

// clearLocked drops the connection state. Sessions stay in the
// manager cache; Close tears those down.
func (c *Client) clearLocked() {
	c.siteCode = ""
	c.namespace = ""
	c.providerHost = ""
	c.entry = nil
	c.provider = nil
	c.validatedAt = time.Time{}
}

// connection is the snapshot of resolved state an operation runs on.
type connection struct {
	client    *wsman.Client
	namespace string
}

// ensureConnected returns the current connection, resolving it first
// if needed. A connection older than MaxSessionAge is re-validated
// with an Identify exchange; failure drops the session and resolves
// from scratch.
func (c *Client) ensureConnected(ctx context.Context) (connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider != nil && c.namespace != "" {
		fresh := c.cfg.MaxSessionAge == 0 || time.Since(c.validatedAt) <= c.cfg.MaxSessionAge
		if fresh {
			return connection{client: c.provider.Client(), namespace: c.namespace}, nil
		}
		if _, err := c.provider.Client().Identify(ctx); err == nil {
			c.validatedAt = time.Now()
			return connection{client: c.provider.Client(), namespace: c.namespace}, nil
		}
		c.logger.Debug("stale session failed validation, reconnecting",
			"host", c.providerHost)
		c.sessions.Remove(c.providerHost)
		c.clearLocked()
	}

	if err := c.connectLocked(ctx); err != nil {
		return connection{}, err
	}
	return connection{client: c.provider.Client(), namespace: c.namespace}, nil
}

// parseNamespacePath splits a provider namespace path of the form
// \\HOST\root\sms\site_XYZ into the host and the namespace.
func parseNamespacePath(path string) (host, namespace string, err error) {
	trimmed := strings.TrimPrefix(path, `\\`)
	if trimmed == path || trimmed == "" {
		return "", "", fmt.Errorf("malformed namespace path %q", path)
	}
	host, namespace, ok := strings.Cut(trimmed, `\`)
	if !ok || host == "" || namespace == "" {
		return "", "", fmt.Errorf("malformed namespace path %q", path)
	}
	return host, namespace, nil
}
