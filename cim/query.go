package cim

import (
	"context"
	"fmt"

	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

type queryOptions struct {
	where        wql.Expr
	whereText    string
	requiresJoin bool
	lazyProps    bool
	batchSize    int
}

// QueryOption configures a Query call.
type QueryOption func(*queryOptions)

// Where filters the query with a builder expression.
func Where(e wql.Expr) QueryOption {
	return func(o *queryOptions) { o.where = e }
}

// WhereText filters the query with a complete WQL statement, for
// shapes the builder cannot express (joins in particular). Callers
// are responsible for the statement's quoting.
func WhereText(statement string) QueryOption {
	return func(o *queryOptions) { o.whereText = statement }
}

// RequiresJoin declares that the filter joins classes, forcing the
// batched enumeration strategy the provider requires for joins.
func RequiresJoin() QueryOption {
	return func(o *queryOptions) { o.requiresJoin = true }
}

// LazyProperties asks for each result to be re-fetched by identity so
// properties the provider omits from enumerations are populated.
func LazyProperties() QueryOption {
	return func(o *queryOptions) { o.lazyProps = true }
}

// BatchSize overrides the configured enumeration batch size for one
// query.
func BatchSize(n int) QueryOption {
	return func(o *queryOptions) { o.batchSize = n }
}

// Query returns the instances of className matching the options.
//
// The default strategy is an optimized enumeration that carries the
// first batch in the opening response. Join filters and lazy
// properties force the plain enumerate-then-pull strategy; the choice
// is driven only by the explicit options, never by inspecting filter
// text. Results carry their key selector sets, so they can be handed
// to Update, Delete and InvokeOn.
func (c *Client) Query(ctx context.Context, className string, opts ...QueryOption) ([]wsman.Instance, error) {
	if className == "" {
		return nil, ErrClassNotSpecified
	}

	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	batch := o.batchSize
	if batch <= 0 {
		batch = c.cfg.BatchSize
	}

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	statement := o.whereText
	if statement == "" && o.where != nil {
		statement = wql.SelectAll(className, o.where)
	}

	enumOpts := wsman.EnumerateOptions{ObjectAndEPR: true}
	if !o.requiresJoin && !o.lazyProps {
		enumOpts.Optimize = true
		enumOpts.MaxElements = batch
	}

	uri := wsman.ResourceURI(conn.namespace, className)

	items, err := c.drainEnumeration(ctx, conn.client, uri, statement, enumOpts, batch, true)
	if err != nil {
		return nil, fmt.Errorf("cim: query %s: %w", className, err)
	}

	if o.lazyProps {
		if err := c.materialize(ctx, conn.client, uri, items); err != nil {
			return nil, fmt.Errorf("cim: query %s: %w", className, err)
		}
	}

	return items, nil
}

// drainEnumeration runs an enumeration to completion, pulling batches
// until the provider reports the end of the sequence. With retry set,
// each wire call carries its own retry budget; the sequence itself is
// not restartable. The connect bootstrap drains without retry.
func (c *Client) drainEnumeration(ctx context.Context, client *wsman.Client, uri, statement string, opts wsman.EnumerateOptions, batch int, retry bool) ([]wsman.Instance, error) {
	call := func(op string, fn func() error) error {
		if retry {
			return c.withRetry(ctx, op, fn)
		}
		return fn()
	}

	var result *wsman.EnumerateResult
	err := call("enumerate", func() error {
		var eerr error
		result, eerr = client.Enumerate(ctx, uri, statement, opts)
		return eerr
	})
	if err != nil {
		return nil, err
	}

	items := result.Items
	enumCtx := result.Context
	for !result.EndOfSequence {
		err = call("pull", func() error {
			var perr error
			result, perr = client.Pull(ctx, uri, enumCtx, batch)
			return perr
		})
		if err != nil {
			// Best effort; the provider reaps abandoned contexts.
			_ = client.Release(ctx, uri, enumCtx)
			return nil, err
		}
		items = append(items, result.Items...)
		if result.Context != "" {
			enumCtx = result.Context
		}
	}
	return items, nil
}

// materialize replaces each instance that carries identity selectors
// with a full Get of itself, populating lazily-delivered properties.
func (c *Client) materialize(ctx context.Context, client *wsman.Client, uri string, items []wsman.Instance) error {
	for i := range items {
		if len(items[i].Selectors) == 0 {
			continue
		}
		var full *wsman.Instance
		selectors := items[i].Selectors
		err := c.withRetry(ctx, "get", func() error {
			var gerr error
			full, gerr = client.Get(ctx, uri, selectors)
			return gerr
		})
		if err != nil {
			return err
		}
		full.Selectors = selectors
		items[i] = *full
	}
	return nil
}
