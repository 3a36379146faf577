package cim

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

type createOptions struct {
	embedded bool
}

// CreateOption configures a Create call.
type CreateOption func(*createOptions)

// Embedded selects the compatibility creation flow some keyless
// value-only classes require: a bare create, one property assignment
// per property, then a commit of the whole set.
func Embedded() CreateOption {
	return func(o *createOptions) { o.embedded = true }
}

// NewEmbeddedInstance builds a client-side instance that is never
// committed on its own, for passing as an embedded-object method
// argument or property value.
func NewEmbeddedInstance(className string, props map[string]any) *wsman.Instance {
	return &wsman.Instance{
		ClassName:  className,
		Properties: normalizeProps(props),
	}
}

// Create creates an instance of className with the given properties
// and returns it carrying its key selector set.
//
// The standard flow commits the full property set in one create call.
// The Embedded flow issues a bare create, assigns each property in
// its own call, then commits.
func (c *Client) Create(ctx context.Context, className string, props map[string]any, opts ...CreateOption) (*wsman.Instance, error) {
	if className == "" {
		return nil, ErrClassNotSpecified
	}
	if len(props) == 0 {
		return nil, ErrNoProperties
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	uri := wsman.ResourceURI(conn.namespace, className)
	normalized := normalizeProps(props)

	var initial map[string][]string
	if !o.embedded {
		initial = normalized
	}

	var epr *wsman.EndpointReference
	err = c.withRetry(ctx, "create "+className, func() error {
		var cerr error
		epr, cerr = conn.client.Create(ctx, uri, className, initial)
		return cerr
	})
	if err != nil {
		return nil, fmt.Errorf("cim: create %s: %w", className, err)
	}

	if !o.embedded {
		return &wsman.Instance{
			ClassName:  className,
			Properties: normalized,
			Selectors:  epr.Selectors,
		}, nil
	}

	// Deterministic assignment order.
	names := make([]string, 0, len(normalized))
	for name := range normalized {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		single := map[string][]string{name: normalized[name]}
		err = c.withRetry(ctx, "assign "+className+"."+name, func() error {
			_, perr := conn.client.Put(ctx, uri, epr.Selectors, className, single)
			return perr
		})
		if err != nil {
			return nil, fmt.Errorf("cim: create %s: assign %s: %w", className, name, err)
		}
	}

	var committed *wsman.Instance
	err = c.withRetry(ctx, "commit "+className, func() error {
		var perr error
		committed, perr = conn.client.Put(ctx, uri, epr.Selectors, className, normalized)
		return perr
	})
	if err != nil {
		return nil, fmt.Errorf("cim: create %s: commit: %w", className, err)
	}
	committed.Selectors = epr.Selectors
	return committed, nil
}

// Update commits property changes to inst and returns the provider's
// view of the updated instance. The instance must carry its identity
// selectors, as instances returned by Query and Create do.
func (c *Client) Update(ctx context.Context, inst *wsman.Instance, props map[string]any) (*wsman.Instance, error) {
	if inst == nil || len(inst.Selectors) == 0 {
		return nil, ErrNoObject
	}
	if len(props) == 0 {
		return nil, ErrNoProperties
	}

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	uri := wsman.ResourceURI(conn.namespace, inst.ClassName)
	normalized := normalizeProps(props)

	var updated *wsman.Instance
	err = c.withRetry(ctx, "update "+inst.ClassName, func() error {
		var perr error
		updated, perr = conn.client.Put(ctx, uri, inst.Selectors, inst.ClassName, normalized)
		return perr
	})
	if err != nil {
		return nil, fmt.Errorf("cim: update %s: %w", inst.ClassName, err)
	}
	updated.Selectors = inst.Selectors
	return updated, nil
}

// UpdateWhere resolves the instances of className matching filter and
// commits the property changes to each. Matching nothing is an
// ErrNotFound, never a silent no-op.
func (c *Client) UpdateWhere(ctx context.Context, className string, filter wql.Expr, props map[string]any) ([]wsman.Instance, error) {
	if className == "" {
		return nil, ErrClassNotSpecified
	}
	if len(props) == 0 {
		return nil, ErrNoProperties
	}

	matches, err := c.Query(ctx, className, Where(filter))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("cim: update %s: %w", className, ErrNotFound)
	}

	updated := make([]wsman.Instance, 0, len(matches))
	for i := range matches {
		inst, err := c.Update(ctx, &matches[i], props)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *inst)
	}
	return updated, nil
}

// Delete removes inst. The instance must carry its identity
// selectors.
func (c *Client) Delete(ctx context.Context, inst *wsman.Instance) error {
	if inst == nil || len(inst.Selectors) == 0 {
		return ErrNoObject
	}

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return err
	}

	uri := wsman.ResourceURI(conn.namespace, inst.ClassName)
	err = c.withRetry(ctx, "delete "+inst.ClassName, func() error {
		return conn.client.Delete(ctx, uri, inst.Selectors)
	})
	if err != nil {
		return fmt.Errorf("cim: delete %s: %w", inst.ClassName, err)
	}
	return nil
}

// DeleteWhere resolves the instances of className matching filter and
// removes each, returning how many were removed. Matching nothing is
// an ErrNotFound.
func (c *Client) DeleteWhere(ctx context.Context, className string, filter wql.Expr) (int, error) {
	if className == "" {
		return 0, ErrClassNotSpecified
	}

	matches, err := c.Query(ctx, className, Where(filter))
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("cim: delete %s: %w", className, ErrNotFound)
	}

	for i := range matches {
		if err := c.Delete(ctx, &matches[i]); err != nil {
			return i, err
		}
	}
	return len(matches), nil
}

// normalizeProps renders property values to their wire text. Strings
// pass through, numerics and booleans use their CIM text forms, and
// slice values become multi-valued properties.
func normalizeProps(props map[string]any) map[string][]string {
	out := make(map[string][]string, len(props))
	for name, value := range props {
		out[name] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case bool:
		return []string{strconv.FormatBool(v)}
	case int:
		return []string{strconv.Itoa(v)}
	case int32:
		return []string{strconv.FormatInt(int64(v), 10)}
	case int64:
		return []string{strconv.FormatInt(v, 10)}
	case uint32:
		return []string{strconv.FormatUint(uint64(v), 10)}
	case uint64:
		return []string{strconv.FormatUint(v, 10)}
	case []int:
		vals := make([]string, len(v))
		for i, n := range v {
			vals[i] = strconv.Itoa(n)
		}
		return vals
	case fmt.Stringer:
		return []string{v.String()}
	default:
		return []string{fmt.Sprint(v)}
	}
}
