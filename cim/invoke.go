package cim

import (
	"context"
	"fmt"
	"strconv"

	"github.com/smnsjas/go-cimclient/wsman"
)

// MethodResult is the outcome of a method invocation. A non-zero
// ReturnValue is data, not a Go error: business failure is reported
// through the result so callers can branch on it.
type MethodResult struct {
	// ReturnValue is the method's numeric status, zero on success.
	ReturnValue int

	// Out holds the method's output parameters by name.
	Out map[string][]string
}

// Succeeded reports whether the method returned zero.
func (r *MethodResult) Succeeded() bool {
	return r.ReturnValue == 0
}

// Get returns the first value of the named output parameter, empty
// when absent.
func (r *MethodResult) Get(name string) string {
	if vals, ok := r.Out[name]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

type invokeOptions struct {
	skipValidation bool
}

// InvokeOption configures an Invoke or InvokeOn call.
type InvokeOption func(*invokeOptions)

// SkipValidation suppresses the success/failure logging of the
// method's return value. The result is unaffected.
func SkipValidation() InvokeOption {
	return func(o *invokeOptions) { o.skipValidation = true }
}

// Invoke calls a static method on className. The result is returned
// even when the method reports failure; only transport and
// configuration problems surface as errors.
func (c *Client) Invoke(ctx context.Context, className, method string, args map[string]any, opts ...InvokeOption) (*MethodResult, error) {
	if className == "" {
		return nil, ErrClassNotSpecified
	}
	return c.invoke(ctx, className, method, nil, args, opts)
}

// InvokeOn calls a method on inst. The instance must carry its
// identity selectors, as instances returned by Query and Create do.
func (c *Client) InvokeOn(ctx context.Context, inst *wsman.Instance, method string, args map[string]any, opts ...InvokeOption) (*MethodResult, error) {
	if inst == nil || len(inst.Selectors) == 0 {
		return nil, ErrNoObject
	}
	return c.invoke(ctx, inst.ClassName, method, inst.Selectors, args, opts)
}

func (c *Client) invoke(ctx context.Context, className, method string, selectors []wsman.Selector, args map[string]any, opts []InvokeOption) (*MethodResult, error) {
	if method == "" {
		return nil, ErrMethodNotSpecified
	}

	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	uri := wsman.ResourceURI(conn.namespace, className)
	normalized := normalizeProps(args)

	var out *wsman.Instance
	err = c.withRetry(ctx, "invoke "+className+"."+method, func() error {
		var ierr error
		out, ierr = conn.client.Invoke(ctx, uri, method, selectors, normalized)
		return ierr
	})
	if err != nil {
		return nil, fmt.Errorf("cim: invoke %s.%s: %w", className, method, err)
	}

	result := &MethodResult{Out: make(map[string][]string, len(out.Properties))}
	for name, vals := range out.Properties {
		if name == "ReturnValue" {
			continue
		}
		result.Out[name] = vals
	}
	raw := out.Get("ReturnValue")
	if raw == "" {
		return nil, fmt.Errorf("cim: invoke %s.%s: response missing ReturnValue", className, method)
	}
	result.ReturnValue, err = strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("cim: invoke %s.%s: unexpected ReturnValue %q", className, method, raw)
	}

	if !o.skipValidation {
		if result.Succeeded() {
			c.logger.Info("method succeeded",
				"class", className, "method", method)
		} else {
			c.logger.Warn("method returned failure",
				"class", className, "method", method,
				"returnValue", result.ReturnValue)
		}
	}

	return result, nil
}
