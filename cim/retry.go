package cim

import (
	"context"

	"github.com/smnsjas/go-cimclient/wsman"
)

// maxRetries bounds how often one remote call is retried after the
// transient RPC fault (HRESULT 0x800706BE, "remote procedure call
// failed"). Four attempts total.
const maxRetries = 3

// withRetry runs fn, retrying only on the transient RPC fault. Every
// other error, including errors carrying no parseable fault, returns
// on first occurrence. Each individual remote call gets its own retry
// budget; session establishment is never routed through here.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !wsman.IsTransientRPC(err) || attempt == maxRetries {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		c.logger.Warn("transient RPC fault, retrying",
			"operation", op, "attempt", attempt+1, "error", err)
	}
}
