// Package sms implements site operations on top of the generic object
// client: client notifications, console folder moves, driver package
// handling, content distribution and task sequence import/export.
package sms

import (
	"context"
	"log/slog"

	"github.com/smnsjas/go-cimclient/cim"
	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

// ObjectClient is the slice of the generic client the site operations
// need. *cim.Client satisfies it.
type ObjectClient interface {
	Query(ctx context.Context, className string, opts ...cim.QueryOption) ([]wsman.Instance, error)
	Create(ctx context.Context, className string, props map[string]any, opts ...cim.CreateOption) (*wsman.Instance, error)
	Update(ctx context.Context, inst *wsman.Instance, props map[string]any) (*wsman.Instance, error)
	Delete(ctx context.Context, inst *wsman.Instance) error
	DeleteWhere(ctx context.Context, className string, filter wql.Expr) (int, error)
	Invoke(ctx context.Context, className, method string, args map[string]any, opts ...cim.InvokeOption) (*cim.MethodResult, error)
	InvokeOn(ctx context.Context, inst *wsman.Instance, method string, args map[string]any, opts ...cim.InvokeOption) (*cim.MethodResult, error)
}

// Service exposes the site operations.
type Service struct {
	client ObjectClient
	logger *slog.Logger
}

// NewService wraps client. A nil logger means slog.Default().
func NewService(client ObjectClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}
