// Package mock provides test doubles for ochat interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/ochat"
)

// Interface compliance check.
var _ ochat.Provider = (*Provider)(nil)

// Provider is a test double for ochat.Provider.
// Set StreamFn before calling Stream. ModelsFn is nil-safe and returns no
// models when unset.
type Provider struct {
	StreamFn func(ctx context.Context, req ochat.Request) (ochat.Stream, error)
	ModelsFn func(ctx context.Context) ([]string, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req ochat.Request) (ochat.Stream, error) {
	return p.StreamFn(ctx, req)
}

// Models delegates to ModelsFn.
func (p *Provider) Models(ctx context.Context) ([]string, error) {
	if p.ModelsFn == nil {
		return nil, nil
	}
	return p.ModelsFn(ctx)
}
