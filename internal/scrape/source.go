// Package scrape holds the per-storefront adapters. Each adapter composes
// the shared transport, the extraction chain and (where the backing API
// rotates) the endpoint resolver into one contract: give me an item, get a
// PriceRecord or a typed absence.
package scrape

import (
	"context"

	"github.com/dstanway/grocermon/internal/record"
)

// Source is one storefront adapter. GetPrice returns a validated record or
// a *Error; an error means "no price this run", a normal outcome the
// orchestrator logs and moves past.
type Source interface {
	Name() record.Store
	Branch() string
	GetPrice(ctx context.Context, item record.Item) (*record.PriceRecord, error)
}
