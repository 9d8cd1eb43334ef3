package catalog

import "context"

// Store owns the full set of product records. List returns newest first.
// ReplaceAll swaps the entire catalog in one step; it is how a rate change
// republishes every product with fresh converted costs, so readers never see
// a mix of old and new pricing.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, bool, error)
	Put(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) error
	ReplaceAll(ctx context.Context, ps []Product) error
}
