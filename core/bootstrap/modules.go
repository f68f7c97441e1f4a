package bootstrap

import "context"

// Seeder loads reference data into storage.
type Seeder[S any] interface {
	Seed(ctx context.Context, storage S) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc[S any] func(ctx context.Context, storage S) error

// Seed executes the underlying function.
func (f SeederFunc[S]) Seed(ctx context.Context, storage S) error {
	return f(ctx, storage)
}

// Modules groups optional bootstrapping hooks.
type Modules[S any] struct {
	Seeders []Seeder[S]
}
