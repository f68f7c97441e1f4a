package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/storybot/core/config"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunOrder(t *testing.T) {
	var steps []string
	closed := false
	res, err := Run(context.Background(), Options[string]{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Open: func(context.Context) (string, func() error, error) {
			steps = append(steps, "open")
			return "store", func() error { closed = true; return nil }, nil
		},
		Migrate: func(context.Context) error {
			steps = append(steps, "migrate")
			return nil
		},
		Modules: Modules[string]{Seeders: []Seeder[string]{
			SeederFunc[string](func(_ context.Context, s string) error {
				steps = append(steps, "seed:"+s)
				return nil
			}),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "migrate", "seed:store"}, steps)
	assert.Equal(t, "store", res.Storage)
	require.NoError(t, res.Close())
	assert.True(t, closed)
}

func TestRunClosesOnFailure(t *testing.T) {
	boom := errors.New("boom")
	for name, opts := range map[string]func(*Options[int]){
		"migrate": func(o *Options[int]) { o.Migrate = func(context.Context) error { return boom } },
		"seed": func(o *Options[int]) {
			o.Modules.Seeders = []Seeder[int]{SeederFunc[int](func(context.Context, int) error { return boom })}
		},
	} {
		t.Run(name, func(t *testing.T) {
			closed := false
			o := Options[int]{
				Config:     &coreconfig.Config{},
				LoggerInit: noLogger,
				Open: func(context.Context) (int, func() error, error) {
					return 1, func() error { closed = true; return nil }, nil
				},
			}
			opts(&o)
			_, err := Run(context.Background(), o)
			require.ErrorIs(t, err, boom)
			assert.True(t, closed)
		})
	}
}

func TestRunRequiresConfigAndOpen(t *testing.T) {
	_, err := Run(context.Background(), Options[int]{})
	assert.Error(t, err)
	_, err = Run(context.Background(), Options[int]{Config: &coreconfig.Config{}, LoggerInit: noLogger})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options[int]{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Open: func(context.Context) (int, func() error, error) {
			return 0, nil, errors.New("refused")
		},
	})
	assert.ErrorContains(t, err, "refused")
}
