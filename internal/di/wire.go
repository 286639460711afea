//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"datagate/internal/config"
)

// InitializeApp builds the full gateway from the bootstrap config.
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
