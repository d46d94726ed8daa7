package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// NewStore opens a Store of cfg.Type using the registered adapter.
// Adapters register themselves from init(); import them for side effects.
func NewStore(ctx context.Context, cfg *Config, logger *zap.Logger) (Store, error) {
	factory := getFactory(cfg.Type)
	if factory == nil {
		return nil, fmt.Errorf("unsupported datasource type: %s (not compiled in)", cfg.Type)
	}
	return factory(ctx, cfg, logger)
}
