package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
		},
		Factory: func(ctx context.Context, cfg *datasource.Config, logger *zap.Logger) (datasource.Store, error) {
			return NewStore(ctx, cfg, logger)
		},
	})
}
