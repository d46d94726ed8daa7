package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	"github.com/asistentebi/bi-engine/pkg/logging"
)

const listTablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = current_schema()
	  AND table_type = 'BASE TABLE'
	ORDER BY table_name`

// Store runs queries against PostgreSQL through a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	maxRows int
	logger  *zap.Logger
}

var _ datasource.Store = (*Store)(nil)

// NewStore opens a pool for cfg.ConnectionString. The pool connects lazily; call Ping to
// verify reachability.
func NewStore(ctx context.Context, cfg *datasource.Config, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %s", logging.SanitizeError(err))
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return NewStoreWithPool(pool, cfg.EffectiveMaxRows(), logger), nil
}

// NewStoreWithPool wraps an existing pool. Used by integration tests.
func NewStoreWithPool(pool *pgxpool.Pool, maxRows int, logger *zap.Logger) *Store {
	if maxRows <= 0 {
		maxRows = datasource.DefaultMaxRows
	}
	return &Store{
		pool:    pool,
		maxRows: maxRows,
		logger:  logger.Named("postgres"),
	}
}

// Execute implements datasource.Store.
func (s *Store) Execute(ctx context.Context, sqlQuery string) (*datasource.QueryResult, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	typeMap := conn.Conn().TypeMap()
	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		typeName := "unknown"
		if t, ok := typeMap.TypeForOID(fd.DataTypeOID); ok {
			typeName = t.Name
		}
		columns[i] = datasource.ColumnInfo{Name: fd.Name, Type: typeName}
	}

	result := datasource.NewQueryResult(columns)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		if !result.Append(values, s.maxRows) {
			break
		}
	}

	// pgx reports query errors (bad column, division by zero) on Err, not on Query
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if result.Truncated {
		s.logger.Warn("Result truncated at row cap",
			zap.Int("max_rows", s.maxRows),
			zap.String("query", logging.SanitizeQuery(sqlQuery)))
	}

	return result, nil
}

// ListUsableTables implements datasource.Store.
func (s *Store) ListUsableTables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// Ping implements datasource.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Dialect implements datasource.Store.
func (s *Store) Dialect() string {
	return "postgres"
}

// Close implements datasource.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
