package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	"github.com/asistentebi/bi-engine/pkg/logging"
)

const listTablesQuery = `
	SELECT TABLE_NAME
	FROM INFORMATION_SCHEMA.TABLES
	WHERE TABLE_TYPE = 'BASE TABLE'
	  AND TABLE_SCHEMA = SCHEMA_NAME()
	ORDER BY TABLE_NAME`

// Store runs queries against SQL Server through database/sql.
type Store struct {
	db      *sql.DB
	maxRows int
	logger  *zap.Logger
}

var _ datasource.Store = (*Store)(nil)

// NewStore opens a sqlserver pool for cfg.ConnectionString.
func NewStore(ctx context.Context, cfg *datasource.Config, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlserver", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %s", logging.SanitizeError(err))
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConnections))
		db.SetMaxIdleConns(int(cfg.MaxConnections))
	}

	return newWithDB(db, cfg.EffectiveMaxRows(), logger), nil
}

func newWithDB(db *sql.DB, maxRows int, logger *zap.Logger) *Store {
	if maxRows <= 0 {
		maxRows = datasource.DefaultMaxRows
	}
	return &Store{
		db:      db,
		maxRows: maxRows,
		logger:  logger.Named("mssql"),
	}
}

// Execute implements datasource.Store.
func (s *Store) Execute(ctx context.Context, sqlQuery string) (*datasource.QueryResult, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]datasource.ColumnInfo, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = datasource.ColumnInfo{
			Name: ct.Name(),
			Type: strings.ToLower(ct.DatabaseTypeName()),
		}
	}

	result := datasource.NewQueryResult(columns)
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = convertBytes(b, columnTypes[i].DatabaseTypeName())
			}
		}

		if !result.Append(values, s.maxRows) {
			break
		}
	}

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

// convertBytes turns driver byte slices into values the result shaper understands.
func convertBytes(b []byte, dbType string) any {
	switch strings.ToUpper(dbType) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return datasource.Decimal(b)
	case "UNIQUEIDENTIFIER":
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return string(b)
		}
		return id.String()
	case "BINARY", "VARBINARY", "IMAGE", "TIMESTAMP", "ROWVERSION":
		return b
	default:
		return string(b)
	}
}

// ListUsableTables implements datasource.Store.
func (s *Store) ListUsableTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Ping implements datasource.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect implements datasource.Store.
func (s *Store) Dialect() string {
	return "mssql"
}

// Close implements datasource.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
