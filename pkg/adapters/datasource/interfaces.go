package datasource

import "context"

// Store runs generated SQL against the sales database.
// Implementations own a connection pool; every Execute acquires its own connection and
// releases it before returning, on success and on failure.
type Store interface {
	// Execute runs a statement as-is and returns its rows. The SQL is never rewritten;
	// reading stops after the store's row cap and the result is marked Truncated.
	Execute(ctx context.Context, sqlQuery string) (*QueryResult, error)

	// ListUsableTables returns the base tables visible to the connected user.
	ListUsableTables(ctx context.Context) ([]string, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Dialect names the SQL dialect models must generate: "postgres" or "mssql".
	Dialect() string

	// Close releases the pool.
	Close() error
}

// ColumnInfo describes a result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult contains the results of a SQL query execution.
// Rows hold driver values; shaping into JSON-friendly scalars happens later.
type QueryResult struct {
	Columns   []ColumnInfo     `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Decimal is an exact decimal in its textual form, as returned by drivers that report
// DECIMAL/NUMERIC/MONEY columns as bytes.
type Decimal string

// DefaultMaxRows caps how many rows Execute reads when the config does not say.
const DefaultMaxRows = 1000

// Config holds what an adapter needs to open its pool.
type Config struct {
	Type             string // "postgres" or "mssql"
	ConnectionString string
	MaxConnections   int32
	MaxRows          int
}

// EffectiveMaxRows returns MaxRows or DefaultMaxRows when unset.
func (c *Config) EffectiveMaxRows() int {
	if c.MaxRows <= 0 {
		return DefaultMaxRows
	}
	return c.MaxRows
}

// NewQueryResult returns an empty result with non-nil rows so it serializes as [].
func NewQueryResult(columns []ColumnInfo) *QueryResult {
	return &QueryResult{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}
}

// Append adds a row built from positional values. It reports false once maxRows rows are held.
func (r *QueryResult) Append(values []any, maxRows int) bool {
	if len(r.Rows) >= maxRows {
		r.Truncated = true
		return false
	}

	row := make(map[string]any, len(r.Columns))
	for i, col := range r.Columns {
		if i < len(values) {
			row[col.Name] = values[i]
		}
	}
	r.Rows = append(r.Rows, row)
	r.RowCount = len(r.Rows)
	return true
}
