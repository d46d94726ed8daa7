package datasource

import (
	"context"
	"sync"
)

// MockStore is a Store for tests. ExecuteFunc decides each result; executed statements are recorded.
type MockStore struct {
	ExecuteFunc func(ctx context.Context, sqlQuery string) (*QueryResult, error)
	Tables      []string
	PingErr     error
	DialectName string

	mu       sync.Mutex
	executed []string
	closed   bool
}

var _ Store = (*MockStore)(nil)

// NewMockStore returns a MockStore whose Execute returns result and err for every statement.
func NewMockStore(result *QueryResult, err error) *MockStore {
	return &MockStore{
		ExecuteFunc: func(context.Context, string) (*QueryResult, error) {
			return result, err
		},
	}
}

// Execute records the statement and delegates to ExecuteFunc.
func (m *MockStore) Execute(ctx context.Context, sqlQuery string) (*QueryResult, error) {
	m.mu.Lock()
	m.executed = append(m.executed, sqlQuery)
	m.mu.Unlock()

	if m.ExecuteFunc == nil {
		return NewQueryResult(nil), nil
	}
	return m.ExecuteFunc(ctx, sqlQuery)
}

// Executed returns the statements run so far.
func (m *MockStore) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executed...)
}

func (m *MockStore) ListUsableTables(context.Context) ([]string, error) {
	return m.Tables, nil
}

func (m *MockStore) Ping(context.Context) error {
	return m.PingErr
}

func (m *MockStore) Dialect() string {
	if m.DialectName == "" {
		return "postgres"
	}
	return m.DialectName
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *MockStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
