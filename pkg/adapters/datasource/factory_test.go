package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewStore_UsesRegisteredFactory(t *testing.T) {
	mock := &MockStore{DialectName: "fake"}
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: "fake", DisplayName: "Fake"},
		Factory: func(ctx context.Context, cfg *Config, logger *zap.Logger) (Store, error) {
			return mock, nil
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "fake")
		registryMu.Unlock()
	})

	assert.True(t, IsRegistered("fake"))
	assert.Contains(t, RegisteredAdapters(), AdapterInfo{Type: "fake", DisplayName: "Fake"})

	store, err := NewStore(context.Background(), &Config{Type: "fake"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "fake", store.Dialect())
}

func TestNewStore_UnknownType(t *testing.T) {
	_, err := NewStore(context.Background(), &Config{Type: "oracle"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported datasource type: oracle")
}

func TestQueryResult_Append(t *testing.T) {
	result := NewQueryResult([]ColumnInfo{{Name: "region"}, {Name: "total"}})

	assert.True(t, result.Append([]any{"Norte", 10}, 2))
	assert.True(t, result.Append([]any{"Sur", 20}, 2))
	assert.False(t, result.Append([]any{"Este", 30}, 2))

	assert.Equal(t, 2, result.RowCount)
	assert.True(t, result.Truncated)
	assert.Equal(t, map[string]any{"region": "Sur", "total": 20}, result.Rows[1])
}

func TestConfig_EffectiveMaxRows(t *testing.T) {
	assert.Equal(t, DefaultMaxRows, (&Config{}).EffectiveMaxRows())
	assert.Equal(t, 50, (&Config{MaxRows: 50}).EffectiveMaxRows())
}
