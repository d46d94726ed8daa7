//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/testhelpers"
)

func setupStore(t *testing.T, maxRows int) *Store {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	// The pool is shared across tests; the store must not close it.
	return NewStoreWithPool(testDB.DB.Pool, maxRows, zap.NewNop())
}

func TestStore_Execute_SalesByCategory(t *testing.T) {
	store := setupStore(t, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := store.Execute(ctx, `
		SELECT c.nombre AS categoria, SUM(v.total) AS total_ventas
		FROM ventas v
		JOIN productos p ON p.id_producto = v.id_producto
		JOIN categorias c ON c.id_categoria = p.id_categoria
		GROUP BY c.nombre
		ORDER BY total_ventas DESC`)
	require.NoError(t, err)

	require.Len(t, result.Columns, 2)
	assert.Equal(t, "categoria", result.Columns[0].Name)
	assert.Equal(t, "varchar", result.Columns[0].Type)
	assert.Equal(t, "numeric", result.Columns[1].Type)

	require.Equal(t, 4, result.RowCount)
	assert.Equal(t, "Electrónica", result.Rows[0]["categoria"])
	_, isNumeric := result.Rows[0]["total_ventas"].(pgtype.Numeric)
	assert.True(t, isNumeric, "numeric columns arrive as pgtype.Numeric")
}

func TestStore_Execute_StopsAtRowCap(t *testing.T) {
	store := setupStore(t, 2)

	result, err := store.Execute(context.Background(), "SELECT id_venta FROM ventas ORDER BY id_venta")
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestStore_Execute_ReportsQueryErrors(t *testing.T) {
	store := setupStore(t, 100)

	_, err := store.Execute(context.Background(), "SELECT precio_total FROM ventas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precio_total")

	// The connection went back to the pool; the next statement still works.
	result, err := store.Execute(context.Background(), "SELECT 1 AS uno")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}

func TestStore_ListUsableTables(t *testing.T) {
	store := setupStore(t, 100)

	tables, err := store.ListUsableTables(context.Background())
	require.NoError(t, err)
	assert.Contains(t, tables, "ventas")
	assert.Contains(t, tables, "categorias")
}
