package mssql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
)

func newMockStore(t *testing.T, maxRows int) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newWithDB(db, maxRows, zap.NewNop()), mock
}

func TestStore_Execute_ConvertsDriverValues(t *testing.T) {
	store, mock := newMockStore(t, 100)

	query := "SELECT c.nombre AS categoria, SUM(v.total) AS total FROM ventas v JOIN productos p ON p.id_producto = v.id_producto JOIN categorias c ON c.id_categoria = p.id_categoria GROUP BY c.nombre"
	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("categoria").OfType("NVARCHAR", ""),
		mock.NewColumn("total").OfType("DECIMAL", []byte("0")),
	).
		AddRow([]byte("Electrónica"), []byte("1500.50")).
		AddRow([]byte("Hogar"), []byte("320.00"))
	mock.ExpectQuery(query).WillReturnRows(rows)

	result, err := store.Execute(context.Background(), query)
	require.NoError(t, err)

	require.Len(t, result.Columns, 2)
	assert.Equal(t, "categoria", result.Columns[0].Name)
	assert.Equal(t, "nvarchar", result.Columns[0].Type)
	assert.Equal(t, "decimal", result.Columns[1].Type)

	require.Equal(t, 2, result.RowCount)
	assert.Equal(t, "Electrónica", result.Rows[0]["categoria"])
	assert.Equal(t, datasource.Decimal("1500.50"), result.Rows[0]["total"])
	assert.False(t, result.Truncated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Execute_StopsAtRowCap(t *testing.T) {
	store, mock := newMockStore(t, 2)

	rows := sqlmock.NewRows([]string{"id_venta"}).AddRow(1).AddRow(2).AddRow(3)
	mock.ExpectQuery("SELECT id_venta FROM ventas").WillReturnRows(rows)

	result, err := store.Execute(context.Background(), "SELECT id_venta FROM ventas")
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestStore_Execute_EmptyResultIsNotNil(t *testing.T) {
	store, mock := newMockStore(t, 10)

	mock.ExpectQuery("SELECT nombre FROM categorias WHERE 1 = 0").
		WillReturnRows(sqlmock.NewRows([]string{"nombre"}))

	result, err := store.Execute(context.Background(), "SELECT nombre FROM categorias WHERE 1 = 0")
	require.NoError(t, err)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
}

func TestStore_Execute_ReturnsDriverError(t *testing.T) {
	store, mock := newMockStore(t, 10)

	driverErr := errors.New("Invalid column name 'precio_total'.")
	mock.ExpectQuery("SELECT precio_total FROM ventas").WillReturnError(driverErr)

	_, err := store.Execute(context.Background(), "SELECT precio_total FROM ventas")
	require.Error(t, err)
	assert.ErrorIs(t, err, driverErr)
}

func TestStore_ListUsableTables(t *testing.T) {
	store, mock := newMockStore(t, 10)

	mock.ExpectQuery(listTablesQuery).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("categorias").AddRow("ventas"))

	tables, err := store.ListUsableTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"categorias", "ventas"}, tables)
}

func TestConvertBytes(t *testing.T) {
	assert.Equal(t, datasource.Decimal("9.99"), convertBytes([]byte("9.99"), "MONEY"))
	assert.Equal(t, "texto", convertBytes([]byte("texto"), "VARCHAR"))
	assert.Equal(t, []byte{0x01, 0x02}, convertBytes([]byte{0x01, 0x02}, "VARBINARY"))

	// SQL Server stores the first three groups little-endian.
	raw := []byte{0x67, 0x45, 0x23, 0x01, 0xAB, 0x89, 0xEF, 0xCD, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	assert.Equal(t, "01234567-89AB-CDEF-0123-456789ABCDEF", convertBytes(raw, "UNIQUEIDENTIFIER"))
}

func TestStore_Dialect(t *testing.T) {
	store, _ := newMockStore(t, 10)
	assert.Equal(t, "mssql", store.Dialect())
}
