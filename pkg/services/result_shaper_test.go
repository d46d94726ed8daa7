package services

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	"github.com/asistentebi/bi-engine/pkg/models"
)

func TestShapeResult_EmptyInput(t *testing.T) {
	for name, raw := range map[string]any{
		"nil":                nil,
		"empty slice":        []map[string]any{},
		"empty rows":         []models.Row{},
		"nil query result":   (*datasource.QueryResult)(nil),
		"empty query result": datasource.NewQueryResult(nil),
		"empty record":       map[string]any{},
	} {
		t.Run(name, func(t *testing.T) {
			rows := ShapeResult(raw)
			require.NotNil(t, rows)
			assert.Empty(t, rows)

			// must serialize as [] so clients can iterate without a null check
			b, err := json.Marshal(rows)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(b))
		})
	}
}

func TestShapeResult_NullsBecomeEmptyString(t *testing.T) {
	rows := ShapeResult([]map[string]any{
		{"vendedor": "Ana Gomez", "region": nil, "total": pgtype.Numeric{}},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0]["region"])
	assert.Equal(t, "", rows[0]["total"])
	assert.Equal(t, "Ana Gomez", rows[0]["vendedor"])
}

func TestShapeResult_DecimalsBecomeFloats(t *testing.T) {
	rows := ShapeResult([]map[string]any{{
		"pg_numeric":  pgtype.Numeric{Int: big.NewInt(150050), Exp: -2, Valid: true},
		"mssql_money": datasource.Decimal("320.75"),
		"json_number": json.Number("12.5"),
		"big_float":   big.NewFloat(99.99),
		"big_rat":     big.NewRat(1, 4),
		"float32":     float32(2.5),
	}})

	require.Len(t, rows, 1)
	row := rows[0]
	assert.InDelta(t, 1500.50, row["pg_numeric"], 1e-9)
	assert.InDelta(t, 320.75, row["mssql_money"], 1e-9)
	assert.InDelta(t, 12.5, row["json_number"], 1e-9)
	assert.InDelta(t, 99.99, row["big_float"], 1e-9)
	assert.InDelta(t, 0.25, row["big_rat"], 1e-9)
	assert.InDelta(t, 2.5, row["float32"], 1e-9)
}

func TestShapeResult_IntegersAndNonFinite(t *testing.T) {
	rows := ShapeResult(map[string]any{
		"cantidad":  int64(42),
		"json_int":  json.Number("7"),
		"nan":       math.NaN(),
		"inf":       math.Inf(1),
		"numeric":   pgtype.Numeric{NaN: true, Valid: true},
		"big_int":   big.NewInt(12),
		"not_a_num": datasource.Decimal("n/a"),
	})

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, int64(42), row["cantidad"])
	assert.Equal(t, int64(7), row["json_int"])
	assert.Equal(t, "", row["nan"])
	assert.Equal(t, "", row["inf"])
	assert.Equal(t, "", row["numeric"])
	assert.Equal(t, int64(12), row["big_int"])
	assert.Equal(t, "n/a", row["not_a_num"])
}

func TestShapeResult_DatesAreFixedWidth(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 7, 8, 9, 123456789, time.UTC)

	rows := ShapeResult([]map[string]any{{
		"time":        ts,
		"timestamp":   pgtype.Timestamp{Time: ts, Valid: true},
		"timestamptz": pgtype.Timestamptz{Time: ts, Valid: true},
		"date":        pgtype.Date{Time: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Valid: true},
		"null_date":   pgtype.Date{},
		"infinity":    pgtype.Timestamp{InfinityModifier: pgtype.Infinity, Valid: true},
	}})

	row := rows[0]
	assert.Equal(t, "2024-03-05 07:08:09", row["time"])
	assert.Equal(t, "2024-03-05 07:08:09", row["timestamp"])
	assert.Equal(t, "2024-03-05 07:08:09", row["timestamptz"])
	assert.Equal(t, "2024-01-31 00:00:00", row["date"])
	assert.Equal(t, "", row["null_date"])
	assert.Equal(t, "infinity", row["infinity"])
}

func TestShapeResult_UUIDsAndBytes(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")

	rows := ShapeResult(models.Row{
		"pgx_uuid": [16]byte(id),
		"uuid":     id,
		"bytes":    []byte("Norte"),
	})

	row := rows[0]
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", row["pgx_uuid"])
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", row["uuid"])
	assert.Equal(t, "Norte", row["bytes"])
}

func TestShapeResult_QueryResult(t *testing.T) {
	result := datasource.NewQueryResult([]datasource.ColumnInfo{{Name: "categoria"}, {Name: "total_ventas"}})
	result.Append([]any{"Electrónica", pgtype.Numeric{Int: big.NewInt(285000), Exp: -2, Valid: true}}, 100)
	result.Append([]any{"Hogar", nil}, 100)

	rows := ShapeResult(result)
	require.Len(t, rows, 2)
	assert.Equal(t, models.Row{"categoria": "Electrónica", "total_ventas": 2850.0}, rows[0])
	assert.Equal(t, models.Row{"categoria": "Hogar", "total_ventas": ""}, rows[1])
}

func TestShapeResult_DecodedJSONArray(t *testing.T) {
	var raw []any
	require.NoError(t, json.Unmarshal([]byte(`[{"region":"Sur","total":10.5},{"region":null,"total":3}]`), &raw))

	rows := ShapeResult(raw)
	require.Len(t, rows, 2)
	assert.Equal(t, 10.5, rows[0]["total"])
	assert.Equal(t, "", rows[1]["region"])
}

func TestShapeResult_FallbackForUnshapeableInput(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{name: "plain string", raw: "[(1, 'Norte')]", want: "[(1, 'Norte')]"},
		{name: "number", raw: 42, want: "42"},
		{name: "mixed slice", raw: []any{map[string]any{"a": 1}, "b"}, want: "[map[a:1] b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := ShapeResult(tt.raw)
			require.Len(t, rows, 1)
			assert.Equal(t, models.Row{FallbackColumn: tt.want}, rows[0])
		})
	}
}

type explodingStringer struct{}

func (explodingStringer) String() string { panic("boom") }

func TestShapeResult_RecoversFromPanics(t *testing.T) {
	raw := map[string]any{"x": explodingStringer{}}

	var rows []models.Row
	assert.NotPanics(t, func() { rows = ShapeResult(raw) })
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], FallbackColumn)
}

func TestShapeResult_Idempotent(t *testing.T) {
	raw := []map[string]any{
		{
			"vendedor":    "Carlos Ruiz",
			"total":       pgtype.Numeric{Int: big.NewInt(123456), Exp: -2, Valid: true},
			"num_ventas":  int64(3),
			"fecha_venta": time.Date(2024, 2, 3, 16, 5, 0, 0, time.UTC),
			"region":      nil,
		},
		{"vendedor": "Ana Gomez", "total": datasource.Decimal("10.00"), "num_ventas": int64(1), "fecha_venta": nil, "region": "Sur"},
	}

	once := ShapeResult(raw)
	twice := ShapeResult(once)
	assert.Equal(t, once, twice)

	fallback := ShapeResult("texto libre")
	assert.Equal(t, fallback, ShapeResult(fallback))
}
