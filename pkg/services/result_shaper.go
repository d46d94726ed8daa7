package services

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	"github.com/asistentebi/bi-engine/pkg/models"
)

// TimestampLayout is the fixed-width form every date/time value is rendered in.
const TimestampLayout = "2006-01-02 15:04:05"

// FallbackColumn holds the stringified input when shaping is not possible.
const FallbackColumn = "resultado"

// ShapeResult turns raw records into flat JSON-friendly rows. It never fails: input it
// cannot interpret, or a panic while converting, yields [{"resultado": <raw as text>}].
//
// Accepted: *datasource.QueryResult, []map[string]any, []models.Row, []any of maps,
// and a single map[string]any or models.Row. Nulls become "", decimals float64,
// dates "YYYY-MM-DD HH:MM:SS". Shaping shaped rows returns them unchanged.
func ShapeResult(raw any) (rows []models.Row) {
	defer func() {
		if r := recover(); r != nil {
			rows = fallbackRows(raw)
		}
	}()

	records, ok := asRecords(raw)
	if !ok {
		return fallbackRows(raw)
	}

	rows = make([]models.Row, 0, len(records))
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		row := make(models.Row, len(rec))
		for k, v := range rec {
			row[k] = shapeValue(v)
		}
		rows = append(rows, row)
	}
	return rows
}

func asRecords(raw any) ([]map[string]any, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, true
	case *datasource.QueryResult:
		if v == nil {
			return nil, true
		}
		return v.Rows, true
	case []map[string]any:
		return v, true
	case []models.Row:
		out := make([]map[string]any, len(v))
		for i, r := range v {
			out[i] = r
		}
		return out, true
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, m)
			case models.Row:
				out = append(out, m)
			default:
				return nil, false
			}
		}
		return out, true
	case map[string]any:
		return []map[string]any{v}, true
	case models.Row:
		return []map[string]any{v}, true
	}
	return nil, false
}

func fallbackRows(raw any) []models.Row {
	return []models.Row{{FallbackColumn: fmt.Sprint(raw)}}
}

// shapeValue normalizes one driver value.
func shapeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x
	case float64:
		return finiteOrEmpty(x)
	case float32:
		return finiteOrEmpty(float64(x))
	case []byte:
		return string(x)

	case pgtype.Numeric:
		if !x.Valid || x.NaN || x.InfinityModifier != pgtype.Finite {
			return ""
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return f.Float64
	case datasource.Decimal:
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return string(x)
		}
		return f
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case *big.Float:
		if x == nil {
			return ""
		}
		f, _ := x.Float64()
		return f
	case *big.Rat:
		if x == nil {
			return ""
		}
		f, _ := x.Float64()
		return f
	case *big.Int:
		if x == nil {
			return ""
		}
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f

	case time.Time:
		return x.Format(TimestampLayout)
	case pgtype.Timestamp:
		return formatPgTime(x.Time, x.InfinityModifier, x.Valid)
	case pgtype.Timestamptz:
		return formatPgTime(x.Time, x.InfinityModifier, x.Valid)
	case pgtype.Date:
		return formatPgTime(x.Time, x.InfinityModifier, x.Valid)

	case [16]byte:
		return uuid.UUID(x).String()
	case uuid.UUID:
		return x.String()

	case map[string]any, []any:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// finiteOrEmpty maps NaN and infinities, which JSON cannot carry, to "".
func finiteOrEmpty(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return f
}

func formatPgTime(t time.Time, inf pgtype.InfinityModifier, valid bool) string {
	if !valid {
		return ""
	}
	if inf != pgtype.Finite {
		return inf.String()
	}
	return t.Format(TimestampLayout)
}
