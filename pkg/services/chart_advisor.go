package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/asistentebi/bi-engine/pkg/config"
	"github.com/asistentebi/bi-engine/pkg/models"
	"github.com/asistentebi/bi-engine/pkg/sql"
)

// manyRowsThreshold is the row count above which a result reads best as bars.
const manyRowsThreshold = 10

// dateColumnWords mark a column as temporal when they appear as a word of its name.
var dateColumnWords = map[string]bool{
	"fecha": true, "date": true, "dia": true, "day": true, "mes": true, "month": true,
	"ano": true, "anio": true, "year": true, "semana": true, "week": true,
	"periodo": true, "hora": true, "time": true, "timestamp": true,
}

// ChartAdvisor suggests a visualization for a question and its result.
type ChartAdvisor struct {
	passes []keywordPass
}

type keywordPass struct {
	chart    models.ChartType
	keywords []string
}

// NewChartAdvisor builds an advisor from the configured keyword lists. Lists are
// checked in the order proportion, temporal, comparison, superlative.
func NewChartAdvisor(cfg config.ChartConfig) *ChartAdvisor {
	return &ChartAdvisor{passes: []keywordPass{
		{models.ChartPie, normalizeKeywords(cfg.ProportionKeywords)},
		{models.ChartLine, normalizeKeywords(cfg.TemporalKeywords)},
		{models.ChartPoint, normalizeKeywords(cfg.ComparisonKeywords)},
		{models.ChartBar, normalizeKeywords(cfg.SuperlativeKeywords)},
	}}
}

// Suggest picks a chart type. A [CHART:kind] directive in the model output wins; then the
// keyword lists over the question; then the shape of rows; "table" when nothing fires.
func (a *ChartAdvisor) Suggest(prompt, modelOutput string, rows []models.Row) models.ChartType {
	if hint := sql.ChartDirective(modelOutput); hint != "" {
		if chart, ok := models.ParseChartType(hint); ok {
			return chart
		}
	}

	text := " " + strings.Join(words(prompt), " ") + " "
	for _, pass := range a.passes {
		for _, kw := range pass.keywords {
			if strings.Contains(text, " "+kw+" ") {
				return pass.chart
			}
		}
	}

	return suggestFromShape(rows)
}

func suggestFromShape(rows []models.Row) models.ChartType {
	if len(rows) == 0 {
		return models.ChartTable
	}

	for column := range rows[0] {
		for _, w := range words(column) {
			if dateColumnWords[w] {
				return models.ChartLine
			}
		}
	}

	if len(rows) > manyRowsThreshold {
		return models.ChartBar
	}

	if len(rows) > 1 {
		var hasNumber, hasText bool
		for _, v := range rows[0] {
			switch v.(type) {
			case string:
				hasText = true
			case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
				hasNumber = true
			}
		}
		if hasNumber && hasText {
			return models.ChartBar
		}
	}

	return models.ChartTable
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if w := strings.Join(words(kw), " "); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// words lowercases, strips accents and splits on anything that is not a letter or digit.
// "¿Evolución mensual?" -> [evolucion mensual]; "fecha_venta" -> [fecha venta].
func words(s string) []string {
	// transformers carry state, so each call builds its own chain
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
