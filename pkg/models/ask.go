package models

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Prompt string `json:"prompt"`
}

// Row is one shaped result record: column alias to string, number, or formatted date.
type Row map[string]any

// ChartType is the visualization suggested for a result.
type ChartType string

const (
	ChartTable ChartType = "table"
	ChartBar   ChartType = "bar"
	ChartPie   ChartType = "pie"
	ChartLine  ChartType = "line"
	ChartPoint ChartType = "point"
)

// ParseChartType maps a directive or alias to a ChartType. "arc" is accepted for pie.
func ParseChartType(s string) (ChartType, bool) {
	switch ChartType(s) {
	case ChartTable, ChartBar, ChartPie, ChartLine, ChartPoint:
		return ChartType(s), true
	case "arc":
		return ChartPie, true
	}
	return "", false
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// AskMetadata describes the question alongside its result.
type AskMetadata struct {
	Question       string    `json:"question"`
	SuggestedChart ChartType `json:"suggested_chart"`
	// ValidQuery is false only when the question was rejected as out of domain.
	ValidQuery *bool `json:"valid_query,omitempty"`
	// SQL is the statement whose rows are in Data, if any.
	SQL string `json:"sql,omitempty"`
	// Columns lists the result columns in select order; JSON objects in Data do not keep it.
	Columns []string `json:"columns,omitempty"`
	Retried bool     `json:"retried,omitempty"`
}

// AskResponse is the envelope returned for every answered question.
// Data is never nil so it always serializes as a JSON array.
type AskResponse struct {
	Metadata AskMetadata `json:"metadata"`
	Data     []Row       `json:"data"`
	Answer   string      `json:"answer,omitempty"`
	Status   string      `json:"status"`
}
