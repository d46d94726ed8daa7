package sql

import (
	"regexp"
	"strings"
)

// RejectionSentinel is the token the model is instructed to emit instead of SQL when a
// question is nonsensical, offensive or unrelated to the sales data.
const RejectionSentinel = "NO_VALID_QUERY"

// ExtractionKind classifies what a piece of model output contained.
type ExtractionKind int

const (
	// NoSQLProduced means neither a SQL block nor the sentinel was found. Not an error:
	// the model may have answered in prose.
	NoSQLProduced ExtractionKind = iota
	// SQLFound means a candidate statement was extracted.
	SQLFound
	// Rejected means the model emitted the rejection sentinel.
	Rejected
)

// String returns a name for logs.
func (k ExtractionKind) String() string {
	switch k {
	case SQLFound:
		return "sql_found"
	case Rejected:
		return "rejected"
	default:
		return "no_sql"
	}
}

// Extraction is the result of scanning model output.
type Extraction struct {
	Kind ExtractionKind
	// SQL is the candidate statement, trimmed. Empty unless Kind == SQLFound.
	SQL string
	// ChartHint is the kind named by an in-band [CHART:kind] directive, lowercased, or "".
	ChartHint string
	// Answer is the prose left after removing the SQL block, directives and the sentinel.
	Answer string
}

var (
	// ```sql fence; tolerates CRLF, a missing newline after the tag and trailing spaces
	sqlFencePattern = regexp.MustCompile("(?is)```[ \\t]*sql[ \\t]*\\r?\\n?(.*?)```")

	// untagged fence, accepted only when the body reads like a query
	bareFencePattern = regexp.MustCompile("(?s)```[ \\t]*\\r?\\n(.*?)```")

	chartDirectivePattern = regexp.MustCompile(`(?i)\[CHART:\s*([a-z]+)\s*\]`)

	queryStartPattern = regexp.MustCompile(`(?i)^\s*(select|with)\b`)
)

// Extract scans free-form model output for a fenced SQL block, the rejection sentinel and
// a chart directive. The first ```sql block wins; the sentinel wins over any block.
func Extract(output string) Extraction {
	result := Extraction{ChartHint: ChartDirective(output)}

	if strings.Contains(output, RejectionSentinel) {
		result.Kind = Rejected
		result.Answer = cleanAnswer(strings.ReplaceAll(output, RejectionSentinel, ""))
		return result
	}

	loc := sqlFencePattern.FindStringSubmatchIndex(output)
	if loc == nil {
		if bare := bareFencePattern.FindStringSubmatchIndex(output); bare != nil &&
			queryStartPattern.MatchString(output[bare[2]:bare[3]]) {
			loc = bare
		}
	}

	if loc == nil {
		result.Answer = cleanAnswer(output)
		return result
	}

	candidate := strings.TrimSpace(output[loc[2]:loc[3]])
	result.Answer = cleanAnswer(output)
	if candidate == "" {
		return result
	}

	result.Kind = SQLFound
	result.SQL = candidate
	return result
}

// ExtractToolQuery interprets the "query" argument of a query_database tool invocation.
// Models sometimes wrap the argument in a fence or put the sentinel there instead of SQL.
func ExtractToolQuery(query string) Extraction {
	if strings.Contains(query, RejectionSentinel) {
		return Extraction{Kind: Rejected}
	}

	if strings.Contains(query, "```") {
		if e := Extract(query); e.Kind == SQLFound {
			e.Answer = ""
			return e
		}
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Extraction{Kind: NoSQLProduced}
	}
	return Extraction{Kind: SQLFound, SQL: trimmed}
}

// ChartDirective returns the kind named by the first [CHART:kind] marker, lowercased, or "".
func ChartDirective(output string) string {
	m := chartDirectivePattern.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// cleanAnswer removes every SQL block and chart directive, then trims. Only the first
// block is executed, but none of them belong in the prose shown to the user.
func cleanAnswer(output string) string {
	output = sqlFencePattern.ReplaceAllString(output, "")
	output = bareFencePattern.ReplaceAllStringFunc(output, func(block string) string {
		m := bareFencePattern.FindStringSubmatch(block)
		if m != nil && queryStartPattern.MatchString(m[1]) {
			return ""
		}
		return block
	})
	output = chartDirectivePattern.ReplaceAllString(output, "")
	return strings.TrimSpace(output)
}
