// Package projection turns the aggregated report into a typed dataset: each
// column is cast to its declared type, rows are partitioned and projected by
// a worker pool, and the coalesced output is a typed CSV plus a JSON schema
// sidecar.
package projection

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
	"github.com/otherjamesbrown/convrep/pkg/report"
)

// ColumnType is a declared output column type.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInteger ColumnType = "integer"
	TypeDate    ColumnType = "date"
)

// Schema returns the column type per report column. Dates and counters are
// typed, everything else stays a string.
func Schema() map[string]ColumnType {
	schema := make(map[string]ColumnType, len(report.Columns))
	for _, col := range report.Columns {
		schema[col] = TypeString
	}
	schema["fecha_primera_conversacion"] = TypeDate
	schema["numero_conversaciones"] = TypeInteger
	schema["numero_feedback"] = TypeInteger
	return schema
}

// castDateLayouts tried in order.
var castDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// dateOutputLayout is the ISO rendering used in the typed output.
const dateOutputLayout = "2006-01-02"

// CastCell casts one cell to its column type. Null-like inputs come back as
// the empty cell; values the type cannot hold return a cast error so the
// caller can degrade explicitly.
func CastCell(column, raw string) (string, error) {
	switch Schema()[column] {
	case TypeInteger:
		return castInteger(raw)
	case TypeDate:
		return castDate(raw)
	default:
		return raw, nil
	}
}

// castInteger: empty, null markers, and "0" all project to null.
func castInteger(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "null", "none", "nan", "0":
		return "", nil
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: cannot cast %q to integer", cerrors.ErrValidation, raw)
	}
	return strconv.FormatInt(n, 10), nil
}

func castDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "null", "none", "nan":
		return "", nil
	}
	if trimmed == report.NoDate {
		return "", nil
	}
	for _, layout := range castDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(dateOutputLayout), nil
		}
	}
	return "", fmt.Errorf("%w: cannot cast %q to date", cerrors.ErrValidation, raw)
}

// CastRow projects a report row into typed cells in schema order. Cast
// failures degrade to null; the count of degraded cells is returned so the
// caller can account for them.
func CastRow(row report.Row) ([]string, int) {
	raw := row.Record()
	out := make([]string, len(raw))
	degraded := 0
	for i, col := range report.Columns {
		cell, err := CastCell(col, raw[i])
		if err != nil {
			degraded++
			cell = ""
		}
		out[i] = cell
	}
	return out, degraded
}
