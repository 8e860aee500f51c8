package tokens

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/otherjamesbrown/convrep/pkg/record"
)

// Prices per thousand tokens, USD.
const (
	InputPricePerK  = 0.003
	OutputPricePerK = 0.015
)

// Artifact naming; fixed so each run overwrites the previous analysis.
const (
	FileName  = "tokens_analysis_latest.csv"
	KeyPrefix = "tokens-analysis/"
)

// ObjectKey is the full object key of the analysis CSV.
func ObjectKey() string {
	return KeyPrefix + FileName
}

// Roles whose content counts as prompt-side tokens; everything produced by
// the assistant counts as completion-side.
var (
	inputRoles  = map[string]bool{"user": true, "system": true, "instruction": true, "used_chunks": true}
	outputRoles = map[string]bool{"assistant": true, "bot": true}
)

// Usage is the per-record analysis row.
type Usage struct {
	CreateDate   string
	InputTokens  int
	OutputTokens int
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
	PK           string
	SK           string
}

// AnalysisOptions bounds the analysis window and selects the counter.
type AnalysisOptions struct {
	Start   time.Time
	End     time.Time
	Counter Counter
}

// Analysis is the outcome of one token analysis pass.
type Analysis struct {
	Rows      []Usage
	Processed int
	Filtered  int
	Errors    int
}

// Stats aggregates an analysis.
type Stats struct {
	TotalRecords      int     `json:"total_records"`
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalTokens       int     `json:"total_tokens"`
	TotalInputCost    float64 `json:"total_input_cost"`
	TotalOutputCost   float64 `json:"total_output_cost"`
	TotalCost         float64 `json:"total_cost"`
}

// Analyze walks raw records, filters them to the creation window, and
// estimates token usage from each record's message map. A record that fails
// to parse still produces a zeroed row so the artifact accounts for every
// surviving record.
func Analyze(items []map[string]any, opts AnalysisOptions) Analysis {
	counter := opts.Counter
	if counter == nil {
		counter = DefaultCounter()
	}

	var out Analysis
	for _, item := range items {
		createDate, inWindow := creationDate(item["CreateTime"], opts)
		if !inWindow {
			out.Filtered++
			continue
		}

		row := Usage{
			CreateDate: createDate,
			PK:         record.Coerce(record.Deserialize(item["PK"])),
			SK:         record.Coerce(record.Deserialize(item["SK"])),
		}

		data, ok := parseMessageMap(item["MessageMap"])
		if !ok {
			out.Errors++
			out.Rows = append(out.Rows, row)
			continue
		}
		if data != nil {
			row.InputTokens, row.OutputTokens = extractTokens(data, counter)
			row.InputCost = priceOf(row.InputTokens, InputPricePerK)
			row.OutputCost = priceOf(row.OutputTokens, OutputPricePerK)
			row.TotalCost = round6(row.InputCost + row.OutputCost)
		}

		out.Processed++
		out.Rows = append(out.Rows, row)
	}
	return out
}

// creationDate parses a millisecond timestamp attribute. Records without a
// parseable timestamp stay in scope with a marker date; parseable timestamps
// outside [Start, End] are filtered out.
func creationDate(raw any, opts AnalysisOptions) (string, bool) {
	text := strings.TrimSpace(record.Coerce(record.Deserialize(raw)))
	if text == "" {
		return "", true
	}

	ms, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		if f, ferr := strconv.ParseFloat(text, 64); ferr == nil {
			ms = int64(f)
		} else {
			return "Fecha inválida", true
		}
	}

	t := time.UnixMilli(ms).UTC()
	if !opts.Start.IsZero() && t.Before(opts.Start) {
		return "", false
	}
	if !opts.End.IsZero() && t.After(opts.End) {
		return "", false
	}
	return t.Format("2006-01-02 15:04:05"), true
}

// parseMessageMap normalizes the message map attribute. Returns (nil, true)
// when the attribute is absent, (nil, false) when present but unparseable.
func parseMessageMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, true
		}
		repaired := repairBlob(trimmed)
		parsed, err := record.ParseLoose(repaired)
		if err != nil {
			return nil, false
		}
		m, ok := parsed.(map[string]any)
		if !ok {
			return nil, false
		}
		return m, true
	case map[string]any:
		deserialized := record.Deserialize(v)
		if m, ok := deserialized.(map[string]any); ok {
			return m, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// repairBlob applies the known CSV export damage before parsing: quadruple
// quote escapes and the truncated body value pattern.
func repairBlob(blob string) string {
	repaired := record.RepairQuotes(blob)
	repaired = strings.ReplaceAll(repaired, `ody": ",`, `ody": "",`)
	return repaired
}

// extractTokens splits the message map's content into prompt and completion
// tokens by role. When the map yields nothing countable, both sides report
// the one-token floor.
func extractTokens(data map[string]any, counter Counter) (input, output int) {
	for key, value := range data {
		switch v := value.(type) {
		case map[string]any:
			role := record.Coerce(v["role"])
			if role == "" {
				role = key
			}
			for _, body := range contentBodies(v["content"]) {
				addTokens(&input, &output, role, counter.Count(body))
			}
		case []any:
			for _, item := range v {
				msg, ok := item.(map[string]any)
				if !ok {
					continue
				}
				role := record.Coerce(msg["role"])
				body := record.Coerce(msg["content"])
				if body == "" {
					body = record.Coerce(msg["body"])
				}
				if body != "" {
					addTokens(&input, &output, role, counter.Count(body))
				}
			}
		}
	}

	if input == 0 && output == 0 {
		return 1, 1
	}
	return input, output
}

// contentBodies flattens a content field: a plain string, or a list of
// {content_type, media_type, body} parts.
func contentBodies(content any) []string {
	switch v := content.(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []any:
		var bodies []string
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if body, ok := m["body"].(string); ok && body != "" {
				bodies = append(bodies, body)
			}
		}
		return bodies
	}
	return nil
}

func addTokens(input, output *int, role string, n int) {
	switch {
	case inputRoles[role]:
		*input += n
	case outputRoles[role]:
		*output += n
	}
}

func priceOf(tokens int, perK float64) float64 {
	return round6(float64(tokens) * perK / 1000)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

// StatsOf totals an analysis.
func StatsOf(a Analysis) Stats {
	s := Stats{TotalRecords: len(a.Rows)}
	for _, row := range a.Rows {
		s.TotalInputTokens += row.InputTokens
		s.TotalOutputTokens += row.OutputTokens
		s.TotalCost += row.TotalCost
	}
	s.TotalTokens = s.TotalInputTokens + s.TotalOutputTokens
	s.TotalInputCost = priceOf(s.TotalInputTokens, InputPricePerK)
	s.TotalOutputCost = priceOf(s.TotalOutputTokens, OutputPricePerK)
	s.TotalCost = round6(s.TotalCost)
	return s
}

// EncodeCSV renders the analysis rows. An empty analysis still produces a
// placeholder row so downstream consumers always find a parseable file.
func EncodeCSV(a Analysis, now time.Time) ([]byte, error) {
	rows := a.Rows
	if len(rows) == 0 {
		rows = []Usage{{CreateDate: now.Format("2006-01-02 15:04:05"), PK: "sin_datos", SK: "sin_datos"}}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"create_date", "input_token", "output_token", "precio_token_input", "precio_token_output", "total_price", "pk", "sk"}); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		rec := []string{
			row.CreateDate,
			strconv.Itoa(row.InputTokens),
			strconv.Itoa(row.OutputTokens),
			formatPrice(row.InputCost),
			formatPrice(row.OutputCost),
			formatPrice(row.TotalCost),
			row.PK,
			row.SK,
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatPrice(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
