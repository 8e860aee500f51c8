package projection

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/otherjamesbrown/convrep/pkg/dialogue"
	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
	"github.com/otherjamesbrown/convrep/pkg/logging"
	"github.com/otherjamesbrown/convrep/pkg/projection/queues"
	"github.com/otherjamesbrown/convrep/pkg/projection/workers"
	"github.com/otherjamesbrown/convrep/pkg/report"
	"github.com/otherjamesbrown/convrep/pkg/tokens"
)

// Typed artifact naming, overwrite model like the raw report.
const (
	FileName   = "Dashboard_Usuarios_Catia_TIPADO.csv"
	SchemaName = "Dashboard_Usuarios_Catia_TIPADO.schema.json"
)

// Token columns appended when a counter is configured.
const (
	ColTokensPregunta  = "tokens_pregunta"
	ColTokensRespuesta = "tokens_respuesta"
)

// ObjectKey is the full object key of the typed CSV.
func ObjectKey() string {
	return report.KeyPrefix + FileName
}

// SchemaKey is the full object key of the schema sidecar.
func SchemaKey() string {
	return report.KeyPrefix + SchemaName
}

// DefaultPartitionSize is the row count per partition.
const DefaultPartitionSize = 200

// Engine projects aggregated rows through a partition queue and worker pool
// into the typed output. With a TokenCounter set, each row also gets
// estimated token counts for the user and bot sides of its transcript.
type Engine struct {
	Queue         queues.Queue
	Workers       int
	PartitionSize int
	RunID         string
	TokenCounter  tokens.Counter
	Log           logging.Logger
}

// Output is the coalesced typed dataset.
type Output struct {
	CSV           []byte
	Schema        []byte
	Partitions    int
	DegradedCells int
}

// Project partitions the rows, fans them out to the pool, and coalesces the
// projected partitions back in index order. Every partition must complete;
// a missing one fails the projection rather than publishing a partial
// dataset.
func (e *Engine) Project(ctx context.Context, rows []report.Row) (Output, error) {
	if e.Queue == nil {
		return Output{}, fmt.Errorf("%w: projection engine has no queue", cerrors.ErrValidation)
	}

	parts := partition(rows, e.partitionSize())

	var mu sync.Mutex
	projected := make(map[int][][]string, len(parts))
	var degraded atomic.Int64

	pool := workers.NewPool(e.Workers, e.Queue, func(ctx context.Context, msg queues.PartitionMessage) error {
		records := make([][]string, 0, len(msg.Rows))
		for _, row := range msg.Rows {
			cells, bad := CastRow(row)
			degraded.Add(int64(bad))
			records = append(records, e.appendTokenCells(cells, row))
		}
		mu.Lock()
		projected[msg.Index] = records
		mu.Unlock()
		return nil
	}, e.Log)
	pool.Start(ctx)

	for i, part := range parts {
		msg := queues.PartitionMessage{RunID: e.RunID, Index: i, Total: len(parts), Rows: part}
		if _, err := e.Queue.Enqueue(ctx, msg); err != nil {
			e.Queue.Close()
			pool.Wait()
			return Output{}, fmt.Errorf("enqueueing partition %d: %w", i, err)
		}
	}
	e.Queue.Close()
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	// Ordered coalesce; every index must be present.
	var records [][]string
	for i := range parts {
		part, ok := projected[i]
		if !ok {
			return Output{}, &cerrors.StageError{
				Code:    cerrors.ErrCodeQueue,
				Stage:   "projection",
				Message: fmt.Sprintf("partition %d of %d never completed", i, len(parts)),
			}
		}
		records = append(records, part...)
	}

	csvBody, err := encodeTyped(e.columns(), records)
	if err != nil {
		return Output{}, err
	}
	schemaBody, err := encodeSchema(e.columns())
	if err != nil {
		return Output{}, err
	}

	return Output{
		CSV:           csvBody,
		Schema:        schemaBody,
		Partitions:    len(parts),
		DegradedCells: int(degraded.Load()),
	}, nil
}

// columns is the typed header: the report schema plus token columns when a
// counter is configured.
func (e *Engine) columns() []string {
	if e.TokenCounter == nil {
		return report.Columns
	}
	cols := make([]string, 0, len(report.Columns)+2)
	cols = append(cols, report.Columns...)
	return append(cols, ColTokensPregunta, ColTokensRespuesta)
}

func (e *Engine) appendTokenCells(cells []string, row report.Row) []string {
	if e.TokenCounter == nil {
		return cells
	}
	userText := dialogue.ExtractJoined(row.ConversacionCompleta, dialogue.RoleUser)
	botText := dialogue.ExtractJoined(row.ConversacionCompleta, dialogue.RoleBot)
	return append(cells,
		strconv.Itoa(e.TokenCounter.Count(userText)),
		strconv.Itoa(e.TokenCounter.Count(botText)))
}

func (e *Engine) partitionSize() int {
	if e.PartitionSize > 0 {
		return e.PartitionSize
	}
	return DefaultPartitionSize
}

func partition(rows []report.Row, size int) [][]report.Row {
	if len(rows) == 0 {
		return nil
	}
	var parts [][]report.Row
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		parts = append(parts, rows[start:end])
	}
	return parts
}

func encodeTyped(columns []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("writing typed header: %w", err)
	}
	for i, rec := range records {
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("writing typed row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// schemaColumn is one sidecar entry.
type schemaColumn struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

func encodeSchema(columns []string) ([]byte, error) {
	schema := Schema()
	out := make([]schemaColumn, len(columns))
	for i, col := range columns {
		t, ok := schema[col]
		if !ok {
			// Token columns are integers.
			t = TypeInteger
		}
		out[i] = schemaColumn{Name: col, Type: t}
	}
	return json.MarshalIndent(map[string]any{"columns": out}, "", "  ")
}
