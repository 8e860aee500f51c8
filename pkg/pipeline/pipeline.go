// Package pipeline orchestrates one end-to-end report run: scan the record
// store, merge and filter, aggregate per user, publish the CSV and manifest
// artifacts, then trigger the advisory BI refresh.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/convrep/client"
	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
	"github.com/otherjamesbrown/convrep/pkg/logging"
	"github.com/otherjamesbrown/convrep/pkg/report"
)

// Run outcomes.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Stats summarizes the published rows.
type Stats struct {
	TotalConversaciones  int `json:"total_conversaciones"`
	UsuariosConFeedback  int `json:"usuarios_con_feedback"`
	UsuariosConPreguntas int `json:"usuarios_con_preguntas"`
}

// Result is the structured outcome of one run.
type Result struct {
	Status             string `json:"status"`
	Message            string `json:"message"`
	RunID              string `json:"run_id"`
	UsuariosProcesados int    `json:"usuarios_procesados"`
	ArchivoGenerado    string `json:"archivo_generado,omitempty"`
	ManifestFile       string `json:"manifest_file,omitempty"`
	Estadisticas       Stats  `json:"estadisticas"`
	RefreshIngestion   string `json:"refresh_ingestion_id,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Job wires the collaborators for report runs. All fields except Refresher
// and Metrics are required.
type Job struct {
	Store     client.RecordStore
	Objects   client.ObjectStore
	Refresher client.Refresher
	DatasetID string
	Filter    report.FilterOptions
	Log       logging.Logger
	Metrics   *Metrics
}

// Run executes the full pipeline once. A stage failure aborts the run and
// leaves the previously published artifacts untouched; only the refresh step
// is advisory.
func (j *Job) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: uuid.NewString()}
	log := j.logger().With(logging.F("run_id", result.RunID))

	items, err := j.timedScan(ctx, log)
	if err != nil {
		return j.fail(result, "scan", err, log)
	}

	rows, err := j.transform(items, log)
	if err != nil {
		return j.fail(result, "aggregate", err, log)
	}

	csvURI, manifestURI, err := j.publish(ctx, rows, log)
	if err != nil {
		return j.fail(result, "publish", err, log)
	}

	result.Status = StatusSuccess
	result.Message = fmt.Sprintf("processed %d users", len(rows))
	result.UsuariosProcesados = len(rows)
	result.ArchivoGenerado = csvURI
	result.ManifestFile = manifestURI
	result.Estadisticas = statsOf(rows)
	result.RefreshIngestion = j.refresh(ctx, log)

	j.Metrics.RecordRun(StatusSuccess, len(rows))
	log.Info("run complete",
		logging.F("usuarios_procesados", result.UsuariosProcesados),
		logging.F("total_conversaciones", result.Estadisticas.TotalConversaciones))
	return result, nil
}

func (j *Job) timedScan(ctx context.Context, log logging.Logger) ([]map[string]any, error) {
	start := time.Now()
	items, err := client.ScanAll(ctx, j.Store)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: record store is empty", cerrors.ErrEmptyScan)
	}

	j.Metrics.RecordStage("scan", len(items), time.Since(start).Seconds())
	log.Info("scan complete", logging.F("items", len(items)))
	return items, nil
}

// transform runs the pure stages: merge, filter, per-row completion,
// aggregation.
func (j *Job) transform(items []map[string]any, log logging.Logger) ([]report.Row, error) {
	start := time.Now()

	merged := report.Merge(items)
	j.Metrics.RecordStage("merge", len(merged), time.Since(start).Seconds())

	filterStart := time.Now()
	filtered := report.Normalize(merged, j.Filter)
	j.Metrics.RecordStage("filter", len(filtered), time.Since(filterStart).Seconds())
	log.Info("filter complete",
		logging.F("merged", len(merged)),
		logging.F("kept", len(filtered)))

	aggStart := time.Now()
	rows := report.Aggregate(report.CompleteRows(filtered))
	j.Metrics.RecordStage("aggregate", len(rows), time.Since(aggStart).Seconds())

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows survived filtering", cerrors.ErrEmptyScan)
	}
	return rows, nil
}

func (j *Job) publish(ctx context.Context, rows []report.Row, log logging.Logger) (csvURI, manifestURI string, err error) {
	start := time.Now()

	payload, err := report.EncodeCSV(rows)
	if err != nil {
		return "", "", fmt.Errorf("encoding report: %w", err)
	}
	csvURI, err = j.Objects.Put(ctx, report.ObjectKey(), payload, "text/csv")
	if err != nil {
		return "", "", fmt.Errorf("uploading report: %w", err)
	}

	manifest, err := report.BuildManifest([]string{csvURI})
	if err != nil {
		return "", "", err
	}
	body, err := manifest.Encode()
	if err != nil {
		return "", "", fmt.Errorf("encoding manifest: %w", err)
	}
	manifestURI, err = j.Objects.Put(ctx, report.ManifestName, body, "application/json")
	if err != nil {
		return "", "", fmt.Errorf("uploading manifest: %w", err)
	}

	j.Metrics.RecordStage("publish", len(rows), time.Since(start).Seconds())
	log.Info("artifacts published",
		logging.F("csv", csvURI),
		logging.F("manifest", manifestURI))
	return csvURI, manifestURI, nil
}

// refresh triggers the BI ingestion. Failures are logged and surfaced in the
// result message but never fail the run.
func (j *Job) refresh(ctx context.Context, log logging.Logger) string {
	if j.Refresher == nil {
		return ""
	}
	ing, err := j.Refresher.CreateIngestion(ctx, j.DatasetID)
	if err != nil {
		log.Warn("dataset refresh failed", logging.Err(err))
		return ""
	}

	status, err := j.Refresher.DescribeIngestion(ctx, j.DatasetID, ing.ID)
	if err != nil {
		log.Warn("dataset refresh status check failed",
			logging.F("ingestion_id", ing.ID), logging.Err(err))
		return ing.ID
	}
	log.Info("dataset refresh triggered",
		logging.F("ingestion_id", ing.ID),
		logging.F("status", status.Status))
	return ing.ID
}

func (j *Job) fail(result Result, stage string, err error, log logging.Logger) (Result, error) {
	se := cerrors.ClassifyError(err, stage)
	log.Error("run failed", logging.Err(se),
		logging.F("stage", stage),
		logging.F("code", string(se.Code)),
		logging.F("retryable", cerrors.IsErrorRetryable(se)))

	j.Metrics.RecordRun(StatusFailed, 0)

	result.Status = StatusFailed
	result.Message = se.Message
	result.Error = se.Error()
	return result, se
}

func (j *Job) logger() logging.Logger {
	if j.Log == nil {
		return logging.NewNopLogger()
	}
	return j.Log
}

func statsOf(rows []report.Row) Stats {
	var s Stats
	for _, row := range rows {
		s.TotalConversaciones += row.NumeroConversaciones
		if row.FeedbackTotal != "" {
			s.UsuariosConFeedback++
		}
		if row.PreguntaConversacion != "" {
			s.UsuariosConPreguntas++
		}
	}
	return s
}
