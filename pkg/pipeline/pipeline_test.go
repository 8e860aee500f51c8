package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/convrep/client"
	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
	"github.com/otherjamesbrown/convrep/pkg/logging"
	"github.com/otherjamesbrown/convrep/pkg/report"
)

func testJob(t *testing.T, items []map[string]any) (*Job, string) {
	t.Helper()
	dir := t.TempDir()
	return &Job{
		Store:     &client.StaticRecordStore{Items: items},
		Objects:   client.NewDirObjectStore(dir),
		Refresher: client.NewLogRefresher(logging.NewNopLogger()),
		DatasetID: "dataset-test",
		Filter: report.FilterOptions{
			StartDate: time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC),
			Today:     time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		},
		Log:     logging.NewNopLogger(),
		Metrics: NewMetrics(prometheus.NewRegistry()),
	}, dir
}

func conversationItem(pk, transcript, createdAt string) map[string]any {
	return map[string]any{
		"PK":           map[string]any{"S": pk},
		"SK":           map[string]any{"S": "CONVERSATION#1"},
		"Conversation": map[string]any{"S": transcript},
		"CreatedAt":    map[string]any{"S": createdAt},
	}
}

func TestJobRun_EndToEnd(t *testing.T) {
	items := []map[string]any{
		conversationItem("USER#1", "user: Hola | bot: Hola, bienvenido", "2025-08-10"),
		conversationItem("USER#2", "user: ¿Cuánto cuesta el certificado? | bot: El valor es...", "2025-08-11"),
		{
			"PK":       map[string]any{"S": "USER#1"},
			"SK":       map[string]any{"S": "FEEDBACK#1"},
			"Feedback": map[string]any{"S": `{'type': 'like', 'comment': 'muy bueno'}`},
		},
	}

	job, dir := testJob(t, items)
	result, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, result.UsuariosProcesados)
	assert.NotEmpty(t, result.RunID)
	assert.True(t, strings.HasPrefix(result.RefreshIngestion, "etl-refresh-"))
	assert.Equal(t, 1, result.Estadisticas.UsuariosConFeedback)
	assert.Equal(t, 2, result.Estadisticas.UsuariosConPreguntas)

	csvBody, err := os.ReadFile(filepath.Join(dir, "reports", "etl-process1", report.FileName))
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(csvBody))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, report.Columns, records[0])

	manifestBody, err := os.ReadFile(filepath.Join(dir, report.ManifestName))
	require.NoError(t, err)
	var manifest map[string]any
	require.NoError(t, json.Unmarshal(manifestBody, &manifest))
	assert.Contains(t, manifest, "fileLocations")
	assert.Equal(t, result.ArchivoGenerado,
		manifest["fileLocations"].([]any)[0].(map[string]any)["URIs"].([]any)[0])
}

func TestJobRun_EmptyScanFails(t *testing.T) {
	job, _ := testJob(t, nil)
	result, err := job.Run(context.Background())

	require.Error(t, err)
	assert.True(t, cerrors.IsEmptyScan(err))
	assert.Equal(t, StatusFailed, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestJobRun_ScanErrorClassified(t *testing.T) {
	job, _ := testJob(t, nil)
	job.Store = &client.StaticRecordStore{Err: assert.AnError}

	result, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)

	var se *cerrors.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "scan", se.Stage)
}

func TestJobRun_RefreshFailureIsAdvisory(t *testing.T) {
	job, _ := testJob(t, []map[string]any{
		conversationItem("USER#1", "user: Hola", "2025-08-10"),
	})
	job.Refresher = failingRefresher{}

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, result.RefreshIngestion)
}

type failingRefresher struct{}

func (failingRefresher) CreateIngestion(ctx context.Context, datasetID string) (client.Ingestion, error) {
	return client.Ingestion{}, assert.AnError
}

func (failingRefresher) DescribeIngestion(ctx context.Context, datasetID, ingestionID string) (client.Ingestion, error) {
	return client.Ingestion{}, assert.AnError
}

type recordingRefresher struct {
	created     client.Ingestion
	describeErr error

	describedDataset   string
	describedIngestion string
	describeCalls      int
}

func (r *recordingRefresher) CreateIngestion(ctx context.Context, datasetID string) (client.Ingestion, error) {
	return r.created, nil
}

func (r *recordingRefresher) DescribeIngestion(ctx context.Context, datasetID, ingestionID string) (client.Ingestion, error) {
	r.describeCalls++
	r.describedDataset = datasetID
	r.describedIngestion = ingestionID
	if r.describeErr != nil {
		return client.Ingestion{}, r.describeErr
	}
	return client.Ingestion{ID: ingestionID, Status: client.IngestionRunning}, nil
}

func TestJobRun_RefreshChecksIngestionStatus(t *testing.T) {
	job, _ := testJob(t, []map[string]any{
		conversationItem("USER#1", "user: Hola", "2025-08-10"),
	})
	spy := &recordingRefresher{created: client.Ingestion{ID: "etl-refresh-123"}}
	job.Refresher = spy

	result, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "etl-refresh-123", result.RefreshIngestion)
	assert.Equal(t, 1, spy.describeCalls)
	assert.Equal(t, "dataset-test", spy.describedDataset)
	assert.Equal(t, "etl-refresh-123", spy.describedIngestion)
}

func TestJobRun_RefreshStatusCheckFailureIsAdvisory(t *testing.T) {
	job, _ := testJob(t, []map[string]any{
		conversationItem("USER#1", "user: Hola", "2025-08-10"),
	})
	spy := &recordingRefresher{
		created:     client.Ingestion{ID: "etl-refresh-456"},
		describeErr: assert.AnError,
	}
	job.Refresher = spy

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "etl-refresh-456", result.RefreshIngestion)
}

func TestStatsOf(t *testing.T) {
	stats := statsOf([]report.Row{
		{NumeroConversaciones: 3, FeedbackTotal: "x", PreguntaConversacion: "q"},
		{NumeroConversaciones: 2},
	})
	assert.Equal(t, 5, stats.TotalConversaciones)
	assert.Equal(t, 1, stats.UsuariosConFeedback)
	assert.Equal(t, 1, stats.UsuariosConPreguntas)
}
