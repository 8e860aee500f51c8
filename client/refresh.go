package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
	"github.com/otherjamesbrown/convrep/pkg/logging"
)

// Ingestion statuses reported by a refresher.
const (
	IngestionQueued    = "QUEUED"
	IngestionRunning   = "RUNNING"
	IngestionCompleted = "COMPLETED"
	IngestionFailed    = "FAILED"
)

// Ingestion is the handle and last observed status of one dataset refresh.
type Ingestion struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// Refresher triggers a BI dataset refresh after artifacts are published.
// Refresh failures are advisory: callers log and report them but never fail
// the batch over one.
type Refresher interface {
	CreateIngestion(ctx context.Context, datasetID string) (Ingestion, error)
	DescribeIngestion(ctx context.Context, datasetID, ingestionID string) (Ingestion, error)
}

// NewIngestionID mints the fixed-format ingestion identifier.
func NewIngestionID(now time.Time) string {
	return fmt.Sprintf("etl-refresh-%d", now.Unix())
}

// LogRefresher records refresh requests in the log and reports them as
// immediately completed. Used where no BI backend is configured.
type LogRefresher struct {
	log logging.Logger

	mu       sync.Mutex
	statuses map[string]Ingestion
}

func NewLogRefresher(log logging.Logger) *LogRefresher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LogRefresher{log: log, statuses: make(map[string]Ingestion)}
}

func (r *LogRefresher) CreateIngestion(ctx context.Context, datasetID string) (Ingestion, error) {
	if err := ctx.Err(); err != nil {
		return Ingestion{}, err
	}

	ing := Ingestion{
		ID:        NewIngestionID(time.Now().UTC()),
		Status:    IngestionCompleted,
		StartedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.statuses[ing.ID] = ing
	r.mu.Unlock()

	r.log.Info("dataset refresh requested",
		logging.F("dataset_id", datasetID),
		logging.F("ingestion_id", ing.ID))
	return ing, nil
}

func (r *LogRefresher) DescribeIngestion(ctx context.Context, datasetID, ingestionID string) (Ingestion, error) {
	if err := ctx.Err(); err != nil {
		return Ingestion{}, err
	}

	r.mu.Lock()
	ing, ok := r.statuses[ingestionID]
	r.mu.Unlock()
	if !ok {
		return Ingestion{}, fmt.Errorf("%w: ingestion %s", cerrors.ErrNotFound, ingestionID)
	}
	return ing, nil
}
