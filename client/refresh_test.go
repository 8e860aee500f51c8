package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
	"github.com/otherjamesbrown/convrep/pkg/logging"
)

func TestLogRefresher(t *testing.T) {
	r := NewLogRefresher(logging.NewNopLogger())

	ing, err := r.CreateIngestion(context.Background(), "dataset-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ing.ID, "etl-refresh-"))
	assert.Equal(t, IngestionCompleted, ing.Status)

	described, err := r.DescribeIngestion(context.Background(), "dataset-1", ing.ID)
	require.NoError(t, err)
	assert.Equal(t, ing.ID, described.ID)

	_, err = r.DescribeIngestion(context.Background(), "dataset-1", "missing")
	assert.True(t, cerrors.IsNotFound(err))
}

func TestNewIngestionID(t *testing.T) {
	id := NewIngestionID(time.Unix(1755000000, 0))
	assert.Equal(t, "etl-refresh-1755000000", id)
}
