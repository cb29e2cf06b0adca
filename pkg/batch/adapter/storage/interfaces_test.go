package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage"
)

func TestParseURI(t *testing.T) {
	loc, err := storage.ParseURI("gs://flow-reports/runs/2024/run.json")
	require.NoError(t, err)
	assert.Equal(t, storage.Location{Type: "gcs", Bucket: "flow-reports", Object: "runs/2024/run.json"}, loc)
	assert.Equal(t, "gs://flow-reports/runs/2024/run.json", loc.String())

	loc, err = storage.ParseURI("reports/run.json")
	require.NoError(t, err)
	assert.Equal(t, storage.Location{Type: "local", Object: "reports/run.json"}, loc)
}

func TestParseURIRejectsMalformed(t *testing.T) {
	for _, uri := range []string{"", "gs://bucket-only", "gs:///object", "s3://bucket/key"} {
		_, err := storage.ParseURI(uri)
		assert.Error(t, err, uri)
	}
}
