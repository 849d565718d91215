package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleGeocodedAddress() model.GeocodedAddress {
	return model.GeocodedAddress{
		Street: model.StreetAddress{
			BldgNum:    200,
			StreetName: "STATE",
			StreetType: "ST",
			Zip5:       "12210",
			Location:   "ALBANY",
			State:      "NY",
		},
		Geocode: model.Geocode{Lat: 42.65, Lon: -73.75, Method: "wfs", Quality: model.QualityHouse},
	}
}

func TestSQLite_PingAndMigrate(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}

func TestSQLite_SaveGeocode_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	ga := sampleGeocodedAddress()

	require.NoError(t, st.SaveGeocode(ctx, ga))
	require.NoError(t, st.SaveGeocode(ctx, ga)) // duplicate insert is a no-op, not an error
}

func TestSQLite_BatchJob_CreateGetUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job := model.BatchJob{
		ID:          "job-1",
		SourceFile:  "addresses.csv",
		Status:      model.BatchRunning,
		Total:       10,
		SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreateBatchJob(ctx, job))

	got, err := st.GetBatchJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "addresses.csv", got.SourceFile)
	assert.Equal(t, model.BatchRunning, got.Status)

	job.Status = model.BatchComplete
	job.Completed = 9
	job.Failed = 1
	job.FinishedAt = time.Now().UTC()
	require.NoError(t, st.UpdateBatchJob(ctx, job))

	updated, err := st.GetBatchJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchComplete, updated.Status)
	assert.Equal(t, 9, updated.Completed)
	assert.Equal(t, 1, updated.Failed)
}

func TestSQLite_BatchJob_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	got, err := st.GetBatchJob(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_BatchJob_UpdateMissingErrors(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.UpdateBatchJob(context.Background(), model.BatchJob{ID: "nonexistent"})
	assert.Error(t, err)
}

func TestSQLite_ListBatchJobs_FiltersByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateBatchJob(ctx, model.BatchJob{ID: "a", Status: model.BatchComplete, SubmittedAt: time.Now().UTC()}))
	require.NoError(t, st.CreateBatchJob(ctx, model.BatchJob{ID: "b", Status: model.BatchRunning, SubmittedAt: time.Now().UTC()}))

	jobs, err := st.ListBatchJobs(ctx, BatchJobFilter{Status: model.BatchComplete})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].ID)
}
