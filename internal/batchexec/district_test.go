package batchexec

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
)

type fakeResolver struct {
	failOn map[int]bool
	calls  int
}

func (f *fakeResolver) Resolve(ctx context.Context, req model.DistrictRequest) (*model.DistrictResult, error) {
	f.calls++
	if f.failOn[int(req.Point.Lat)] {
		return nil, fmt.Errorf("resolve failed for %v", req.Point)
	}
	return &model.DistrictResult{StatusCode: model.StatusSuccess}, nil
}

func requestAt(lat float64) model.DistrictRequest {
	return model.DistrictRequest{Point: &model.LatLon{Lat: lat, Lon: 0}}
}

func TestRunBatch_AllSucceed(t *testing.T) {
	resolver := &fakeResolver{}
	requests := []model.DistrictRequest{requestAt(1), requestAt(2), requestAt(3)}

	job, results := RunBatch(context.Background(), New(2), resolver, "addresses.csv", requests)

	require.Equal(t, model.BatchComplete, job.Status)
	assert.Equal(t, 3, job.Total)
	assert.Equal(t, 3, job.Completed)
	assert.Equal(t, 0, job.Failed)
	assert.Len(t, results, 3)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "addresses.csv", job.SourceFile)
}

func TestRunBatch_PartialFailureStaysComplete(t *testing.T) {
	resolver := &fakeResolver{failOn: map[int]bool{2: true}}
	requests := []model.DistrictRequest{requestAt(1), requestAt(2), requestAt(3)}

	job, results := RunBatch(context.Background(), New(2), resolver, "addresses.csv", requests)

	assert.Equal(t, model.BatchComplete, job.Status)
	assert.Equal(t, 1, job.Failed)
	assert.Equal(t, 2, job.Completed)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[0].Err)
}

func TestRunBatch_AllFail(t *testing.T) {
	resolver := &fakeResolver{failOn: map[int]bool{1: true, 2: true}}
	requests := []model.DistrictRequest{requestAt(1), requestAt(2)}

	job, _ := RunBatch(context.Background(), New(2), resolver, "addresses.csv", requests)

	assert.Equal(t, model.BatchFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}
