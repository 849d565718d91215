package tigerload

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
)

func TestIsLoaded_True(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("SENATE", "2026").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	loaded, err := isLoaded(context.Background(), mock, model.Senate, "2026")
	require.NoError(t, err)
	assert.True(t, loaded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsLoaded_False(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("ASSEMBLY", "2026").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	loaded, err := isLoaded(context.Background(), mock, model.Assembly, "2026")
	require.NoError(t, err)
	assert.False(t, loaded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO geo.load_status").
		WithArgs("SENATE", "2026", 63, 1200).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = recordLoad(context.Background(), mock, model.Senate, "2026", 63, 1200)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"district_type", "version", "row_count", "loaded_at", "duration_ms",
	}).
		AddRow("SENATE", "2026", 63, now, 1200).
		AddRow("ASSEMBLY", "2026", 150, now, 1500)

	mock.ExpectQuery("SELECT district_type, version").
		WillReturnRows(rows)

	status, err := LoadStatus(context.Background(), mock)
	require.NoError(t, err)
	assert.Len(t, status, 2)
	assert.Equal(t, model.Senate, status[0].DistrictType)
	assert.Equal(t, 63, status[0].RowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
