package streetfile

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkLoad_Empty(t *testing.T) {
	n, err := BulkLoad(context.Background(), nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkLoad_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"streetfile", "ranges"}, loadColumns).WillReturnResult(2)

	ranges := []Range{
		{StreetName: "STATE ST", BldgLo: 1, BldgHi: 99, Parity: "A", State: "NY", Districts: map[string]string{"senate": "42"}},
		{StreetName: "MAIN ST", BldgLo: 1, BldgHi: 199, Parity: "A", State: "NY"},
	}
	n, err := BulkLoad(context.Background(), mock, ranges, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_TruncatesFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("TRUNCATE streetfile.ranges").WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"streetfile", "ranges"}, loadColumns).WillReturnResult(1)

	ranges := []Range{{StreetName: "STATE ST", BldgLo: 1, BldgHi: 99, Parity: "A", State: "NY"}}
	n, err := Refresh(context.Background(), mock, ranges, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
