package tigerload

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
)

func TestBulkLoad_EmptyRows(t *testing.T) {
	n, err := BulkLoad(context.Background(), nil, Product{Table: "senate"}, nil, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkLoad_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	product := Product{Type: model.Senate, Table: "senate"}
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "senate"}, loadColumns).WillReturnResult(2)

	rows := []Row{{Code: "42", Name: "42", WKB: []byte("wkb-1")}, {Code: "43", Name: "43", WKB: []byte("wkb-2")}}
	n, err := BulkLoad(context.Background(), mock, product, rows, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkLoad_Batches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	product := Product{Type: model.Senate, Table: "senate"}
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "senate"}, loadColumns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "senate"}, loadColumns).WillReturnResult(1)

	rows := []Row{{Code: "1"}, {Code: "2"}, {Code: "3"}}
	n, err := BulkLoad(context.Background(), mock, product, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkLoad_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	product := Product{Type: model.Senate, Table: "senate"}
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "senate"}, loadColumns).WillReturnError(fmt.Errorf("copy failed"))

	_, err = BulkLoad(context.Background(), mock, product, []Row{{Code: "1"}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into geo.senate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncateTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`TRUNCATE "geo"\."senate"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	err = TruncateTable(context.Background(), mock, Product{Table: "senate"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
