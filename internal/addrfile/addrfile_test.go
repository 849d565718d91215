package addrfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
)

func TestParseCSVReader(t *testing.T) {
	t.Parallel()

	csv := "addr1,city,state,zip5\n200 State St,Albany,NY,12210\n123 Main St,Troy,NY,12180\n"
	addrs, err := parseCSVReader(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, model.Address{Addr1: "200 State St", City: "Albany", State: "NY", Zip5: "12210"}, addrs[0])
	assert.Equal(t, model.Address{Addr1: "123 Main St", City: "Troy", State: "NY", Zip5: "12180"}, addrs[1])
}

func TestParseCSVReader_MissingColumns(t *testing.T) {
	t.Parallel()

	csv := "addr1,zip5\n200 State St,12210\n"
	addrs, err := parseCSVReader(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "", addrs[0].City)
	assert.Equal(t, "12210", addrs[0].Zip5)
}

func TestParseCSVReader_Empty(t *testing.T) {
	t.Parallel()

	addrs, err := parseCSVReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, addrs)
}

func TestParse_UnrecognizedExtension(t *testing.T) {
	t.Parallel()

	_, err := Parse("addresses.txt")
	assert.Error(t, err)
}
