package tigerload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
)

func TestProductForType_Found(t *testing.T) {
	p, ok := ProductForType(model.Senate)
	require.True(t, ok)
	assert.Equal(t, "senate", p.Table)
}

func TestProductForType_NotFound(t *testing.T) {
	_, ok := ProductForType(model.DistrictType("NONEXISTENT"))
	assert.False(t, ok)
}

func TestProductByTable(t *testing.T) {
	p, ok := ProductByTable("zip")
	require.True(t, ok)
	assert.Equal(t, model.Zip, p.Type)

	_, ok = ProductByTable("nope")
	assert.False(t, ok)
}

func TestProducts_CoverAllGlobalTypes(t *testing.T) {
	for _, dt := range model.AllDistrictTypes {
		_, ok := ProductForType(dt)
		assert.True(t, ok, "missing shapefile product for %s", dt)
	}
}
