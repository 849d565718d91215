package addrmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nysenate/geodistrict/internal/model"
)

func TestParse_House(t *testing.T) {
	t.Parallel()

	s := Parse(model.Address{Addr1: "200 State St", City: "Albany", State: "ny", Zip5: "12210"})
	assert.Equal(t, 200, s.BldgNum)
	assert.Equal(t, "STATE", s.StreetName)
	assert.Equal(t, "ST", s.StreetType)
	assert.Equal(t, "NY", s.State)
	assert.Equal(t, "Albany", s.Location)
	assert.False(t, s.IsPOBox())
}

func TestParse_POBox(t *testing.T) {
	t.Parallel()

	s := Parse(model.Address{Addr1: "PO Box 7016", City: "Albany", State: "NY", Zip5: "12225"})
	assert.True(t, s.IsPOBox())
	assert.Equal(t, 7016, s.POBox)
}

func TestParse_DirectionalsAndUnit(t *testing.T) {
	t.Parallel()

	s := Parse(model.Address{Addr1: "123 N Main St Apt 4B", City: "Troy", State: "NY"})
	assert.Equal(t, 123, s.BldgNum)
	assert.Equal(t, "N", s.PreDir)
	assert.Equal(t, "MAIN", s.StreetName)
	assert.Equal(t, "ST", s.StreetType)
	assert.Equal(t, "APT", s.UnitType)
	assert.Equal(t, "4B", s.UnitNum)
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	s := Parse(model.Address{City: "Buffalo", State: "NY"})
	assert.False(t, s.HasStreet())
	assert.Equal(t, "Buffalo", s.Location)
}

func TestFormatOneLine(t *testing.T) {
	t.Parallel()

	s := model.StreetAddress{BldgNum: 200, StreetName: "STATE", StreetType: "ST", Location: "Albany", State: "NY", Zip5: "12210"}
	assert.Equal(t, "200 STATE ST, Albany, NY 12210", FormatOneLine(s))

	assert.Equal(t, "", FormatOneLine(model.StreetAddress{POBox: 7016}))
}

func TestPOBoxBlanked(t *testing.T) {
	t.Parallel()

	a := model.Address{Addr1: "PO Box 7016", City: "Albany"}
	blanked := POBoxBlanked(a)
	assert.Equal(t, "", blanked.Addr1)
	assert.Equal(t, "Albany", blanked.City)
	assert.Equal(t, "PO Box 7016", a.Addr1, "original must be unmodified")
}
