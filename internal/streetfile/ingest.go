package streetfile

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Range is one parsed street-range row, ready for BulkLoad.
type Range struct {
	StreetName string
	BldgLo     int
	BldgHi     int
	Parity     string
	Zip5       string
	City       string
	State      string
	Districts  map[string]string // districtColumns value -> code
}

// columnIndex maps a header cell (case-insensitive) to its position.
type columnIndex map[string]int

// ParseXLSX reads the street-range workbook distributed by the state board
// of elections and returns one Range per data row. The first sheet's header
// row names columns; unrecognized columns are ignored, so the workbook may
// carry extra descriptive fields the pipeline doesn't use.
func ParseXLSX(path string) ([]Range, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "streetfile: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("streetfile: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	idx := headerIndex(sheet.Rows[0])

	var ranges []Range
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		r, ok := parseRow(cells, idx)
		if !ok {
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func headerIndex(row *xlsx.Row) columnIndex {
	idx := make(columnIndex, len(row.Cells))
	for i, cell := range row.Cells {
		idx[strings.ToUpper(strings.TrimSpace(cell.String()))] = i
	}
	return idx
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = c.String()
	}
	return cells
}

func cellAt(cells []string, idx columnIndex, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func parseRow(cells []string, idx columnIndex) (Range, bool) {
	street := strings.ToUpper(cellAt(cells, idx, "STREET"))
	if street == "" {
		return Range{}, false
	}

	lo, _ := strconv.Atoi(cellAt(cells, idx, "BLDG_LO"))
	hi, _ := strconv.Atoi(cellAt(cells, idx, "BLDG_HI"))
	if hi == 0 {
		hi = lo
	}

	parity := strings.ToUpper(cellAt(cells, idx, "PARITY"))
	if parity != "O" && parity != "E" {
		parity = "A"
	}

	r := Range{
		StreetName: street,
		BldgLo:     lo,
		BldgHi:     hi,
		Parity:     parity,
		Zip5:       cellAt(cells, idx, "ZIP5"),
		City:       strings.ToUpper(cellAt(cells, idx, "CITY")),
		State:      strings.ToUpper(cellAt(cells, idx, "STATE")),
		Districts:  make(map[string]string),
	}
	for col := range headerDistrictColumns() {
		if code := cellAt(cells, idx, strings.ToUpper(col)); code != "" {
			r.Districts[col] = code
		}
	}
	return r, true
}

func headerDistrictColumns() map[string]bool {
	out := make(map[string]bool, len(districtColumns))
	for _, col := range districtColumns {
		out[col] = true
	}
	return out
}
