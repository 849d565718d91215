// Package addrfile reads the CSV and XLSX address files batch jobs are
// submitted from (§6.1): one address per row, parsed into model.Address
// with zero validation — rows are normalized downstream by addrmodel.Parse
// and rejected there if unusable, the same "parse never fails" contract the
// pipeline applies to one-off requests.
package addrfile

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/nysenate/geodistrict/internal/model"
)

// Row is one line of an address batch file. Column headers are matched
// case-insensitively; a file missing a column simply leaves that field
// blank on every row.
type Row struct {
	Addr1 string `csv:"addr1"`
	Addr2 string `csv:"addr2"`
	City  string `csv:"city"`
	State string `csv:"state"`
	Zip5  string `csv:"zip5"`
	Zip4  string `csv:"zip4"`
}

// ToAddress converts a parsed row into the Address type the pipeline takes.
func (r Row) ToAddress() model.Address {
	return model.Address{
		Addr1: strings.TrimSpace(r.Addr1),
		Addr2: strings.TrimSpace(r.Addr2),
		City:  strings.TrimSpace(r.City),
		State: strings.TrimSpace(r.State),
		Zip5:  strings.TrimSpace(r.Zip5),
		Zip4:  strings.TrimSpace(r.Zip4),
	}
}

// ParseCSV reads a headered CSV address file and returns one model.Address
// per data row, in file order.
func ParseCSV(path string) ([]model.Address, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "addrfile: open csv")
	}
	defer f.Close()

	return parseCSVReader(f)
}

func parseCSVReader(r io.Reader) ([]model.Address, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "addrfile: read csv header")
	}

	var addrs []model.Address
	for {
		var row Row
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, eris.Wrap(err, "addrfile: decode csv row")
		}
		addrs = append(addrs, row.ToAddress())
	}
	return addrs, nil
}

// ParseXLSX reads the first sheet of an XLSX address file the same way
// ParseCSV reads a CSV one: header row names the columns, unrecognized
// columns are ignored.
func ParseXLSX(path string) ([]model.Address, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "addrfile: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("addrfile: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	idx := headerIndex(sheet.Rows[0])

	var addrs []model.Address
	for _, row := range sheet.Rows[1:] {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		addrs = append(addrs, model.Address{
			Addr1: cellAt(cells, idx, "ADDR1"),
			Addr2: cellAt(cells, idx, "ADDR2"),
			City:  cellAt(cells, idx, "CITY"),
			State: cellAt(cells, idx, "STATE"),
			Zip5:  cellAt(cells, idx, "ZIP5"),
			Zip4:  cellAt(cells, idx, "ZIP4"),
		})
	}
	return addrs, nil
}

func headerIndex(row *xlsx.Row) map[string]int {
	idx := make(map[string]int, len(row.Cells))
	for i, cell := range row.Cells {
		idx[strings.ToUpper(strings.TrimSpace(cell.String()))] = i
	}
	return idx
}

func cellAt(cells []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// Parse dispatches to ParseCSV or ParseXLSX based on path's extension.
func Parse(path string) ([]model.Address, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".csv"):
		return ParseCSV(path)
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return ParseXLSX(path)
	default:
		return nil, eris.Errorf("addrfile: unrecognized file extension: %s", path)
	}
}
