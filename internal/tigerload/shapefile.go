package tigerload

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Row is one parsed shapefile record: its district code, name, and WKB
// geometry, ready for a COPY load into geo.<product.Table>.
type Row struct {
	Code string
	Name string
	WKB  []byte
}

// ParseShapefile reads a shapefile and returns one Row per record, skipping
// records with no geometry or a code that normalizes to empty.
func ParseShapefile(shpPath string, product Product) ([]Row, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tigerload: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	codeIdx, hasCode := fieldIdx[strings.ToLower(product.CodeField)]
	nameIdx, hasName := fieldIdx[strings.ToLower(product.NameField)]

	var rows []Row
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			skipped++
			continue
		}

		wkb, err := EncodeWKB(shape)
		if err != nil || wkb == nil {
			skipped++
			continue
		}

		var code, name string
		if hasCode {
			code = attr(reader, codeIdx)
		}
		if hasName {
			name = attr(reader, nameIdx)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			skipped++
			continue
		}

		rows = append(rows, Row{Code: code, Name: name, WKB: wkb})
	}

	if skipped > 0 {
		zap.L().Debug("tigerload: skipped shapefile records",
			zap.String("product", string(product.Type)),
			zap.Int("skipped", skipped),
		)
	}

	return rows, nil
}

func attr(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}
