package menu

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// csvHeader is the column layout shared by import and export.
var csvHeader = []string{"name", "category", "price", "is_available"}

// ReadCSV parses catalogue rows from r. The first row must be the header
// produced by WriteCSV. Rows with an empty name or an unparseable price are
// rejected with the offending line number.
func ReadCSV(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if len(header) != len(csvHeader) {
		return nil, errors.Errorf("expected %d columns, got %d", len(csvHeader), len(header))
	}

	var items []Item
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, errors.Errorf("line %d: empty item name", line)
		}

		price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: price", line)
		}
		if price.IsNegative() {
			return nil, errors.Errorf("line %d: negative price", line)
		}

		items = append(items, Item{
			Name:      name,
			Category:  strings.TrimSpace(record[1]),
			Price:     price,
			Available: parseBool(record[3]),
		})
	}

	return items, nil
}

// WriteCSV writes the catalogue to w in the import format.
func WriteCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write header")
	}

	for _, item := range items {
		record := []string{
			item.Name,
			item.Category,
			item.Price.StringFixed(2),
			strconv.FormatBool(item.Available),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write item %q", item.Name)
		}
	}

	cw.Flush()
	return cw.Error()
}

// parseBool accepts the truthy spellings found in exported spreadsheets.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
