// Package tabular reads and writes the CSV objects exchanged between pipeline steps.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tigerroll/ridership/internal/domain/model"
)

const utf8BOM = "\uFEFF"

// ReadCSV decodes a CSV document with a header row into a RawTable.
// A UTF-8 byte order mark is dropped. Header names are trimmed; cells are kept verbatim.
func ReadCSV(r io.Reader) (model.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return model.RawTable{}, nil
	}
	if err != nil {
		return model.RawTable{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := model.RawTable{Columns: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.RawTable{}, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// WriteCSV encodes columns and records as CSV.
func WriteCSV(w io.Writer, columns []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// Encode renders a table in columns order into a buffer ready for upload.
func Encode(table model.RawTable) (*bytes.Buffer, error) {
	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := make([]string, len(table.Columns))
		for i, c := range table.Columns {
			rec[i] = row[c]
		}
		records = append(records, rec)
	}
	buf := new(bytes.Buffer)
	if err := WriteCSV(buf, table.Columns, records); err != nil {
		return nil, err
	}
	return buf, nil
}
