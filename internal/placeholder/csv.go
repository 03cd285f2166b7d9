package placeholder

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV reads a mail-merge data source. The first row holds placeholder
// names; every following row becomes one collection in header order.
func ReadCSV(r io.Reader) ([]Collection, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("parse csv: %s", err)}
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
		if headers[i] == "" {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("csv column %d has an empty header", i+1)}
		}
	}

	rows := make([]Collection, 0, len(records)-1)
	for line, rec := range records[1:] {
		if len(rec) > len(headers) {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("csv row %d has %d fields, header has %d", line+2, len(rec), len(headers))}
		}
		s := NewSet()
		for j, h := range headers {
			if j < len(rec) {
				s.Set(h, rec[j])
			} else {
				s.Set(h, "")
			}
		}
		rows = append(rows, s)
	}
	return rows, nil
}
