package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// EachCSVRow streams rows to fn with their 1-based line number. Rows may have
// any number of fields; a row the csv package cannot parse is handed to
// onBad and reading continues.
func EachCSVRow(r io.Reader, fn func(line int, row []string) error, onBad func(line int, err error)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if onBad != nil {
					onBad(parseErr.StartLine, err)
				}
				continue
			}
			return fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if err := fn(line, row); err != nil {
			return err
		}
	}
}
