// Package output serializes collected records.
package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pevans/noticias/scraper"
)

// ErrNothingToSave is returned when there are no records to write.
var ErrNothingToSave = errors.New("nothing to save")

// WriteCSV writes a header row followed by one row per record. Fields
// containing commas, quotes or newlines are quoted.
func WriteCSV(w io.Writer, records scraper.ResultSet) error {
	if len(records) == 0 {
		return ErrNothingToSave
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(scraper.RecordHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record.Fields()); err != nil {
			return fmt.Errorf("failed to write record %s: %w", record.Link, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// SaveCSV writes records to the file at path. No file is created when
// records is empty.
func SaveCSV(path string, records scraper.ResultSet) error {
	if len(records) == 0 {
		return ErrNothingToSave
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
