// Package output writes transcription results as a CSV table.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Header is the fixed first row of every output file.
var Header = []string{"audio_file_name", "transcription"}

// Writer appends transcript rows to a CSV file. Every row is flushed to
// the file as soon as it is written, so an interrupted run leaves a valid
// prefix behind.
type Writer struct {
	f    *os.File
	csv  *csv.Writer
	rows int
}

// Open creates path, replacing any existing file.
func Open(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("output: open %s: %w", path, err)
	}
	return &Writer{f: f, csv: csv.NewWriter(f)}, nil
}

// WriteHeader writes the column names.
func (w *Writer) WriteHeader() error {
	return w.write(Header)
}

// WriteRow writes one transcript row.
func (w *Writer) WriteRow(fileName, transcript string) error {
	if err := w.write([]string{fileName, transcript}); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (w *Writer) Rows() int { return w.rows }

// Path returns the file being written.
func (w *Writer) Path() string { return w.f.Name() }

func (w *Writer) write(record []string) error {
	if w.f == nil {
		return fmt.Errorf("output: write to closed writer")
	}
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("output: write row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("output: flush: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Calling Close twice is a no-op.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	w.csv.Flush()
	flushErr := w.csv.Error()
	closeErr := w.f.Close()
	w.f = nil
	if flushErr != nil {
		return fmt.Errorf("output: flush: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("output: close: %w", closeErr)
	}
	return nil
}
