package esb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/weak-head/esb-ha/internal/logger"
)

const byteOrderMark = "\ufeff"

// reader
type reader struct {
	log logger.Log
}

// NewReader creates a new interval export reader.
func NewReader(log logger.Log) (*reader, error) {
	return &reader{
		log: log.WithField(logger.FieldPackage, "esb"),
	}, nil
}

// ReadFile reads every data row of the export at path.
// A file without a header or without data rows yields no readings and no error.
func (r *reader) ReadFile(path string) (readings []Reading, err error) {
	log := r.log.WithFields(logger.Fields{
		logger.FieldFunction: "reader.ReadFile",
		"source":             path,
	})

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing file: %w", closeErr)
		}
	}()

	readings, err = Read(file)
	if err != nil {
		log.Error(err, "Failed to read the interval export.")
		return nil, err
	}

	log.WithField("rows", len(readings)).Info("Read the interval export.")
	return readings, nil
}

// Read parses an interval export. The first record is the header.
func Read(src io.Reader) ([]Reading, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []Reading{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	cols := indexColumns(header)
	readings := []Reading{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row: %w", err)
		}

		line, _ := cr.FieldPos(0)
		readings = append(readings, cols.reading(line, row))
	}

	return readings, nil
}

// columns maps a recognised column name to its position in the header.
type columns map[string]int

func indexColumns(header []string) columns {
	cols := columns{}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, byteOrderMark)
		}
		// Later duplicates win.
		cols[name] = i
	}
	return cols
}

func (c columns) lookup(row []string, name string) (string, bool) {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

func (c columns) reading(line int, row []string) Reading {
	r := Reading{Line: line}
	r.ReadDate, _ = c.lookup(row, ColumnReadDate)
	r.ReadValue, r.HasReadValue = c.lookup(row, ColumnReadValue)
	r.MPRN, _ = c.lookup(row, ColumnMPRN)
	r.MeterSerial, _ = c.lookup(row, ColumnMeterSerial)
	r.ReadType, _ = c.lookup(row, ColumnReadType)
	return r
}
