package hass

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/weak-head/esb-ha/internal/logger"
)

// Encode writes records to w as an indented JSON array.
func Encode(w io.Writer, records []SensorRecord) error {
	if records == nil {
		records = []SensorRecord{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// writer
type writer struct {
	log logger.Log
}

// NewWriter creates a new sensor document writer.
func NewWriter(log logger.Log) (*writer, error) {
	return &writer{
		log: log.WithField(logger.FieldPackage, "hass"),
	}, nil
}

// Write replaces the file at path with the JSON document of records.
// The document is staged next to path and renamed into place,
// so path either holds the complete document or is left untouched.
func (w *writer) Write(records []SensorRecord, path string) (err error) {
	log := w.log.WithFields(logger.Fields{
		logger.FieldFunction: "writer.Write",
		"destination":        path,
	})

	buf := new(bytes.Buffer)
	if err := Encode(buf, records); err != nil {
		log.Error(err, "Failed to encode the sensor records.")
		return fmt.Errorf("failed to encode records: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		log.Error(err, "Failed to create the staging file.")
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		log.Error(err, "Failed to write the staging file.")
		return fmt.Errorf("failed to write staging file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		log.Error(err, "Failed to sync the staging file.")
		return fmt.Errorf("failed to sync staging file: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		log.Error(err, "Failed to set the staging file mode.")
		return fmt.Errorf("failed to set staging file mode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		log.Error(err, "Failed to close the staging file.")
		return fmt.Errorf("failed to close staging file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		log.Error(err, "Failed to move the document into place.")
		return fmt.Errorf("failed to rename staging file: %w", err)
	}

	log.WithField("records", len(records)).Info("Sensor document has been written.")
	return nil
}
