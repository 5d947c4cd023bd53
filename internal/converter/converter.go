package converter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/weak-head/esb-ha/internal/esb"
	"github.com/weak-head/esb-ha/internal/hass"
	"github.com/weak-head/esb-ha/internal/logger"
)

const (
	// readDateLayout is the ESB interval end time, day first.
	readDateLayout = "02-01-2006 15:04"

	// stateTimeLayout is the Home Assistant state timestamp.
	stateTimeLayout = "2006-01-02 15:04:05"
)

var (
	// ErrNoRows happens when there is nothing to convert.
	ErrNoRows = errors.New("no rows to convert")

	// ErrInvalidReadValue happens when the consumption is not a number.
	ErrInvalidReadValue = errors.New("invalid read value")
)

// RowError describes a row that could not be converted.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v: %s %q", e.Line, e.Err, e.Column, e.Value)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a conversion.
type Result struct {
	// Records hold one record per converted row, in row order.
	Records []hass.SensorRecord

	// Skipped hold the rows that were left out.
	Skipped []*RowError

	// VerbatimTimestamps counts records whose read date
	// could not be parsed and was carried over as is.
	VerbatimTimestamps int
}

// converter maps interval readings to sensor records.
type converter struct {
	log logger.Log
}

// NewConverter creates a new reading converter.
func NewConverter(log logger.Log) (*converter, error) {
	return &converter{
		log: log.WithField(logger.FieldPackage, "converter"),
	}, nil
}

// Convert maps every reading to a sensor record.
// Readings that can't be converted are skipped and reported in the result,
// they never fail the conversion. Convert fails only when there are no rows.
func (c *converter) Convert(rows []esb.Reading) (*Result, error) {
	log := c.log.WithField(logger.FieldFunction, "converter.Convert")

	if len(rows) == 0 {
		log.Error(ErrNoRows, "Nothing to convert.")
		return nil, ErrNoRows
	}

	res := &Result{
		Records: make([]hass.SensorRecord, 0, len(rows)),
	}
	for _, row := range rows {
		record, verbatim, err := convertRow(row)
		if err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				rowErr = &RowError{Line: row.Line, Err: err}
			}
			log.WithField("line", row.Line).Warnf("Skipping invalid row: %v.", rowErr)
			res.Skipped = append(res.Skipped, rowErr)
			continue
		}

		if verbatim {
			log.WithField("line", row.Line).Debug("Read date kept verbatim.")
			res.VerbatimTimestamps++
		}
		res.Records = append(res.Records, record)
	}

	log.WithFields(logger.Fields{
		"converted": len(res.Records),
		"skipped":   len(res.Skipped),
	}).Info("Readings have been converted.")
	return res, nil
}

// parseReadValue parses a decimal consumption value.
// Hexadecimal floats are rejected.
func parseReadValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s, 64)
}

// convertRow builds the sensor record of a single reading.
// The boolean result reports that the read date was carried over unparsed.
func convertRow(row esb.Reading) (hass.SensorRecord, bool, error) {
	consumption := 0.0
	if row.HasReadValue {
		v, parseErr := parseReadValue(row.ReadValue)
		// Out of range values come back as ±Inf or 0 and are kept.
		if parseErr != nil && !errors.Is(parseErr, strconv.ErrRange) {
			return hass.SensorRecord{}, false, &RowError{
				Line:   row.Line,
				Column: esb.ColumnReadValue,
				Value:  row.ReadValue,
				Err:    ErrInvalidReadValue,
			}
		}
		consumption = v
	}

	stamp, ok := NormalizeTimestamp(row.ReadDate)

	return hass.SensorRecord{
		EntityID: hass.EntityID,
		State:    FormatState(consumption),
		Attributes: hass.Attributes{
			UnitOfMeasurement: hass.UnitOfMeasurement,
			FriendlyName:      hass.FriendlyName,
			ReadDate:          row.ReadDate,
			MPRN:              row.MPRN,
			MeterSerial:       row.MeterSerial,
			ReadType:          row.ReadType,
		},
		LastChanged: stamp,
		LastUpdated: stamp,
	}, !ok, nil
}
