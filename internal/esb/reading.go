// Package esb reads ESB Networks smart-meter interval exports.
package esb

// Column names of the ESB interval export header.
const (
	ColumnReadDate    = "Read Date and End Time"
	ColumnReadValue   = "Read Value"
	ColumnMPRN        = "MPRN"
	ColumnMeterSerial = "Meter Serial Number"
	ColumnReadType    = "Read Type"
)

// Reading is a single interval reading row.
//
// Columns missing from the header, or cells missing from a short row,
// are left empty. HasReadValue tells an absent Read Value apart from an empty one.
type Reading struct {
	// Line is the 1-based line the row starts on in the source file.
	Line int

	ReadDate     string
	ReadValue    string
	HasReadValue bool
	MPRN         string
	MeterSerial  string
	ReadType     string
}
