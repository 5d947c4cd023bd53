package converter

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// NormalizeTimestamp rewrites a "DD-MM-YYYY HH:MM" read date as "YYYY-MM-DD HH:MM:SS".
// Anything else is returned unchanged with ok set to false.
func NormalizeTimestamp(readDate string) (stamp string, ok bool) {
	t, err := time.Parse(readDateLayout, readDate)
	if err != nil {
		return readDate, false
	}
	return t.Format(stateTimeLayout), true
}

// FormatState renders a consumption value as the sensor state.
//
// The shortest representation that round-trips is used, and integral values
// keep a trailing ".0", so 1 renders as "1.0" and 0.45 as "0.45".
// Magnitudes below 1e-4 or from 1e16 up switch to exponent notation.
func FormatState(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
