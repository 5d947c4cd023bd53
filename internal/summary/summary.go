// Package summary aggregates converted readings per meter for the console.
package summary

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/weak-head/esb-ha/internal/hass"
)

// Meter totals the readings of a single meter.
type Meter struct {
	MPRN        string
	MeterSerial string
	Readings    int
	Total       float64
	FirstRead   string
	LastRead    string
}

// Summarize groups records by MPRN and meter serial, in order of first appearance.
// The first and last read dates follow the record order.
func Summarize(records []hass.SensorRecord) []Meter {
	meters := []Meter{}
	index := map[[2]string]int{}

	for _, r := range records {
		key := [2]string{r.Attributes.MPRN, r.Attributes.MeterSerial}
		i, ok := index[key]
		if !ok {
			i = len(meters)
			index[key] = i
			meters = append(meters, Meter{
				MPRN:        r.Attributes.MPRN,
				MeterSerial: r.Attributes.MeterSerial,
				FirstRead:   r.Attributes.ReadDate,
			})
		}

		m := &meters[i]
		m.Readings++
		m.LastRead = r.Attributes.ReadDate
		// States are rendered from parsed floats, so they always parse back.
		if v, err := strconv.ParseFloat(r.State, 64); err == nil {
			m.Total += v
		}
	}

	return meters
}

// Render writes the meters as a table.
func Render(w io.Writer, meters []Meter) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"MPRN", "Meter Serial", "Readings", "Total (kW)", "First Read", "Last Read"})
	table.SetAutoWrapText(false)

	for _, m := range meters {
		table.Append([]string{
			m.MPRN,
			m.MeterSerial,
			strconv.Itoa(m.Readings),
			strconv.FormatFloat(m.Total, 'f', 3, 64),
			m.FirstRead,
			m.LastRead,
		})
	}

	table.Render()
}
