package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestReporterCounts(t *testing.T) {
	r, err := NewReporter(ServiceInfo{Source: "export"})
	require.NoError(t, err)

	r.RowsRead(4)
	r.RowsConverted(2)
	r.RowSkipped("invalid_read_value")
	r.RowSkipped("invalid_read_value")
	r.VerbatimTimestamps(1)
	r.RunFailed("sink")

	require.Equal(t, 4.0, testutil.ToFloat64(r.rowsRead))
	require.Equal(t, 2.0, testutil.ToFloat64(r.rowsConverted))
	require.Equal(t, 2.0, testutil.ToFloat64(r.rowsSkipped.WithLabelValues("export", "invalid_read_value")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.verbatimTimestamps))
	require.Equal(t, 1.0, testutil.ToFloat64(r.runFailures.WithLabelValues("export", "sink")))
}

func TestTextfileExporter(t *testing.T) {
	r, err := NewReporter(ServiceInfo{Source: "export"})
	require.NoError(t, err)

	_, err = NewTextfileExporter(Config{}, r)
	require.Equal(t, ErrNoTextfileProvided, err)

	path := filepath.Join(t.TempDir(), "esb_ha.prom")
	e, err := NewTextfileExporter(Config{Textfile: path}, r)
	require.NoError(t, err)

	r.RowsRead(3)
	r.RowsConverted(3)
	r.ConversionFinished(0.25)
	require.NoError(t, e.Export())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	require.True(t, strings.Contains(text, `esb_ha_rows_read_total{source="export"} 3`))
	require.True(t, strings.Contains(text, `esb_ha_rows_converted_total{source="export"} 3`))
	require.True(t, strings.Contains(text, `esb_ha_conversion_duration_seconds_count{source="export"} 1`))
}
