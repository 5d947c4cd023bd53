package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "esb_ha"

// ErrNoTextfileProvided happens when the exporter has no destination.
var ErrNoTextfileProvided = errors.New("no metrics textfile provided")

// CollectorSet exposes the collectors of a metric source.
type CollectorSet interface {
	Collectors() []prometheus.Collector
}

// reporter collects the metrics of a conversion run.
type reporter struct {
	info ServiceInfo

	rowsRead           *prometheus.CounterVec
	rowsConverted      *prometheus.CounterVec
	rowsSkipped        *prometheus.CounterVec
	verbatimTimestamps *prometheus.CounterVec
	conversionDuration *prometheus.SummaryVec
	runFailures        *prometheus.CounterVec
}

// NewReporter
func NewReporter(info ServiceInfo) (*reporter, error) {
	return &reporter{
		info: info,
		rowsRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_read_total",
				Help:      "Number of interval rows read from the export.",
			},
			[]string{"source"},
		),
		rowsConverted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_converted_total",
				Help:      "Number of interval rows converted to sensor records.",
			},
			[]string{"source"},
		),
		rowsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_skipped_total",
				Help:      "Number of interval rows left out of the output.",
			},
			[]string{"source", "reason"},
		),
		verbatimTimestamps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verbatim_timestamps_total",
				Help:      "Number of read dates carried over without normalisation.",
			},
			[]string{"source"},
		),
		conversionDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace:  namespace,
				Name:       "conversion_duration_seconds",
				Help:       "Conversion duration distributions.",
				Objectives: map[float64]float64{},
			},
			[]string{"source"},
		),
		runFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "run_errors_total",
				Help:      "Number of failed conversion runs.",
			},
			[]string{"source", "failure"},
		),
	}, nil
}

// Collectors returns every collector of the reporter.
func (r *reporter) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.rowsRead,
		r.rowsConverted,
		r.rowsSkipped,
		r.verbatimTimestamps,
		r.conversionDuration,
		r.runFailures,
	}
}

// RowsRead
func (r *reporter) RowsRead(n int) {
	r.rowsRead.WithLabelValues(r.info.Source).Add(float64(n))
}

// RowsConverted
func (r *reporter) RowsConverted(n int) {
	r.rowsConverted.WithLabelValues(r.info.Source).Add(float64(n))
}

// RowSkipped
func (r *reporter) RowSkipped(reason string) {
	r.rowsSkipped.WithLabelValues(r.info.Source, reason).Inc()
}

// VerbatimTimestamps
func (r *reporter) VerbatimTimestamps(n int) {
	r.verbatimTimestamps.WithLabelValues(r.info.Source).Add(float64(n))
}

// ConversionFinished
func (r *reporter) ConversionFinished(seconds float64) {
	r.conversionDuration.WithLabelValues(r.info.Source).Observe(seconds)
}

// RunFailed
func (r *reporter) RunFailed(failure string) {
	r.runFailures.WithLabelValues(r.info.Source, failure).Inc()
}

// textfileExporter writes the collected metrics in the text exposition format.
type textfileExporter struct {
	registry *prometheus.Registry
	conf     Config
}

// NewTextfileExporter
func NewTextfileExporter(conf Config, set CollectorSet) (*textfileExporter, error) {
	if conf.Textfile == "" {
		return nil, ErrNoTextfileProvided
	}

	e := &textfileExporter{
		registry: prometheus.NewRegistry(),
		conf:     conf,
	}

	for _, c := range append(
		set.Collectors(),
		collectors.NewBuildInfoCollector(),
	) {
		if err := e.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Export replaces the textfile with the current metric values.
func (e *textfileExporter) Export() error {
	return prometheus.WriteToTextfile(e.conf.Textfile, e.registry)
}
