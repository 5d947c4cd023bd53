package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/weak-head/esb-ha/internal/converter"
	"github.com/weak-head/esb-ha/internal/esb"
	"github.com/weak-head/esb-ha/internal/hass"
	"github.com/weak-head/esb-ha/internal/logger"
)

var (
	// ErrNoReaderProvided happens when reader is not provided.
	ErrNoReaderProvided = errors.New("no reader provided")

	// ErrNoConverterProvided happens when converter is not provided.
	ErrNoConverterProvided = errors.New("no converter provided")

	// ErrNoWriterProvided happens when writer is not provided.
	ErrNoWriterProvided = errors.New("no writer provided")

	// ErrNoReporterProvided happens when reporter is not provided.
	ErrNoReporterProvided = errors.New("no reporter provided")

	// ErrSourceNotFound happens when the source file does not exist.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrEmptySource happens when the source file has no data rows.
	ErrEmptySource = errors.New("source file is empty")
)

const (
	contentTypeJSON = "application/json"

	outputSuffix = "_ha.json"
)

// Failure kinds reported to the Reporter.
const (
	failureSourceNotFound = "source_not_found"
	failureEmptySource    = "empty_source"
	failureRead           = "read"
	failureOutput         = "output"
	failurePublish        = "publish"
	failureUpload         = "upload"

	skipInvalidReadValue = "invalid_read_value"
	skipOther            = "other"
)

// ProcessorConfig
type ProcessorConfig struct {
	// OutputDir is where the sensor document is written.
	OutputDir string

	// Bucket receives a copy of the document when Storage is provided.
	Bucket string
}

// Reader reads the interval rows of an export.
type Reader interface {
	ReadFile(path string) ([]esb.Reading, error)
}

// Converter is the interface that wraps the basic Convert method.
//
// Convert maps the rows to sensor records, skipping the rows it can't map.
// Convert must return a non-nil error only if there is nothing to convert.
type Converter interface {
	Convert(rows []esb.Reading) (*converter.Result, error)
}

// Writer persists the sensor document.
type Writer interface {
	Write(records []hass.SensorRecord, path string) error
}

// Publisher streams the sensor records.
type Publisher interface {
	Publish(ctx context.Context, records []hass.SensorRecord) error
}

// Storage
type Storage interface {
	Store(ctx context.Context, bucket string, objectName string, objectBytes []byte, contentType string) error
}

// Reporter collects the outcome of conversion runs.
type Reporter interface {
	RowsRead(n int)
	RowsConverted(n int)
	RowSkipped(reason string)
	VerbatimTimestamps(n int)
	ConversionFinished(seconds float64)
	RunFailed(failure string)
}

// Report describes a conversion run.
type Report struct {
	Source      string
	Destination string

	Rows               int
	Converted          int
	Skipped            []*converter.RowError
	VerbatimTimestamps int

	Records  []hass.SensorRecord
	Duration time.Duration
}

// processor turns an interval export into a sensor document
// and hands the result to the optional sinks.
type processor struct {
	config ProcessorConfig

	reader    Reader
	converter Converter
	writer    Writer
	reporter  Reporter

	publisher Publisher
	storage   Storage

	log logger.Log
}

// Option configures an optional sink of the processor.
type Option func(p *processor)

// WithPublisher streams every converted record.
func WithPublisher(publisher Publisher) Option {
	return func(p *processor) {
		p.publisher = publisher
	}
}

// WithStorage uploads the written document to config.Bucket.
func WithStorage(storage Storage) Option {
	return func(p *processor) {
		p.storage = storage
	}
}

// NewProcessor creates a new export processor.
// It returns an error if the creation failed.
func NewProcessor(
	config ProcessorConfig,
	reader Reader,
	converter Converter,
	writer Writer,
	reporter Reporter,
	log logger.Log,
	opts ...Option,
) (*processor, error) {
	if reader == nil {
		return nil, ErrNoReaderProvided
	}

	if converter == nil {
		return nil, ErrNoConverterProvided
	}

	if writer == nil {
		return nil, ErrNoWriterProvided
	}

	if reporter == nil {
		return nil, ErrNoReporterProvided
	}

	p := &processor{
		config:    config,
		reader:    reader,
		converter: converter,
		writer:    writer,
		reporter:  reporter,
		log:       log.WithField(logger.FieldPackage, "processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run converts the export at source into a sensor document in the output directory.
//
// Rows that can't be converted are left out and listed in the report.
// Run fails when the source is missing or has no rows, or when the document
// or one of the sinks can't be written. A document is never written partially.
// Once the rows are converted, the report is returned even if the run fails.
func (p *processor) Run(ctx context.Context, source string) (*Report, error) {
	log := p.log.WithFields(logger.Fields{
		logger.FieldFunction: "processor.Run",
		"source":             source,
	})
	log.Info("Processing a new export.")
	started := time.Now()

	if info, err := os.Stat(source); err != nil || !info.Mode().IsRegular() {
		log.Error(ErrSourceNotFound, "Failed to find the export.")
		p.reporter.RunFailed(failureSourceNotFound)
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}

	if err := os.MkdirAll(p.config.OutputDir, 0o755); err != nil {
		log.Error(err, "Failed to create the output directory.")
		p.reporter.RunFailed(failureOutput)
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	rows, err := p.reader.ReadFile(source)
	if err != nil {
		log.Error(err, "Failed to read the export.")
		p.reporter.RunFailed(failureRead)
		return nil, err
	}
	p.reporter.RowsRead(len(rows))

	if len(rows) == 0 {
		log.Error(ErrEmptySource, "Export has no rows.")
		p.reporter.RunFailed(failureEmptySource)
		return nil, ErrEmptySource
	}

	res, err := p.converter.Convert(rows)
	if err != nil {
		log.Error(err, "Failed to convert the export.")
		p.reporter.RunFailed(failureEmptySource)
		return nil, err
	}
	p.reportConversion(res)

	destination := Destination(source, p.config.OutputDir)
	report := &Report{
		Source:             source,
		Destination:        destination,
		Rows:               len(rows),
		Converted:          len(res.Records),
		Skipped:            res.Skipped,
		VerbatimTimestamps: res.VerbatimTimestamps,
		Records:            res.Records,
	}

	if err := p.writer.Write(res.Records, destination); err != nil {
		log.Error(err, "Failed to write the sensor document.")
		p.reporter.RunFailed(failureOutput)
		return report, err
	}
	p.reporter.ConversionFinished(time.Since(started).Seconds())

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, res.Records); err != nil {
			log.Error(err, "Failed to publish the sensor records.")
			p.reporter.RunFailed(failurePublish)
			return report, fmt.Errorf("failed to publish records: %w", err)
		}
	}

	if p.storage != nil {
		if err := p.upload(ctx, destination); err != nil {
			log.Error(err, "Failed to upload the sensor document.")
			p.reporter.RunFailed(failureUpload)
			return report, fmt.Errorf("failed to upload document: %w", err)
		}
	}

	log.WithFields(logger.Fields{
		"destination": destination,
		"converted":   len(res.Records),
		"skipped":     len(res.Skipped),
	}).Info("Export has been processed.")

	report.Duration = time.Since(started)
	return report, nil
}

func (p *processor) reportConversion(res *converter.Result) {
	p.reporter.RowsConverted(len(res.Records))
	p.reporter.VerbatimTimestamps(res.VerbatimTimestamps)
	for _, skipped := range res.Skipped {
		if errors.Is(skipped, converter.ErrInvalidReadValue) {
			p.reporter.RowSkipped(skipInvalidReadValue)
		} else {
			p.reporter.RowSkipped(skipOther)
		}
	}
}

func (p *processor) upload(ctx context.Context, destination string) error {
	document, err := os.ReadFile(destination)
	if err != nil {
		return err
	}
	return p.storage.Store(ctx, p.config.Bucket, filepath.Base(destination), document, contentTypeJSON)
}

// Destination is the sensor document path of the export at source:
// the export base name without its extension, suffixed with "_ha.json".
func Destination(source, outputDir string) string {
	base := filepath.Base(source)
	if ext := filepath.Ext(base); ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(outputDir, base+outputSuffix)
}
