package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/weak-head/esb-ha/internal/config"
	"github.com/weak-head/esb-ha/internal/converter"
	"github.com/weak-head/esb-ha/internal/esb"
	"github.com/weak-head/esb-ha/internal/hass"
	"github.com/weak-head/esb-ha/internal/logger"
	"github.com/weak-head/esb-ha/internal/metrics"
	"github.com/weak-head/esb-ha/internal/processor"
	"github.com/weak-head/esb-ha/internal/publish"
	"github.com/weak-head/esb-ha/internal/sleeper"
	"github.com/weak-head/esb-ha/internal/storage"
	"github.com/weak-head/esb-ha/internal/stream"
	"github.com/weak-head/esb-ha/internal/summary"
)

const (
	retryInitialSleep = 500 * time.Millisecond
	retryMaxSleep     = 5 * time.Second
)

// reported is a failure whose status line has already been printed.
type reported struct {
	error
}

func (r reported) Unwrap() error {
	return r.error
}

type runner interface {
	Run(ctx context.Context, source string) (*processor.Report, error)
}

type cli struct {
	cfg   cfg
	flags flags
}

func (c *cli) initConfig(cmd *cobra.Command, args []string) error {
	path := c.flags.configFile
	if path == "" {
		path = os.Getenv(envConfigFile)
	}

	conf := defaultConfig()
	if err := config.Load(path, envPrefix, &conf); err != nil {
		return err
	}

	fs := cmd.Flags()
	if fs.Changed("output") {
		conf.Output = c.flags.output
	}
	if fs.Changed("log-level") {
		conf.Log.Level = c.flags.logLevel
	}
	if fs.Changed("log-format") {
		conf.Log.Format = c.flags.logFormat
	}
	if fs.Changed("summary") {
		conf.Summary = c.flags.summary
	}
	if fs.Changed("metrics-file") {
		conf.Metrics.Textfile = c.flags.metricsFile
	}

	c.cfg = conf
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	source := args[0]

	log, err := logger.New(c.cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log = log.WithField(logger.FieldRun, uuid.NewString())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter, err := metrics.NewReporter(metrics.ServiceInfo{Source: filepath.Base(source)})
	if err != nil {
		return err
	}

	p, closeSinks, err := c.newProcessor(reporter, log)
	if err != nil {
		printFailure(out, source, err)
		return reported{err}
	}
	defer closeSinks()

	report, runErr := p.Run(ctx, source)

	if err := c.exportMetrics(reporter); err != nil {
		log.Error(err, "Failed to export the run metrics.")
	}

	if report != nil {
		for _, skipped := range report.Skipped {
			fmt.Fprintf(out, "Skipping invalid row: %v\n", skipped)
		}
	}

	if runErr != nil {
		printFailure(out, source, runErr)
		return reported{runErr}
	}

	fmt.Fprintf(out, "Converted %d rows to: %s\n", report.Converted, report.Destination)

	if c.cfg.Summary {
		summary.Render(out, summary.Summarize(report.Records))
	}
	return nil
}

// newProcessor wires the processor and the sinks enabled by the configuration.
// The returned function releases the sinks.
func (c *cli) newProcessor(reporter processor.Reporter, log logger.Log) (runner, func(), error) {
	closers := []func() error{}
	closeSinks := func() {
		for _, fn := range closers {
			if err := fn(); err != nil {
				log.Error(err, "Failed to close a sink.")
			}
		}
	}

	reader, err := esb.NewReader(log)
	if err != nil {
		return nil, nil, err
	}

	conv, err := converter.NewConverter(log)
	if err != nil {
		return nil, nil, err
	}

	writer, err := hass.NewWriter(log)
	if err != nil {
		return nil, nil, err
	}

	opts := []processor.Option{}

	if c.cfg.Stream.Enabled() {
		w, err := stream.NewWriter(c.cfg.Stream)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create stream writer: %w", err)
		}
		closers = append(closers, w.Close)

		s, err := sleeper.NewExponentialSleeper(retryInitialSleep, retryMaxSleep)
		if err != nil {
			closeSinks()
			return nil, nil, err
		}

		pub, err := publish.NewPublisher(w, s, c.cfg.Stream.BatchSize, log)
		if err != nil {
			closeSinks()
			return nil, nil, err
		}
		opts = append(opts, processor.WithPublisher(pub))
	}

	if c.cfg.Storage.Enabled() {
		st, err := storage.NewMinioStorage(c.cfg.Storage, log)
		if err != nil {
			closeSinks()
			return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		opts = append(opts, processor.WithStorage(st))
	}

	p, err := processor.NewProcessor(
		processor.ProcessorConfig{
			OutputDir: c.cfg.Output,
			Bucket:    c.cfg.Storage.Bucket,
		},
		reader,
		conv,
		writer,
		reporter,
		log,
		opts...,
	)
	if err != nil {
		closeSinks()
		return nil, nil, err
	}

	return p, closeSinks, nil
}

func (c *cli) exportMetrics(reporter metrics.CollectorSet) error {
	if c.cfg.Metrics.Textfile == "" {
		return nil
	}

	e, err := metrics.NewTextfileExporter(c.cfg.Metrics, reporter)
	if err != nil {
		return err
	}
	return e.Export()
}

func printFailure(out io.Writer, source string, err error) {
	switch {
	case errors.Is(err, processor.ErrSourceNotFound):
		fmt.Fprintf(out, "CSV file not found: %s\n", source)
	case errors.Is(err, processor.ErrEmptySource):
		fmt.Fprintln(out, "CSV file is empty")
	default:
		fmt.Fprintf(out, "Conversion failed: %v\n", err)
	}
}

func newCommand() *cobra.Command {
	cli := &cli{}
	cmd := &cobra.Command{
		Use:           "esb-ha <csv-file>",
		Short:         "Convert an ESB smart meter CSV export to Home Assistant sensor states",
		Args:          cobra.ExactArgs(1),
		PreRunE:       cli.initConfig,
		RunE:          cli.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fs := cmd.Flags()
	fs.StringVarP(&cli.flags.configFile, "config", "c", "", "YAML configuration file (env "+envConfigFile+")")
	fs.StringVarP(&cli.flags.output, "output", "o", defaultOutputDir, "Output directory")
	fs.StringVar(&cli.flags.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	fs.StringVar(&cli.flags.logFormat, "log-format", "text", "Log format: text or json")
	fs.BoolVar(&cli.flags.summary, "summary", false, "Print a per meter summary of the converted readings")
	fs.StringVar(&cli.flags.metricsFile, "metrics-file", "", "Write run metrics to this node exporter textfile")

	return cmd
}

func main() {
	cmd := newCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		var r reported
		if !errors.As(err, &r) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
