package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"countprep/internal"
	"countprep/internal/config"
	"countprep/internal/container"
	"countprep/internal/errors"

	"github.com/spf13/cobra"
)

type options struct {
	envFile string
	raw     string
	devices string
	output  string
	table   string
	dryRun  bool
	skipDB  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger := internal.NewDefaultLogger()
		logger.Error("countprep failed: %v", err)
		logger.Sync()
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "countprep",
		Short: "Clean raw traffic counts and publish them to the database and a flat file",
		Long: `Load raw 15-minute traffic counts and the device registry, join them on the
device name, drop invalid rows and write the cleaned table to the database and
to a CSV (or .xlsx) file.

Configuration is read from .env and the environment:
- DATABASE_DRIVER (postgres|sqlite), DATABASE_URL or DATABASE_HOST/PORT/USER/PASSWORD/NAME
- DATABASE_TABLE (default: cleaned_data)
- RAW_DATA_PATH, DEVICE_LIST_PATH, OUTPUT_CSV_PATH
- RAW_KEY_COLUMN, DEVICE_KEY_COLUMN, CSV_DELIMITER
- LOG_LEVEL, LOG_FORMAT

Flags override the environment.

Example: countprep --raw counts.csv --devices devices.xlsx --output out/clean.csv --skip-db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Env file to load (default: .env when present)")
	cmd.Flags().StringVar(&opts.raw, "raw", "", "Raw counts file (overrides RAW_DATA_PATH)")
	cmd.Flags().StringVar(&opts.devices, "devices", "", "Device list file (overrides DEVICE_LIST_PATH)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Cleaned output file (overrides OUTPUT_CSV_PATH)")
	cmd.Flags().StringVar(&opts.table, "table", "", "Database table to replace (overrides DATABASE_TABLE)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Clean and summarize without writing any sink")
	cmd.Flags().BoolVar(&opts.skipDB, "skip-db", false, "Do not write the database sink")

	return cmd
}

func loadConfig(opts options) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.raw != "" {
		cfg.Paths.RawData = opts.raw
	}
	if opts.devices != "" {
		cfg.Paths.DeviceList = opts.devices
	}
	if opts.output != "" {
		cfg.Paths.OutputCSV = opts.output
	}
	if opts.table != "" {
		cfg.Database.Table = opts.table
	}
	return cfg, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level), cfg.Logging.Format)
	c, err := container.New(cfg, logger, container.Options{
		SkipDatabase: opts.skipDB,
		DryRun:       opts.dryRun,
	})
	if err != nil {
		return err
	}
	defer c.Shutdown()

	result, err := c.Pipeline.Run(ctx)
	if err != nil && errors.IsFatal(err) {
		return err
	}
	for _, failure := range result.SinkFailures {
		logger.Warn("sink %s was not updated: %v", failure.Sink, failure.Err)
	}
	return nil
}
