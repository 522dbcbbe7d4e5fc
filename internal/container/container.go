package container

import (
	"countprep/adapters/db"
	"countprep/adapters/flatfile"
	"countprep/adapters/tabular"
	"countprep/app"
	"countprep/internal"
	"countprep/internal/config"
	"countprep/internal/errors"
	"countprep/ports"
)

// Options selects which sinks are wired and how the pipeline runs
type Options struct {
	SkipDatabase bool
	DryRun       bool
}

// Container holds all application dependencies for one run
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Inputs
	Loader ports.FrameLoader

	// Outputs, in write order
	Sinks []ports.Sink

	Pipeline *app.Pipeline
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger, opts Options) (*Container, error) {
	if cfg == nil {
		return nil, errors.InternalError("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	c.initLoader()
	c.initSinks(opts)
	c.initPipeline(opts)

	logger.Debug("Container initialized: %d sinks, database %s", len(c.Sinks), cfg.Database.Redacted())
	return c, nil
}

// initLoader initializes the tabular file loader
func (c *Container) initLoader() {
	c.Loader = tabular.NewLoader(c.Config.Paths.Delimiter, c.Logger)
}

// initSinks initializes the sinks, database before file
func (c *Container) initSinks(opts Options) {
	c.Sinks = nil
	if !opts.SkipDatabase {
		c.Sinks = append(c.Sinks, db.NewTableSink(c.Config.Database, c.Logger))
	} else {
		c.Logger.Info("Database sink disabled")
	}
	c.Sinks = append(c.Sinks, flatfile.NewWriter(c.Config.Paths.OutputCSV, c.Config.Paths.Delimiter, c.Logger))
}

func (c *Container) initPipeline(opts Options) {
	c.Pipeline = app.NewPipeline(c.Loader, c.Sinks, app.PipelineOptions{
		RawPath:    c.Config.Paths.RawData,
		DevicePath: c.Config.Paths.DeviceList,
		RawKey:     c.Config.Columns.RawKey,
		DeviceKey:  c.Config.Columns.DeviceKey,
		DryRun:     opts.DryRun,
	}, c.Logger)
}

// SinkNames lists the wired sinks in write order
func (c *Container) SinkNames() []string {
	names := make([]string, len(c.Sinks))
	for i, s := range c.Sinks {
		names[i] = s.Name()
	}
	return names
}

// Shutdown flushes the logger
func (c *Container) Shutdown() error {
	return c.Logger.Sync()
}
