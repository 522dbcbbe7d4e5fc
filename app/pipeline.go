package app

import (
	"context"
	"fmt"

	"countprep/domain/counts"
	"countprep/internal"
	"countprep/internal/cleaning"
	"countprep/internal/errors"
	"countprep/internal/summary"
	"countprep/ports"

	"github.com/google/uuid"
)

// headRows is how many cleaned rows are echoed at debug level
const headRows = 5

// PipelineOptions selects the inputs and run mode
type PipelineOptions struct {
	RawPath    string
	DevicePath string

	// RawKey is the join key as spelled in the counts file, DeviceKey as
	// spelled in the registry. The counts key is renamed to DeviceKey.
	RawKey    string
	DeviceKey string

	// DryRun runs everything except the sinks
	DryRun bool
}

// SinkFailure records a sink that could not write
type SinkFailure struct {
	Sink string
	Err  error
}

// RunResult describes a completed run
type RunResult struct {
	RunID        string
	Report       cleaning.Report
	Summary      summary.Summary
	Records      []counts.CleanedRecord
	SinksSkipped bool
	Written      []string
	SinkFailures []SinkFailure
}

// Pipeline loads, reconciles, transforms and persists one batch
type Pipeline struct {
	loader ports.FrameLoader
	sinks  []ports.Sink
	opts   PipelineOptions
	logger *internal.Logger
}

// NewPipeline creates a pipeline writing to sinks in the given order
func NewPipeline(loader ports.FrameLoader, sinks []ports.Sink, opts PipelineOptions, logger *internal.Logger) *Pipeline {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Pipeline{
		loader: loader,
		sinks:  sinks,
		opts:   opts,
		logger: logger,
	}
}

// Run executes the pipeline once. The returned error is always fatal; sink
// failures are logged and reported in RunResult.SinkFailures instead.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{RunID: uuid.New().String()}
	log := p.logger.With("run_id", result.RunID)
	log.Info("Starting data preprocessing")

	raw, err := p.loader.LoadCounts(p.opts.RawPath, p.opts.RawKey)
	if err != nil {
		log.Error("Error loading raw counts data: %v", err)
		return result, errors.Wrap(err, "load raw counts")
	}

	devices, err := p.loader.LoadDevices(p.opts.DevicePath, p.opts.DeviceKey)
	if err != nil {
		log.Error("Error loading device list: %v", err)
		return result, errors.Wrap(err, "load device list")
	}

	raw, err = cleaning.Reconcile(raw, p.opts.RawKey, p.opts.DeviceKey)
	if err != nil {
		log.Error("Error reconciling join key: %v", err)
		return result, errors.Wrap(err, "reconcile join key")
	}

	transformer := cleaning.NewTransformer(p.opts.DeviceKey, log)
	records, report, err := transformer.Transform(raw, devices)
	result.Report = report
	if err != nil {
		log.Error("Error during preprocessing and joining: %v", err)
		return result, errors.Wrap(err, "transform")
	}
	result.Records = records

	result.Summary, err = summary.Describe(records)
	if err != nil {
		log.Warn("Could not summarize cleaned data: %v", err)
	}
	log.Info("Cleaned data: %s", result.Summary)
	for _, r := range summary.Head(records, headRows) {
		log.Debug("cleaned row: %+v", r)
	}

	if len(records) == 0 {
		log.Info("No cleaned data to store, skipping all sinks")
		result.SinksSkipped = true
		return result, nil
	}
	if p.opts.DryRun {
		log.Info("Dry run, skipping all sinks")
		result.SinksSkipped = true
		return result, nil
	}

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, records); err != nil {
			if errors.GetCode(err) != errors.CodeSinkError {
				err = errors.SinkError(sink.Name(), err)
			}
			log.Error("Error storing data to %s: %v", sink.Name(), err)
			result.SinkFailures = append(result.SinkFailures, SinkFailure{Sink: sink.Name(), Err: err})
			continue
		}
		result.Written = append(result.Written, sink.Name())
	}

	log.Info("Preprocessing finished: %d rows, %s", len(records), p.sinkStatus(result))
	return result, nil
}

func (p *Pipeline) sinkStatus(result *RunResult) string {
	return fmt.Sprintf("%d/%d sinks written", len(result.Written), len(p.sinks))
}
