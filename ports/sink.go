package ports

import (
	"context"

	"countprep/domain/counts"
)

// Sink persists a cleaned dataset. Sinks are independent of each other:
// one failing must not stop the next from being attempted.
type Sink interface {
	// Name identifies the sink in logs
	Name() string

	// Write stores the full dataset, replacing what the sink held before
	Write(ctx context.Context, records []counts.CleanedRecord) error
}
