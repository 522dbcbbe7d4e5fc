package ports

import (
	"github.com/go-gota/gota/dataframe"
)

// FrameLoader reads the two pipeline inputs into frames
type FrameLoader interface {
	// LoadCounts reads the raw counts file, typing key as a string
	LoadCounts(path, key string) (dataframe.DataFrame, error)

	// LoadDevices reads the device registry and checks its required columns
	LoadDevices(path, key string) (dataframe.DataFrame, error)
}
