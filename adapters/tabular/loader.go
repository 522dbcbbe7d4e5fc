package tabular

import (
	"countprep/domain/counts"
	"countprep/internal"
	"countprep/internal/errors"

	"github.com/go-gota/gota/dataframe"
)

// headRows is how many rows are echoed at debug level after a load
const headRows = 5

// Loader reads the two pipeline inputs
type Loader struct {
	delimiter rune
	logger    *internal.Logger
}

// NewLoader creates a loader for files using the given delimiter
func NewLoader(delimiter rune, logger *internal.Logger) *Loader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Loader{delimiter: delimiter, logger: logger}
}

// LoadCounts reads the primary counts file. key is the join-key column as
// spelled in this file; it is read as a string regardless of content.
func (l *Loader) LoadCounts(path, key string) (dataframe.DataFrame, error) {
	l.logger.Info("Loading raw counts from %s", path)
	df, err := l.load(path, key)
	if err != nil {
		return df, err
	}
	if missing := MissingColumns(df, counts.RequiredCountColumns(key)); len(missing) > 0 {
		return dataframe.DataFrame{}, errors.SchemaError("raw counts file "+path, missing)
	}
	l.describe("raw counts", df)
	return df, nil
}

// LoadDevices reads the device registry and checks it carries the key and
// all four coordinate columns.
func (l *Loader) LoadDevices(path, key string) (dataframe.DataFrame, error) {
	l.logger.Info("Loading device list from %s", path)
	df, err := l.load(path, key)
	if err != nil {
		return df, err
	}
	if missing := MissingColumns(df, counts.RequiredDeviceColumns(key)); len(missing) > 0 {
		return dataframe.DataFrame{}, errors.SchemaError("device list "+path, missing)
	}
	l.describe("device list", df)
	return df, nil
}

func (l *Loader) load(path, key string) (dataframe.DataFrame, error) {
	reader := NewDataReader(path, l.delimiter)
	df, err := reader.ReadFrame(key)
	if err != nil {
		return dataframe.DataFrame{}, errors.LoadError(path, err)
	}
	return df, nil
}

func (l *Loader) describe(what string, df dataframe.DataFrame) {
	l.logger.Info("Loaded %d rows of %s (%d columns)", df.Nrow(), what, df.Ncol())
	l.logger.Debug("%s columns: %v", what, df.Names())
	if df.Nrow() == 0 || l.logger.GetLevel() < internal.LogLevelDebug {
		return
	}
	records := df.Records()
	n := headRows
	if len(records)-1 < n {
		n = len(records) - 1
	}
	for _, row := range records[1 : n+1] {
		l.logger.Debug("%s row: %v", what, row)
	}
}

// MissingColumns returns the entries of required absent from df, in order
func MissingColumns(df dataframe.DataFrame, required []string) []string {
	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
