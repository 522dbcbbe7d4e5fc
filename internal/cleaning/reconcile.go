package cleaning

import (
	"fmt"

	"countprep/internal/errors"

	"github.com/go-gota/gota/dataframe"
)

// Reconcile renames the counts frame's join key so it matches the registry's
// spelling. It must run before anything addresses the key by name.
func Reconcile(df dataframe.DataFrame, from, to string) (dataframe.DataFrame, error) {
	if from == to {
		return df, nil
	}

	var hasFrom, hasTo bool
	for _, name := range df.Names() {
		switch name {
		case from:
			hasFrom = true
		case to:
			hasTo = true
		}
	}
	if !hasFrom {
		return dataframe.DataFrame{}, errors.SchemaError("raw counts", []string{from})
	}
	if hasTo {
		return dataframe.DataFrame{}, errors.New(errors.CodeSchemaError,
			fmt.Sprintf("cannot rename %q to %q: column already exists", from, to))
	}

	renamed := df.Rename(to, from)
	if renamed.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(renamed.Err, "failed to rename %q", from)
	}
	return renamed, nil
}
