package flatfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"countprep/domain/counts"
	"countprep/internal"
	"countprep/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Writer saves the cleaned dataset to a file with a header row.
// .xlsx paths get a workbook, anything else delimited text.
type Writer struct {
	path      string
	delimiter rune
	logger    *internal.Logger
}

// NewWriter creates a file sink for path
func NewWriter(path string, delimiter rune, logger *internal.Logger) *Writer {
	if delimiter == 0 {
		delimiter = ','
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Writer{path: path, delimiter: delimiter, logger: logger}
}

// Name identifies the sink in logs
func (w *Writer) Name() string {
	return "file"
}

// Write replaces the output file. Data goes to a temporary file in the same
// directory first, so a failed write never leaves a truncated output behind.
func (w *Writer) Write(ctx context.Context, records []counts.CleanedRecord) error {
	if err := ctx.Err(); err != nil {
		return errors.SinkError(w.Name(), err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.SinkError(w.Name(), errors.Wrapf(err, "failed to create %s", dir))
	}

	// excelize checks the extension, so the temporary name keeps it
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*"+filepath.Ext(w.path))
	if err != nil {
		return errors.SinkError(w.Name(), errors.Wrap(err, "failed to create temporary file"))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if strings.EqualFold(filepath.Ext(w.path), ".xlsx") {
		tmp.Close()
		err = writeWorkbook(tmpPath, records)
	} else {
		err = w.writeDelimited(tmp, records)
		if closeErr := tmp.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return errors.SinkError(w.Name(), err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return errors.SinkError(w.Name(), err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return errors.SinkError(w.Name(), errors.Wrapf(err, "failed to move output into %s", w.path))
	}

	w.logger.Info("Saved %d rows to %s", len(records), w.path)
	return nil
}

func (w *Writer) writeDelimited(f *os.File, records []counts.CleanedRecord) error {
	cw := csv.NewWriter(f)
	cw.Comma = w.delimiter

	if err := cw.Write(counts.OutputColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(FormatRecord(r)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeWorkbook(path string, records []counts.CleanedRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet: %w", err)
	}

	header := make([]interface{}, len(counts.OutputColumns))
	for i, col := range counts.OutputColumns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := r.Values()
		row[0] = r.Timestamp.Format(counts.TimestampLayout)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	return f.SaveAs(path)
}

// FormatRecord renders a record as text cells. Floats use the shortest
// representation that round-trips.
func FormatRecord(r counts.CleanedRecord) []string {
	return []string{
		r.Timestamp.Format(counts.TimestampLayout),
		r.DeviceName,
		strconv.Itoa(r.Count),
		formatFloat(r.AverageSpeed),
		formatFloat(r.Longitude),
		formatFloat(r.Latitude),
		formatFloat(r.Easting),
		formatFloat(r.Northing),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
