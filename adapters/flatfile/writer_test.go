package flatfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"countprep/domain/counts"
	"countprep/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRecords() []counts.CleanedRecord {
	ts := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	return []counts.CleanedRecord{
		{Timestamp: ts, DeviceName: "CB02411", Count: 12, AverageSpeed: 18.5,
			Longitude: 4.3517, Latitude: 50.8466, Easting: 149543.1, Northing: 170712.4},
		{Timestamp: ts.Add(15 * time.Minute), DeviceName: "Rue de la Loi, 2", Count: 3, AverageSpeed: 21,
			Longitude: 4.4025, Latitude: 50.8503, Easting: 153122.9, Northing: 171124.7},
	}
}

func TestWriterCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "final_clean_data.csv")
	w := NewWriter(path, ',', nil)
	assert.Equal(t, "file", w.Name())

	require.NoError(t, w.Write(context.Background(), sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"timestamp,device_name,count,average_speed,longitude,latitude,easting,northing\n"+
			"2024-01-01T01:00:00,CB02411,12,18.5,4.3517,50.8466,149543.1,170712.4\n"+
			"2024-01-01T01:15:00,\"Rue de la Loi, 2\",3,21,4.4025,50.8503,153122.9,171124.7\n",
		string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriterByteIdenticalReruns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewWriter(path, ',', nil)

	require.NoError(t, w.Write(context.Background(), sampleRecords()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(context.Background(), sampleRecords()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWriterDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	require.NoError(t, NewWriter(path, '\t', nil).Write(context.Background(), sampleRecords()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timestamp\tdevice_name\tcount")
}

func TestWriterExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, NewWriter(path, ',', nil).Write(context.Background(), sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, counts.OutputColumns, rows[0])
	assert.Equal(t, "2024-01-01T01:00:00", rows[1][0])
	assert.Equal(t, "CB02411", rows[1][1])
	assert.Equal(t, "12", rows[1][2])
}

func TestWriterFailure(t *testing.T) {
	dir := t.TempDir()
	// the output path is an existing, non-empty directory
	target := filepath.Join(dir, "taken")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o755))

	err := NewWriter(target, ',', nil).Write(context.Background(), sampleRecords())
	require.Error(t, err)
	assert.Equal(t, errors.CodeSinkError, errors.GetCode(err))
}

func TestWriterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "out.csv")
	err := NewWriter(path, ',', nil).Write(ctx, sampleRecords())
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFormatRecord(t *testing.T) {
	r := sampleRecords()[0]
	r.Longitude = 4.123456789012
	cells := FormatRecord(r)
	assert.Equal(t, "4.123456789012", cells[4])
}
