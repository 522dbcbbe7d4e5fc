package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"countprep/internal/errors"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const devicesCSV = `Device name,Lon (WGS 84),Lat (WGS 84),X (Lb72),Y (Lb72)
CB02411,4.3517,50.8466,149543.1,170712.4
CJM90,4.4025,50.8503,153122.9,171124.7
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCountsKeepsKeyAsString(t *testing.T) {
	path := writeFile(t, "counts.csv", "device_name,Date,Time gap,Count,Average speed\n"+
		"007,2024-01-01,1,12,18.5\n"+
		"0042,2024-01-01,2,,20\n")

	df, err := NewLoader(',', nil).LoadCounts(path, "device_name")
	require.NoError(t, err)

	assert.Equal(t, 2, df.Nrow())
	key := df.Col("device_name")
	assert.Equal(t, series.String, key.Type())
	assert.Equal(t, []string{"007", "0042"}, key.Records())

	count := df.Col("Count")
	assert.False(t, count.Elem(0).IsNA())
	assert.True(t, count.Elem(1).IsNA())
}

func TestLoadCountsMissingColumn(t *testing.T) {
	path := writeFile(t, "counts.csv", "device_name,Date,Count,Average speed\nA,2024-01-01,1,2\n")

	_, err := NewLoader(',', nil).LoadCounts(path, "device_name")
	require.Error(t, err)
	assert.Equal(t, errors.CodeSchemaError, errors.GetCode(err))
	assert.Equal(t, []string{"Time gap"}, errors.MissingColumns(err))
}

func TestLoadDevicesRequiredColumns(t *testing.T) {
	path := writeFile(t, "devices.csv", devicesCSV)

	df, err := NewLoader(',', nil).LoadDevices(path, "Device name")
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []string{"4.3517", "4.4025"}, df.Col("Lon (WGS 84)").Records())
}

func TestLoadKeyNullTokensAreNames(t *testing.T) {
	path := writeFile(t, "devices.csv", "Device name,Lon (WGS 84),Lat (WGS 84),X (Lb72),Y (Lb72)\n"+
		"NA,4.35,50.84,1,2\n"+
		"null,NA,50.84,1,2\n"+
		",4.35,50.84,1,2\n")

	df, err := NewLoader(',', nil).LoadDevices(path, "Device name")
	require.NoError(t, err)

	key := df.Col("Device name")
	assert.False(t, key.Elem(0).IsNA())
	assert.Equal(t, "NA", key.Elem(0).String())
	assert.Equal(t, "null", key.Elem(1).String())
	assert.True(t, key.Elem(2).IsNA())
	assert.True(t, df.Col("Lon (WGS 84)").Elem(1).IsNA())
}

func TestLoadDevicesMissingLatitude(t *testing.T) {
	path := writeFile(t, "devices.csv", "Device name,Lon (WGS 84),X (Lb72)\nCB02411,4.35,149543.1\n")

	_, err := NewLoader(',', nil).LoadDevices(path, "Device name")
	require.Error(t, err)
	assert.Equal(t, errors.CodeSchemaError, errors.GetCode(err))
	assert.Equal(t, []string{"Lat (WGS 84)", "Y (Lb72)"}, errors.MissingColumns(err))
	assert.Contains(t, err.Error(), "Lat (WGS 84)")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(',', nil).LoadDevices(filepath.Join(t.TempDir(), "absent.csv"), "Device name")
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoadError, errors.GetCode(err))
}

func TestLoadRaggedCSV(t *testing.T) {
	path := writeFile(t, "devices.csv", devicesCSV+"broken,1\n")

	_, err := NewLoader(',', nil).LoadDevices(path, "Device name")
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoadError, errors.GetCode(err))
}

func TestLoadHeaderOnly(t *testing.T) {
	path := writeFile(t, "devices.csv", "Device name,Lon (WGS 84),Lat (WGS 84),X (Lb72),Y (Lb72)\n")

	df, err := NewLoader(',', nil).LoadDevices(path, "Device name")
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, 5, df.Ncol())
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, "devices.csv", "")

	_, err := NewLoader(',', nil).LoadDevices(path, "Device name")
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoadError, errors.GetCode(err))
}

func TestLoadSemicolonDelimited(t *testing.T) {
	path := writeFile(t, "devices.csv", "\ufeffDevice name;Lon (WGS 84);Lat (WGS 84);X (Lb72);Y (Lb72)\nCB02411;4,35;50,84;1;2\n")

	df, err := NewLoader(';', nil).LoadDevices(path, "Device name")
	require.NoError(t, err)
	assert.Equal(t, []string{"4,35"}, df.Col("Lon (WGS 84)").Records())
}

func TestLoadDuplicateHeader(t *testing.T) {
	path := writeFile(t, "devices.csv", "Device name,Device name\nA,B\n")

	_, err := NewLoader(',', nil).LoadDevices(path, "Device name")
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoadError, errors.GetCode(err))
}

func TestLoadDevicesFromExcel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Device name", "Lon (WGS 84)", "Lat (WGS 84)", "X (Lb72)", "Y (Lb72)"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"CB02411", "4.3517", "50.8466", "149543.1", "170712.4"}))
	path := filepath.Join(t.TempDir(), "devices.xlsx")
	require.NoError(t, f.SaveAs(path))

	reader := NewDataReader(path, 0)
	assert.Equal(t, "xlsx", reader.FileType())

	df, err := NewLoader(',', nil).LoadDevices(path, "Device name")
	require.NoError(t, err)
	assert.Equal(t, 1, df.Nrow())
	assert.Equal(t, []string{"CB02411"}, df.Col("Device name").Records())
	assert.Equal(t, []string{"170712.4"}, df.Col("Y (Lb72)").Records())
}
