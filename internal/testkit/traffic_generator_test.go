package testkit

import (
	"encoding/csv"
	"os"
	"testing"

	"countprep/domain/counts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() TrafficGeneratorConfig {
	cfg := DefaultTrafficConfig()
	cfg.DeviceCount = 3
	cfg.Days = 1
	cfg.SlotsPerDay = 8
	cfg.DirtyRate = 0.25
	return cfg
}

func TestTrafficDataGenerator_Basic(t *testing.T) {
	cfg := smallConfig()
	ds := NewTrafficDataGenerator(cfg).Generate()

	require.Len(t, ds.Registry, cfg.DeviceCount+1)
	require.Len(t, ds.Counts, cfg.DeviceCount*cfg.SlotsPerDay+1)
	assert.Equal(t, cfg.DeviceCount*cfg.SlotsPerDay, ds.ExpectedRows+ds.DirtyRows)
	assert.Equal(t, counts.RequiredCountColumns("device_name"), ds.Counts[0][:5])
	assert.Equal(t, "0001", ds.Registry[1][0])
}

func TestTrafficDataGenerator_Deterministic(t *testing.T) {
	first := NewTrafficDataGenerator(smallConfig()).Generate()
	second := NewTrafficDataGenerator(smallConfig()).Generate()
	assert.Equal(t, first, second)
}

func TestTrafficDataGenerator_NoDirtyRows(t *testing.T) {
	cfg := smallConfig()
	cfg.DirtyRate = 0
	ds := NewTrafficDataGenerator(cfg).Generate()
	assert.Zero(t, ds.DirtyRows)
	assert.Equal(t, cfg.DeviceCount*cfg.SlotsPerDay, ds.ExpectedRows)
}

func TestTrafficDataset_WriteCSV(t *testing.T) {
	ds := NewTrafficDataGenerator(smallConfig()).Generate()
	rawPath, devicePath, err := ds.WriteCSV(t.TempDir())
	require.NoError(t, err)

	f, err := os.Open(rawPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, ds.Counts, rows)

	_, err = os.Stat(devicePath)
	assert.NoError(t, err)
}
