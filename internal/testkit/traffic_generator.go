package testkit

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"countprep/domain/counts"
)

// TrafficGeneratorConfig configures the traffic count generator
type TrafficGeneratorConfig struct {
	DeviceCount int       `json:"device_count"`
	Days        int       `json:"days"`
	SlotsPerDay int       `json:"slots_per_day"`
	DirtyRate   float64   `json:"dirty_rate"`
	StartDate   time.Time `json:"start_date"`
	Seed        int64     `json:"seed"`
	RawKey      string    `json:"raw_key"`
}

// DefaultTrafficConfig returns sensible defaults for traffic count generation
func DefaultTrafficConfig() TrafficGeneratorConfig {
	return TrafficGeneratorConfig{
		DeviceCount: 8,
		Days:        2,
		SlotsPerDay: 96,
		DirtyRate:   0.1,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:        42,
		RawKey:      "device_name",
	}
}

// TrafficDataset is a generated counts file and device registry, both with
// header rows, plus how many counts rows survive cleaning.
type TrafficDataset struct {
	Counts       [][]string
	Registry     [][]string
	ExpectedRows int
	DirtyRows    int
}

// dirty row kinds, each of which cleaning must drop
var dirtyKinds = []string{"unknown_device", "zero_count", "negative_count", "bad_count", "null_speed", "null_date"}

// TrafficDataGenerator generates raw 15-minute counts for a set of devices
type TrafficDataGenerator struct {
	config TrafficGeneratorConfig
	rng    *rand.Rand
}

// NewTrafficDataGenerator creates a new traffic data generator
func NewTrafficDataGenerator(config TrafficGeneratorConfig) *TrafficDataGenerator {
	if config.SlotsPerDay <= 0 || config.SlotsPerDay > 96 {
		config.SlotsPerDay = 96
	}
	if config.RawKey == "" {
		config.RawKey = "device_name"
	}
	return &TrafficDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the dataset
func (g *TrafficDataGenerator) Generate() TrafficDataset {
	ds := TrafficDataset{
		Counts: [][]string{{g.config.RawKey, counts.ColDate, counts.ColTimeGap, counts.ColCount, counts.ColAverageSpeed}},
		Registry: [][]string{{counts.ColDeviceName, counts.ColLongitude, counts.ColLatitude,
			counts.ColEasting, counts.ColNorthing}},
	}

	devices := make([]string, g.config.DeviceCount)
	for i := range devices {
		// leading zeros must survive loading
		devices[i] = fmt.Sprintf("%04d", i+1)
		ds.Registry = append(ds.Registry, g.registryRow(devices[i]))
	}

	for day := 0; day < g.config.Days; day++ {
		date := g.config.StartDate.AddDate(0, 0, day).Format(counts.DateLayout)
		for slot := 1; slot <= g.config.SlotsPerDay; slot++ {
			for _, device := range devices {
				if g.rng.Float64() < g.config.DirtyRate {
					ds.Counts = append(ds.Counts, g.dirtyRow(device, date, slot))
					ds.DirtyRows++
					continue
				}
				ds.Counts = append(ds.Counts, g.cleanRow(device, date, slot))
				ds.ExpectedRows++
			}
		}
	}

	return ds
}

func (g *TrafficDataGenerator) registryRow(device string) []string {
	// Brussels region, WGS 84 and Lambert 72
	lon := 4.30 + g.rng.Float64()*0.15
	lat := 50.80 + g.rng.Float64()*0.08
	x := 145000 + g.rng.Float64()*10000
	y := 165000 + g.rng.Float64()*10000
	return []string{device, formatFloat(lon, 6), formatFloat(lat, 6), formatFloat(x, 1), formatFloat(y, 1)}
}

func (g *TrafficDataGenerator) cleanRow(device, date string, slot int) []string {
	count := 1 + g.rng.Intn(60)
	speed := 10 + g.rng.Float64()*40
	return []string{device, date, strconv.Itoa(slot), strconv.Itoa(count), formatFloat(speed, 1)}
}

func (g *TrafficDataGenerator) dirtyRow(device, date string, slot int) []string {
	row := g.cleanRow(device, date, slot)
	switch dirtyKinds[g.rng.Intn(len(dirtyKinds))] {
	case "unknown_device":
		row[0] = "GHOST" + device
	case "zero_count":
		row[3] = "0"
	case "negative_count":
		row[3] = strconv.Itoa(-1 - g.rng.Intn(5))
	case "bad_count":
		row[3] = "n/a"
	case "null_speed":
		row[4] = ""
	case "null_date":
		row[1] = ""
	}
	return row
}

// WriteCSV writes the dataset as raw.csv and devices.csv under dir and
// returns both paths
func (ds TrafficDataset) WriteCSV(dir string) (string, string, error) {
	rawPath := filepath.Join(dir, "raw.csv")
	devicePath := filepath.Join(dir, "devices.csv")
	if err := writeCSV(rawPath, ds.Counts); err != nil {
		return "", "", err
	}
	if err := writeCSV(devicePath, ds.Registry); err != nil {
		return "", "", err
	}
	return rawPath, devicePath, nil
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
