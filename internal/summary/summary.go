package summary

import (
	"fmt"
	"time"

	"countprep/domain/counts"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a cleaned dataset for the run log
type Summary struct {
	Rows        int       `json:"rows"`
	Devices     int       `json:"devices"`
	First       time.Time `json:"first"`
	Last        time.Time `json:"last"`
	TotalCount  int       `json:"total_count"`
	MeanSpeed   float64   `json:"mean_speed"`
	MedianSpeed float64   `json:"median_speed"`
	StdDevSpeed float64   `json:"stddev_speed"`
	Bounds      orb.Bound `json:"bounds"`
}

// Describe computes the summary. An empty input yields a zero Summary.
func Describe(records []counts.CleanedRecord) (Summary, error) {
	var s Summary
	if len(records) == 0 {
		return s, nil
	}

	devices := make(map[string]bool)
	speeds := make([]float64, len(records))
	points := make(orb.MultiPoint, len(records))
	s.First, s.Last = records[0].Timestamp, records[0].Timestamp

	for i, r := range records {
		devices[r.DeviceName] = true
		speeds[i] = r.AverageSpeed
		points[i] = orb.Point{r.Longitude, r.Latitude}
		s.TotalCount += r.Count
		if r.Timestamp.Before(s.First) {
			s.First = r.Timestamp
		}
		if r.Timestamp.After(s.Last) {
			s.Last = r.Timestamp
		}
	}

	s.Rows = len(records)
	s.Devices = len(devices)
	s.Bounds = points.Bound()
	s.MeanSpeed, s.StdDevSpeed = stat.MeanStdDev(speeds, nil)
	if len(speeds) < 2 {
		s.StdDevSpeed = 0
	}

	median, err := stats.Median(speeds)
	if err != nil {
		return s, fmt.Errorf("failed to compute median speed: %w", err)
	}
	s.MedianSpeed = median

	return s, nil
}

// String renders the summary on one line
func (s Summary) String() string {
	if s.Rows == 0 {
		return "empty dataset"
	}
	return fmt.Sprintf("%d rows, %d devices, %s to %s, total count %d, speed mean %.2f median %.2f sd %.2f, lon [%.5f, %.5f] lat [%.5f, %.5f]",
		s.Rows, s.Devices,
		s.First.Format(counts.TimestampLayout), s.Last.Format(counts.TimestampLayout),
		s.TotalCount, s.MeanSpeed, s.MedianSpeed, s.StdDevSpeed,
		s.Bounds.Min.Lon(), s.Bounds.Max.Lon(), s.Bounds.Min.Lat(), s.Bounds.Max.Lat())
}

// Head returns at most n leading records
func Head(records []counts.CleanedRecord, n int) []counts.CleanedRecord {
	if n < len(records) {
		return records[:n]
	}
	return records
}
