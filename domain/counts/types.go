package counts

import (
	"time"
)

// Primary (counts) file columns
const (
	ColDate         = "Date"
	ColTimeGap      = "Time gap"
	ColCount        = "Count"
	ColAverageSpeed = "Average speed"
)

// Registry (device list) file columns
const (
	ColDeviceName = "Device name"
	ColLongitude  = "Lon (WGS 84)"
	ColLatitude   = "Lat (WGS 84)"
	ColEasting    = "X (Lb72)"
	ColNorthing   = "Y (Lb72)"
)

// Output columns, in the order they are written
const (
	OutTimestamp    = "timestamp"
	OutDeviceName   = "device_name"
	OutCount        = "count"
	OutAverageSpeed = "average_speed"
	OutLongitude    = "longitude"
	OutLatitude     = "latitude"
	OutEasting      = "easting"
	OutNorthing     = "northing"
)

// DefaultTable is the relational table the cleaned data replaces
const DefaultTable = "cleaned_data"

// DateLayout is the only accepted format of the Date column
const DateLayout = "2006-01-02"

// TimestampLayout is how timestamps are rendered in flat files
const TimestampLayout = "2006-01-02T15:04:05"

// SlotMinutes is the width of one time slot
const SlotMinutes = 15

// OutputColumns lists the cleaned table columns in output order
var OutputColumns = []string{
	OutTimestamp,
	OutDeviceName,
	OutCount,
	OutAverageSpeed,
	OutLongitude,
	OutLatitude,
	OutEasting,
	OutNorthing,
}

// GeoColumns are the registry columns pulled in by the join
var GeoColumns = []string{ColLongitude, ColLatitude, ColEasting, ColNorthing}

// RequiredDeviceColumns returns the columns a registry file must carry
func RequiredDeviceColumns(key string) []string {
	return append([]string{key}, GeoColumns...)
}

// RequiredCountColumns returns the columns a counts file must carry
func RequiredCountColumns(key string) []string {
	return []string{key, ColDate, ColTimeGap, ColCount, ColAverageSpeed}
}

// CleanedRecord is one row of the analysis-ready dataset
type CleanedRecord struct {
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	DeviceName   string    `json:"device_name" db:"device_name"`
	Count        int       `json:"count" db:"count"`
	AverageSpeed float64   `json:"average_speed" db:"average_speed"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Easting      float64   `json:"easting" db:"easting"`
	Northing     float64   `json:"northing" db:"northing"`
}

// Values returns the record fields in OutputColumns order
func (r CleanedRecord) Values() []interface{} {
	return []interface{}{
		r.Timestamp,
		r.DeviceName,
		r.Count,
		r.AverageSpeed,
		r.Longitude,
		r.Latitude,
		r.Easting,
		r.Northing,
	}
}

// SlotOffset converts a 1-based slot index to minutes past midnight
func SlotOffset(slot int) time.Duration {
	return time.Duration((slot-1)*SlotMinutes) * time.Minute
}

// SlotTimestamp places a slot on the given day. Slot 1 is midnight.
func SlotTimestamp(date time.Time, slot int) time.Time {
	y, m, d := date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return midnight.Add(SlotOffset(slot))
}
