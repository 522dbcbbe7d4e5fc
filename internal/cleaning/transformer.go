package cleaning

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"countprep/domain/counts"
	"countprep/internal"
	"countprep/internal/errors"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Report counts rows through each stage of a transform
type Report struct {
	InputRows          int `json:"input_rows"`
	JoinMisses         int `json:"join_misses"`
	DroppedNulls       int `json:"dropped_nulls"`
	DroppedNonPositive int `json:"dropped_non_positive"`
	OutputRows         int `json:"output_rows"`
}

// Transformer turns a reconciled counts frame and the device registry into
// cleaned records.
//
// Date and time-slot values are parsed strictly: one malformed value fails the
// whole run. Count, speed and coordinate values are cast leniently: a bad value
// becomes null and its row is dropped.
type Transformer struct {
	key    string
	logger *internal.Logger
}

// NewTransformer creates a transformer joining on key, which must be the
// registry's spelling of the join column.
func NewTransformer(key string, logger *internal.Logger) *Transformer {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Transformer{key: key, logger: logger}
}

// Transform runs the cleaning steps in order and returns the surviving rows
func (t *Transformer) Transform(raw, devices dataframe.DataFrame) ([]counts.CleanedRecord, Report, error) {
	report := Report{InputRows: raw.Nrow()}

	// timestamp = date + (slot-1)*15min
	stamps, err := t.deriveTimestamps(raw)
	if err != nil {
		return nil, report, err
	}
	if raw.Nrow() == 0 {
		t.logger.Info("No raw rows to transform")
		return nil, report, nil
	}

	// the timestamp replaces the date and slot columns
	df := raw.Mutate(stamps)
	df = df.Drop([]string{counts.ColDate, counts.ColTimeGap})
	if err := frameErr("derive timestamp", df); err != nil {
		return nil, report, err
	}

	// left join; unmatched rows keep nulls for now
	report.JoinMisses = t.countJoinMisses(df, devices)
	registry := devices.Select(counts.RequiredDeviceColumns(t.key))
	df = df.LeftJoin(registry, t.key)
	if err := frameErr("join device list", df); err != nil {
		return nil, report, err
	}
	t.logger.Debug("Joined %d rows, %d without a registry match", df.Nrow(), report.JoinMisses)

	// lenient casts
	df = castColumn(df, counts.ColCount, series.Int)
	df = castColumn(df, counts.ColAverageSpeed, series.Float)
	for _, col := range counts.GeoColumns {
		df = castColumn(df, col, series.Float)
	}
	if err := frameErr("cast columns", df); err != nil {
		return nil, report, err
	}

	// drop rows with a null in any required column
	before := df.Nrow()
	keep := nonNullRows(df, requiredColumns())
	report.DroppedNulls = before - len(keep)
	if len(keep) == 0 {
		t.logger.Info("All %d joined rows had null required values", before)
		return nil, report, nil
	}
	df = df.Subset(keep)
	if err := frameErr("drop nulls", df); err != nil {
		return nil, report, err
	}

	// count > 0
	before = df.Nrow()
	positive := df.Col(counts.ColCount).Compare(series.Greater, 0)
	if positive.Err != nil {
		return nil, report, errors.Wrap(positive.Err, "failed to compare counts")
	}
	keep = trueRows(positive)
	report.DroppedNonPositive = before - len(keep)
	if len(keep) == 0 {
		t.logger.Info("All %d remaining rows had a non-positive count", before)
		return nil, report, nil
	}
	df = df.Subset(keep)
	if err := frameErr("filter counts", df); err != nil {
		return nil, report, err
	}

	// final shape
	df, err = t.selectOutput(df)
	if err != nil {
		return nil, report, err
	}
	records, err := materialize(df)
	if err != nil {
		return nil, report, err
	}
	report.OutputRows = len(records)

	t.logger.Info("Cleaned %d of %d rows (join misses %d, null drops %d, non-positive %d)",
		report.OutputRows, report.InputRows, report.JoinMisses, report.DroppedNulls, report.DroppedNonPositive)
	return records, report, nil
}

// deriveTimestamps parses the date and slot columns into epoch seconds.
// Malformed values abort; null values yield a null timestamp.
func (t *Transformer) deriveTimestamps(df dataframe.DataFrame) (series.Series, error) {
	dates := df.Col(counts.ColDate)
	slots := df.Col(counts.ColTimeGap)
	if dates.Err != nil {
		return series.Series{}, errors.SchemaError("raw counts", []string{counts.ColDate})
	}
	if slots.Err != nil {
		return series.Series{}, errors.SchemaError("raw counts", []string{counts.ColTimeGap})
	}

	values := make([]string, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		dateElem, slotElem := dates.Elem(i), slots.Elem(i)
		if dateElem.IsNA() || slotElem.IsNA() {
			values[i] = "NaN"
			continue
		}

		date, err := ParseDate(dateElem.String())
		if err != nil {
			return series.Series{}, errors.ParseError(counts.ColDate, i+1, dateElem.String(), err)
		}
		slot, err := ParseSlot(slotElem.String())
		if err != nil {
			return series.Series{}, errors.ParseError(counts.ColTimeGap, i+1, slotElem.String(), err)
		}
		values[i] = strconv.FormatInt(counts.SlotTimestamp(date, slot).Unix(), 10)
	}

	return series.New(values, series.Int, counts.OutTimestamp), nil
}

// ParseDate parses a YYYY-MM-DD value
func ParseDate(value string) (time.Time, error) {
	return time.Parse(counts.DateLayout, value)
}

// ParseSlot parses a 1-based time-slot index
func ParseSlot(value string) (int, error) {
	slot, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if slot < 1 {
		return 0, fmt.Errorf("time slot must be at least 1, got %d", slot)
	}
	return slot, nil
}

func (t *Transformer) countJoinMisses(df, devices dataframe.DataFrame) int {
	known := make(map[string]bool, devices.Nrow())
	for _, key := range devices.Col(t.key).Records() {
		known[key] = true
	}

	misses := 0
	keys := df.Col(t.key)
	for i := 0; i < keys.Len(); i++ {
		elem := keys.Elem(i)
		if elem.IsNA() || !known[elem.String()] {
			misses++
		}
	}
	return misses
}

func (t *Transformer) selectOutput(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	renames := []struct{ from, to string }{
		{counts.OutTimestamp, counts.OutTimestamp},
		{t.key, counts.OutDeviceName},
		{counts.ColCount, counts.OutCount},
		{counts.ColAverageSpeed, counts.OutAverageSpeed},
		{counts.ColLongitude, counts.OutLongitude},
		{counts.ColLatitude, counts.OutLatitude},
		{counts.ColEasting, counts.OutEasting},
		{counts.ColNorthing, counts.OutNorthing},
	}

	cols := make([]string, len(renames))
	for i, r := range renames {
		cols[i] = r.from
	}
	df = df.Select(cols)
	for _, r := range renames {
		if r.from != r.to {
			df = df.Rename(r.to, r.from)
		}
	}
	return df, frameErr("select output", df)
}

func materialize(df dataframe.DataFrame) ([]counts.CleanedRecord, error) {
	ts := df.Col(counts.OutTimestamp)
	device := df.Col(counts.OutDeviceName)
	count := df.Col(counts.OutCount)
	speed := df.Col(counts.OutAverageSpeed)
	lon := df.Col(counts.OutLongitude)
	lat := df.Col(counts.OutLatitude)
	east := df.Col(counts.OutEasting)
	north := df.Col(counts.OutNorthing)

	records := make([]counts.CleanedRecord, df.Nrow())
	for i := range records {
		epoch, err := ts.Elem(i).Int()
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad timestamp", i+1)
		}
		n, err := count.Elem(i).Int()
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad count", i+1)
		}
		records[i] = counts.CleanedRecord{
			Timestamp:    time.Unix(int64(epoch), 0).UTC(),
			DeviceName:   device.Elem(i).String(),
			Count:        n,
			AverageSpeed: speed.Elem(i).Float(),
			Longitude:    lon.Elem(i).Float(),
			Latitude:     lat.Elem(i).Float(),
			Easting:      east.Elem(i).Float(),
			Northing:     north.Elem(i).Float(),
		}
	}
	return records, nil
}

// requiredColumns are the columns a row must fill to survive the null filter
func requiredColumns() []string {
	return append([]string{counts.OutTimestamp, counts.ColCount, counts.ColAverageSpeed}, counts.GeoColumns...)
}

// castColumn re-types a column. Values that don't parse become null.
func castColumn(df dataframe.DataFrame, name string, t series.Type) dataframe.DataFrame {
	if df.Err != nil {
		return df
	}
	return df.Mutate(series.New(df.Col(name).Records(), t, name))
}

// nonNullRows returns the indexes of rows with a value in every column.
// Non-finite floats count as null.
func nonNullRows(df dataframe.DataFrame, columns []string) []int {
	cols := make([]series.Series, len(columns))
	for i, name := range columns {
		cols[i] = df.Col(name)
	}

	keep := make([]int, 0, df.Nrow())
	for row := 0; row < df.Nrow(); row++ {
		ok := true
		for _, col := range cols {
			elem := col.Elem(row)
			if elem.IsNA() {
				ok = false
				break
			}
			if col.Type() == series.Float {
				if f := elem.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
					ok = false
					break
				}
			}
		}
		if ok {
			keep = append(keep, row)
		}
	}
	return keep
}

// trueRows returns the indexes where a bool series is true
func trueRows(s series.Series) []int {
	rows := make([]int, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if b, err := s.Elem(i).Bool(); err == nil && b {
			rows = append(rows, i)
		}
	}
	return rows
}

func frameErr(step string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return errors.Wrapf(df.Err, "%s failed", step)
	}
	return nil
}
