package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// NullTokens are cell values read as null, except in string columns where
// only the empty cell is null
var NullTokens = []string{"", "NA", "NaN", "null", "NULL"}

// naToken is the cell value gota treats as a missing element
const naToken = "NaN"

// DataReader handles reading delimited text and Excel files into frames.
// Every column is read as a string; typing happens later in the pipeline.
type DataReader struct {
	filePath  string
	fileType  string // "csv" or "xlsx"
	delimiter rune
}

// NewDataReader creates a reader, picking the format from the file extension.
// Anything that isn't .xlsx is treated as delimited text.
func NewDataReader(filePath string, delimiter rune) *DataReader {
	fileType := "csv"
	if strings.EqualFold(filepath.Ext(filePath), ".xlsx") {
		fileType = "xlsx"
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &DataReader{filePath: filePath, fileType: fileType, delimiter: delimiter}
}

// FileType returns "csv" or "xlsx"
func (r *DataReader) FileType() string {
	return r.fileType
}

// ReadRecords returns the raw rows, header first
func (r *DataReader) ReadRecords() ([][]string, error) {
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, err
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		rows, err = r.readCSVRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	return rows, nil
}

// ReadFrame reads the file into a frame of string columns. stringColumns are
// pinned to the string type explicitly so no later option can retype them.
func (r *DataReader) ReadFrame(stringColumns ...string) (dataframe.DataFrame, error) {
	rows, err := r.ReadRecords()
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return BuildFrame(rows, stringColumns...)
}

// BuildFrame turns raw rows (header first) into a frame of string columns
func BuildFrame(rows [][]string, stringColumns ...string) (dataframe.DataFrame, error) {
	if len(rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("no header row")
	}
	header := rows[0]
	if err := checkHeader(header); err != nil {
		return dataframe.DataFrame{}, err
	}

	// gota refuses a header without data; build the empty frame by hand
	if len(rows) == 1 {
		cols := make([]series.Series, len(header))
		for i, name := range header {
			cols[i] = series.New([]string{}, series.String, name)
		}
		df := dataframe.New(cols...)
		return df, df.Err
	}

	// in string columns only an empty cell is null; "NA" may be a device name
	types := make(map[string]series.Type, len(stringColumns))
	for _, col := range stringColumns {
		types[col] = series.String
	}

	normalized := make([][]string, len(rows))
	normalized[0] = header
	for i, row := range rows[1:] {
		out := make([]string, len(header))
		for j, name := range header {
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			_, pinned := types[name]
			if cell == "" || (!pinned && isNull(cell)) {
				cell = naToken
			}
			out[j] = cell
		}
		normalized[i+1] = out
	}

	df := dataframe.LoadRecords(normalized,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		dataframe.NaNValues([]string{naToken}),
	)
	if df.Err != nil {
		return df, df.Err
	}
	return df, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = r.delimiter
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// readExcelRows reads the first sheet of the workbook
func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func checkHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if name == "" {
			return fmt.Errorf("column %d has an empty header", i+1)
		}
		if seen[name] {
			return fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
	}
	return nil
}

func isNull(cell string) bool {
	for _, token := range NullTokens {
		if cell == token {
			return true
		}
	}
	return false
}
