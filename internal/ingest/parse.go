// Package ingest turns spreadsheets, CSV exports, dataset JSON, and manual
// entry into sales datasets.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/calvinalkan/salesdash/internal/sales"
)

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 100000

// Field names as they appear in the dataset JSON.
const (
	FieldTime       = "time"
	FieldSales      = "sales"
	FieldTxns       = "txns"
	FieldUnits      = "units"
	FieldHourTarget = "hTarget"
	FieldLastYear   = "ly"
	FieldTraffic    = "traffic"
	FieldDayTarget  = "tTarget"
)

// Aliases maps each field to the header names it is recognised by, in
// priority order.
var Aliases = map[string][]string{
	FieldTime:       {"time", "hour", "timestamp"},
	FieldSales:      {"sales", "revenue", "amount"},
	FieldTxns:       {"txns", "transactions", "tickets", "orders"},
	FieldUnits:      {"units", "qty", "quantity", "items"},
	FieldHourTarget: {"hour target", "h target", "hourly target", "target hour", "target_h"},
	FieldLastYear:   {"ly", "last year", "sales ly", "sales_ly"},
	FieldTraffic:    {"traffic", "foot traffic", "visits"},
	FieldDayTarget:  {"ttd target", "t target", "cume target", "cum target", "target ttd", "target_day"},
}

// numericFields in record order, each with the setter for its column.
var numericFields = []struct {
	name string
	set  func(*sales.HourlyRecord, sales.Num)
}{
	{FieldSales, func(r *sales.HourlyRecord, n sales.Num) { r.Sales = n }},
	{FieldTxns, func(r *sales.HourlyRecord, n sales.Num) { r.Txns = n }},
	{FieldUnits, func(r *sales.HourlyRecord, n sales.Num) { r.Units = n }},
	{FieldHourTarget, func(r *sales.HourlyRecord, n sales.Num) { r.HourTarget = n }},
	{FieldLastYear, func(r *sales.HourlyRecord, n sales.Num) { r.LastYear = n }},
	{FieldTraffic, func(r *sales.HourlyRecord, n sales.Num) { r.Traffic = n }},
	{FieldDayTarget, func(r *sales.HourlyRecord, n sales.Num) { r.DayTarget = n }},
}

// ParseFile reads the dataset in path. The format is chosen by extension.
func ParseFile(path string) (sales.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return sales.Dataset{}, &Error{File: path, Err: err}
	}

	defer func() { _ = f.Close() }()

	return Parse(f, path)
}

// Parse reads a dataset from r. name supplies the extension and is used in
// error messages.
func Parse(r io.Reader, name string) (sales.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return sales.Dataset{}, &Error{File: name, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(name))

	if ext == ".json" {
		ds, err := sales.DecodeDataset(data)
		if err != nil {
			return sales.Dataset{}, &Error{File: name, Err: err}
		}

		return ds, nil
	}

	rows, err := readRows(data, ext)
	if err != nil {
		return sales.Dataset{}, &Error{File: name, Err: err}
	}

	ds, err := DatasetFromRows(rows)
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			ie.File = name

			return sales.Dataset{}, ie
		}

		return sales.Dataset{}, &Error{File: name, Err: err}
	}

	ds.Meta["source"] = strings.TrimPrefix(ext, ".")
	ds.Meta["file"] = filepath.Base(name)

	return ds, nil
}

func readRows(data []byte, ext string) ([][]string, error) {
	switch ext {
	case ".xlsx", ".xlsm":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}

		defer func() { _ = file.Close() }()

		sheet := file.GetSheetName(0)
		if sheet == "" {
			return nil, ErrNoSheet
		}

		return file.GetRows(sheet)
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}

		if workbook == nil || workbook.NumSheets() == 0 {
			return nil, ErrNoSheet
		}

		return firstXLSSheet(workbook), nil
	case ".csv":
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true

		return r.ReadAll()
	default:
		return nil, fmt.Errorf("%w: %q (want .xlsx, .xls, .csv or .json)", ErrUnsupportedFormat, ext)
	}
}

// MetaInvalidCells is the meta key counting cells that held text where a
// number was expected.
const MetaInvalidCells = "invalid_cells"

// firstXLSSheet returns the rows of the first worksheet only. ReadAllCells
// walks every sheet, so its row limit is set to the first sheet's length.
// A sheet without data rows yields nothing.
func firstXLSSheet(workbook *xls.WorkBook) [][]string {
	sheet := workbook.GetSheet(0)
	if sheet == nil || sheet.MaxRow == 0 {
		return nil
	}

	return workbook.ReadAllCells(min(int(sheet.MaxRow)+1, maxXLSRows))
}

// DatasetFromRows maps a header row plus data rows onto hourly records.
// Headers are matched against Aliases. An unmatched time column falls back
// to the first column; other unmatched fields stay absent. A cell that is
// not a number is kept as absent and counted under MetaInvalidCells.
func DatasetFromRows(rows [][]string) (sales.Dataset, error) {
	if len(rows) == 0 {
		return sales.Dataset{}, ErrEmptySheet
	}

	header := rows[0]

	timeCol := columnIndex(header, Aliases[FieldTime])
	if timeCol < 0 {
		timeCol = 0
	}

	cols := make([]int, len(numericFields))
	for i, f := range numericFields {
		cols[i] = columnIndex(header, Aliases[f.name])
	}

	ds := sales.Dataset{WTD: map[string]any{}, Meta: map[string]any{}}
	invalid := 0

	for r := 1; r < len(rows); r++ {
		row := rows[r]
		if blank(row) {
			continue
		}

		rec := sales.HourlyRecord{Time: timeLabel(cell(row, timeCol))}

		for i, f := range numericFields {
			if cols[i] < 0 {
				continue
			}

			n, err := sales.ParseNum(cell(row, cols[i]))
			if err != nil {
				invalid++
			}

			f.set(&rec, n)
		}

		ds.Hourly = append(ds.Hourly, rec)
	}

	if invalid > 0 {
		ds.Meta[MetaInvalidCells] = invalid
	}

	return ds, nil
}

// InvalidCells reports how many non-numeric cells were loaded as missing.
func InvalidCells(ds sales.Dataset) int {
	switch n := ds.Meta[MetaInvalidCells].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// NormalizeHeader trims, lowercases, and collapses inner whitespace.
func NormalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func columnIndex(header []string, aliases []string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	for _, alias := range aliases {
		for i, h := range normalized {
			if h == alias {
				return i
			}
		}
	}

	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}

// timeLabel converts an unformatted Excel time serial such as 0.4166667
// into "10:00". Anything else is kept as written.
func timeLabel(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || f >= 1 || !strings.Contains(v, ".") {
		return v
	}

	return sales.ClockLabel(int(math.Round(f * 24 * 60)))
}
