package ingest

import (
	"fmt"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"
)

// TemplateSheet is the sheet name used by WriteTemplate.
const TemplateSheet = "Hourly"

// TemplateHeader is the header row of the blank template. Every column
// matches an alias in Aliases.
var TemplateHeader = []string{"Time", "Sales", "Txns", "Units", "Hour Target", "LY", "Traffic", "TTD Target"}

// WriteTemplate writes a blank workbook with one row per time slot.
func WriteTemplate(path string, times []string) error {
	file := excelize.NewFile()

	defer func() { _ = file.Close() }()

	err := file.SetSheetName("Sheet1", TemplateSheet)
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}

	header := make([]any, len(TemplateHeader))
	for i, h := range TemplateHeader {
		header[i] = h
	}

	err = file.SetSheetRow(TemplateSheet, "A1", &header)
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}

	for i, t := range times {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("template: %w", err)
		}

		err = file.SetCellStr(TemplateSheet, cell, t)
		if err != nil {
			return fmt.Errorf("template: %w", err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}

	err = atomic.WriteFile(path, buf)
	if err != nil {
		return fmt.Errorf("template: write %s: %w", path, err)
	}

	return nil
}
