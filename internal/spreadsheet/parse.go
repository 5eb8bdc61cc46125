package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/astlabs/run-portal/pkg/models"
)

// RequiredSheets are the workbook sheets every uploaded file must contain.
var RequiredSheets = []string{"lots", "patents"}

// MissingSheetError identifies which required sheet a workbook lacks.
type MissingSheetError struct {
	Sheet string
}

func (e *MissingSheetError) Error() string {
	return fmt.Sprintf("excel file must contain a %q sheet", e.Sheet)
}

// Parse reads a workbook from memory, checks the required sheets exist, and
// summarizes each: header row plus a count of non-empty data rows. A sheet
// that is present but empty yields an empty header list and a zero count.
func Parse(data []byte, requiredSheets []string) (models.SheetSummary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return models.SheetSummary{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, name := range requiredSheets {
		idx, err := f.GetSheetIndex(name)
		if err != nil {
			return models.SheetSummary{}, fmt.Errorf("look up sheet %q: %w", name, err)
		}
		if idx == -1 {
			return models.SheetSummary{}, &MissingSheetError{Sheet: name}
		}
	}

	lotsHeaders, lotsCount, err := summarizeSheet(f, "lots")
	if err != nil {
		return models.SheetSummary{}, err
	}
	patentsHeaders, patentsCount, err := summarizeSheet(f, "patents")
	if err != nil {
		return models.SheetSummary{}, err
	}

	return models.SheetSummary{
		LotsHeaders:    lotsHeaders,
		PatentsHeaders: patentsHeaders,
		LotsCount:      lotsCount,
		PatentsCount:   patentsCount,
	}, nil
}

// summarizeSheet returns the sheet's header cells and data-row count. The
// first row is the header row; headers are reported only when at least one
// data row exists, matching the record-oriented view of the sheet.
func summarizeSheet(f *excelize.File, name string) ([]string, int, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return []string{}, 0, nil
	}

	count := 0
	for _, row := range rows[1:] {
		if !rowEmpty(row) {
			count++
		}
	}
	if count == 0 {
		return []string{}, 0, nil
	}

	headers := make([]string, 0, len(rows[0]))
	for _, cell := range rows[0] {
		if cell != "" {
			headers = append(headers, cell)
		}
	}
	return headers, count, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
