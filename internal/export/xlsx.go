// Package export renders persisted inspections into downloadable workbooks.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"visara/internal/domain"
)

// InspectionXLSX renders an inspection into an Excel workbook with three
// sheets: Summary, Fields, and Tables. Tables are materialized into dense
// grids here; the stored form stays sparse.
func InspectionXLSX(insp *domain.Inspection) ([]byte, error) {
	var result domain.DocumentResult
	if err := json.Unmarshal(insp.Result, &result); err != nil {
		return nil, fmt.Errorf("export: unmarshaling result: %w", err)
	}
	var explanation domain.GroundedExplanation
	if err := json.Unmarshal(insp.Explanation, &explanation); err != nil {
		return nil, fmt.Errorf("export: unmarshaling explanation: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeSummarySheet(f, insp, &result, &explanation); err != nil {
		return nil, err
	}
	if err := writeFieldsSheet(f, &result); err != nil {
		return nil, err
	}
	if err := writeTablesSheet(f, &result); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, insp *domain.Inspection, result *domain.DocumentResult, explanation *domain.GroundedExplanation) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("export: renaming sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Inspection ID", insp.ID.String()},
		{"Kind", string(insp.Kind)},
		{"Mode", string(insp.Mode)},
		{"File", insp.FileName},
		{"Backend", insp.Backend},
		{"Units", insp.UnitsN},
		{"Confidence", insp.Confidence},
		{"Risk level", string(insp.RiskLevel)},
		{"Created at", insp.CreatedAt.Format("2006-01-02 15:04:05 UTC")},
		{},
		{"Explanation", explanation.Explanation},
		{"Recommendation", explanation.Recommendation},
	}
	for _, a := range explanation.Assumptions {
		rows = append(rows, []interface{}{"Assumption", a})
	}
	for _, l := range explanation.Limitations {
		rows = append(rows, []interface{}{"Limitation", l})
	}
	if len(result.Warnings) > 0 {
		rows = append(rows, []interface{}{})
		for _, w := range result.Warnings {
			rows = append(rows, []interface{}{"Warning", w})
		}
	}

	return writeRows(f, sheet, rows)
}

func writeFieldsSheet(f *excelize.File, result *domain.DocumentResult) error {
	const sheet = "Fields"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: creating sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{{"Unit", "Field", "Value", "Confidence"}}
	for _, page := range result.Pages {
		for _, field := range page.Fields {
			value := ""
			if field.Value != nil {
				value = *field.Value
			}
			rows = append(rows, []interface{}{page.PageIndex, field.Name, value, confidenceCell(field.Confidence)})
		}
	}

	return writeRows(f, sheet, rows)
}

func writeTablesSheet(f *excelize.File, result *domain.DocumentResult) error {
	const sheet = "Tables"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: creating sheet %s: %w", sheet, err)
	}

	rowCursor := 1
	for _, page := range result.Pages {
		for _, table := range page.Tables {
			header := fmt.Sprintf("Unit %d, table %d (%dx%d)", page.PageIndex, table.TableIndex, table.NRows, table.NCols)
			cell, err := excelize.CoordinatesToCellName(1, rowCursor)
			if err != nil {
				return fmt.Errorf("export: cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, header); err != nil {
				return fmt.Errorf("export: writing table header: %w", err)
			}
			rowCursor++

			grid := materialize(table)
			for _, row := range grid {
				for colIdx, text := range row {
					cell, err := excelize.CoordinatesToCellName(colIdx+1, rowCursor)
					if err != nil {
						return fmt.Errorf("export: cell name: %w", err)
					}
					if err := f.SetCellValue(sheet, cell, text); err != nil {
						return fmt.Errorf("export: writing table cell: %w", err)
					}
				}
				rowCursor++
			}
			rowCursor++
		}
	}

	return nil
}

// materialize expands a sparse cell list into a dense grid. Out-of-bounds
// cells grow the grid instead of being dropped; model row counts are not
// always trustworthy.
func materialize(table domain.ExtractedTable) [][]string {
	nRows, nCols := table.NRows, table.NCols
	for _, cell := range table.Cells {
		if cell.Row >= nRows {
			nRows = cell.Row + 1
		}
		if cell.Col >= nCols {
			nCols = cell.Col + 1
		}
	}
	if nRows <= 0 || nCols <= 0 {
		return nil
	}

	grid := make([][]string, nRows)
	for i := range grid {
		grid[i] = make([]string, nCols)
	}
	for _, cell := range table.Cells {
		if cell.Row >= 0 && cell.Col >= 0 {
			grid[cell.Row][cell.Col] = cell.Text
		}
	}
	return grid
}

func confidenceCell(c *domain.Confidence) string {
	if c == nil {
		return ""
	}
	if c.Score != nil {
		return fmt.Sprintf("%.2f", *c.Score)
	}
	return string(c.Level)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("export: cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("export: writing cell %s: %w", cell, err)
			}
		}
	}
	return nil
}
