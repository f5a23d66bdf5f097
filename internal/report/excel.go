package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mediclin/platform/internal/insight"
	"github.com/mediclin/platform/internal/patient"
	"github.com/mediclin/platform/internal/shared/types"
)

// rosterHeader is the column layout of the patient roster export
var rosterHeader = []string{
	"Patient Code",
	"Name",
	"Age",
	"Sex",
	"Risk Label",
	"Risk Confidence",
	"Last Analyzed",
	"Registered",
}

// GeneratePatientRoster renders the patient roster with each patient's
// latest risk insight as an Excel workbook.
func GeneratePatientRoster(patients []patient.Patient, risks map[types.ID]insight.Insight) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close only runs on error paths.

	sheetName := "Patients"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range rosterHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	widths := []float64{14, 24, 8, 10, 12, 16, 20, 20}
	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resolve column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, p := range patients {
		row := i + 2

		riskLabel, riskConfidence, lastAnalyzed := "", "", ""
		if risk, ok := risks[p.ID]; ok {
			riskLabel = risk.Label
			riskConfidence = fmt.Sprintf("%d", risk.Confidence)
			lastAnalyzed = risk.GeneratedAt.Format(time.RFC3339)
		}

		values := []any{
			p.Code,
			p.Name,
			p.Age,
			string(p.Sex),
			riskLabel,
			riskConfidence,
			lastAnalyzed,
			p.CreatedAt.Format(time.RFC3339),
		}

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}
