package httpapi

import (
	"fmt"
	"time"

	"fieldops/internal/domain"

	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const jobsSheet = "Jobs"

// JobsExportHeader column order of the jobs export.
var JobsExportHeader = []string{
	"Title",
	"Status",
	"Priority",
	"Job Type",
	"Form",
	"Assigned To",
	"Assigned By",
	"Unit",
	"Address",
	"Latitude",
	"Longitude",
	"Created At",
	"Updated At",
}

var jobsColumnWidths = []float64{30, 14, 10, 16, 24, 24, 24, 20, 36, 12, 12, 20, 20}

// exportNames id -> display name lookups for users and units.
type exportNames struct {
	users map[string]string
	units map[string]string
}

func (n exportNames) user(id *string) string {
	if id == nil {
		return ""
	}
	return n.users[*id]
}

func (n exportNames) unit(id *string) string {
	if id == nil {
		return ""
	}
	return n.units[*id]
}

func jobRow(j *domain.Job, names exportNames) []any {
	var lat, lon any = "", ""
	if j.Location != nil {
		lat, lon = j.Location.Lat, j.Location.Lon
	}
	return []any{
		j.Title,
		j.Status,
		j.Priority,
		j.JobType,
		j.FormTitle,
		names.user(j.AssignedTo),
		names.user(j.AssignedBy),
		names.unit(j.UnitID),
		j.Address,
		lat,
		lon,
		j.CreatedAt.Format(time.DateTime),
		j.UpdatedAt.Format(time.DateTime),
	}
}

// GenerateJobsExport renders jobs as a single-sheet xlsx workbook.
func GenerateJobsExport(jobs []*domain.Job, names exportNames) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", jobsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(JobsExportHeader))
	for i, h := range JobsExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(jobsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(JobsExportHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(jobsSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}

	for i, width := range jobsColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(jobsSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, j := range jobs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := jobRow(j, names)
		if err := f.SetSheetRow(jobsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
