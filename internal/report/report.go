// Package report renders extraction results as .xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

const (
	SheetCreated  = "Created"
	SheetClosed   = "Closed"
	SheetTimeLogs = "TimeLogs"

	cellLayout = "2006-01-02 15:04"
)

var (
	createdHeader = []any{"User", "Shift start", "Shift end", "Hours", "Active", "In device", "Out device"}
	closedHeader  = []any{"Record", "User", "Shift start", "Shift end", "Hours", "Out device"}
	timeLogHeader = []any{"User", "Time", "Device serial"}
)

// WriteTimeclocks writes one sheet of created records and one of closures.
// Times are shown in loc.
func WriteTimeclocks(w io.Writer, res types.ExtractResult, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := headerStyle(f)
	if err != nil {
		return err
	}

	created := append([]types.ShiftRecord(nil), res.Created...)
	sort.SliceStable(created, func(i, j int) bool {
		if created[i].UserID != created[j].UserID {
			return created[i].UserID < created[j].UserID
		}
		return created[i].ShiftStart.Before(created[j].ShiftStart)
	})
	rows := make([][]any, 0, len(created))
	for _, r := range created {
		end, hours := "", any("")
		if r.ShiftEnd != nil {
			end = r.ShiftEnd.In(loc).Format(cellLayout)
			hours = roundHours(r.ShiftEnd.Sub(r.ShiftStart))
		}
		rows = append(rows, []any{
			r.UserID, r.ShiftStart.In(loc).Format(cellLayout), end, hours, yesNo(r.ShiftActive), r.InDevice, r.OutDevice,
		})
	}
	if err := writeSheet(f, SheetCreated, header, createdHeader, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, c := range res.Closed {
		rows = append(rows, []any{
			c.ID, c.UserID, c.ShiftStart.In(loc).Format(cellLayout), c.ShiftEnd.In(loc).Format(cellLayout),
			roundHours(c.ShiftEnd.Sub(c.ShiftStart)), c.OutDevice,
		})
	}
	if err := writeSheet(f, SheetClosed, header, closedHeader, rows); err != nil {
		return err
	}

	return finish(f, w, SheetCreated)
}

// WriteTimeLogs writes created time logs to a single sheet.
func WriteTimeLogs(w io.Writer, res types.TimeLogResult, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := headerStyle(f)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(res.Created))
	for _, l := range res.Created {
		rows = append(rows, []any{l.UserID, l.Timelog.In(loc).Format(cellLayout), l.DeviceSerialNo})
	}
	if err := writeSheet(f, SheetTimeLogs, header, timeLogHeader, rows); err != nil {
		return err
	}
	return finish(f, w, SheetTimeLogs)
}

func headerStyle(f *excelize.File) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("header style: %w", err)
	}
	return id, nil
}

func writeSheet(f *excelize.File, name string, style int, header []any, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("new sheet %s: %w", name, err)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", name, err)
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(name, "A1", last+"1", style); err != nil {
		return fmt.Errorf("%s header style: %w", name, err)
	}
	if err := f.SetColWidth(name, "A", last, 20); err != nil {
		return fmt.Errorf("%s widths: %w", name, err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", name, i+2, err)
		}
	}
	return nil
}

func finish(f *excelize.File, w io.Writer, active string) error {
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(active)
	if err != nil {
		return fmt.Errorf("sheet index: %w", err)
	}
	f.SetActiveSheet(idx)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func roundHours(d time.Duration) float64 {
	return float64(d.Round(time.Minute)/time.Minute) / 60
}
