package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/habitsim/internal/models"
	"github.com/xuri/excelize/v2"
)

var excelHeader = []string{"id", "name", "description"}

// parseExcel reads the first sheet. The first row names the columns; id is required,
// name and description are optional. Blank rows are skipped and empty cells are absent.
func parseExcel(content []byte) ([]models.Habit, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []models.Habit{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return []models.Habit{}, nil
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idCol, ok := cols["id"]
	if !ok {
		return nil, fmt.Errorf("sheet %q has no id column", sheets[0])
	}
	cell := func(row []string, name string) *string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return nil
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			return nil
		}
		return &v
	}

	habits := []models.Habit{}
	for n, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		var id string
		if idCol < len(row) {
			id = strings.TrimSpace(row[idCol])
		}
		if id == "" {
			return nil, fmt.Errorf("sheet %q row %d: missing id", sheets[0], n+2)
		}
		habits = append(habits, models.Habit{
			ID:          id,
			Name:        cell(row, "name"),
			Description: cell(row, "description"),
		})
	}
	return habits, nil
}

// WriteExcel writes habits to a single-sheet workbook with an id/name/description header.
func WriteExcel(w io.Writer, habits []models.Habit) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(excelHeader))
	for i, h := range excelHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, h := range habits {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{h.ID, models.Deref(h.Name), models.Deref(h.Description)}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
