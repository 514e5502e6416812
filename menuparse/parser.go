// Package menuparse turns uploaded menu files into structured per-day dish
// lists. It understands csv and xlsx exports laid out one row per
// (date, category, dishes...) and falls back to empty placeholder weekdays
// when a file yields nothing usable.
package menuparse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ParsedDay is one menu day as read from the uploaded file.
type ParsedDay struct {
	Date      time.Time
	DayOfWeek string
	Items     map[string][]string
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02.01.2006"}

// ParseMenuFile reads a menu file and returns its days, dates ascending and
// clamped to the requested month. An unreadable or empty file yields the
// placeholder work week (Sunday through Thursday) so a check can still run.
func ParseMenuFile(path string, month, year int) ([]ParsedDay, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcelRows(path)
	case ".csv", ".txt":
		rows, err = readCsvRows(path)
	default:
		return nil, fmt.Errorf("unsupported menu file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	days := ingestRows(rows, month, year)
	if len(days) == 0 {
		return PlaceholderDays(month, year), nil
	}
	return days, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all [][]string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func readCsvRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// ingestRows folds tabular rows into days. Expected layout per row:
// date, category, then one dish per remaining cell. Rows whose first cell is
// not a date in the requested month are skipped (headers, notes, totals).
func ingestRows(rows [][]string, month, year int) []ParsedDay {
	byDate := map[time.Time]map[string][]string{}

	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		date, ok := parseDate(strings.TrimSpace(stripBOM(row[0])))
		if !ok || int(date.Month()) != month || date.Year() != year {
			continue
		}

		category := strings.TrimSpace(row[1])
		if category == "" {
			continue
		}
		if byDate[date] == nil {
			byDate[date] = map[string][]string{}
		}
		for _, cell := range row[2:] {
			dish := strings.TrimSpace(cell)
			if dish != "" {
				byDate[date][category] = append(byDate[date][category], dish)
			}
		}
	}

	days := make([]ParsedDay, 0, len(byDate))
	for date, items := range byDate {
		days = append(days, ParsedDay{
			Date:      date,
			DayOfWeek: date.Weekday().String(),
			Items:     items,
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days
}

func parseDate(cell string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, cell); err == nil {
			return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// PlaceholderDays generates the month's Sunday-through-Thursday work week with
// empty item lists. Deterministic for a given month and year.
func PlaceholderDays(month, year int) []ParsedDay {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var days []ParsedDay
	for current := start; current.Before(end); current = current.AddDate(0, 0, 1) {
		weekday := current.Weekday()
		if weekday == time.Friday || weekday == time.Saturday {
			continue
		}
		days = append(days, ParsedDay{
			Date:      current,
			DayOfWeek: weekday.String(),
			Items:     map[string][]string{},
		})
	}
	return days
}
