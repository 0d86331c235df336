package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"budgetbook/internal/core"
)

// ErrNothingToExport is returned for a period without entries.
var ErrNothingToExport = errors.New("no entries to export")

const bom = "\ufeff"

// Header is the first row of every export.
var Header = []string{"date", "description", "category", "type", "amount"}

// TypeLabel is income, fixed or variable. Expenses with any subtype other
// than fixed count as variable.
func TypeLabel(e core.Entry) string {
	switch {
	case e.Type == core.Income:
		return "income"
	case e.SubType == core.Fixed:
		return "fixed"
	default:
		return "variable"
	}
}

// Rows returns the header followed by one row per entry, in the given order.
func Rows(entries []core.Entry) [][]string {
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, Header)
	for _, e := range entries {
		rows = append(rows, []string{
			e.Date.String(),
			e.Description,
			e.Category,
			TypeLabel(e),
			strconv.FormatInt(e.Amount.Units, 10),
		})
	}
	return rows
}

// WriteCSV writes entries as UTF-8 CSV with a byte order mark so spreadsheet
// applications detect the encoding.
func WriteCSV(w io.Writer, entries []core.Entry) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}
	if _, err := io.WriteString(w, bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(entries)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// FileName is budgetbook_<year>_<MM>.csv.
func FileName(p core.Period) string {
	return fmt.Sprintf("budgetbook_%d_%02d.csv", p.Year, p.Month)
}
