package dataset

import "time"

// Canonical KPI columns, in display order. Tables may carry any subset of
// these plus arbitrary extra numeric columns.
var KPIColumns = []string{
	"uptime_pct",
	"tickets_opened",
	"tickets_resolved",
	"avg_resolution_hrs",
	"it_cost_usd",
}

// Row is one daily record. Values holds only the numeric cells that were
// present and parseable in the source; an absent key means a missing value.
type Row struct {
	Date   time.Time
	Values map[string]float64
}

// Table is a date-sorted KPI dataset. It is immutable once built; a new
// upload produces a new Table.
type Table struct {
	Columns []string // numeric column names in header order, date excluded
	Rows    []Row
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// DateRange returns the first and last dates of the table. Rows are sorted
// ascending, so these are the min and max.
func (t *Table) DateRange() (time.Time, time.Time) {
	if len(t.Rows) == 0 {
		return time.Time{}, time.Time{}
	}
	return t.Rows[0].Date, t.Rows[len(t.Rows)-1].Date
}

// Column returns the non-missing values of a numeric column in row order.
func (t *Table) Column(name string) []float64 {
	var vals []float64
	for _, row := range t.Rows {
		if v, ok := row.Values[name]; ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// HasColumn reports whether the column appeared in the source header.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
