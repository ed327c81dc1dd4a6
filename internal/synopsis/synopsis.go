// Package synopsis reduces a KPI table to the compact statistical summary
// that grounds the language-model prompt: date coverage, row count, and a
// mean/min/max triple per numeric column that actually has values.
package synopsis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opskpi/backend/internal/dataset"
)

type Stats struct {
	Name  string
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

type Synopsis struct {
	Columns []string // all table columns, date excluded, header order
	Start   string   // YYYY-MM-DD, empty when the table has no rows
	End     string
	Rows    int
	Metrics []Stats // one entry per column with at least one value
}

// Build computes the synopsis. It is a pure function of the table: the same
// table always yields the same synopsis, including metric order.
func Build(t *dataset.Table) Synopsis {
	s := Synopsis{
		Columns: append([]string(nil), t.Columns...),
		Rows:    t.Len(),
	}

	if t.Len() > 0 {
		start, end := t.DateRange()
		s.Start = start.Format("2006-01-02")
		s.End = end.Format("2006-01-02")
	}

	for _, name := range orderedColumns(t.Columns) {
		vals := t.Column(name)
		if len(vals) == 0 {
			continue
		}

		min, max, sum := vals[0], vals[0], 0.0
		for _, v := range vals {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}

		s.Metrics = append(s.Metrics, Stats{
			Name:  name,
			Count: len(vals),
			Mean:  sum / float64(len(vals)),
			Min:   min,
			Max:   max,
		})
	}

	return s
}

// Render produces the fixed-structure text block injected into the prompt.
// One line per metric keeps the block a small constant size regardless of
// how many rows the table has.
func (s Synopsis) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(s.Columns, ", "))
	if s.Start != "" {
		fmt.Fprintf(&b, "Date coverage: %s to %s\n", s.Start, s.End)
	}
	fmt.Fprintf(&b, "Rows: %d\n", s.Rows)
	for _, m := range s.Metrics {
		fmt.Fprintf(&b, "%s: mean=%.2f, min=%.2f, max=%.2f\n", m.Name, m.Mean, m.Min, m.Max)
	}

	return strings.TrimRight(b.String(), "\n")
}

// Metric returns the stats for a named column, if the synopsis carries it.
func (s Synopsis) Metric(name string) (Stats, bool) {
	for _, m := range s.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Stats{}, false
}

// orderedColumns lists known KPI columns first, in their canonical order,
// then any extra columns alphabetically. This keeps Render deterministic
// even when uploads shuffle the header.
func orderedColumns(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	ordered := make([]string, 0, len(columns))
	for _, c := range dataset.KPIColumns {
		if present[c] {
			ordered = append(ordered, c)
			present[c] = false
		}
	}

	var extra []string
	for c, ok := range present {
		if ok {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)

	return append(ordered, extra...)
}
