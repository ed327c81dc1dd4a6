package dataset_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/opskpi/backend/internal/dataset"
)

func TestLoad_SortsByDate(t *testing.T) {
	csv := "date,uptime_pct\n" +
		"2025-03-03,99.1\n" +
		"2025-03-01,98.5\n" +
		"2025-03-02,99.9\n"

	table, err := dataset.Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	for i := 1; i < table.Len(); i++ {
		if table.Rows[i].Date.Before(table.Rows[i-1].Date) {
			t.Fatalf("rows not sorted ascending at index %d", i)
		}
	}
	start, end := table.DateRange()
	if start.Format("2006-01-02") != "2025-03-01" || end.Format("2006-01-02") != "2025-03-03" {
		t.Fatalf("unexpected date range: %v to %v", start, end)
	}
}

func TestLoad_MissingDateColumn(t *testing.T) {
	csv := "uptime_pct,it_cost_usd\n99.1,2100\n"

	_, err := dataset.Load(strings.NewReader(csv))
	var formatErr *dataset.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if !strings.Contains(formatErr.Error(), "date") {
		t.Fatalf("error should name the missing column: %v", formatErr)
	}
}

func TestLoad_BadDateCell(t *testing.T) {
	csv := "date,uptime_pct\nnot-a-date,99.1\n"

	_, err := dataset.Load(strings.NewReader(csv))
	var formatErr *dataset.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestLoad_Unparsable(t *testing.T) {
	_, err := dataset.Load(strings.NewReader("\"unterminated"))
	var formatErr *dataset.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError for malformed CSV, got %v", err)
	}
}

func TestLoad_NonNumericCellsAreMissing(t *testing.T) {
	csv := "date,uptime_pct,note\n" +
		"2025-03-01,99.1,fine\n" +
		"2025-03-02,,degraded\n"

	table, err := dataset.Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := table.Column("uptime_pct"); len(got) != 1 || got[0] != 99.1 {
		t.Fatalf("expected one uptime value, got %v", got)
	}
	if got := table.Column("note"); len(got) != 0 {
		t.Fatalf("text column should carry no numeric values, got %v", got)
	}
	if !table.HasColumn("note") {
		t.Fatal("note should still be listed as a column")
	}
}

func TestLoad_DateColumnCaseInsensitive(t *testing.T) {
	csv := "Date,it_cost_usd\n2025-03-01,1800\n"

	table, err := dataset.Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", table.Len())
	}
}

func TestLoadFile_BundledSample(t *testing.T) {
	table, err := dataset.LoadFile("../../data/sample_kpis.csv")
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if table.Len() != 90 {
		t.Fatalf("expected 90 daily rows, got %d", table.Len())
	}
	for _, col := range dataset.KPIColumns {
		if !table.HasColumn(col) {
			t.Fatalf("sample is missing column %q", col)
		}
	}
	for _, v := range table.Column("uptime_pct") {
		if v < 98.0 || v > 100.0 {
			t.Fatalf("uptime out of expected range: %v", v)
		}
	}
}
