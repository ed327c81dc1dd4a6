package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opskpi/backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// Load parses a CSV stream into a date-sorted Table.
//
// The only required column is "date" (ISO-8601 YYYY-MM-DD); its absence, an
// unparsable stream, or a bad date cell yields a *FormatError. Every other
// column is treated as an optional numeric series: cells that do not parse
// as numbers are recorded as missing rather than failing the load.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, formatErrorf("not parseable as CSV: %v", err)
	}
	if len(records) == 0 {
		return nil, formatErrorf("file is empty")
	}

	header := records[0]
	dateIdx := -1
	columns := make([]string, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if strings.EqualFold(name, "date") {
			dateIdx = i
			continue
		}
		columns = append(columns, name)
	}
	if dateIdx < 0 {
		return nil, formatErrorf("missing required column %q", "date")
	}

	rows := make([]Row, 0, len(records)-1)
	for n, record := range records[1:] {
		if dateIdx >= len(record) {
			return nil, formatErrorf("row %d has no date cell", n+2)
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return nil, formatErrorf("row %d: %q is not a YYYY-MM-DD date", n+2, record[dateIdx])
		}

		values := make(map[string]float64, len(columns))
		col := 0
		for i, cell := range record {
			if i == dateIdx {
				continue
			}
			if col >= len(columns) {
				break
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
				values[columns[col]] = v
			}
			col++
		}

		rows = append(rows, Row{Date: date, Values: values})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	table := &Table{Columns: columns, Rows: rows}

	logger.Debug("Dataset loaded",
		zap.Int("rows", len(rows)),
		zap.Strings("columns", columns),
	)

	return table, nil
}

// LoadFile loads the bundled sample (or any on-disk CSV).
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
