// Package kpi computes the headline aggregates shown as dashboard cards.
package kpi

import (
	"time"

	"github.com/opskpi/backend/internal/dataset"
)

// Cards holds the dashboard card values. A nil field means the table lacks
// the column (or, for the cost delta, enough months) to compute it; the card
// is omitted rather than shown as zero.
type Cards struct {
	UptimeAvg          *float64 `json:"uptime_avg,omitempty"`
	TicketsOpened30d   *float64 `json:"tickets_opened_30d,omitempty"`
	TicketsResolved30d *float64 `json:"tickets_resolved_30d,omitempty"`
	AvgResolutionHrs   *float64 `json:"avg_resolution_hrs,omitempty"`
	CostMoMPct         *float64 `json:"cost_mom_pct,omitempty"`
	CostLastMonthAvg   *float64 `json:"cost_last_month_avg,omitempty"`
}

// Compute derives the cards from a table. Uptime and resolution time average
// over the whole table; ticket counts sum the trailing 30 days; the cost card
// compares the mean daily cost of the last two calendar months.
func Compute(t *dataset.Table) Cards {
	var cards Cards
	if t.Len() == 0 {
		return cards
	}

	cards.UptimeAvg = mean(t.Column("uptime_pct"))
	cards.AvgResolutionHrs = mean(t.Column("avg_resolution_hrs"))

	_, last := t.DateRange()
	cutoff := last.AddDate(0, 0, -30)
	cards.TicketsOpened30d = sumSince(t, "tickets_opened", cutoff)
	cards.TicketsResolved30d = sumSince(t, "tickets_resolved", cutoff)

	cards.CostMoMPct, cards.CostLastMonthAvg = costMonthOverMonth(t)

	return cards
}

func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}

func sumSince(t *dataset.Table, column string, cutoff time.Time) *float64 {
	if !t.HasColumn(column) {
		return nil
	}
	sum, seen := 0.0, false
	for _, row := range t.Rows {
		if row.Date.Before(cutoff) {
			continue
		}
		if v, ok := row.Values[column]; ok {
			sum += v
			seen = true
		}
	}
	if !seen {
		return nil
	}
	return &sum
}

// costMonthOverMonth returns the percent change between the mean daily cost
// of the last calendar month in the table and the month before it, plus the
// last month's mean. Both are nil with fewer than two months of cost data.
func costMonthOverMonth(t *dataset.Table) (*float64, *float64) {
	type bucket struct {
		sum   float64
		count int
	}

	sums := make(map[string]*bucket)
	var months []string
	for _, row := range t.Rows {
		v, ok := row.Values["it_cost_usd"]
		if !ok {
			continue
		}
		key := row.Date.Format("2006-01")
		b := sums[key]
		if b == nil {
			b = &bucket{}
			sums[key] = b
			months = append(months, key) // rows are date-sorted, so months are too
		}
		b.sum += v
		b.count++
	}

	if len(months) == 0 {
		return nil, nil
	}

	lastKey := months[len(months)-1]
	lastAvg := sums[lastKey].sum / float64(sums[lastKey].count)

	if len(months) < 2 {
		return nil, &lastAvg
	}

	prevKey := months[len(months)-2]
	prevAvg := sums[prevKey].sum / float64(sums[prevKey].count)
	if prevAvg == 0 {
		return nil, &lastAvg
	}

	pct := (lastAvg - prevAvg) / prevAvg * 100
	return &pct, &lastAvg
}
