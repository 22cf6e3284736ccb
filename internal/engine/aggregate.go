package engine

import (
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/shopspring/decimal"
)

// PeriodBalance is a channel's balance on the last day of a period.
type PeriodBalance struct {
	Period    period.Range
	ChannelID string
	Balance   decimal.Decimal
}

// PeriodTotal is the sum of transaction amounts for one key within a period.
type PeriodTotal struct {
	Period  period.Range
	Key     string
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
	Count   int
}

// Net returns Inflow + Outflow.
func (p PeriodTotal) Net() decimal.Decimal {
	return p.Inflow.Add(p.Outflow)
}

// PointSample samples every series at the last day of each period of
// granularity g covering ledger. Rows are ordered by period, then channel,
// and every (channel, period) pair gets a row.
func PointSample(series []Series, ledger period.Range, g period.Granularity) []PeriodBalance {
	periods := period.Enumerate(ledger.Start, ledger.End, g)
	out := make([]PeriodBalance, 0, len(periods)*len(series))
	for _, p := range periods {
		for _, s := range series {
			out = append(out, PeriodBalance{
				Period:    p,
				ChannelID: s.ChannelID,
				Balance:   s.At(p.End),
			})
		}
	}
	return out
}

// KeyFunc assigns a transaction to an aggregation key. Returning false
// leaves the transaction out of the sum.
type KeyFunc func(t *model.Transaction) (string, bool)

// WindowSum sums transaction amounts by key over every period of
// granularity g covering ledger. Every (key, period) pair in keys gets a row,
// zero when nothing fell in it; transactions mapping to a key outside keys
// are ignored. Undated transactions are skipped. Rows are ordered by period,
// then by the order of keys.
func WindowSum(txns []model.Transaction, ledger period.Range, g period.Granularity, loc *time.Location, keys []string, keyOf KeyFunc) []PeriodTotal {
	periods := period.Enumerate(ledger.Start, ledger.End, g)
	index := make(map[time.Time]int, len(periods))
	for i, p := range periods {
		index[p.Start] = i
	}
	keyIndex := make(map[string]int, len(keys))
	for i, k := range keys {
		keyIndex[k] = i
	}

	out := make([]PeriodTotal, len(periods)*len(keys))
	for pi, p := range periods {
		for ki, k := range keys {
			out[pi*len(keys)+ki] = PeriodTotal{Period: p, Key: k}
		}
	}

	for i := range txns {
		t := &txns[i]
		if !t.HasDate() {
			continue
		}
		key, ok := keyOf(t)
		if !ok {
			continue
		}
		ki, ok := keyIndex[key]
		if !ok {
			continue
		}
		pi, ok := index[period.StartOf(period.Day(*t.Date, loc), g)]
		if !ok {
			continue
		}
		row := &out[pi*len(keys)+ki]
		if t.Amount.IsPositive() {
			row.Inflow = row.Inflow.Add(t.Amount)
		} else {
			row.Outflow = row.Outflow.Add(t.Amount)
		}
		row.Count++
	}
	return out
}
