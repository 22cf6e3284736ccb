package engine

import (
	"slices"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/shopspring/decimal"
)

// Series is a dense daily running balance for one channel. Balances[i] is
// the closing balance on Start+i days.
type Series struct {
	Start     time.Time
	ChannelID string
	Balances  []decimal.Decimal
}

// End returns the last day covered by the series.
func (s Series) End() time.Time {
	return s.Start.AddDate(0, 0, len(s.Balances)-1)
}

// At returns the closing balance on day. Days before the series start have a
// zero balance; days after its end carry the final balance forward.
func (s Series) At(day time.Time) decimal.Decimal {
	if len(s.Balances) == 0 || day.Before(s.Start) {
		return decimal.Zero
	}
	i := daysBetween(s.Start, day)
	if i >= len(s.Balances) {
		i = len(s.Balances) - 1
	}
	return s.Balances[i]
}

// daysBetween counts calendar days between two midnight-UTC days.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// LedgerRange returns the span of calendar days from the earliest to the
// latest dated transaction in the ledger. ok is false when no transaction
// carries a date.
func LedgerRange(txns []model.Transaction, loc *time.Location) (period.Range, bool) {
	var r period.Range
	found := false
	for i := range txns {
		if !txns[i].HasDate() {
			continue
		}
		day := period.Day(*txns[i].Date, loc)
		if !found || day.Before(r.Start) {
			r.Start = day
		}
		if !found || day.After(r.End) {
			r.End = day
		}
		found = true
	}
	return r, found
}

// BuildSeries builds a gap-free daily running balance over ledger for every
// balance-sheet channel, starting from zero at the first day of the ledger.
// Channels with no activity still get a full series of zeros. Undated
// transactions are skipped. The result is ordered by channel ID.
func BuildSeries(channels []model.Channel, txns []model.Transaction, classes map[string]ChannelClass, ledger period.Range, loc *time.Location) []Series {
	days := daysBetween(ledger.Start, ledger.End) + 1
	if days <= 0 {
		return nil
	}

	deltas := make(map[string][]decimal.Decimal)
	for _, ch := range channels {
		if classes[ch.ID].OnBalanceSheet() {
			deltas[ch.ID] = make([]decimal.Decimal, days)
		}
	}

	for i := range txns {
		t := &txns[i]
		d, ok := deltas[t.ChannelID]
		if !ok || !t.HasDate() {
			continue
		}
		idx := daysBetween(ledger.Start, period.Day(*t.Date, loc))
		if idx < 0 || idx >= days {
			continue
		}
		d[idx] = d[idx].Add(t.Amount)
	}

	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	series := make([]Series, 0, len(ids))
	for _, id := range ids {
		running := decimal.Zero
		balances := deltas[id]
		for i := range balances {
			running = running.Add(balances[i])
			balances[i] = running
		}
		series = append(series, Series{ChannelID: id, Start: ledger.Start, Balances: balances})
	}
	return series
}
