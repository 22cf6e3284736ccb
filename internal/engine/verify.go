package engine

import (
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/shopspring/decimal"
)

// Verify checks the identities every report must satisfy by construction:
// equity is assets minus liabilities in every period, each month's activity
// totals agree with its inflow and outflow totals, and each month's change in
// total assets equals its net cash flow plus the transfer legs in transit.
// A failure returns an *common.InvariantError.
func Verify(r *Report) error {
	for _, g := range period.All {
		for _, row := range r.BalanceSheets[g] {
			if !row.Assets.Sub(row.Liabilities).Equal(row.Equity) {
				return &common.InvariantError{
					Identity: "assets - liabilities = equity",
					Period:   rangeLabel(row.PeriodStart, row.PeriodEnd),
					Expected: row.Assets.Sub(row.Liabilities),
					Actual:   row.Equity,
				}
			}
		}
	}

	for _, row := range r.CashFlows {
		label := rangeLabel(row.MonthStart, row.MonthEnd)
		byActivity := row.Operating.Add(row.Investing).Add(row.Financing)
		if !byActivity.Equal(row.Net) {
			return &common.InvariantError{
				Identity: "operating + investing + financing = net",
				Period:   label,
				Expected: byActivity,
				Actual:   row.Net,
			}
		}
		if flows := row.TotalInflow.Add(row.TotalOutflow); !flows.Equal(row.Net) {
			return &common.InvariantError{
				Identity: "inflow + outflow = net",
				Period:   label,
				Expected: flows,
				Actual:   row.Net,
			}
		}
	}

	assets := make(map[time.Time]decimal.Decimal, len(r.BalanceSheets[period.Monthly]))
	for _, row := range r.BalanceSheets[period.Monthly] {
		assets[row.PeriodStart] = row.Assets
	}
	previous := decimal.Zero
	for _, row := range r.CashFlows {
		current := assets[row.MonthStart]
		delta := current.Sub(previous)
		if expected := row.Net.Add(row.InTransit); !delta.Equal(expected) {
			return &common.InvariantError{
				Identity: "change in assets = net cash flow",
				Period:   rangeLabel(row.MonthStart, row.MonthEnd),
				Expected: expected,
				Actual:   delta,
			}
		}
		previous = current
	}
	return nil
}

func rangeLabel(start, end time.Time) string {
	return period.Range{Start: start, End: end}.String()
}
