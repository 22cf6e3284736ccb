package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/shopspring/decimal"
)

// ComposeBalanceSheet turns period-end channel balances into balance sheet
// rows. Liabilities are reported as the amount owed, the negation of the
// liability channels' cumulative balance, and Equity is always
// Assets - Liabilities. Samples must be ordered by period as PointSample
// returns them.
func ComposeBalanceSheet(samples []PeriodBalance, g period.Granularity, classes map[string]ChannelClass, names map[string]string) ([]model.BalanceSheetRow, []model.ChannelBalance) {
	var rows []model.BalanceSheetRow
	breakdown := make([]model.ChannelBalance, 0, len(samples))

	for i := 0; i < len(samples); {
		p := samples[i].Period
		assets, owed := decimal.Zero, decimal.Zero
		for ; i < len(samples) && samples[i].Period.Start.Equal(p.Start); i++ {
			s := samples[i]
			class := classes[s.ChannelID]
			switch {
			case class.IsAsset():
				assets = assets.Add(s.Balance)
			case class.IsLiability():
				owed = owed.Sub(s.Balance)
			default:
				continue
			}
			breakdown = append(breakdown, model.ChannelBalance{
				PeriodStart: p.Start,
				PeriodEnd:   p.End,
				ChannelID:   s.ChannelID,
				ChannelName: names[s.ChannelID],
				Role:        class.Role,
				Granularity: g,
				Balance:     s.Balance,
			})
		}
		rows = append(rows, model.BalanceSheetRow{
			PeriodStart: p.Start,
			PeriodEnd:   p.End,
			Granularity: g,
			Assets:      assets,
			Liabilities: owed,
			Equity:      assets.Sub(owed),
		})
	}
	return rows, breakdown
}

var activities = []string{
	string(model.ActivityOperating),
	string(model.ActivityInvesting),
	string(model.ActivityFinancing),
}

// transitKey aggregates matched transfer legs so that a month can report the
// legs whose partner was booked in a different month.
const transitKey = "in_transit"

// ComposeCashFlow builds the monthly cash flow statement from the external
// asset transactions, grouped by the owning channel's activity. It also
// returns the external inflows behind each month's inflow total.
func ComposeCashFlow(txns []model.Transaction, classes map[string]ChannelClass, partners map[model.TransactionKey]model.TransactionKey, ledger period.Range, loc *time.Location) ([]model.CashFlowRow, []model.ExternalInflow) {
	keys := append(append([]string(nil), activities...), transitKey)
	totals := WindowSum(txns, ledger, period.Monthly, loc, keys, func(t *model.Transaction) (string, bool) {
		class := classes[t.ChannelID]
		if !class.IsAsset() {
			return "", false
		}
		if _, internal := partners[t.Key()]; internal {
			return transitKey, true
		}
		return string(class.Activity), true
	})

	var rows []model.CashFlowRow
	for i := 0; i < len(totals); i += len(keys) {
		p := totals[i].Period
		row := model.CashFlowRow{MonthStart: p.Start, MonthEnd: p.End}
		for _, pt := range totals[i : i+len(keys)] {
			if pt.Key == transitKey {
				row.InTransit = pt.Net()
				continue
			}
			switch model.CashFlowActivity(pt.Key) {
			case model.ActivityOperating:
				row.Operating = pt.Net()
			case model.ActivityInvesting:
				row.Investing = pt.Net()
			case model.ActivityFinancing:
				row.Financing = pt.Net()
			}
			row.TotalInflow = row.TotalInflow.Add(pt.Inflow)
			row.TotalOutflow = row.TotalOutflow.Add(pt.Outflow)
		}
		row.Net = row.Operating.Add(row.Investing).Add(row.Financing)
		rows = append(rows, row)
	}

	var inflows []model.ExternalInflow
	for i := range txns {
		t := &txns[i]
		class := classes[t.ChannelID]
		if !t.HasDate() || !t.Amount.IsPositive() || !class.IsAsset() {
			continue
		}
		if _, internal := partners[t.Key()]; internal {
			continue
		}
		day := period.Day(*t.Date, loc)
		inflows = append(inflows, model.ExternalInflow{
			MonthStart:    period.MonthStart(day),
			Occurred:      *t.Date,
			TransactionID: t.ID,
			ChannelID:     t.ChannelID,
			Description:   t.Description,
			Activity:      class.Activity,
			Amount:        t.Amount,
		})
	}
	sortInflows(inflows)
	return rows, inflows
}

func sortInflows(inflows []model.ExternalInflow) {
	slices.SortFunc(inflows, func(a, b model.ExternalInflow) int {
		return cmp.Or(a.Occurred.Compare(b.Occurred), cmp.Compare(a.ChannelID, b.ChannelID), cmp.Compare(a.TransactionID, b.TransactionID))
	})
}
