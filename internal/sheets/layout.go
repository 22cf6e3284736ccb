package sheets

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Section is one titled table on the report sheet.
type Section struct {
	Title  string
	Header []any
	Rows   [][]any
}

// span records where a section landed on the sheet, zero-indexed.
type span struct {
	titleRow  int
	headerRow int
	endRow    int
}

// BuildSections lays out the balance sheet, cash flow, income sources and
// installments in that order.
func BuildSections(bundle *service.ReportBundle) []Section {
	balance := Section{
		Title:  "Balance Sheet",
		Header: []any{"Granularity", "Period Start", "Period End", "Assets", "Liabilities", "Equity"},
	}
	for _, r := range bundle.BalanceSheet {
		balance.Rows = append(balance.Rows, []any{
			r.Granularity.String(),
			r.PeriodStart.Format(dateLayout),
			r.PeriodEnd.Format(dateLayout),
			money(r.Assets),
			money(r.Liabilities),
			money(r.Equity),
		})
	}

	cash := Section{
		Title:  "Cash Flow",
		Header: []any{"Month", "Operating", "Investing", "Financing", "Inflow", "Outflow", "Net", "In Transit"},
	}
	for _, r := range bundle.CashFlow {
		cash.Rows = append(cash.Rows, []any{
			r.MonthStart.Format("2006-01"),
			money(r.Operating),
			money(r.Investing),
			money(r.Financing),
			money(r.TotalInflow),
			money(r.TotalOutflow),
			money(r.Net),
			money(r.InTransit),
		})
	}

	income := Section{
		Title:  "Income Sources",
		Header: []any{"Month", "Source", "Total", "Count"},
	}
	for _, r := range bundle.Income {
		income.Rows = append(income.Rows, []any{
			r.Month.Format("2006-01"),
			r.Source,
			money(r.Total),
			r.Count,
		})
	}

	installments := Section{
		Title:  "Installments",
		Header: []any{"Purchased", "Description", "Total", "Monthly", "Months", "Paid", "Remaining", "Remaining Principal", "Ends"},
	}
	for _, p := range bundle.Installments {
		installments.Rows = append(installments.Rows, []any{
			p.PurchaseDate.Format(dateLayout),
			p.Description,
			money(p.Total),
			money(p.MonthlyAmount),
			p.Months,
			p.PaidMonths,
			p.RemainingMonths,
			money(p.RemainingPrincipal),
			p.ProjectedEndDate.Format(dateLayout),
		})
	}

	return []Section{balance, cash, income, installments}
}

// flatten turns sections into sheet rows: a title line, then the sections
// separated by a blank row.
func flatten(bundle *service.ReportBundle, sections []Section) ([][]any, []span) {
	values := [][]any{
		{
			"Ledger Report",
			fmt.Sprintf("%s - %s", bundle.Ledger.Start.Format(dateLayout), bundle.Ledger.End.Format(dateLayout)),
			"Generated " + bundle.GeneratedAt.Format("2006-01-02 15:04"),
		},
	}
	spans := make([]span, 0, len(sections))
	for _, s := range sections {
		values = append(values, []any{})
		sp := span{titleRow: len(values), headerRow: len(values) + 1}
		values = append(values, []any{s.Title}, s.Header)
		values = append(values, s.Rows...)
		sp.endRow = len(values)
		spans = append(spans, sp)
	}
	return values, spans
}

// money renders an exact two-place amount; USER_ENTERED input parses it as a number.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
