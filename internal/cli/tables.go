package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// newTable builds a bordered table whose numeric columns are right-aligned.
func newTable(headers []string, numeric map[int]bool, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			style := TableCellStyle
			if numeric[col] {
				style = style.Align(lipgloss.Right)
				if row >= 0 && row < len(rows) && strings.HasPrefix(rows[row][col], "-") {
					style = style.Inherit(NegativeStyle)
				}
			}
			return style
		})
	return t.Render()
}

// FormatAmount renders an amount with thousands separators and two decimals.
func FormatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// RenderBalanceSheet renders balance sheet rows of one granularity.
func RenderBalanceSheet(rows []model.BalanceSheetRow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.PeriodStart.Format(dateLayout),
			r.PeriodEnd.Format(dateLayout),
			FormatAmount(r.Assets),
			FormatAmount(r.Liabilities),
			FormatAmount(r.Equity),
		})
	}
	return newTable(
		[]string{"Period Start", "Period End", "Assets", "Liabilities", "Equity"},
		map[int]bool{2: true, 3: true, 4: true},
		data)
}

// RenderChannelBalances renders the per-channel breakdown behind a balance sheet.
func RenderChannelBalances(rows []model.ChannelBalance) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.PeriodEnd.Format(dateLayout),
			r.ChannelName,
			string(r.Role),
			FormatAmount(r.Balance),
		})
	}
	return newTable([]string{"Period End", "Channel", "Role", "Balance"}, map[int]bool{3: true}, data)
}

// RenderCashFlow renders the monthly cash flow statement.
func RenderCashFlow(rows []model.CashFlowRow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.MonthStart.Format("2006-01"),
			FormatAmount(r.Operating),
			FormatAmount(r.Investing),
			FormatAmount(r.Financing),
			FormatAmount(r.TotalInflow),
			FormatAmount(r.TotalOutflow),
			FormatAmount(r.Net),
			FormatAmount(r.InTransit),
		})
	}
	return newTable(
		[]string{"Month", "Operating", "Investing", "Financing", "Inflow", "Outflow", "Net", "In Transit"},
		map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true},
		data)
}

// RenderInflows renders the external inflow drill-down.
func RenderInflows(rows []model.ExternalInflow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.Occurred.Format("2006-01-02 15:04"),
			r.ChannelID,
			string(r.Activity),
			r.Description,
			FormatAmount(r.Amount),
		})
	}
	return newTable([]string{"When", "Channel", "Activity", "Description", "Amount"}, map[int]bool{4: true}, data)
}

// RenderIncome renders monthly income by source.
func RenderIncome(rows []model.IncomeSourceRow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.Month.Format("2006-01"),
			r.Source,
			FormatAmount(r.Total),
			fmt.Sprint(r.Count),
		})
	}
	return newTable([]string{"Month", "Source", "Total", "Count"}, map[int]bool{2: true, 3: true}, data)
}

// RenderAttributions renders the income source chosen for each deposit.
func RenderAttributions(attributions []pattern.Attribution) string {
	data := make([][]string, 0, len(attributions))
	for _, a := range attributions {
		how := "pattern"
		if !a.Matched {
			how = "fallback"
		}
		data = append(data, []string{a.TransactionID, a.Source, how})
	}
	return newTable([]string{"Transaction", "Source", "Matched By"}, nil, data)
}

// RenderInstallments renders installment plans, followed by each plan's
// schedule when one was computed.
func RenderInstallments(plans []model.InstallmentPlan) string {
	data := make([][]string, 0, len(plans))
	for _, p := range plans {
		data = append(data, []string{
			p.PurchaseDate.Format(dateLayout),
			p.Description,
			FormatAmount(p.Total),
			FormatAmount(p.MonthlyAmount),
			fmt.Sprintf("%d/%d", p.PaidMonths, p.Months),
			FormatAmount(p.RemainingPrincipal),
			p.ProjectedEndDate.Format(dateLayout),
		})
	}
	out := newTable(
		[]string{"Purchased", "Description", "Total", "Monthly", "Paid", "Remaining", "Ends"},
		map[int]bool{2: true, 3: true, 5: true},
		data)

	for _, p := range plans {
		if len(p.Schedule) == 0 {
			continue
		}
		rows := make([][]string, 0, len(p.Schedule))
		for _, pay := range p.Schedule {
			rows = append(rows, []string{
				fmt.Sprint(pay.Sequence + 1),
				pay.PeriodStart.Format("2006-01"),
				string(pay.Status),
				FormatAmount(pay.Amount),
			})
		}
		out += "\n" + SubtleStyle.Render(p.Description) + "\n" +
			newTable([]string{"#", "Month", "Status", "Amount"}, map[int]bool{3: true}, rows)
	}
	return out
}

// RenderChannels renders channels with the role the engine derives for them.
func RenderChannels(channels []model.Channel, classes map[string]engine.ChannelClass) string {
	data := make([][]string, 0, len(channels))
	for _, ch := range channels {
		class := classes[ch.ID]
		onBalance := "yes"
		if class.OffBalance {
			onBalance = "no"
		}
		data = append(data, []string{
			ch.ID,
			ch.Name,
			string(ch.Category),
			string(class.Role),
			string(class.Activity),
			onBalance,
		})
	}
	return newTable([]string{"ID", "Name", "Category", "Role", "Activity", "On Balance"}, nil, data)
}

// RenderSignFixes renders sign corrections. When when is non-nil it holds the
// time each correction was recorded and is shown as a leading column.
func RenderSignFixes(fixes []engine.SignFix, when []time.Time) string {
	headers := []string{"Transaction", "Stored", "Corrected"}
	numeric := map[int]bool{1: true, 2: true}
	if when != nil {
		headers = append([]string{"Recorded"}, headers...)
		numeric = map[int]bool{2: true, 3: true}
	}
	data := make([][]string, 0, len(fixes))
	for i, fix := range fixes {
		row := []string{fix.TransactionID, FormatAmount(fix.From), FormatAmount(fix.To)}
		if when != nil {
			row = append([]string{when[i].Format(time.DateTime)}, row...)
		}
		data = append(data, row)
	}
	return newTable(headers, numeric, data)
}

// RenderWarnings renders data-quality warnings as a list.
func RenderWarnings(warnings []model.Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(FormatWarning(fmt.Sprintf("%d data-quality warning(s)", len(warnings))))
	b.WriteByte('\n')
	for _, w := range warnings {
		subject := w.TransactionID
		if subject == "" {
			subject = w.ChannelID
		}
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("  %s: %s", subject, w.Message)))
		b.WriteByte('\n')
	}
	return b.String()
}
