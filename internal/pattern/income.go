package pattern

import (
	"cmp"
	"slices"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/shopspring/decimal"
)

// IncomeClassifier groups deposits by month and income source.
type IncomeClassifier struct {
	table *AliasTable
}

// NewIncomeClassifier creates a classifier over an alias table.
func NewIncomeClassifier(table *AliasTable) *IncomeClassifier {
	return &IncomeClassifier{table: table}
}

// Attribution is the source assigned to one deposit.
type Attribution struct {
	TransactionID string `json:"transaction_id"`
	Source        string `json:"source"`
	Matched       bool   `json:"matched"`
}

// Attribute resolves the source of every deposit, dropping those attributed
// to the internal-movement source.
func (c *IncomeClassifier) Attribute(deposits []model.Transaction) []Attribution {
	out := make([]Attribution, 0, len(deposits))
	for _, t := range deposits {
		source, matched := c.table.Match(t)
		if c.table.IsInternal(source) {
			continue
		}
		out = append(out, Attribution{TransactionID: t.ID, Source: source, Matched: matched})
	}
	return out
}

type incomeKey struct {
	month  time.Time
	source string
}

// Summarize returns one row per (month, source) with the summed amount and
// the deposit count. Undated deposits are skipped. Rows are ordered by
// month, then by descending total, then by source name.
func (c *IncomeClassifier) Summarize(deposits []model.Transaction, loc *time.Location) []model.IncomeSourceRow {
	totals := make(map[incomeKey]*model.IncomeSourceRow)
	for _, t := range deposits {
		if !t.HasDate() {
			continue
		}
		source, _ := c.table.Match(t)
		if c.table.IsInternal(source) {
			continue
		}
		key := incomeKey{month: period.MonthStart(period.Day(*t.Date, loc)), source: source}
		row, ok := totals[key]
		if !ok {
			row = &model.IncomeSourceRow{Month: key.month, Source: source, Total: decimal.Zero}
			totals[key] = row
		}
		row.Total = row.Total.Add(t.Amount)
		row.Count++
	}

	rows := make([]model.IncomeSourceRow, 0, len(totals))
	for _, row := range totals {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b model.IncomeSourceRow) int {
		return cmp.Or(
			a.Month.Compare(b.Month),
			b.Total.Cmp(a.Total),
			cmp.Compare(a.Source, b.Source),
		)
	})
	return rows
}
