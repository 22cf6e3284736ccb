package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "0.00"},
		{in: "999.5", want: "999.50"},
		{in: "1000", want: "1,000.00"},
		{in: "-1234567.891", want: "-1,234,567.89"},
		{in: "123456", want: "123,456.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestRenderBalanceSheet(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := RenderBalanceSheet([]model.BalanceSheetRow{{
		PeriodStart: jan,
		PeriodEnd:   jan.AddDate(0, 1, -1),
		Granularity: period.Monthly,
		Assets:      decimal.NewFromInt(5000),
		Liabilities: decimal.NewFromInt(7000),
		Equity:      decimal.NewFromInt(-2000),
	}})

	for _, want := range []string{"Assets", "2024-01-31", "5,000.00", "7,000.00", "-2,000.00"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderInstallments_Schedule(t *testing.T) {
	plan := model.InstallmentPlan{
		PurchaseDate:  time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		Description:   "TV",
		Total:         decimal.NewFromInt(90000),
		MonthlyAmount: decimal.NewFromInt(30000),
		Months:        3,
		PaidMonths:    1,
		Schedule: []model.InstallmentPayment{
			{Sequence: 0, Status: model.PaymentPaid, Amount: decimal.NewFromInt(30000), PeriodStart: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
			{Sequence: 1, Status: model.PaymentScheduled, Amount: decimal.NewFromInt(30000), PeriodStart: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	out := RenderInstallments([]model.InstallmentPlan{plan})
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "scheduled")
	assert.Contains(t, out, "2024-02")
}

func TestRenderChannels(t *testing.T) {
	channels := []model.Channel{
		{ID: "card", Name: "Visa Card", Category: model.ChannelCard},
		{ID: "market", Name: "Marketplace", Category: model.ChannelWallet, Metadata: map[string]string{model.MetaOffBalance: "true"}},
	}
	out := RenderChannels(channels, engine.DefaultClassifierConfig().ClassifyAll(channels))

	lines := strings.Split(out, "\n")
	var cardLine, marketLine string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "Visa Card"):
			cardLine = l
		case strings.Contains(l, "Marketplace"):
			marketLine = l
		}
	}
	assert.Contains(t, cardLine, "liability")
	assert.Contains(t, marketLine, "no")
}

func TestRenderWarnings(t *testing.T) {
	assert.Empty(t, RenderWarnings(nil))

	out := RenderWarnings([]model.Warning{
		{TransactionID: "t1", Message: "transaction has no usable timestamp"},
		{ChannelID: "ghost", Message: "unknown channel"},
	})
	assert.Contains(t, out, "2 data-quality warning(s)")
	assert.Contains(t, out, "t1: transaction has no usable timestamp")
	assert.Contains(t, out, "ghost: unknown channel")
}

func TestRenderSignFixes(t *testing.T) {
	fixes := []engine.SignFix{{TransactionID: "t1", From: decimal.NewFromInt(500), To: decimal.NewFromInt(-500)}}

	out := RenderSignFixes(fixes, nil)
	assert.Contains(t, out, "t1")
	assert.Contains(t, out, "-500.00")
	assert.NotContains(t, out, "Recorded")

	at := time.Date(2024, time.March, 2, 10, 4, 5, 0, time.UTC)
	out = RenderSignFixes(fixes, []time.Time{at})
	assert.Contains(t, out, "Recorded")
	assert.Contains(t, out, "2024-03-02 10:04:05")
}

func TestRenderAttributions(t *testing.T) {
	out := RenderAttributions([]pattern.Attribution{
		{TransactionID: "pay", Source: "Acme", Matched: true},
		{TransactionID: "misc", Source: "other"},
	})
	for _, want := range []string{"pay", "Acme", "pattern", "misc", "fallback"} {
		assert.Contains(t, out, want)
	}
}
