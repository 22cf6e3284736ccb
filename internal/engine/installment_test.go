package engine

import (
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanInstallments(t *testing.T) {
	snap := testutil.NewLedger(t).
		Channel("card", "삼성카드", model.ChannelOther).
		Channel("bank", "Checking", model.ChannelBank).
		Txn("card", "2024-01-15 13:00", "-120000", testutil.WithID("tv"), testutil.WithInstallments(4)).
		Txn("card", "2024-01-20 13:00", "-50000", testutil.WithID("lump"), testutil.WithInstallments(1)).
		Txn("card", "2024-01-21 13:00", "-90000", testutil.WithID("cancelled"), testutil.WithInstallments(3), testutil.WithRaw("status", "승인취소")).
		Txn("card", "2024-01-22 13:00", "-60000", testutil.WithID("corrected"), testutil.WithInstallments(3), testutil.WithType("정정 매출")).
		Txn("card", "2024-02-03 13:00", "-30000", testutil.WithID("parsed"), testutil.WithType("할부 3개월")).
		Txn("bank", "2024-01-15 13:00", "-120000", testutil.WithInstallments(4)).
		Undated("card", "-10000", testutil.WithInstallments(2)).
		Snapshot()

	classes := DefaultClassifierConfig().ClassifyAll(snap.Channels)
	now := testutil.At(t, "2024-03-01")
	plans := PlanInstallments(snap.Transactions, classes, DefaultCancelMarkers, now, time.UTC, false)
	require.Len(t, plans, 2)

	tv := plans[0]
	assert.Equal(t, "tv", tv.PurchaseID)
	assert.Equal(t, "card", tv.ChannelID)
	assert.True(t, decimal.NewFromInt(120000).Equal(tv.Total))
	assert.True(t, decimal.NewFromInt(30000).Equal(tv.MonthlyAmount))
	assert.Equal(t, 4, tv.Months)
	assert.Equal(t, 2, tv.MonthsElapsed)
	assert.Equal(t, 2, tv.PaidMonths)
	assert.Equal(t, 2, tv.RemainingMonths)
	assert.True(t, decimal.NewFromInt(60000).Equal(tv.RemainingPrincipal))
	assert.Equal(t, day(2024, time.January, 15), tv.PurchaseDate)
	assert.Equal(t, day(2024, time.January, 1), tv.FirstDueMonth)
	assert.Equal(t, day(2024, time.April, 30), tv.ProjectedEndDate)
	assert.Nil(t, tv.Schedule)

	parsed := plans[1]
	assert.Equal(t, "parsed", parsed.PurchaseID)
	assert.Equal(t, 3, parsed.Months)
	assert.Equal(t, 1, parsed.PaidMonths)
	assert.True(t, decimal.NewFromInt(20000).Equal(parsed.RemainingPrincipal))
}

func TestPlanInstallment_Boundaries(t *testing.T) {
	purchase := model.Transaction{ID: "p", ChannelID: "card", Amount: decimal.NewFromInt(-120000)}
	ts := testutil.At(t, "2024-01-15 13:00")
	purchase.Date = &ts

	tests := []struct {
		name          string
		now           string
		wantElapsed   int
		wantPaid      int
		wantRemaining int
		wantPrincipal int64
	}{
		{name: "same month", now: "2024-01-31", wantElapsed: 0, wantPaid: 0, wantRemaining: 4, wantPrincipal: 120000},
		{name: "before purchase", now: "2023-12-01", wantElapsed: 0, wantPaid: 0, wantRemaining: 4, wantPrincipal: 120000},
		{name: "fully paid", now: "2024-05-01", wantElapsed: 4, wantPaid: 4, wantRemaining: 0, wantPrincipal: 0},
		{name: "long after", now: "2026-01-01", wantElapsed: 24, wantPaid: 4, wantRemaining: 0, wantPrincipal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanInstallment(purchase, 4, testutil.At(t, tt.now), time.UTC, false)
			assert.Equal(t, tt.wantElapsed, plan.MonthsElapsed)
			assert.Equal(t, tt.wantPaid, plan.PaidMonths)
			assert.Equal(t, tt.wantRemaining, plan.RemainingMonths)
			assert.True(t, decimal.NewFromInt(tt.wantPrincipal).Equal(plan.RemainingPrincipal), "got %s", plan.RemainingPrincipal)
		})
	}
}

func TestPlanInstallment_Schedule(t *testing.T) {
	ts := testutil.At(t, "2024-11-30 20:00")
	purchase := model.Transaction{ID: "p", ChannelID: "card", Amount: decimal.NewFromInt(-100000), Date: &ts}

	plan := PlanInstallment(purchase, 3, testutil.At(t, "2025-01-10"), time.UTC, true)
	require.Len(t, plan.Schedule, 3)
	assert.True(t, testutil.Amount(t, "33333.33").Equal(plan.MonthlyAmount))

	sum := decimal.Zero
	for i, p := range plan.Schedule {
		assert.Equal(t, i, p.Sequence)
		sum = sum.Add(p.Amount)
	}
	assert.True(t, decimal.NewFromInt(100000).Equal(sum), "schedule must sum to the purchase total")
	assert.True(t, testutil.Amount(t, "33333.34").Equal(plan.Schedule[2].Amount))

	assert.Equal(t, model.PaymentPaid, plan.Schedule[0].Status)
	assert.Equal(t, model.PaymentPaid, plan.Schedule[1].Status)
	assert.Equal(t, model.PaymentScheduled, plan.Schedule[2].Status)

	assert.Equal(t, day(2024, time.December, 1), plan.Schedule[1].PeriodStart)
	assert.Equal(t, day(2024, time.December, 31), plan.Schedule[1].PeriodEnd)
	assert.Equal(t, day(2025, time.January, 31), plan.ProjectedEndDate)
	assert.Equal(t, plan.ProjectedEndDate, plan.Schedule[2].PeriodEnd)
}

func TestInstallmentMonths(t *testing.T) {
	tests := []struct {
		raw    map[string]string
		name   string
		typ    string
		want   int
		wantOK bool
	}{
		{name: "korean months", typ: "할부 6개월", want: 6, wantOK: true},
		{name: "english months", typ: "Installment 12 Months", want: 12, wantOK: true},
		{name: "halbu prefix", typ: "할부3", want: 3, wantOK: true},
		{name: "bare raw number", raw: map[string]string{"할부개월": "10"}, want: 10, wantOK: true},
		{name: "lump sum", typ: "일시불"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InstallmentMonths(model.Transaction{Type: tt.typ, Raw: tt.raw})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
