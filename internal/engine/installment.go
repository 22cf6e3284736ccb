package engine

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/shopspring/decimal"
)

// DefaultCancelMarkers flag cancelled or corrected card entries.
var DefaultCancelMarkers = []string{"취소", "cancel", "정정", "correction", "reversal"}

// statusFields are the raw fields inspected for cancel markers besides the
// transaction type and description.
var statusFields = []string{"status", "상태", "승인상태", "처리상태"}

// installmentFields are the raw fields searched for an installment count
// when the source did not provide one directly.
var installmentFields = []string{"installment", "할부", "할부개월", "installments"}

var installmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*개월`),
	regexp.MustCompile(`(?i)(\d+)\s*months?`),
	regexp.MustCompile(`할부\s*(\d+)`),
}

// InstallmentMonths returns the installment count of a transaction, taken
// from the parsed field when present, otherwise extracted from its type text
// or raw installment fields. A bare number in a raw installment field counts.
func InstallmentMonths(txn model.Transaction) (int, bool) {
	if txn.InstallmentMonths != nil {
		return *txn.InstallmentMonths, true
	}
	texts := []string{txn.Type}
	for _, f := range installmentFields {
		v := strings.TrimSpace(txn.Raw[f])
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
		texts = append(texts, v)
	}
	for _, text := range texts {
		for _, re := range installmentPatterns {
			if m := re.FindStringSubmatch(text); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}

// IsCancelled reports whether any status, type or description text carries
// one of the cancel markers.
func IsCancelled(txn model.Transaction, markers []string) bool {
	texts := []string{txn.Type, txn.Description}
	for _, f := range statusFields {
		texts = append(texts, txn.Raw[f])
	}
	for _, text := range texts {
		if containsAny(strings.ToLower(text), markers) {
			return true
		}
	}
	return false
}

// PlanInstallment computes the amortization state of one purchase as of now.
// The final scheduled payment absorbs the rounding remainder so that the
// schedule always sums to the purchase total.
func PlanInstallment(txn model.Transaction, months int, now time.Time, loc *time.Location, withSchedule bool) model.InstallmentPlan {
	total := txn.Amount.Abs()
	monthly := total.DivRound(decimal.NewFromInt(int64(months)), 2)
	purchased := period.Day(*txn.Date, loc)
	firstDue := period.MonthStart(purchased)

	elapsed := max(0, period.MonthsBetween(firstDue, period.Day(now, loc)))
	paid := min(elapsed, months)
	remainingPrincipal := total.Sub(monthly.Mul(decimal.NewFromInt(int64(paid))))
	if remainingPrincipal.IsNegative() || paid == months {
		remainingPrincipal = decimal.Zero
	}

	plan := model.InstallmentPlan{
		PurchaseDate:       purchased,
		FirstDueMonth:      firstDue,
		ProjectedEndDate:   firstDue.AddDate(0, months, -1),
		PurchaseID:         txn.ID,
		ChannelID:          txn.ChannelID,
		Description:        txn.Description,
		Total:              total,
		MonthlyAmount:      monthly,
		RemainingPrincipal: remainingPrincipal,
		Months:             months,
		MonthsElapsed:      elapsed,
		PaidMonths:         paid,
		RemainingMonths:    max(0, months-elapsed),
	}

	if withSchedule {
		plan.Schedule = make([]model.InstallmentPayment, months)
		scheduled := decimal.Zero
		for i := range months {
			start := firstDue.AddDate(0, i, 0)
			amount := monthly
			if i == months-1 {
				amount = total.Sub(scheduled)
			}
			scheduled = scheduled.Add(amount)
			status := model.PaymentScheduled
			if i < paid {
				status = model.PaymentPaid
			}
			plan.Schedule[i] = model.InstallmentPayment{
				PeriodStart: start,
				PeriodEnd:   period.MonthEnd(start),
				Status:      status,
				Amount:      amount,
				Sequence:    i,
			}
		}
	}
	return plan
}

// PlanInstallments returns a plan for every dated liability-channel
// purchase with more than one installment that is not cancelled, ordered by
// purchase date.
func PlanInstallments(txns []model.Transaction, classes map[string]ChannelClass, cancelMarkers []string, now time.Time, loc *time.Location, withSchedule bool) []model.InstallmentPlan {
	var plans []model.InstallmentPlan
	for i := range txns {
		t := txns[i]
		if !t.HasDate() || t.Amount.IsZero() || !classes[t.ChannelID].IsLiability() {
			continue
		}
		months, ok := InstallmentMonths(t)
		if !ok || months <= 1 || IsCancelled(t, cancelMarkers) {
			continue
		}
		plans = append(plans, PlanInstallment(t, months, now, loc, withSchedule))
	}
	slices.SortFunc(plans, func(a, b model.InstallmentPlan) int {
		return cmp.Or(a.PurchaseDate.Compare(b.PurchaseDate), cmp.Compare(a.ChannelID, b.ChannelID), cmp.Compare(a.PurchaseID, b.PurchaseID))
	})
	return plans
}
