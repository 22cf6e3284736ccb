package model

import (
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/shopspring/decimal"
)

// Snapshot is a single consistent read of the ledger. Every report is
// computed from exactly one snapshot.
type Snapshot struct {
	TakenAt      time.Time
	Channels     []Channel
	Transactions []Transaction
}

// TransferPair is an outbound and an inbound transaction judged to be the
// same money moving between two owned channels.
type TransferPair struct {
	OutboundID       string          `json:"outbound_id"`
	InboundID        string          `json:"inbound_id"`
	OutboundChannel  string          `json:"outbound_channel"`
	InboundChannel   string          `json:"inbound_channel"`
	Amount           decimal.Decimal `json:"amount"`
	Gap              time.Duration   `json:"gap"`
	OutboundOccurred time.Time       `json:"outbound_occurred"`
}

// OutboundKey identifies the outbound leg.
func (p TransferPair) OutboundKey() TransactionKey {
	return TransactionKey{ChannelID: p.OutboundChannel, ID: p.OutboundID}
}

// InboundKey identifies the inbound leg.
func (p TransferPair) InboundKey() TransactionKey {
	return TransactionKey{ChannelID: p.InboundChannel, ID: p.InboundID}
}

// BalanceSheetRow is one period of the balance sheet.
// Liabilities is the amount owed, so Equity = Assets - Liabilities is net worth.
type BalanceSheetRow struct {
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   time.Time          `json:"period_end"`
	Granularity period.Granularity `json:"granularity"`
	Assets      decimal.Decimal    `json:"assets"`
	Liabilities decimal.Decimal    `json:"liabilities"`
	Equity      decimal.Decimal    `json:"equity"`
}

// ChannelBalance is one channel's cumulative balance sampled at a period end.
type ChannelBalance struct {
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   time.Time          `json:"period_end"`
	ChannelID   string             `json:"channel_id"`
	ChannelName string             `json:"channel_name"`
	Role        ReportingRole      `json:"role"`
	Granularity period.Granularity `json:"granularity"`
	Balance     decimal.Decimal    `json:"balance"`
}

// CashFlowRow is one month of the cash flow statement. InTransit holds the
// legs of internal transfers whose partner leg was booked in another month.
type CashFlowRow struct {
	MonthStart   time.Time       `json:"month_start"`
	MonthEnd     time.Time       `json:"month_end"`
	Operating    decimal.Decimal `json:"operating"`
	Investing    decimal.Decimal `json:"investing"`
	Financing    decimal.Decimal `json:"financing"`
	TotalInflow  decimal.Decimal `json:"total_inflow"`
	TotalOutflow decimal.Decimal `json:"total_outflow"`
	Net          decimal.Decimal `json:"net"`
	InTransit    decimal.Decimal `json:"in_transit"`
}

// ExternalInflow is a drill-down entry behind a cash flow month's inflow total.
type ExternalInflow struct {
	MonthStart    time.Time        `json:"month_start"`
	Occurred      time.Time        `json:"occurred"`
	TransactionID string           `json:"transaction_id"`
	ChannelID     string           `json:"channel_id"`
	Description   string           `json:"description"`
	Activity      CashFlowActivity `json:"activity"`
	Amount        decimal.Decimal  `json:"amount"`
}

// IncomeSourceRow is the monthly total attributed to one income source.
type IncomeSourceRow struct {
	Month  time.Time       `json:"month"`
	Source string          `json:"source"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// PaymentStatus describes one scheduled installment.
type PaymentStatus string

// Installment payment statuses.
const (
	PaymentPaid      PaymentStatus = "paid"
	PaymentScheduled PaymentStatus = "scheduled"
)

// InstallmentPayment is one month of an installment schedule.
type InstallmentPayment struct {
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Status      PaymentStatus   `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Sequence    int             `json:"sequence"`
}

// InstallmentPlan is the amortization state of one installment purchase.
type InstallmentPlan struct {
	PurchaseDate       time.Time            `json:"purchase_date"`
	FirstDueMonth      time.Time            `json:"first_due_month"`
	// ProjectedEndDate is the last day of the final installment month,
	// FirstDueMonth plus Months-1 months.
	ProjectedEndDate   time.Time            `json:"projected_end_date"`
	PurchaseID         string               `json:"purchase_id"`
	ChannelID          string               `json:"channel_id"`
	Description        string               `json:"description"`
	Schedule           []InstallmentPayment `json:"schedule,omitempty"`
	Total              decimal.Decimal      `json:"total"`
	MonthlyAmount      decimal.Decimal      `json:"monthly_amount"`
	RemainingPrincipal decimal.Decimal      `json:"remaining_principal"`
	Months             int                  `json:"months"`
	MonthsElapsed      int                  `json:"months_elapsed"`
	PaidMonths         int                  `json:"paid_months"`
	RemainingMonths    int                  `json:"remaining_months"`
}

// Warning is a data-quality observation. Warnings never abort a report.
type Warning struct {
	TransactionID string `json:"transaction_id,omitempty"`
	ChannelID     string `json:"channel_id,omitempty"`
	Message       string `json:"message"`
}
