// Package engine turns a ledger snapshot into reconciled, periodized
// financial statements. Every function here is a pure computation over the
// snapshot it is given; nothing derived is cached between runs.
package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/period"
)

// Config holds configuration options for the reporting engine.
type Config struct {
	Location       *time.Location
	Logger         *slog.Logger
	CancelMarkers  []string
	Classifier     ClassifierConfig
	TransferWindow time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Location:       time.UTC,
		CancelMarkers:  DefaultCancelMarkers,
		Classifier:     DefaultClassifierConfig(),
		TransferWindow: DefaultTransferWindow,
	}
}

// Engine computes reports from ledger snapshots. It holds no state between
// calls and is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	config Config
}

// New creates an engine with the default configuration.
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(config Config) *Engine {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.TransferWindow <= 0 {
		config.TransferWindow = DefaultTransferWindow
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{config: config, logger: logger}
}

// Report holds every statement derived from one snapshot.
type Report struct {
	BalanceSheets   map[period.Granularity][]model.BalanceSheetRow
	ChannelBalances map[period.Granularity][]model.ChannelBalance
	Ledger          period.Range
	CashFlows       []model.CashFlowRow
	ExternalInflows []model.ExternalInflow
	Pairs           []model.TransferPair
	Warnings        []model.Warning
}

// ledger is the per-run annotation shared by every report: channel classes,
// matched transfers and data-quality warnings.
type ledger struct {
	classes  map[string]ChannelClass
	names    map[string]string
	partners map[model.TransactionKey]model.TransactionKey
	pairs    []model.TransferPair
	warnings []model.Warning
}

func (e *Engine) annotate(snap model.Snapshot) ledger {
	l := ledger{
		classes: e.config.Classifier.ClassifyAll(snap.Channels),
		names:   make(map[string]string, len(snap.Channels)),
	}
	for _, ch := range snap.Channels {
		l.names[ch.ID] = ch.Name
	}

	for i := range snap.Transactions {
		t := &snap.Transactions[i]
		if _, ok := l.classes[t.ChannelID]; !ok {
			l.warn(model.Warning{TransactionID: t.ID, ChannelID: t.ChannelID, Message: "transaction references an unknown channel"})
			continue
		}
		if !t.HasDate() {
			l.warn(model.Warning{TransactionID: t.ID, ChannelID: t.ChannelID, Message: "transaction has no usable timestamp; excluded from dated aggregation"})
		}
	}

	l.pairs = MatchTransfers(snap.Transactions, l.classes, e.config.TransferWindow)
	l.partners = Partners(l.pairs)

	for _, w := range l.warnings {
		e.logger.Warn("Data quality warning",
			"transaction", w.TransactionID,
			"channel", w.ChannelID,
			"message", w.Message)
	}
	e.logger.Debug("Annotated ledger",
		"channels", len(snap.Channels),
		"transactions", len(snap.Transactions),
		"transfer_pairs", len(l.pairs))
	return l
}

func (l *ledger) warn(w model.Warning) {
	l.warnings = append(l.warnings, w)
}

// Build computes the balance sheets, channel balances and cash flow
// statement for a snapshot and verifies their identities. Channels with
// uninterpretable role or activity metadata are rejected with
// common.ErrInvalidConfig. An error wrapping common.ErrInvariantViolation
// means the engine itself is wrong.
func (e *Engine) Build(snap model.Snapshot) (*Report, error) {
	for _, ch := range snap.Channels {
		if err := ch.ValidateMetadata(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
		}
	}

	l := e.annotate(snap)
	report := &Report{
		BalanceSheets:   make(map[period.Granularity][]model.BalanceSheetRow, len(period.All)),
		ChannelBalances: make(map[period.Granularity][]model.ChannelBalance, len(period.All)),
		Pairs:           l.pairs,
		Warnings:        l.warnings,
	}

	ledgerRange, ok := LedgerRange(snap.Transactions, e.config.Location)
	if !ok {
		e.logger.Info("No dated transactions in snapshot; statements are empty")
		return report, nil
	}
	report.Ledger = ledgerRange

	series := BuildSeries(snap.Channels, snap.Transactions, l.classes, ledgerRange, e.config.Location)
	e.logger.Debug("Built daily balance series",
		"channels", len(series),
		"from", ledgerRange.Start.Format(time.DateOnly),
		"to", ledgerRange.End.Format(time.DateOnly))

	for _, g := range period.All {
		samples := PointSample(series, ledgerRange, g)
		rows, breakdown := ComposeBalanceSheet(samples, g, l.classes, l.names)
		report.BalanceSheets[g] = rows
		report.ChannelBalances[g] = breakdown
		e.logger.Debug("Composed balance sheet", "granularity", g.String(), "periods", len(rows))
	}

	report.CashFlows, report.ExternalInflows = ComposeCashFlow(snap.Transactions, l.classes, l.partners, ledgerRange, e.config.Location)

	if err := Verify(report); err != nil {
		return nil, fmt.Errorf("failed to verify report: %w", err)
	}
	return report, nil
}

// Income attributes every external deposit on an asset channel to an
// income source and returns the monthly totals per source.
func (e *Engine) Income(snap model.Snapshot, aliases *pattern.AliasTable) ([]model.IncomeSourceRow, []model.Warning) {
	l := e.annotate(snap)
	deposits := l.externalDeposits(snap.Transactions)
	rows := pattern.NewIncomeClassifier(aliases).Summarize(deposits, e.config.Location)
	e.logger.Debug("Attributed income", "deposits", len(deposits), "rows", len(rows))
	return rows, l.warnings
}

// IncomeAttributions returns the source assigned to each external deposit,
// for drilling into the monthly income totals.
func (e *Engine) IncomeAttributions(snap model.Snapshot, aliases *pattern.AliasTable) []pattern.Attribution {
	l := e.annotate(snap)
	return pattern.NewIncomeClassifier(aliases).Attribute(l.externalDeposits(snap.Transactions))
}

// externalDeposits selects dated inflows on asset channels that are not one
// leg of a matched internal transfer.
func (l *ledger) externalDeposits(txns []model.Transaction) []model.Transaction {
	deposits := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if !t.HasDate() || !t.Amount.IsPositive() || !l.classes[t.ChannelID].IsAsset() {
			continue
		}
		if _, internal := l.partners[t.Key()]; internal {
			continue
		}
		deposits = append(deposits, t)
	}
	return deposits
}

// Installments returns the amortization state of every installment purchase
// on a liability channel as of now.
func (e *Engine) Installments(snap model.Snapshot, now time.Time, withSchedule bool) []model.InstallmentPlan {
	classes := e.config.Classifier.ClassifyAll(snap.Channels)
	plans := PlanInstallments(snap.Transactions, classes, e.config.CancelMarkers, now, e.config.Location, withSchedule)
	e.logger.Debug("Planned installments", "plans", len(plans), "as_of", now.Format(time.DateOnly))
	return plans
}

// Granularities returns the granularities present in a report in ascending order.
func (r *Report) Granularities() []period.Granularity {
	out := make([]period.Granularity, 0, len(r.BalanceSheets))
	for g := range r.BalanceSheets {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}
