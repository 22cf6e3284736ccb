// Package service defines the interfaces at the boundary of the reporting engine.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	ChannelID string
	Limit     int
	Offset    int
}

// AmountUpdate rewrites the stored amount of one transaction.
type AmountUpdate struct {
	ChannelID     string
	TransactionID string
	Amount        decimal.Decimal
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Channel operations
	SaveChannels(ctx context.Context, channels []model.Channel) error
	GetChannels(ctx context.Context) ([]model.Channel, error)
	GetChannel(ctx context.Context, id string) (*model.Channel, error)
	UpdateChannelMetadata(ctx context.Context, id string, metadata map[string]string) error

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, channelID, id string) (*model.Transaction, error)
	UpdateTransactionAmounts(ctx context.Context, updates []AmountUpdate) error

	// LoadSnapshot reads every channel and transaction in one consistent read.
	LoadSnapshot(ctx context.Context) (model.Snapshot, error)

	// Database management
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ReportBundle is the set of computed reports handed to a ReportWriter.
type ReportBundle struct {
	GeneratedAt     time.Time
	Ledger          DateRange
	BalanceSheet    []model.BalanceSheetRow
	ChannelBalances []model.ChannelBalance
	CashFlow        []model.CashFlowRow
	Income          []model.IncomeSourceRow
	Installments    []model.InstallmentPlan
}

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ReportWriter exports computed reports to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, bundle *ReportBundle) error
}
