package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single signed monetary event on a channel.
// A positive Amount is an inflow to the channel, a negative Amount an outflow.
// ID is only unique within ChannelID; use Key to identify a transaction
// across the ledger.
type Transaction struct {
	Date              *time.Time        // nil when the source timestamp could not be parsed
	Balance           *decimal.Decimal  // balance-after as reported by the source, if any
	InstallmentMonths *int              // parsed installment count, if any
	Raw               map[string]string // original source fields, preserved verbatim
	ID                string
	Hash              string
	ChannelID         string
	CounterChannelID  string
	Description       string
	Type              string // transaction type text as reported by the source
	Category          string
	Tags              []string
	Amount            decimal.Decimal
}

// TransactionKey identifies a transaction across every channel.
type TransactionKey struct {
	ChannelID string
	ID        string
}

// Key returns the ledger-wide identity of the transaction.
func (t *Transaction) Key() TransactionKey {
	return TransactionKey{ChannelID: t.ChannelID, ID: t.ID}
}

// HasDate reports whether the transaction carries a usable timestamp.
func (t *Transaction) HasDate() bool {
	return t.Date != nil && !t.Date.IsZero()
}

// GenerateHash creates a unique hash for duplicate detection.
// The amount magnitude is hashed rather than the signed value so that
// re-ingesting a row before and after sign correction deduplicates.
func (t *Transaction) GenerateHash() string {
	when := "undated"
	if t.HasDate() {
		when = t.Date.UTC().Format(time.RFC3339)
	}
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		t.ID,
		when,
		t.Amount.Abs().StringFixed(2),
		t.Description,
		t.Type,
		t.ChannelID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
