package testutil

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// LedgerBuilder assembles channels and transactions for tests.
//
// Example:
//
//	snap := testutil.NewLedger(t).
//		Channel("x", "Checking", model.ChannelBank).
//		Channel("y", "Savings", model.ChannelBank).
//		Txn("x", "2024-01-10 10:00", "-50000").
//		Txn("y", "2024-01-10 10:05", "50000").
//		Snapshot()
type LedgerBuilder struct {
	t            *testing.T
	channels     []model.Channel
	transactions []model.Transaction
	seq          int
}

// TxnOption customizes a transaction added by LedgerBuilder.Txn.
type TxnOption func(*model.Transaction)

// NewLedger creates an empty ledger builder.
func NewLedger(t *testing.T) *LedgerBuilder {
	t.Helper()
	return &LedgerBuilder{t: t}
}

// Channel adds a channel. meta is a flat list of key/value pairs.
func (b *LedgerBuilder) Channel(id, name string, category model.ChannelCategory, meta ...string) *LedgerBuilder {
	b.t.Helper()
	if len(meta)%2 != 0 {
		b.t.Fatalf("channel %s: metadata must be key/value pairs", id)
	}
	ch := model.Channel{ID: id, Name: name, Category: category, Metadata: map[string]string{}}
	for i := 0; i < len(meta); i += 2 {
		ch.Metadata[meta[i]] = meta[i+1]
	}
	b.channels = append(b.channels, ch)
	return b
}

// Txn adds a dated transaction. at is "2006-01-02 15:04" in UTC.
func (b *LedgerBuilder) Txn(channelID, at, amount string, opts ...TxnOption) *LedgerBuilder {
	b.t.Helper()
	ts := At(b.t, at)
	return b.add(channelID, &ts, amount, opts)
}

// Undated adds a transaction whose timestamp could not be parsed.
func (b *LedgerBuilder) Undated(channelID, amount string, opts ...TxnOption) *LedgerBuilder {
	b.t.Helper()
	return b.add(channelID, nil, amount, opts)
}

func (b *LedgerBuilder) add(channelID string, ts *time.Time, amount string, opts []TxnOption) *LedgerBuilder {
	b.t.Helper()
	b.seq++
	txn := model.Transaction{
		ID:          fmt.Sprintf("t%03d", b.seq),
		ChannelID:   channelID,
		Date:        ts,
		Amount:      Amount(b.t, amount),
		Description: fmt.Sprintf("transaction %d", b.seq),
		Raw:         map[string]string{},
	}
	for _, opt := range opts {
		opt(&txn)
	}
	txn.Hash = txn.GenerateHash()
	b.transactions = append(b.transactions, txn)
	return b
}

// Snapshot returns the built ledger. The slices are copies.
func (b *LedgerBuilder) Snapshot() model.Snapshot {
	return model.Snapshot{
		TakenAt:      time.Now(),
		Channels:     append([]model.Channel(nil), b.channels...),
		Transactions: append([]model.Transaction(nil), b.transactions...),
	}
}

// LastID returns the ID of the most recently added transaction.
func (b *LedgerBuilder) LastID() string {
	return fmt.Sprintf("t%03d", b.seq)
}

// WithID overrides the generated transaction ID.
func WithID(id string) TxnOption {
	return func(t *model.Transaction) { t.ID = id }
}

// WithDescription sets the description.
func WithDescription(desc string) TxnOption {
	return func(t *model.Transaction) { t.Description = desc }
}

// WithType sets the transaction type text.
func WithType(typ string) TxnOption {
	return func(t *model.Transaction) { t.Type = typ }
}

// WithRaw sets one original-source field.
func WithRaw(key, value string) TxnOption {
	return func(t *model.Transaction) { t.Raw[key] = value }
}

// WithInstallments sets the parsed installment count.
func WithInstallments(months int) TxnOption {
	return func(t *model.Transaction) { t.InstallmentMonths = &months }
}

// At parses "2006-01-02 15:04" or "2006-01-02" as a UTC timestamp.
func At(t *testing.T, s string) time.Time {
	t.Helper()
	for _, layout := range []string{"2006-01-02 15:04", time.DateOnly} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	t.Fatalf("invalid timestamp %q", s)
	return time.Time{}
}

// Amount parses a decimal literal.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid amount %q: %v", s, err)
	}
	return d
}

// RandomLedger generates a deterministic ledger from seed: a few bank,
// investment, loan and card channels, random external flows, and internal
// transfers whose legs are a few minutes apart. Some transfers straddle a
// month boundary and some transactions are undated.
func RandomLedger(t *testing.T, seed uint64, days, perDay int) *LedgerBuilder {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	b := NewLedger(t).
		Channel("bank-a", "Main Checking", model.ChannelBank).
		Channel("bank-b", "Savings", model.ChannelBank).
		Channel("wallet", "Pay Wallet", model.ChannelWallet).
		Channel("broker", "증권 계좌", model.ChannelInvestment).
		Channel("loan", "Home Loan", model.ChannelOther).
		Channel("card", "Shinhan Card", model.ChannelCard)
	assets := []string{"bank-a", "bank-b", "wallet", "broker", "loan"}

	start := time.Date(2023, time.November, 20, 0, 0, 0, 0, time.UTC)
	for d := range days {
		day := start.AddDate(0, 0, d)
		for range perDay {
			ts := day.Add(time.Duration(rng.IntN(24*60)) * time.Minute)
			amount := decimal.New(int64(rng.IntN(2_000_000)-900_000), -2)
			switch rng.IntN(5) {
			case 0:
				from := assets[rng.IntN(len(assets))]
				to := assets[rng.IntN(len(assets))]
				if from == to {
					continue
				}
				mag := amount.Abs().Add(decimal.NewFromInt(1))
				arrive := ts.Add(time.Duration(rng.IntN(10)) * time.Minute)
				b.addAt(from, &ts, mag.Neg())
				b.addAt(to, &arrive, mag)
			case 1:
				b.addAt("card", &ts, amount.Abs().Neg())
			default:
				b.addAt(assets[rng.IntN(len(assets))], &ts, amount)
			}
		}
	}
	// Transfer leaving at 23:55 on the last day of a month and arriving
	// five minutes later in the next one.
	out := time.Date(2023, time.December, 31, 23, 55, 0, 0, time.UTC)
	in := out.Add(5 * time.Minute)
	b.addAt("bank-a", &out, decimal.NewFromInt(-777777))
	b.addAt("bank-b", &in, decimal.NewFromInt(777777))
	b.add("bank-a", nil, "-1234.56", nil)
	return b
}

func (b *LedgerBuilder) addAt(channelID string, ts *time.Time, amount decimal.Decimal) {
	b.add(channelID, ts, amount.String(), nil)
}
