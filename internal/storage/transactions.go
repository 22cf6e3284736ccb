package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, hash, channel_id, counter_channel_id, occurred_at, amount, balance,
	description, transaction_type, installment_months, category, tags, raw`

// SaveTransactions stores transactions, skipping any whose hash is already
// present. It returns the number of rows actually inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	var inserted int
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range transactions {
			txn := &transactions[i]
			if txn.Hash == "" {
				txn.Hash = txn.GenerateHash()
			}
			args, err := transactionArgs(txn)
			if err != nil {
				return err
			}
			result, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read affected rows: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetTransactions retrieves transactions matching the filter, dated rows in
// time order followed by undated rows.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, ErrInvalidDateRange
	}
	return s.getTransactionsTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) getTransactionsTx(ctx context.Context, q queryable, filter service.TransactionFilter) ([]model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.StartDate != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		where = append(where, "occurred_at <= ?")
		args = append(args, filter.EndDate.UTC())
	}
	if filter.ChannelID != "" {
		where = append(where, "channel_id = ?")
		args = append(args, filter.ChannelID)
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at IS NULL, occurred_at, channel_id, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// GetTransaction retrieves a single transaction by its channel and ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, channelID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(channelID, "channel_id"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE channel_id = ? AND id = ?", channelID, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s/%s: %w", channelID, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateTransactionAmounts rewrites amounts in a single database transaction
// and records each change in the sign correction history.
func (s *SQLiteStorage) UpdateTransactionAmounts(ctx context.Context, updates []service.AmountUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	return s.inTx(ctx, nil, func(tx *sql.Tx) error {
		for _, u := range updates {
			var previous string
			err := tx.QueryRowContext(ctx,
				`SELECT amount FROM transactions WHERE channel_id = ? AND id = ?`,
				u.ChannelID, u.TransactionID).Scan(&previous)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("transaction %s/%s: %w", u.ChannelID, u.TransactionID, common.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("failed to read amount of %s: %w", u.TransactionID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE transactions SET amount = ? WHERE channel_id = ? AND id = ?`,
				u.Amount.String(), u.ChannelID, u.TransactionID); err != nil {
				return fmt.Errorf("failed to update amount of %s: %w", u.TransactionID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sign_corrections (channel_id, transaction_id, previous_amount, corrected_amount)
				VALUES (?, ?, ?, ?)
			`, u.ChannelID, u.TransactionID, previous, u.Amount.String()); err != nil {
				return fmt.Errorf("failed to record correction of %s: %w", u.TransactionID, err)
			}
		}
		return nil
	})
}

// SignCorrection is one recorded amount rewrite.
type SignCorrection struct {
	CorrectedAt   time.Time
	ChannelID     string
	TransactionID string
	Previous      decimal.Decimal
	Corrected     decimal.Decimal
}

// GetSignCorrections lists recorded amount rewrites, newest first. A
// non-empty transactionID restricts the history to that ID on any channel.
func (s *SQLiteStorage) GetSignCorrections(ctx context.Context, transactionID string) ([]SignCorrection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT channel_id, transaction_id, previous_amount, corrected_amount, corrected_at FROM sign_corrections`
	var args []any
	if transactionID != "" {
		query += ` WHERE transaction_id = ?`
		args = append(args, transactionID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sign corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SignCorrection
	for rows.Next() {
		var c SignCorrection
		var previous, corrected string
		if err := rows.Scan(&c.ChannelID, &c.TransactionID, &previous, &corrected, &c.CorrectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sign correction: %w", err)
		}
		if c.Previous, err = decimal.NewFromString(previous); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", previous, err)
		}
		if c.Corrected, err = decimal.NewFromString(corrected); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", corrected, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadSnapshot reads every channel and transaction inside one read-only
// transaction so reports never observe a half-applied import.
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context) (model.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return model.Snapshot{}, err
	}

	snap := model.Snapshot{TakenAt: time.Now()}
	err := s.inTx(ctx, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
		var err error
		if snap.Channels, err = s.getChannelsTx(ctx, tx); err != nil {
			return err
		}
		snap.Transactions, err = s.getTransactionsTx(ctx, tx, service.TransactionFilter{})
		return err
	})
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

func transactionArgs(txn *model.Transaction) ([]any, error) {
	var occurred, balance, installments any
	if txn.HasDate() {
		occurred = txn.Date.UTC()
	}
	if txn.Balance != nil {
		balance = txn.Balance.String()
	}
	if txn.InstallmentMonths != nil {
		installments = *txn.InstallmentMonths
	}

	tags, err := encodeJSON(txn.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags of %s: %w", txn.ID, err)
	}
	raw, err := encodeJSON(txn.Raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw fields of %s: %w", txn.ID, err)
	}

	return []any{
		txn.ID,
		txn.Hash,
		txn.ChannelID,
		nullString(txn.CounterChannelID),
		occurred,
		txn.Amount.String(),
		balance,
		txn.Description,
		txn.Type,
		installments,
		nullString(txn.Category),
		tags,
		raw,
	}, nil
}

func scanTransaction(r rowScanner) (model.Transaction, error) {
	var (
		txn          model.Transaction
		counter      sql.NullString
		occurred     sql.NullTime
		amount       string
		balance      sql.NullString
		installments sql.NullInt64
		category     sql.NullString
		tags         sql.NullString
		raw          sql.NullString
	)

	err := r.Scan(
		&txn.ID,
		&txn.Hash,
		&txn.ChannelID,
		&counter,
		&occurred,
		&amount,
		&balance,
		&txn.Description,
		&txn.Type,
		&installments,
		&category,
		&tags,
		&raw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return txn, err
	}
	if err != nil {
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.CounterChannelID = counter.String
	txn.Category = category.String
	if occurred.Valid {
		ts := occurred.Time.UTC()
		txn.Date = &ts
	}
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return txn, fmt.Errorf("failed to parse amount of %s: %w", txn.ID, err)
	}
	if balance.Valid {
		b, err := decimal.NewFromString(balance.String)
		if err != nil {
			return txn, fmt.Errorf("failed to parse balance of %s: %w", txn.ID, err)
		}
		txn.Balance = &b
	}
	if installments.Valid {
		n := int(installments.Int64)
		txn.InstallmentMonths = &n
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &txn.Tags); err != nil {
			return txn, fmt.Errorf("failed to parse tags of %s: %w", txn.ID, err)
		}
	}
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &txn.Raw); err != nil {
			return txn, fmt.Errorf("failed to parse raw fields of %s: %w", txn.ID, err)
		}
	}
	return txn, nil
}

func encodeJSON[T any](v T) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if s := string(b); s != "null" {
		return s, nil
	}
	return nil, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
