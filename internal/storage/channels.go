package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// SaveChannels inserts channels or updates the name, category and metadata of
// ones already stored.
func (s *SQLiteStorage) SaveChannels(ctx context.Context, channels []model.Channel) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(channels) == 0 {
		return fmt.Errorf("%w: channels", ErrEmptySlice)
	}
	for i := range channels {
		if err := validateChannel(&channels[i]); err != nil {
			return fmt.Errorf("channel at index %d: %w", i, err)
		}
	}

	return s.inTx(ctx, nil, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO channels (id, name, category, metadata)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				category = excluded.category,
				metadata = excluded.metadata,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, ch := range channels {
			meta, err := encodeMetadata(ch.Metadata)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, ch.ID, ch.Name, string(ch.Category), meta); err != nil {
				return fmt.Errorf("failed to save channel %s: %w", ch.ID, err)
			}
		}
		return nil
	})
}

// GetChannels returns every stored channel ordered by ID.
func (s *SQLiteStorage) GetChannels(ctx context.Context) ([]model.Channel, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getChannelsTx(ctx, s.db)
}

func (s *SQLiteStorage) getChannelsTx(ctx context.Context, q queryable) ([]model.Channel, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, category, metadata FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// GetChannel retrieves a single channel by ID.
func (s *SQLiteStorage) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT id, name, category, metadata FROM channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("channel %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// UpdateChannelMetadata merges the given keys into a channel's metadata. An
// empty value removes the key.
func (s *SQLiteStorage) UpdateChannelMetadata(ctx context.Context, id string, metadata map[string]string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.inTx(ctx, nil, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT id, name, category, metadata FROM channels WHERE id = ?`, id)
		ch, err := scanChannel(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("channel %s: %w", id, common.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if ch.Metadata == nil {
			ch.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			if v == "" {
				delete(ch.Metadata, k)
				continue
			}
			ch.Metadata[k] = v
		}
		if err := ch.ValidateMetadata(); err != nil {
			return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
		}

		meta, err := encodeMetadata(ch.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE channels SET metadata = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			meta, id); err != nil {
			return fmt.Errorf("failed to update channel metadata: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(r rowScanner) (model.Channel, error) {
	var ch model.Channel
	var category, metadata string
	if err := r.Scan(&ch.ID, &ch.Name, &category, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ch, err
		}
		return ch, fmt.Errorf("failed to scan channel: %w", err)
	}
	ch.Category = model.ParseChannelCategory(category)
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &ch.Metadata); err != nil {
			return ch, fmt.Errorf("failed to parse metadata for channel %s: %w", ch.ID, err)
		}
	}
	return ch, nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}
