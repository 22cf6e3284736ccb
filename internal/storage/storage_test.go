package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
	"github.com/Veraticus/the-books-must-balance/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "books.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrating twice is a no-op")

	version, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.ExpectedSchemaVersion, version)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := storage.NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, storage.ErrEmptyString)
}

func TestChannels(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	channels := []model.Channel{
		{ID: "b", Name: "Savings", Category: model.ChannelBank},
		{ID: "a", Name: "Visa", Category: model.ChannelCard, Metadata: map[string]string{model.MetaCashFlowActivity: "financing"}},
	}
	require.NoError(t, db.Storage.SaveChannels(ctx, channels))

	got, err := db.Storage.GetChannels(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, model.ChannelCard, got[0].Category)
	assert.Equal(t, "financing", got[0].Metadata[model.MetaCashFlowActivity])
	assert.Nil(t, got[1].Metadata)

	t.Run("upsert renames", func(t *testing.T) {
		require.NoError(t, db.Storage.SaveChannels(ctx, []model.Channel{{ID: "b", Name: "Emergency Fund", Category: model.ChannelBank}}))
		ch, err := db.Storage.GetChannel(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "Emergency Fund", ch.Name)
	})

	t.Run("missing channel", func(t *testing.T) {
		_, err := db.Storage.GetChannel(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid metadata rejected", func(t *testing.T) {
		err := db.Storage.SaveChannels(ctx, []model.Channel{{ID: "c", Name: "X", Metadata: map[string]string{model.MetaReportingRole: "income"}}})
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("metadata merge and delete", func(t *testing.T) {
		require.NoError(t, db.Storage.UpdateChannelMetadata(ctx, "b", map[string]string{model.MetaReportingRole: "liability"}))
		require.NoError(t, db.Storage.UpdateChannelMetadata(ctx, "a", map[string]string{model.MetaCashFlowActivity: ""}))

		b, err := db.Storage.GetChannel(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "liability", b.Metadata[model.MetaReportingRole])

		a, err := db.Storage.GetChannel(ctx, "a")
		require.NoError(t, err)
		assert.NotContains(t, a.Metadata, model.MetaCashFlowActivity)

		err = db.Storage.UpdateChannelMetadata(ctx, "a", map[string]string{model.MetaOffBalance: "maybe"})
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
		err = db.Storage.UpdateChannelMetadata(ctx, "zzz", map[string]string{model.MetaOffBalance: "true"})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestTransactions_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	ledger := testutil.NewLedger(t).
		Channel("x", "Checking", model.ChannelBank).
		Channel("card", "Visa Card", model.ChannelCard).
		Txn("x", "2024-01-15 09:30", "1000.50", testutil.WithID("dep"), testutil.WithRaw("적요", "급여")).
		Txn("card", "2024-01-16 12:00", "-120000", testutil.WithID("tv"), testutil.WithInstallments(4), testutil.WithType("할부")).
		Undated("x", "-7", testutil.WithID("lost"))
	db.Seed(ledger)

	dep, err := db.Storage.GetTransaction(ctx, "x", "dep")
	require.NoError(t, err)
	require.NotNil(t, dep.Date)
	assert.Equal(t, testutil.At(t, "2024-01-15 09:30"), *dep.Date)
	assert.True(t, testutil.Amount(t, "1000.50").Equal(dep.Amount))
	assert.Equal(t, "급여", dep.Raw["적요"])

	tv, err := db.Storage.GetTransaction(ctx, "card", "tv")
	require.NoError(t, err)
	require.NotNil(t, tv.InstallmentMonths)
	assert.Equal(t, 4, *tv.InstallmentMonths)
	assert.Equal(t, "할부", tv.Type)

	lost, err := db.Storage.GetTransaction(ctx, "x", "lost")
	require.NoError(t, err)
	assert.Nil(t, lost.Date)

	_, err = db.Storage.GetTransaction(ctx, "x", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = db.Storage.GetTransaction(ctx, "card", "dep")
	assert.ErrorIs(t, err, common.ErrNotFound, "IDs are scoped to their channel")

	all, err := db.Storage.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"dep", "tv", "lost"}, []string{all[0].ID, all[1].ID, all[2].ID}, "undated rows sort last")
}

func TestSaveTransactions_Deduplicates(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	snap := testutil.NewLedger(t).
		Channel("x", "Checking", model.ChannelBank).
		Txn("x", "2024-01-15 09:30", "10").
		Txn("x", "2024-01-16 09:30", "20").
		Snapshot()
	require.NoError(t, db.Storage.SaveChannels(ctx, snap.Channels))

	n, err := db.Storage.SaveTransactions(ctx, snap.Transactions)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.Storage.SaveTransactions(ctx, snap.Transactions)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = db.Storage.SaveTransactions(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrNilParameter)
	_, err = db.Storage.SaveTransactions(ctx, []model.Transaction{{ID: "orphan"}})
	assert.ErrorIs(t, err, storage.ErrInvalidTransaction)
}

func TestSaveTransactions_SharedIDAcrossChannels(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	snap := testutil.NewLedger(t).
		Channel("x", "Checking", model.ChannelBank).
		Channel("y", "Savings", model.ChannelBank).
		Txn("x", "2024-01-15 09:00", "-100", testutil.WithID("20240115001")).
		Txn("y", "2024-01-15 09:00", "-250", testutil.WithID("20240115001")).
		Snapshot()
	require.NoError(t, db.Storage.SaveChannels(ctx, snap.Channels))

	n, err := db.Storage.SaveTransactions(ctx, snap.Transactions)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := db.Storage.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Transactions, 2)

	x, err := db.Storage.GetTransaction(ctx, "x", "20240115001")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-100).Equal(x.Amount))
	y, err := db.Storage.GetTransaction(ctx, "y", "20240115001")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-250).Equal(y.Amount))

	require.NoError(t, db.Storage.UpdateTransactionAmounts(ctx, []service.AmountUpdate{
		{ChannelID: "y", TransactionID: "20240115001", Amount: decimal.NewFromInt(250)},
	}))
	x, err = db.Storage.GetTransaction(ctx, "x", "20240115001")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-100).Equal(x.Amount), "update touches only the named channel")

	history, err := db.Storage.GetSignCorrections(ctx, "20240115001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "y", history[0].ChannelID)
}

func TestGetTransactions_Filter(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.Seed(testutil.NewLedger(t).
		Channel("x", "Checking", model.ChannelBank).
		Channel("y", "Savings", model.ChannelBank).
		Txn("x", "2024-01-01 00:00", "1", testutil.WithID("a")).
		Txn("y", "2024-02-01 00:00", "2", testutil.WithID("b")).
		Txn("x", "2024-03-01 00:00", "3", testutil.WithID("c")).
		Txn("x", "2024-04-01 00:00", "4", testutil.WithID("d")))

	start := testutil.At(t, "2024-01-15")
	end := testutil.At(t, "2024-03-01")

	tests := []struct {
		name   string
		filter service.TransactionFilter
		want   []string
	}{
		{name: "date range inclusive", filter: service.TransactionFilter{StartDate: &start, EndDate: &end}, want: []string{"b", "c"}},
		{name: "by channel", filter: service.TransactionFilter{ChannelID: "x"}, want: []string{"a", "c", "d"}},
		{name: "paged", filter: service.TransactionFilter{Limit: 2, Offset: 1}, want: []string{"b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Storage.GetTransactions(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i := range got {
				ids[i] = got[i].ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := db.Storage.GetTransactions(ctx, service.TransactionFilter{StartDate: &end, EndDate: &start})
	assert.ErrorIs(t, err, storage.ErrInvalidDateRange)
}

func TestUpdateTransactionAmounts(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.Seed(testutil.NewLedger(t).
		Channel("x", "Checking", model.ChannelBank).
		Txn("x", "2024-01-01 00:00", "500", testutil.WithID("a"), testutil.WithType("출금")))

	require.NoError(t, db.Storage.UpdateTransactionAmounts(ctx, []service.AmountUpdate{
		{ChannelID: "x", TransactionID: "a", Amount: decimal.NewFromInt(-500)},
	}))

	a, err := db.Storage.GetTransaction(ctx, "x", "a")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-500).Equal(a.Amount))

	history, err := db.Storage.GetSignCorrections(ctx, "a")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(history[0].Previous))
	assert.True(t, decimal.NewFromInt(-500).Equal(history[0].Corrected))

	err = db.Storage.UpdateTransactionAmounts(ctx, []service.AmountUpdate{
		{ChannelID: "x", TransactionID: "a", Amount: decimal.NewFromInt(1)},
		{ChannelID: "x", TransactionID: "ghost", Amount: decimal.NewFromInt(1)},
	})
	require.ErrorIs(t, err, common.ErrNotFound)
	a, err = db.Storage.GetTransaction(ctx, "x", "a")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-500).Equal(a.Amount), "a failed batch leaves no partial update")
}

func TestLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	ledger := testutil.RandomLedger(t, 7, 20, 3)
	db.Seed(ledger)

	snap, err := db.Storage.LoadSnapshot(ctx)
	require.NoError(t, err)
	want := ledger.Snapshot()
	assert.Len(t, snap.Channels, len(want.Channels))
	assert.Len(t, snap.Transactions, len(want.Transactions))

	total := decimal.Zero
	for _, txn := range snap.Transactions {
		total = total.Add(txn.Amount)
	}
	wantTotal := decimal.Zero
	for _, txn := range want.Transactions {
		wantTotal = wantTotal.Add(txn.Amount)
	}
	assert.True(t, wantTotal.Equal(total), "amounts survive storage exactly")
}
