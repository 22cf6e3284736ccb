package engine

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bankChannels(b *testutil.LedgerBuilder) *testutil.LedgerBuilder {
	return b.
		Channel("x", "Checking", model.ChannelBank).
		Channel("y", "Savings", model.ChannelBank).
		Channel("z", "Wallet", model.ChannelWallet).
		Channel("card", "Visa Card", model.ChannelCard)
}

func matchSnapshot(snap model.Snapshot) []model.TransferPair {
	classes := DefaultClassifierConfig().ClassifyAll(snap.Channels)
	return MatchTransfers(snap.Transactions, classes, DefaultTransferWindow)
}

func TestMatchTransfers(t *testing.T) {
	tests := []struct {
		build func(b *testutil.LedgerBuilder)
		name  string
		want  [][2]string
	}{
		{
			name: "five minutes apart",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-50000", testutil.WithID("out")).
					Txn("y", "2024-01-10 10:05", "50000", testutil.WithID("in"))
			},
			want: [][2]string{{"out", "in"}},
		},
		{
			name: "inbound may precede outbound",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-50000", testutil.WithID("out")).
					Txn("y", "2024-01-10 09:50", "50000", testutil.WithID("in"))
			},
			want: [][2]string{{"out", "in"}},
		},
		{
			name: "window boundary is inclusive",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100", testutil.WithID("out")).
					Txn("y", "2024-01-10 10:15", "100", testutil.WithID("in"))
			},
			want: [][2]string{{"out", "in"}},
		},
		{
			name: "outside window",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100").
					Txn("y", "2024-01-10 10:16", "100")
			},
		},
		{
			name: "same channel never matches",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100").
					Txn("x", "2024-01-10 10:01", "100")
			},
		},
		{
			name: "magnitudes must be equal",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100").
					Txn("y", "2024-01-10 10:01", "100.01")
			},
		},
		{
			name: "liability channels are not considered",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100").
					Txn("card", "2024-01-10 10:01", "100")
			},
		},
		{
			name: "undated transactions are not considered",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100").
					Undated("y", "100")
			},
		},
		{
			name: "nearest partner wins and the other stays external",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100", testutil.WithID("out")).
					Txn("y", "2024-01-10 10:09", "100", testutil.WithID("far")).
					Txn("z", "2024-01-10 10:02", "100", testutil.WithID("near"))
			},
			want: [][2]string{{"out", "near"}},
		},
		{
			name: "contested inbound goes to its nearest outbound, loser rematches",
			build: func(b *testutil.LedgerBuilder) {
				// in1 is nearest to both outs; out2 is closer to it, so out1
				// falls through to in2.
				b.Txn("x", "2024-01-10 10:00", "-100", testutil.WithID("out1")).
					Txn("z", "2024-01-10 10:04", "-100", testutil.WithID("out2")).
					Txn("y", "2024-01-10 10:05", "100", testutil.WithID("in1")).
					Txn("y", "2024-01-10 10:12", "100", testutil.WithID("in2"))
			},
			want: [][2]string{{"out1", "in2"}, {"out2", "in1"}},
		},
		{
			name: "a taken nearest partner does not leave the other unmatched",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-500", testutil.WithID("a")).
					Txn("y", "2024-01-10 10:02", "500", testutil.WithID("b")).
					Txn("z", "2024-01-10 10:03", "-500", testutil.WithID("d")).
					Txn("y", "2024-01-10 10:05", "500", testutil.WithID("e"))
			},
			want: [][2]string{{"a", "e"}, {"d", "b"}},
		},
		{
			name: "source ids shared across channels",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100", testutil.WithID("dup")).
					Txn("y", "2024-01-10 10:02", "100", testutil.WithID("dup")).
					Txn("z", "2024-01-10 11:00", "-250", testutil.WithID("dup")).
					Txn("x", "2024-01-10 11:01", "250", testutil.WithID("dup"))
			},
			want: [][2]string{{"dup", "dup"}, {"dup", "dup"}},
		},
		{
			name: "equal gaps break ties by id",
			build: func(b *testutil.LedgerBuilder) {
				b.Txn("x", "2024-01-10 10:00", "-100", testutil.WithID("out")).
					Txn("y", "2024-01-10 10:03", "100", testutil.WithID("in-b")).
					Txn("z", "2024-01-10 10:03", "100", testutil.WithID("in-a"))
			},
			want: [][2]string{{"out", "in-a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bankChannels(testutil.NewLedger(t))
			tt.build(b)
			pairs := matchSnapshot(b.Snapshot())

			got := make([][2]string, 0, len(pairs))
			for _, p := range pairs {
				got = append(got, [2]string{p.OutboundID, p.InboundID})
			}
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchTransfers_PairDetails(t *testing.T) {
	snap := bankChannels(testutil.NewLedger(t)).
		Txn("x", "2024-01-10 10:00", "-50000", testutil.WithID("out")).
		Txn("y", "2024-01-10 10:05", "50000", testutil.WithID("in")).
		Snapshot()

	pairs := matchSnapshot(snap)
	require.Len(t, pairs, 1)
	assert.Equal(t, "x", pairs[0].OutboundChannel)
	assert.Equal(t, "y", pairs[0].InboundChannel)
	assert.Equal(t, 5*time.Minute, pairs[0].Gap)
	assert.True(t, testutil.Amount(t, "50000").Equal(pairs[0].Amount))
}

func TestMatchTransfers_OrderIndependentAndSymmetric(t *testing.T) {
	snap := testutil.RandomLedger(t, 7, 60, 12).Snapshot()
	want := matchSnapshot(snap)
	require.NotEmpty(t, want)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 5 {
		shuffled := snap
		shuffled.Transactions = append([]model.Transaction(nil), snap.Transactions...)
		rng.Shuffle(len(shuffled.Transactions), func(i, j int) {
			shuffled.Transactions[i], shuffled.Transactions[j] = shuffled.Transactions[j], shuffled.Transactions[i]
		})
		assert.Equal(t, want, matchSnapshot(shuffled))
	}

	seen := make(map[model.TransactionKey]int)
	for _, p := range want {
		seen[p.OutboundKey()]++
		seen[p.InboundKey()]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "transaction %v appears in more than one pair", key)
	}

	partners := Partners(want)
	for a, b := range partners {
		assert.Equal(t, a, partners[b], "matching must be symmetric")
	}
}
