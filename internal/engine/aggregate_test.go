package engine

import (
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/period"
	"github.com/Veraticus/the-books-must-balance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointSample(t *testing.T) {
	snap := testutil.NewLedger(t).
		Channel("x", "Checking", model.ChannelBank).
		Channel("y", "Savings", model.ChannelBank).
		Txn("x", "2024-01-15 09:00", "100").
		Txn("x", "2024-02-29 23:00", "10").
		Txn("x", "2024-03-01 00:30", "1").
		Txn("y", "2024-08-10 12:00", "7").
		Snapshot()

	classes := DefaultClassifierConfig().ClassifyAll(snap.Channels)
	ledger, _ := LedgerRange(snap.Transactions, time.UTC)
	series := BuildSeries(snap.Channels, snap.Transactions, classes, ledger, time.UTC)

	tests := []struct {
		name    string
		want    map[string][]string
		g       period.Granularity
		periods int
	}{
		{
			name:    "monthly",
			g:       period.Monthly,
			periods: 8,
			want: map[string][]string{
				"x": {"100", "110", "111", "111", "111", "111", "111", "111"},
				"y": {"0", "0", "0", "0", "0", "0", "0", "7"},
			},
		},
		{
			name:    "quarterly",
			g:       period.Quarterly,
			periods: 3,
			want: map[string][]string{
				"x": {"111", "111", "111"},
				"y": {"0", "0", "7"},
			},
		},
		{
			name:    "half-year splits at june",
			g:       period.HalfYearly,
			periods: 2,
			want: map[string][]string{
				"x": {"111", "111"},
				"y": {"0", "7"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := PointSample(series, ledger, tt.g)
			require.Len(t, samples, tt.periods*2, "every channel gets a row for every period")

			got := map[string][]string{}
			for _, s := range samples {
				got[s.ChannelID] = append(got[s.ChannelID], s.Balance.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindowSum(t *testing.T) {
	snap := testutil.NewLedger(t).
		Channel("x", "Checking", model.ChannelBank).
		Txn("x", "2024-01-05 09:00", "100", testutil.WithID("a")).
		Txn("x", "2024-01-06 09:00", "-40", testutil.WithID("b")).
		Txn("x", "2024-03-06 09:00", "-5", testutil.WithID("c")).
		Txn("x", "2024-03-07 09:00", "9", testutil.WithID("skip")).
		Undated("x", "1000", testutil.WithID("undated")).
		Snapshot()

	ledger, _ := LedgerRange(snap.Transactions, time.UTC)
	totals := WindowSum(snap.Transactions, ledger, period.Monthly, time.UTC, []string{"even", "odd"}, func(t *model.Transaction) (string, bool) {
		switch t.ID {
		case "skip":
			return "", false
		case "b":
			return "odd", true
		default:
			return "even", true
		}
	})

	require.Len(t, totals, 6, "three months by two keys, including the empty february")
	assert.Equal(t, "even", totals[0].Key)
	assert.True(t, testutil.Amount(t, "100").Equal(totals[0].Inflow))
	assert.Equal(t, 1, totals[0].Count)
	assert.True(t, testutil.Amount(t, "-40").Equal(totals[1].Outflow))

	for _, feb := range totals[2:4] {
		assert.Equal(t, time.February, feb.Period.Start.Month())
		assert.True(t, feb.Net().IsZero())
		assert.Zero(t, feb.Count)
	}

	assert.True(t, testutil.Amount(t, "-5").Equal(totals[4].Net()))
	assert.Equal(t, 1, totals[4].Count, "excluded and undated transactions are not summed")
}
