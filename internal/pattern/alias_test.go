package pattern

import (
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, aliases ...Alias) *AliasTable {
	t.Helper()
	table, err := NewAliasTable(aliases, DefaultAliasOptions())
	require.NoError(t, err)
	return table
}

func TestNewAliasTable_Validation(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		aliases []Alias
	}{
		{name: "missing table", aliases: nil, wantErr: common.ErrMissingConfig},
		{name: "blank source", aliases: []Alias{{Source: " ", Pattern: "x"}}, wantErr: common.ErrInvalidConfig},
		{name: "blank pattern", aliases: []Alias{{Source: "salary", Pattern: ""}}, wantErr: common.ErrInvalidConfig},
		{name: "valid", aliases: []Alias{{Source: "salary", Pattern: "payroll"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewAliasTable(tt.aliases, DefaultAliasOptions())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, table)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.aliases), table.Len())
		})
	}
}

func TestAliasTable_Match(t *testing.T) {
	table := mustTable(t,
		Alias{Source: "이랜서", Pattern: "이랜서"},
		Alias{Source: "Generic Corp", Pattern: "corp"},
		Alias{Source: "Acme Payroll", Pattern: "acme corp payroll"},
		Alias{Source: "First", Pattern: "abcd"},
		Alias{Source: "Second", Pattern: "bcde"},
		Alias{Source: "Memo Source", Pattern: "freelance"},
	)

	tests := []struct {
		name        string
		txn         model.Transaction
		wantSource  string
		wantMatched bool
	}{
		{
			name:        "korean substring",
			txn:         model.Transaction{Description: "주식회사 이랜서 2월 정산"},
			wantSource:  "이랜서",
			wantMatched: true,
		},
		{
			name:        "no pattern falls back to other",
			txn:         model.Transaction{Description: "이자"},
			wantSource:  DefaultOtherSource,
			wantMatched: false,
		},
		{
			name:        "case insensitive",
			txn:         model.Transaction{Description: "GENERIC CORP INC"},
			wantSource:  "Generic Corp",
			wantMatched: true,
		},
		{
			name:        "longest pattern wins over generic",
			txn:         model.Transaction{Description: "ACME CORP PAYROLL MARCH"},
			wantSource:  "Acme Payroll",
			wantMatched: true,
		},
		{
			name:        "equal length resolves to declaration order",
			txn:         model.Transaction{Description: "abcde"},
			wantSource:  "First",
			wantMatched: true,
		},
		{
			name:        "raw field is searched",
			txn:         model.Transaction{Description: "입금", Raw: map[string]string{"memo": "Freelance invoice 12"}},
			wantSource:  "Memo Source",
			wantMatched: true,
		},
		{
			name:        "unknown raw field is ignored",
			txn:         model.Transaction{Description: "입금", Raw: map[string]string{"other": "freelance"}},
			wantSource:  DefaultOtherSource,
			wantMatched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, matched := table.Match(tt.txn)
			assert.Equal(t, tt.wantSource, source)
			assert.Equal(t, tt.wantMatched, matched)
		})
	}
}

func TestIncomeClassifier_Summarize(t *testing.T) {
	table := mustTable(t,
		Alias{Source: "이랜서", Pattern: "이랜서"},
		Alias{Source: DefaultInternalSource, Pattern: "본인계좌"},
	)
	at := func(m time.Month, d int) *time.Time {
		ts := time.Date(2024, m, d, 9, 0, 0, 0, time.UTC)
		return &ts
	}
	deposits := []model.Transaction{
		{ID: "1", Date: at(time.February, 5), Description: "주식회사 이랜서 1월 정산", Amount: decimal.NewFromInt(3000000)},
		{ID: "2", Date: at(time.February, 25), Description: "주식회사 이랜서 2월 정산", Amount: decimal.NewFromInt(1500000)},
		{ID: "3", Date: at(time.February, 10), Description: "이자", Amount: decimal.NewFromInt(120)},
		{ID: "4", Date: at(time.February, 11), Description: "본인계좌 이체", Amount: decimal.NewFromInt(50000)},
		{ID: "5", Date: at(time.March, 2), Description: "환급", Amount: decimal.NewFromInt(8000)},
		{ID: "6", Description: "이랜서 undated", Amount: decimal.NewFromInt(1)},
	}

	rows := NewIncomeClassifier(table).Summarize(deposits, time.UTC)
	require.Len(t, rows, 3)

	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, feb, rows[0].Month)
	assert.Equal(t, "이랜서", rows[0].Source)
	assert.True(t, decimal.NewFromInt(4500000).Equal(rows[0].Total))
	assert.Equal(t, 2, rows[0].Count)

	assert.Equal(t, DefaultOtherSource, rows[1].Source)
	assert.True(t, decimal.NewFromInt(120).Equal(rows[1].Total))

	assert.Equal(t, time.March, rows[2].Month.Month())
	assert.Equal(t, DefaultOtherSource, rows[2].Source)

	attributions := NewIncomeClassifier(table).Attribute(deposits)
	assert.Len(t, attributions, 5, "internal movement is not income")
}
