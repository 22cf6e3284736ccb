package pattern

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Default source names and searched raw fields.
const (
	DefaultOtherSource    = "기타"
	DefaultInternalSource = "내부이체"
)

// DefaultRawFields are the original-source fields searched in addition to
// the description.
var DefaultRawFields = []string{"memo", "counterparty", "적요", "내용", "보낸분", "입금자"}

// AliasOptions configures the source names and searched fields of an AliasTable.
type AliasOptions struct {
	OtherSource    string
	InternalSource string
	RawFields      []string
}

// DefaultAliasOptions returns the default alias table options.
func DefaultAliasOptions() AliasOptions {
	return AliasOptions{
		OtherSource:    DefaultOtherSource,
		InternalSource: DefaultInternalSource,
		RawFields:      DefaultRawFields,
	}
}

type compiledAlias struct {
	source  string
	pattern string // lowercased
	length  int    // in runes
}

// AliasTable matches transaction text against an ordered list of aliases.
//
// Matching is a case-insensitive substring search over the description and
// the configured raw fields. When several patterns match, the longest
// pattern wins; among equally long patterns the one declared first wins.
type AliasTable struct {
	aliases []compiledAlias
	opts    AliasOptions
}

var _ SourceMatcher = (*AliasTable)(nil)

// NewAliasTable validates and compiles an alias table. A nil or empty table
// is rejected with common.ErrMissingConfig; an alias with an empty source or
// pattern is rejected with common.ErrInvalidConfig.
func NewAliasTable(aliases []Alias, opts AliasOptions) (*AliasTable, error) {
	if len(aliases) == 0 {
		return nil, fmt.Errorf("%w: income alias table is empty", common.ErrMissingConfig)
	}
	if strings.TrimSpace(opts.OtherSource) == "" {
		opts.OtherSource = DefaultOtherSource
	}
	if opts.RawFields == nil {
		opts.RawFields = DefaultRawFields
	}

	t := &AliasTable{opts: opts, aliases: make([]compiledAlias, 0, len(aliases))}
	for i, a := range aliases {
		source := strings.TrimSpace(a.Source)
		pat := strings.TrimSpace(a.Pattern)
		if source == "" {
			return nil, fmt.Errorf("%w: income alias %d has no source name", common.ErrInvalidConfig, i)
		}
		if pat == "" {
			return nil, fmt.Errorf("%w: income alias %d (%s) has no pattern", common.ErrInvalidConfig, i, source)
		}
		lowered := strings.ToLower(pat)
		t.aliases = append(t.aliases, compiledAlias{
			source:  source,
			pattern: lowered,
			length:  utf8.RuneCountInString(lowered),
		})
	}
	return t, nil
}

// Match returns the source of the longest matching pattern, or the other
// source when nothing matches.
func (t *AliasTable) Match(txn model.Transaction) (string, bool) {
	texts := make([]string, 0, 1+len(t.opts.RawFields))
	texts = append(texts, strings.ToLower(txn.Description))
	for _, f := range t.opts.RawFields {
		if v := txn.Raw[f]; v != "" {
			texts = append(texts, strings.ToLower(v))
		}
	}

	best := -1
	for i, a := range t.aliases {
		if best >= 0 && a.length <= t.aliases[best].length {
			continue
		}
		for _, text := range texts {
			if strings.Contains(text, a.pattern) {
				best = i
				break
			}
		}
	}
	if best < 0 {
		return t.opts.OtherSource, false
	}
	return t.aliases[best].source, true
}

// IsInternal reports whether source designates movement between the
// owner's own accounts, which is never income.
func (t *AliasTable) IsInternal(source string) bool {
	return t.opts.InternalSource != "" && source == t.opts.InternalSource
}

// OtherSource returns the name used for unmatched deposits.
func (t *AliasTable) OtherSource() string {
	return t.opts.OtherSource
}

// Len returns the number of aliases in the table.
func (t *AliasTable) Len() int {
	return len(t.aliases)
}
