// Package pattern attributes deposits to named income sources by matching
// their text against a configured alias table.
package pattern

import "github.com/Veraticus/the-books-must-balance/internal/model"

// SourceMatcher resolves the income source of a single transaction.
type SourceMatcher interface {
	// Match returns the canonical source name for txn and whether any
	// configured pattern matched.
	Match(txn model.Transaction) (string, bool)
}

// Alias maps one raw-text pattern to a canonical income source.
type Alias struct {
	Source  string `mapstructure:"source" yaml:"source"`
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
}
