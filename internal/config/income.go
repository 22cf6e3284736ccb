package config

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/spf13/viper"
)

// LoadAliasTable reads income.aliases and the income.* options. A missing
// alias list is ErrMissingConfig.
func LoadAliasTable() (*pattern.AliasTable, error) {
	if !viper.IsSet("income.aliases") {
		return nil, fmt.Errorf("%w: income.aliases is not configured", common.ErrMissingConfig)
	}

	var aliases []pattern.Alias
	if err := viper.UnmarshalKey("income.aliases", &aliases); err != nil {
		return nil, fmt.Errorf("%w: income.aliases: %w", common.ErrInvalidConfig, err)
	}

	opts := pattern.DefaultAliasOptions()
	if v := viper.GetString("income.other_source"); v != "" {
		opts.OtherSource = v
	}
	if viper.IsSet("income.internal_source") {
		opts.InternalSource = viper.GetString("income.internal_source")
	}
	if viper.IsSet("income.raw_fields") {
		opts.RawFields = viper.GetStringSlice("income.raw_fields")
	}

	return pattern.NewAliasTable(aliases, opts)
}
