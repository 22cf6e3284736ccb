package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/spf13/viper"
)

// LoadEngineConfig builds the engine configuration from the ledger.* and
// installments.* keys. Unset keys keep the engine defaults.
func LoadEngineConfig(logger *slog.Logger) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.Logger = logger

	if tz := strings.TrimSpace(viper.GetString("ledger.timezone")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("%w: ledger.timezone %q: %w", common.ErrInvalidConfig, tz, err)
		}
		cfg.Location = loc
	}

	if viper.IsSet("ledger.transfer_window") {
		raw := viper.GetString("ledger.transfer_window")
		window, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("%w: ledger.transfer_window %q: %w", common.ErrInvalidConfig, raw, err)
		}
		if window <= 0 {
			return cfg, fmt.Errorf("%w: ledger.transfer_window must be positive", common.ErrInvalidConfig)
		}
		cfg.TransferWindow = window
	}

	markers := []struct {
		key  string
		dest *[]string
	}{
		{"ledger.card_markers", &cfg.Classifier.CardMarkers},
		{"ledger.off_balance_markers", &cfg.Classifier.OffBalanceMarkers},
		{"ledger.investment_markers", &cfg.Classifier.InvestmentMarkers},
		{"ledger.loan_markers", &cfg.Classifier.LoanMarkers},
		{"installments.cancel_markers", &cfg.CancelMarkers},
	}
	for _, m := range markers {
		if !viper.IsSet(m.key) {
			continue
		}
		values, err := markerList(m.key)
		if err != nil {
			return cfg, err
		}
		*m.dest = values
	}

	return cfg, nil
}

func markerList(key string) ([]string, error) {
	values := viper.GetStringSlice(key)
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("%w: %s contains an empty marker", common.ErrInvalidConfig, key)
		}
		out = append(out, v)
	}
	return out, nil
}
