package sheets

import (
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestConfigValidation(t *testing.T) {
	valid := func(mutate func(*Config)) Config {
		c := DefaultConfig()
		c.ServiceAccountPath = "/path/to/key.json"
		mutate(&c)
		return c
	}

	tests := []struct {
		wantErr error
		name    string
		errMsg  string
		config  Config
	}{
		{
			name:   "valid service account config",
			config: valid(func(*Config) {}),
		},
		{
			name: "valid oauth config",
			config: valid(func(c *Config) {
				c.ServiceAccountPath = ""
				c.ClientID = "test-client"
				c.ClientSecret = "test-secret"
				c.RefreshToken = "test-token"
			}),
		},
		{
			name: "partial oauth credentials",
			config: valid(func(c *Config) {
				c.ServiceAccountPath = ""
				c.ClientID = "test-client"
				c.RefreshToken = "test-token"
			}),
			wantErr: common.ErrMissingConfig,
			errMsg:  "no authentication method configured",
		},
		{
			name: "multiple auth methods",
			config: valid(func(c *Config) {
				c.ClientID = "test-client"
				c.ClientSecret = "test-secret"
				c.RefreshToken = "test-token"
			}),
			wantErr: common.ErrInvalidConfig,
			errMsg:  "multiple authentication methods configured",
		},
		{
			name:    "invalid batch size",
			config:  valid(func(c *Config) { c.BatchSize = 0 }),
			wantErr: common.ErrInvalidConfig,
			errMsg:  "batch size must be positive",
		},
		{
			name:    "blank sheet name",
			config:  valid(func(c *Config) { c.SheetName = "" }),
			wantErr: common.ErrInvalidConfig,
		},
		{
			name: "zero retry delay is valid",
			config: valid(func(c *Config) {
				c.RetryAttempts = 0
				c.RetryDelay = 0
			}),
		},
		{
			name:    "negative retry delay",
			config:  valid(func(c *Config) { c.RetryDelay = -1 * time.Second }),
			wantErr: common.ErrInvalidConfig,
			errMsg:  "retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}
