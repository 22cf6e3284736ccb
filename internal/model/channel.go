// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ChannelCategory is the declared kind of a channel as reported by its source.
type ChannelCategory string

// Channel category constants.
const (
	ChannelBank       ChannelCategory = "bank"
	ChannelCard       ChannelCategory = "card"
	ChannelWallet     ChannelCategory = "wallet"
	ChannelInvestment ChannelCategory = "investment"
	ChannelOther      ChannelCategory = "other"
)

// ReportingRole places a channel on the balance sheet.
type ReportingRole string

// Reporting role constants. RoleEquity is reserved: channels carrying it are
// kept out of both the asset and the liability totals.
const (
	RoleAsset     ReportingRole = "asset"
	RoleLiability ReportingRole = "liability"
	RoleEquity    ReportingRole = "equity"
)

// CashFlowActivity groups a channel's external flows on the cash flow statement.
type CashFlowActivity string

// Cash flow activity constants.
const (
	ActivityOperating CashFlowActivity = "operating"
	ActivityInvesting CashFlowActivity = "investing"
	ActivityFinancing CashFlowActivity = "financing"
)

// Metadata keys that override the naming heuristics.
const (
	MetaReportingRole    = "reportingRole"
	MetaCashFlowActivity = "cashFlowActivity"
	MetaOffBalance       = "offBalance"
)

// Channel represents a financial account the owner controls.
type Channel struct {
	Metadata map[string]string `json:"metadata,omitempty"`
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category ChannelCategory   `json:"category"`
}

// ParseReportingRole converts a metadata string into a ReportingRole.
func ParseReportingRole(s string) (ReportingRole, error) {
	switch ReportingRole(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAsset:
		return RoleAsset, nil
	case RoleLiability:
		return RoleLiability, nil
	case RoleEquity:
		return RoleEquity, nil
	default:
		return "", fmt.Errorf("unknown reporting role %q", s)
	}
}

// ParseCashFlowActivity converts a metadata string into a CashFlowActivity.
func ParseCashFlowActivity(s string) (CashFlowActivity, error) {
	switch CashFlowActivity(strings.ToLower(strings.TrimSpace(s))) {
	case ActivityOperating:
		return ActivityOperating, nil
	case ActivityInvesting:
		return ActivityInvesting, nil
	case ActivityFinancing:
		return ActivityFinancing, nil
	default:
		return "", fmt.Errorf("unknown cash flow activity %q", s)
	}
}

// ParseChannelCategory converts a declared type string into a ChannelCategory.
// Unrecognized values map to ChannelOther.
func ParseChannelCategory(s string) ChannelCategory {
	switch c := ChannelCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelBank, ChannelCard, ChannelWallet, ChannelInvestment:
		return c
	default:
		return ChannelOther
	}
}

// ValidateMetadata rejects role or activity overrides the engine cannot interpret.
func (c Channel) ValidateMetadata() error {
	if v, ok := c.Metadata[MetaReportingRole]; ok {
		if _, err := ParseReportingRole(v); err != nil {
			return fmt.Errorf("channel %s: %w", c.ID, err)
		}
	}
	if v, ok := c.Metadata[MetaCashFlowActivity]; ok {
		if _, err := ParseCashFlowActivity(v); err != nil {
			return fmt.Errorf("channel %s: %w", c.ID, err)
		}
	}
	if v, ok := c.Metadata[MetaOffBalance]; ok {
		if _, err := strconv.ParseBool(v); err != nil {
			return fmt.Errorf("channel %s: invalid %s value %q", c.ID, MetaOffBalance, v)
		}
	}
	return nil
}
