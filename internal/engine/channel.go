package engine

import (
	"strconv"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// ClassifierConfig holds the naming heuristics used when a channel carries
// no explicit role or activity in its metadata. Markers match
// case-insensitively as substrings of the display name.
type ClassifierConfig struct {
	CardMarkers       []string
	OffBalanceMarkers []string
	InvestmentMarkers []string
	LoanMarkers       []string
}

// DefaultClassifierConfig returns the built-in naming heuristics.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		CardMarkers:       []string{"card", "카드"},
		InvestmentMarkers: []string{"증권", "invest", "brokerage"},
		LoanMarkers:       []string{"loan", "대출"},
	}
}

// ChannelClass is the derived reporting placement of a channel.
// OffBalance channels are kept out of every statement total.
type ChannelClass struct {
	Role       model.ReportingRole
	Activity   model.CashFlowActivity
	OffBalance bool
}

// IsAsset reports whether the channel contributes to asset totals and cash flow.
func (c ChannelClass) IsAsset() bool {
	return c.Role == model.RoleAsset && !c.OffBalance
}

// IsLiability reports whether the channel contributes to liability totals.
func (c ChannelClass) IsLiability() bool {
	return c.Role == model.RoleLiability && !c.OffBalance
}

// OnBalanceSheet reports whether the channel gets a daily balance series.
func (c ChannelClass) OnBalanceSheet() bool {
	return c.IsAsset() || c.IsLiability()
}

// Classify resolves a channel's role and activity. Explicit metadata wins,
// then the naming heuristics, then the asset/operating default. It never
// fails; unparsable metadata is ignored here and rejected by Engine.Build
// and by storage.
func (cfg ClassifierConfig) Classify(ch model.Channel) ChannelClass {
	name := strings.ToLower(ch.Name)

	class := ChannelClass{Role: model.RoleAsset, Activity: model.ActivityOperating}

	switch {
	case ch.Category == model.ChannelCard, containsAny(name, cfg.CardMarkers):
		class.Role = model.RoleLiability
	}
	switch {
	case containsAny(name, cfg.LoanMarkers):
		class.Activity = model.ActivityFinancing
	case ch.Category == model.ChannelInvestment, containsAny(name, cfg.InvestmentMarkers):
		class.Activity = model.ActivityInvesting
	}
	class.OffBalance = containsAny(name, cfg.OffBalanceMarkers)

	if v, ok := ch.Metadata[model.MetaReportingRole]; ok {
		if role, err := model.ParseReportingRole(v); err == nil {
			class.Role = role
		}
	}
	if v, ok := ch.Metadata[model.MetaCashFlowActivity]; ok {
		if activity, err := model.ParseCashFlowActivity(v); err == nil {
			class.Activity = activity
		}
	}
	if v, ok := ch.Metadata[model.MetaOffBalance]; ok {
		if off, err := strconv.ParseBool(v); err == nil {
			class.OffBalance = off
		}
	}

	return class
}

// ClassifyAll classifies every channel, keyed by channel ID.
func (cfg ClassifierConfig) ClassifyAll(channels []model.Channel) map[string]ChannelClass {
	classes := make(map[string]ChannelClass, len(channels))
	for _, ch := range channels {
		classes[ch.ID] = cfg.Classify(ch)
	}
	return classes
}

func containsAny(lowered string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(lowered, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
