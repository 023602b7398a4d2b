package convert

import (
	"strconv"
	"strings"

	"github.com/okhsunrog/llm-relay/types"
)

// Thinking budgets per effort level.
const (
	BudgetLow    = 1024
	BudgetMedium = 8192
	BudgetHigh   = 32000
	BudgetMax    = 64000
)

// SplitModelEffort splits a model name carrying an effort suffix in
// parentheses, such as "big-model(high)" or "big-model(16384)". Names
// whose suffix is not a recognized effort token are returned unchanged,
// since parentheses may be part of the model name itself.
func SplitModelEffort(model string) (base, effort string, ok bool) {
	trimmed := strings.TrimSpace(model)
	if !strings.HasSuffix(trimmed, ")") {
		return model, "", false
	}
	open := strings.LastIndex(trimmed, "(")
	if open <= 0 {
		return model, "", false
	}
	base = strings.TrimSpace(trimmed[:open])
	effort = strings.TrimSpace(trimmed[open+1 : len(trimmed)-1])
	if base == "" || !knownEffort(effort) {
		return model, "", false
	}
	return base, effort, true
}

func knownEffort(effort string) bool {
	switch strings.ToLower(effort) {
	case "none", "off", "disabled", "auto",
		"minimal", "low", "medium", "med", "high", "xhigh", "max":
		return true
	}
	_, err := strconv.Atoi(effort)
	return err == nil
}

// ThinkingFromEffort maps an effort token to a thinking configuration.
// Levels map to fixed budgets, a bare integer is taken as the budget
// itself, "auto" defers the budget to the provider, and the off tokens
// disable thinking explicitly.
func ThinkingFromEffort(effort string) (*types.ThinkingConfig, error) {
	switch strings.ToLower(effort) {
	case "none", "off", "disabled":
		return &types.ThinkingConfig{Type: types.ThinkingDisabled}, nil
	case "auto":
		return &types.ThinkingConfig{Type: types.ThinkingAdaptive}, nil
	case "minimal", "low":
		return manualBudget(BudgetLow)
	case "medium", "med":
		return manualBudget(BudgetMedium)
	case "high":
		return manualBudget(BudgetHigh)
	case "xhigh", "max":
		return manualBudget(BudgetMax)
	}
	if n, err := strconv.Atoi(effort); err == nil {
		return manualBudget(n)
	}
	return nil, errMalformed("unknown effort %q", effort)
}

func manualBudget(tokens int) (*types.ThinkingConfig, error) {
	if tokens < types.MinThinkingBudget {
		return nil, errMalformed("thinking budget %d is below the minimum %d", tokens, types.MinThinkingBudget)
	}
	return &types.ThinkingConfig{Type: types.ThinkingEnabled, BudgetTokens: tokens}, nil
}
