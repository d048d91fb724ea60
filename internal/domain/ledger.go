// Package domain contains core business types and interfaces.
//
// This file defines the credit ledger types: subscription tiers, per-account
// ledger entries, and the cost table for AI generation actions.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tier represents the subscription level of an account.
type Tier string

const (
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// Valid checks if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPremium, TierEnterprise:
		return true
	default:
		return false
	}
}

// Unlimited returns true if the tier is not metered.
// Enterprise accounts never consume credits.
func (t Tier) Unlimited() bool {
	return t == TierEnterprise
}

// LedgerStatus represents the billing status of a ledger entry.
type LedgerStatus string

const (
	LedgerStatusActive   LedgerStatus = "active"
	LedgerStatusInactive LedgerStatus = "inactive"
)

// Default monthly credit allotments per tier. Premium and enterprise limits
// can be overridden by product mapping grants; free is fixed.
const (
	FreeMonthlyCredits    = 10
	PremiumMonthlyCredits = 500

	// UnlimitedCredits is the sentinel balance stored for enterprise
	// accounts. The metering gate never decrements it.
	UnlimitedCredits = 1_000_000
)

// LedgerEntry is the authoritative per-account record of tier and remaining
// credits. Exactly one entry exists per account, created at signup.
type LedgerEntry struct {
	AccountID        uuid.UUID
	Tier             Tier
	Status           LedgerStatus
	CreditsRemaining int
	MonthlyLimit     int
	ResetDate        time.Time
	UpdatedAt        time.Time
}

// Unlimited returns true if this entry belongs to an unmetered tier.
func (e *LedgerEntry) Unlimited() bool {
	return e.Tier.Unlimited()
}

// CanAfford reports whether the entry has balance for the given cost.
// Unlimited tiers can always afford.
func (e *LedgerEntry) CanAfford(cost int) bool {
	if e.Unlimited() {
		return true
	}
	return e.CreditsRemaining >= cost
}

// MonthlyLimitFor returns the default monthly credit limit for a tier.
func MonthlyLimitFor(tier Tier) int {
	switch tier {
	case TierPremium:
		return PremiumMonthlyCredits
	case TierEnterprise:
		return UnlimitedCredits
	default:
		return FreeMonthlyCredits
	}
}

// ActionType identifies the kind of AI generation being requested.
type ActionType string

const (
	ActionScript         ActionType = "script"
	ActionIdeas          ActionType = "ideas"
	ActionQuotes         ActionType = "quotes"
	ActionQuestions      ActionType = "questions"
	ActionChat           ActionType = "chat"
	ActionEditorialLine  ActionType = "editorial_line"
	ActionCrossReference ActionType = "cross_reference"
	ActionMemory         ActionType = "memory"
)

// actionCosts maps each action type to its credit cost. Cross-reference
// reads multiple book memories and costs double.
var actionCosts = map[ActionType]int{
	ActionScript:         1,
	ActionIdeas:          1,
	ActionQuotes:         1,
	ActionQuestions:      1,
	ActionChat:           1,
	ActionEditorialLine:  1,
	ActionCrossReference: 2,
	ActionMemory:         1,
}

// Valid checks if the action type is known.
func (a ActionType) Valid() bool {
	_, ok := actionCosts[a]
	return ok
}

// CostOf returns the credit cost for an action type.
// Unknown actions cost 1 so a missing table entry can never make a
// generation free; callers should validate the action first.
func CostOf(action ActionType) int {
	if cost, ok := actionCosts[action]; ok {
		return cost
	}
	return 1
}

// NextResetDate returns the first day of the month following now, in UTC.
// This is the date the monthly reset scheduler advances entries to.
func NextResetDate(now time.Time) time.Time {
	now = now.UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, 0)
}
