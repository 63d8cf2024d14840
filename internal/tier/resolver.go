// Package tier implements the Tier Resolver (spec §4.3): a pure classifier
// mapping a proposed task to an autonomy tier in {T0, T1, T2}.
package tier

import (
	"strings"

	"github.com/cortexloop/engine/internal/domain"
)

// t2Keywords are hard gates requiring human approval.
var t2Keywords = []string{
	"deploy", "production", "publish", "release", "customer", "outbound",
	"email send", "billing", "payment", "spend", "purchase", "delete",
	"destroy", "public",
}

// t1Keywords mark budget-constrained work.
var t1Keywords = []string{
	"staging", "experiment", "a/b test", "trial", "prototype", "draft",
}

// Input is what the Resolver classifies: a task's title + description plus
// an optional adapter-suggested tier.
type Input struct {
	Title         string
	Description   string
	SuggestedTier *int // nil if the adapter proposed none
}

// Resolve runs the five ordered rules from spec §4.3. T2 is a one-way
// ratchet: a T2 keyword overrides a suggestedTier=T1, and a
// suggestedTier=T2 always wins outright.
func Resolve(in Input) domain.AutonomyTier {
	if in.SuggestedTier != nil && *in.SuggestedTier == int(domain.TierT2) {
		return domain.TierT2
	}

	text := strings.ToLower(in.Title + " " + in.Description)

	if containsAny(text, t2Keywords) {
		return domain.TierT2
	}

	if containsAny(text, t1Keywords) {
		return domain.TierT1
	}

	if in.SuggestedTier != nil && *in.SuggestedTier == int(domain.TierT1) {
		return domain.TierT1
	}

	return domain.TierT0
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
