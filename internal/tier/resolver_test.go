package tier

import (
	"testing"

	"github.com/cortexloop/engine/internal/domain"
)

func ptr(i int) *int { return &i }

func TestT2KeywordInDescriptionAlone(t *testing.T) {
	got := Resolve(Input{Title: "Update readme", Description: "this will deploy the new build"})
	if got != domain.TierT2 {
		t.Fatalf("got %v, want T2", got)
	}
}

func TestT2RatchetsOverSuggestedT1(t *testing.T) {
	got := Resolve(Input{Title: "Delete old logs", Description: "cleanup", SuggestedTier: ptr(1)})
	if got != domain.TierT2 {
		t.Fatalf("got %v, want T2 (T2 keyword beats suggestedTier=T1)", got)
	}
}

func TestSuggestedT2AlwaysWins(t *testing.T) {
	got := Resolve(Input{Title: "harmless task", Description: "nothing special", SuggestedTier: ptr(2)})
	if got != domain.TierT2 {
		t.Fatalf("got %v, want T2", got)
	}
}

func TestT1KeywordPromotesT0(t *testing.T) {
	got := Resolve(Input{Title: "Run staging rehearsal", Description: "dry run only"})
	// NB: "staging" is T1 and the phrase contains no T2 keyword.
	if got != domain.TierT1 {
		t.Fatalf("got %v, want T1", got)
	}
}

func TestSuggestedT1UsedWhenNoKeywordMatches(t *testing.T) {
	got := Resolve(Input{Title: "Refactor parser", Description: "internal cleanup", SuggestedTier: ptr(1)})
	if got != domain.TierT1 {
		t.Fatalf("got %v, want T1", got)
	}
}

func TestDefaultsToT0(t *testing.T) {
	got := Resolve(Input{Title: "Write unit tests", Description: "improve coverage"})
	if got != domain.TierT0 {
		t.Fatalf("got %v, want T0", got)
	}
}

func TestPublicationMatchesPublicBySubstring(t *testing.T) {
	// spec §9 calls out "public" matching "publication" as a known
	// imprecision of the keyword policy — document the behavior rather
	// than silently diverging from spec.
	got := Resolve(Input{Title: "Write publication draft", Description: "internal notes"})
	if got != domain.TierT2 {
		t.Fatalf("got %v, want T2 (substring match on \"public\" is intentional per spec)", got)
	}
}
