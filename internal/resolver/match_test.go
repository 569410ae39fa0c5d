package resolver

import (
	"testing"

	"preorder-proxy/internal/model"
)

func TestNormalizeSKU(t *testing.T) {
	tests := []struct {
		name     string
		sku      string
		suffixes []string
		want     string
	}{
		{"no suffix", "WIDGET-S", regularSuffixes, "WIDGET-S"},
		{"stock suffix", "WIDGET-S-STOCK", regularSuffixes, "WIDGET-S"},
		{"in-stock suffix", "WIDGET-S-IN-STOCK", regularSuffixes, "WIDGET-S"},
		{"lowercase input", "widget-s-stock", regularSuffixes, "WIDGET-S"},
		{"surrounding space", "  WIDGET-S-REG ", regularSuffixes, "WIDGET-S"},
		{"preorder suffix", "WIDGET-S-PREORDER", preorderSuffixes, "WIDGET-S"},
		{"pre-order wins over pre", "WIDGET-S-PRE-ORDER", preorderSuffixes, "WIDGET-S"},
		{"backorder suffix", "WIDGET-S-BACKORDER", preorderSuffixes, "WIDGET-S"},
		{"short bo suffix", "WIDGET-S-BO", preorderSuffixes, "WIDGET-S"},
		{"only first suffix stripped", "WIDGET-PRE-PRE", preorderSuffixes, "WIDGET-PRE"},
		{"empty", "", regularSuffixes, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeSKU(tt.sku, tt.suffixes); got != tt.want {
				t.Errorf("normalizeSKU(%q) = %q, want %q", tt.sku, got, tt.want)
			}
		})
	}
}

func preorderFixture() *model.Product {
	return &model.Product{
		ID:     "P2",
		Handle: "widget-preorder",
		Variants: []model.Variant{
			{ID: "V1", SKU: "WIDGET-S-PRE", Available: false},
			{ID: "V2", SKU: "WIDGET-M-PRE", Available: true},
			{ID: "V3", SKU: "WIDGET-L-PRE", Available: true},
		},
	}
}

func TestMatchVariant_ExactBeatsSuffix(t *testing.T) {
	// One candidate matches exactly, another only after normalization; the
	// exact match must win regardless of order.
	preorder := &model.Product{
		ID: "P2",
		Variants: []model.Variant{
			{ID: "V1", SKU: "WIDGET-S-PRE"}, // suffix match for WIDGET-S
			{ID: "V2", SKU: "WIDGET-S"},     // exact match
		},
	}

	got, strategy := MatchVariant("WIDGET-S", preorder, nil)
	if got == nil || got.ID != "V2" {
		t.Fatalf("MatchVariant = %+v, want exact match V2", got)
	}
	if strategy != StrategyExact {
		t.Errorf("strategy = %q, want %q", strategy, StrategyExact)
	}
}

func TestMatchVariant_SuffixNormalization(t *testing.T) {
	tests := []struct {
		name        string
		selectedSKU string
		wantID      string
	}{
		{"bare base", "WIDGET-M", "V2"},
		{"stock-suffixed selection", "WIDGET-M-STOCK", "V2"},
		{"in-stock-suffixed selection", "WIDGET-L-IN-STOCK", "V3"},
		{"case insensitive", "widget-s-reg", "V1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy := MatchVariant(tt.selectedSKU, preorderFixture(), nil)
			if got == nil || got.ID != tt.wantID {
				t.Fatalf("MatchVariant(%q) = %+v, want %s", tt.selectedSKU, got, tt.wantID)
			}
			if strategy != StrategySuffix {
				t.Errorf("strategy = %q, want %q", strategy, StrategySuffix)
			}
		})
	}
}

func TestMatchVariant_Positional(t *testing.T) {
	// SKUs share nothing, but variant counts line up: pick the candidate at
	// the selection's ordinal.
	primary := &model.Product{
		ID: "P1",
		Variants: []model.Variant{
			{ID: "A1", SKU: "ALPHA"},
			{ID: "A2", SKU: "BETA"},
			{ID: "A3", SKU: "GAMMA"},
		},
	}

	got, strategy := MatchVariant("BETA", preorderFixture(), primary)
	if got == nil || got.ID != "V2" {
		t.Fatalf("MatchVariant = %+v, want positional V2", got)
	}
	if strategy != StrategyPosition {
		t.Errorf("strategy = %q, want %q", strategy, StrategyPosition)
	}
}

func TestMatchVariant_PositionalSkippedOnCountMismatch(t *testing.T) {
	primary := &model.Product{
		ID: "P1",
		Variants: []model.Variant{
			{ID: "A1", SKU: "ALPHA"},
			{ID: "A2", SKU: "BETA"},
		},
	}

	// Counts differ (2 vs 3): falls through to availability fallback.
	got, strategy := MatchVariant("BETA", preorderFixture(), primary)
	if got == nil || got.ID != "V2" {
		t.Fatalf("MatchVariant = %+v, want first available V2", got)
	}
	if strategy != StrategyFallback {
		t.Errorf("strategy = %q, want %q", strategy, StrategyFallback)
	}
}

func TestMatchVariant_AvailabilityFallback(t *testing.T) {
	// Nothing matches by SKU or position: first available wins.
	got, strategy := MatchVariant("UNRELATED", preorderFixture(), nil)
	if got == nil || got.ID != "V2" {
		t.Fatalf("MatchVariant = %+v, want first available V2", got)
	}
	if strategy != StrategyFallback {
		t.Errorf("strategy = %q, want %q", strategy, StrategyFallback)
	}
}

func TestMatchVariant_FallbackFirstWhenNoneAvailable(t *testing.T) {
	preorder := preorderFixture()
	for i := range preorder.Variants {
		preorder.Variants[i].Available = false
	}

	got, _ := MatchVariant("UNRELATED", preorder, nil)
	if got == nil || got.ID != "V1" {
		t.Fatalf("MatchVariant = %+v, want first listed V1", got)
	}
}

func TestMatchVariant_EmptyProduct(t *testing.T) {
	if got, _ := MatchVariant("ANY", &model.Product{ID: "P2"}, nil); got != nil {
		t.Errorf("MatchVariant on empty product = %+v, want nil", got)
	}
	if got, _ := MatchVariant("ANY", nil, nil); got != nil {
		t.Errorf("MatchVariant on nil product = %+v, want nil", got)
	}
}
