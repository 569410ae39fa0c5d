package resolver

import (
	"strings"

	"preorder-proxy/internal/model"
)

// Match strategy names, reported for diagnostics and the REST resolve
// surface.
const (
	StrategyExact    = "exact"
	StrategySuffix   = "suffix"
	StrategyPosition = "position"
	StrategyFallback = "fallback"
)

// SKU suffix markers, longest first so e.g. "-PRE-ORDER" wins over "-PRE".
// Catalogs tag the in-stock listing and its pre-order counterpart with
// diverging conventions; both sets are deliberately the superset of every
// marker seen in the wild.
var (
	regularSuffixes  = []string{"-IN-STOCK", "-INSTOCK", "-STOCK", "-REG"}
	preorderSuffixes = []string{"-PRE-ORDER", "-PREORDER", "-BACKORDER", "-PRE", "-BO"}
)

// normalizeSKU uppercases, trims, and strips the first matching suffix
// marker, yielding the base string used for cross-catalog comparison.
func normalizeSKU(sku string, suffixes []string) string {
	s := strings.ToUpper(strings.TrimSpace(sku))
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return strings.TrimSuffix(s, suf)
		}
	}
	return s
}

// MatchVariant resolves the pre-order counterpart of the selected SKU.
//
// Strategy chain, first success wins:
//  1. exact SKU equality
//  2. normalized-suffix match (regular markers stripped from the selection,
//     pre-order markers from candidates)
//  3. positional match: when variant counts line up, the candidate at the
//     selection's ordinal (requires the primary product; pass nil to skip)
//  4. availability fallback: first available candidate, else first listed
//
// SKU correspondence between a primary and a pre-order catalog entry is not
// guaranteed, so the chain trades precision for availability: it only
// returns nil when the pre-order product has zero variants.
func MatchVariant(selectedSKU string, preorder, primary *model.Product) (*model.Variant, string) {
	if preorder == nil || len(preorder.Variants) == 0 {
		return nil, ""
	}

	// 1. Exact SKU match
	for i := range preorder.Variants {
		if preorder.Variants[i].SKU == selectedSKU {
			return &preorder.Variants[i], StrategyExact
		}
	}

	// 2. Normalized-suffix match
	base := normalizeSKU(selectedSKU, regularSuffixes)
	if base != "" {
		for i := range preorder.Variants {
			if normalizeSKU(preorder.Variants[i].SKU, preorderSuffixes) == base {
				return &preorder.Variants[i], StrategySuffix
			}
		}
	}

	// 3. Positional match
	if primary != nil && len(primary.Variants) == len(preorder.Variants) {
		if idx := primary.VariantIndexBySKU(selectedSKU); idx >= 0 {
			return &preorder.Variants[idx], StrategyPosition
		}
	}

	// 4. Availability fallback
	return preorder.FirstAvailableVariant(), StrategyFallback
}
