// Package model defines data structures shared across the pre-order resolver.
package model

// === Catalog Types ===

// Variant is a purchasable configuration of a product.
// Price is in minor currency units (cents).
type Variant struct {
	ID        string `json:"id"`
	SKU       string `json:"sku"`
	Title     string `json:"title,omitempty"`
	Available bool   `json:"available"`
	Price     int64  `json:"price"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Product is a snapshot of a remote catalog entry.
// A resolver instance fetches each product at most once and keeps the
// snapshot for its whole life; staleness is accepted (see ResolutionState).
type Product struct {
	ID       string    `json:"id"`
	Handle   string    `json:"handle"`
	Title    string    `json:"title,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	Currency string    `json:"currency,omitempty"`
	Variants []Variant `json:"variants"`
}

// VariantByID returns the variant with the given ID, or nil.
func (p *Product) VariantByID(id string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// VariantIndexBySKU returns the ordinal position of the variant with the
// given SKU, or -1. Used for positional matching across products.
func (p *Product) VariantIndexBySKU(sku string) int {
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return i
		}
	}
	return -1
}

// FirstAvailableVariant returns the first available variant in listed order,
// falling back to the first variant, or nil if the product has none.
func (p *Product) FirstAvailableVariant() *Variant {
	for i := range p.Variants {
		if p.Variants[i].Available {
			return &p.Variants[i]
		}
	}
	if len(p.Variants) == 0 {
		return nil
	}
	return &p.Variants[0]
}

// === Resolver State ===

// ResolutionState is a resolver's current binding between the shopper's
// selection on the primary product and a variant on the pre-order product.
//
// ResolvedVariantID is only safe to submit when it was produced by the
// matcher for the current CurrentSKU. Any SKU change invalidates the prior
// resolution until the matcher completes again.
type ResolutionState struct {
	CurrentSKU        string `json:"current_sku,omitempty"`
	ResolvedVariantID string `json:"resolved_variant_id,omitempty"`
}

// Resolved reports whether a submission-safe resolution exists.
func (s ResolutionState) Resolved() bool {
	return s.CurrentSKU != "" && s.ResolvedVariantID != ""
}

// === Notification Payloads ===

// VariantUpdate is the payload of a variant:update notification.
// A nil Variant means no variant is currently resolvable on the primary
// product (the selection maps to no purchasable configuration).
type VariantUpdate struct {
	ProductID string   `json:"product_id"`
	Variant   *Variant `json:"variant,omitempty"`
}

// CartAdded is broadcast after a successful pre-order add-to-cart.
// Sections carries the server-rendered cart fragment HTML keyed by section
// ID, so dependent surfaces (cart icon, drawer) can refresh without a round
// trip.
type CartAdded struct {
	Source            string            `json:"source"`
	VariantID         string            `json:"variant_id"`
	ItemCount         int               `json:"item_count"`
	ProductID         string            `json:"product_id"`
	OriginalProductID string            `json:"original_product_id"`
	Sections          map[string]string `json:"sections,omitempty"`
	IsPreorder        bool              `json:"is_preorder"`
}

// CartError is broadcast when an add-to-cart attempt fails.
type CartError struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

// === Cart Wire Types ===

// CartAddRequest describes one pre-order line to add to the cart.
// Properties carry the cross-product linkage metadata; Sections lists the
// cart-rendering section IDs the server should return pre-rendered.
type CartAddRequest struct {
	VariantID  string            `json:"id"`
	Quantity   int               `json:"quantity"`
	Properties map[string]string `json:"properties,omitempty"`
	Sections   []string          `json:"sections,omitempty"`
}

// Linkage property keys on pre-order cart lines.
const (
	PropPreorder          = "_preorder"
	PropOriginalProductID = "_original_product_id"
	PropPreorderProductID = "_preorder_product_id"
	PropMatchedSKU        = "_matched_sku"
	PropOriginalHandle    = "_original_handle"
)

// CartAddResponse is the storefront cart endpoint's JSON reply.
// Presence of Status signals failure; successful adds omit it entirely.
type CartAddResponse struct {
	Status      *int              `json:"status,omitempty"`
	Message     string            `json:"message,omitempty"`
	Description string            `json:"description,omitempty"`
	ItemCount   int               `json:"item_count,omitempty"`
	Sections    map[string]string `json:"sections,omitempty"`
}

// Failed reports whether the server rejected the add.
func (r *CartAddResponse) Failed() bool {
	return r.Status != nil
}

// ErrorMessage returns the most specific server-provided failure text.
func (r *CartAddResponse) ErrorMessage() string {
	if r.Description != "" {
		return r.Description
	}
	return r.Message
}
