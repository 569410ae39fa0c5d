// Package storefront implements the client for the shop's public storefront
// endpoints: product JSON reads and form-encoded cart mutations. All
// storefront-specific wire types, transforms, and HTTP logic live here.
package storefront

import "encoding/json"

// === Storefront API Response Types ===

// sfProduct represents the /products/{handle}.js payload.
// IDs arrive as numbers; prices are already in minor units.
type sfProduct struct {
	ID            json.Number `json:"id"`
	Title         string      `json:"title"`
	Handle        string      `json:"handle"`
	Available     bool        `json:"available"`
	Price         int64       `json:"price"`
	FeaturedImage string      `json:"featured_image,omitempty"`
	Images        []string    `json:"images,omitempty"`
	Variants      []sfVariant `json:"variants"`
}

// sfVariant represents one entry of a product's variants array.
type sfVariant struct {
	ID            json.Number      `json:"id"`
	Title         string           `json:"title"`
	SKU           string           `json:"sku"`
	Available     bool             `json:"available"`
	Price         int64            `json:"price"`
	FeaturedImage *sfVariantImage  `json:"featured_image,omitempty"`
}

// sfVariantImage is the nested image object on a variant.
type sfVariantImage struct {
	Src string `json:"src"`
}
