package storefront

import (
	"strings"

	"preorder-proxy/internal/model"
)

// productToModel converts a storefront product payload to the shared model.
// The storefront JSON does not carry the shop currency, so the client's
// configured currency is stamped onto the snapshot here.
func productToModel(p *sfProduct, currency string) *model.Product {
	out := &model.Product{
		ID:       p.ID.String(),
		Handle:   p.Handle,
		Title:    p.Title,
		ImageURL: normalizeImageURL(p.FeaturedImage),
		Currency: currency,
		Variants: make([]model.Variant, 0, len(p.Variants)),
	}
	if out.ImageURL == "" && len(p.Images) > 0 {
		out.ImageURL = normalizeImageURL(p.Images[0])
	}

	for _, v := range p.Variants {
		mv := model.Variant{
			ID:        v.ID.String(),
			SKU:       v.SKU,
			Title:     v.Title,
			Available: v.Available,
			Price:     v.Price,
		}
		if v.FeaturedImage != nil {
			mv.ImageURL = normalizeImageURL(v.FeaturedImage.Src)
		}
		out.Variants = append(out.Variants, mv)
	}
	return out
}

// normalizeImageURL upgrades protocol-relative CDN URLs ("//cdn...") to
// https. The storefront serves image fields both ways.
func normalizeImageURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
