package storefront

import (
	"encoding/json"
	"testing"
)

func TestProductToModel(t *testing.T) {
	payload := `{
		"id": 8001,
		"title": "Widget",
		"handle": "widget-preorder",
		"available": true,
		"price": 1999,
		"featured_image": "//cdn.example.com/widget.jpg",
		"variants": [
			{"id": 9001, "title": "Small", "sku": "W-S-PRE", "available": false, "price": 1999},
			{"id": 9002, "title": "Medium", "sku": "W-M-PRE", "available": true, "price": 1999,
			 "featured_image": {"src": "//cdn.example.com/widget-m.jpg"}}
		]
	}`

	var p sfProduct
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := productToModel(&p, "USD")

	if got.ID != "8001" {
		t.Errorf("ID = %q, want %q", got.ID, "8001")
	}
	if got.Handle != "widget-preorder" {
		t.Errorf("Handle = %q", got.Handle)
	}
	if got.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", got.Currency)
	}
	if got.ImageURL != "https://cdn.example.com/widget.jpg" {
		t.Errorf("ImageURL = %q, want https-upgraded URL", got.ImageURL)
	}
	if len(got.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(got.Variants))
	}

	v := got.Variants[0]
	if v.ID != "9001" || v.SKU != "W-S-PRE" || v.Available || v.Price != 1999 {
		t.Errorf("variant[0] = %+v", v)
	}
	if got.Variants[1].ImageURL != "https://cdn.example.com/widget-m.jpg" {
		t.Errorf("variant[1].ImageURL = %q", got.Variants[1].ImageURL)
	}
}

func TestProductToModel_FallbackImage(t *testing.T) {
	p := &sfProduct{
		ID:     json.Number("1"),
		Handle: "x",
		Images: []string{"//cdn.example.com/first.jpg", "//cdn.example.com/second.jpg"},
	}

	got := productToModel(p, "")
	if got.ImageURL != "https://cdn.example.com/first.jpg" {
		t.Errorf("ImageURL = %q, want first images entry", got.ImageURL)
	}
}

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"protocol relative", "//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"already absolute", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeImageURL(tt.input); got != tt.want {
				t.Errorf("normalizeImageURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
