package model

import (
	"encoding/json"
	"testing"
)

func testProduct() *Product {
	return &Product{
		ID:     "P2",
		Handle: "widget-preorder",
		Variants: []Variant{
			{ID: "V1", SKU: "W-S-PRE", Available: false, Price: 1999},
			{ID: "V2", SKU: "W-M-PRE", Available: true, Price: 1999},
			{ID: "V3", SKU: "W-L-PRE", Available: true, Price: 2199},
		},
	}
}

func TestProduct_VariantByID(t *testing.T) {
	p := testProduct()

	if v := p.VariantByID("V2"); v == nil || v.SKU != "W-M-PRE" {
		t.Errorf("VariantByID(V2) = %+v, want W-M-PRE", v)
	}
	if v := p.VariantByID("missing"); v != nil {
		t.Errorf("VariantByID(missing) = %+v, want nil", v)
	}
}

func TestProduct_VariantIndexBySKU(t *testing.T) {
	p := testProduct()

	if i := p.VariantIndexBySKU("W-L-PRE"); i != 2 {
		t.Errorf("VariantIndexBySKU(W-L-PRE) = %d, want 2", i)
	}
	if i := p.VariantIndexBySKU("nope"); i != -1 {
		t.Errorf("VariantIndexBySKU(nope) = %d, want -1", i)
	}
}

func TestProduct_FirstAvailableVariant(t *testing.T) {
	p := testProduct()
	if v := p.FirstAvailableVariant(); v == nil || v.ID != "V2" {
		t.Errorf("FirstAvailableVariant() = %+v, want V2", v)
	}

	// None available: falls back to first in listed order
	for i := range p.Variants {
		p.Variants[i].Available = false
	}
	if v := p.FirstAvailableVariant(); v == nil || v.ID != "V1" {
		t.Errorf("FirstAvailableVariant() with none available = %+v, want V1", v)
	}

	// Empty list
	empty := &Product{ID: "P0"}
	if v := empty.FirstAvailableVariant(); v != nil {
		t.Errorf("FirstAvailableVariant() on empty product = %+v, want nil", v)
	}
}

func TestResolutionState_Resolved(t *testing.T) {
	tests := []struct {
		name  string
		state ResolutionState
		want  bool
	}{
		{"empty", ResolutionState{}, false},
		{"sku only", ResolutionState{CurrentSKU: "A"}, false},
		{"variant only", ResolutionState{ResolvedVariantID: "V1"}, false},
		{"both", ResolutionState{CurrentSKU: "A", ResolvedVariantID: "V1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Resolved(); got != tt.want {
				t.Errorf("Resolved() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCartAddResponse_Failed(t *testing.T) {
	// The cart endpoint signals failure by the presence of a status field,
	// not its value. Successful adds omit it entirely.
	var ok CartAddResponse
	if err := json.Unmarshal([]byte(`{"item_count":2}`), &ok); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ok.Failed() {
		t.Error("response without status should not be a failure")
	}

	var bad CartAddResponse
	body := `{"status":422,"message":"Cart Error","description":"Sold out"}`
	if err := json.Unmarshal([]byte(body), &bad); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bad.Failed() {
		t.Error("response with status should be a failure")
	}
	if got := bad.ErrorMessage(); got != "Sold out" {
		t.Errorf("ErrorMessage() = %q, want %q (description preferred)", got, "Sold out")
	}

	bad.Description = ""
	if got := bad.ErrorMessage(); got != "Cart Error" {
		t.Errorf("ErrorMessage() = %q, want %q", got, "Cart Error")
	}
}
