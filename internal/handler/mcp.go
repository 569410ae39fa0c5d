// MCP transport handler using the official MCP Go SDK.
// Exposes variant resolution and pre-order cart submission as MCP tools so
// agents can drive the same pipeline the widget does.

package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"preorder-proxy/internal/model"
	"preorder-proxy/internal/resolver"
)

// === MCP Tool Input/Output Types ===

// ResolveVariantInput is the input schema for resolve_preorder_variant.
type ResolveVariantInput struct {
	PreorderHandle string `json:"preorder_handle" jsonschema:"handle of the pre-order product,required"`
	SelectedSKU    string `json:"selected_sku" jsonschema:"SKU of the shopper's selected variant,required"`
	OriginalHandle string `json:"original_handle,omitempty" jsonschema:"handle of the primary product, enables positional matching"`
}

// ResolveVariantOutput is the result of a single matcher run.
type ResolveVariantOutput struct {
	VariantID      string `json:"variant_id"`
	SKU            string `json:"sku"`
	Title          string `json:"title,omitempty"`
	Available      bool   `json:"available"`
	Price          int64  `json:"price"`
	FormattedPrice string `json:"formatted_price"`
	Strategy       string `json:"strategy"`
}

// AddToCartInput is the input schema for add_preorder_to_cart.
type AddToCartInput struct {
	VariantID         string   `json:"variant_id" jsonschema:"pre-order variant to add,required"`
	Quantity          int      `json:"quantity,omitempty" jsonschema:"quantity, defaults to 1"`
	MatchedSKU        string   `json:"matched_sku,omitempty" jsonschema:"SKU the resolution was made for"`
	OriginalProductID string   `json:"original_product_id,omitempty" jsonschema:"primary product ID for fulfillment linkage"`
	PreorderProductID string   `json:"preorder_product_id,omitempty" jsonschema:"pre-order product ID for fulfillment linkage"`
	OriginalHandle    string   `json:"original_handle,omitempty" jsonschema:"primary product handle for fulfillment linkage"`
	Sections          []string `json:"sections,omitempty" jsonschema:"cart section IDs to re-render"`
}

// AddToCartOutput reports a completed cart submission.
type AddToCartOutput struct {
	VariantID string            `json:"variant_id"`
	Quantity  int               `json:"quantity"`
	ItemCount int               `json:"item_count"`
	Sections  map[string]string `json:"sections,omitempty"`
}

// NewMCPServer creates an MCP server with the pre-order tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "preorder-proxy",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Pre-order variant resolution and cart submission. " +
				"Resolve the pre-order counterpart of a selected variant, then add it to the cart.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name: "resolve_preorder_variant",
		Description: "Map a selected variant SKU on a primary product to its counterpart " +
			"on the linked pre-order product. Always yields a variant when the pre-order " +
			"product has any; the strategy field reports how the match was made.",
	}, h.mcpResolveVariant)

	mcp.AddTool(server, &mcp.Tool{
		Name: "add_preorder_to_cart",
		Description: "Add a pre-order variant to the storefront cart with the line " +
			"properties that link it back to the primary product.",
	}, h.mcpAddToCart)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpResolveVariant(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ResolveVariantInput,
) (*mcp.CallToolResult, *ResolveVariantOutput, error) {
	if input.PreorderHandle == "" {
		return nil, nil, fmt.Errorf("preorder_handle is required")
	}
	if input.SelectedSKU == "" {
		return nil, nil, fmt.Errorf("selected_sku is required")
	}

	preorder, err := h.store.ProductByHandle(ctx, input.PreorderHandle)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	var primary *model.Product
	if input.OriginalHandle != "" {
		// Positional matching is best-effort; a failed primary fetch only
		// narrows the strategy chain.
		primary, _ = h.store.ProductByHandle(ctx, input.OriginalHandle)
	}

	variant, strategy := resolver.MatchVariant(input.SelectedSKU, preorder, primary)
	if variant == nil {
		return nil, nil, h.mcpError(model.NewNotFoundError("variant"))
	}

	return nil, &ResolveVariantOutput{
		VariantID:      variant.ID,
		SKU:            variant.SKU,
		Title:          variant.Title,
		Available:      variant.Available,
		Price:          variant.Price,
		FormattedPrice: model.FormatMinorUnits(variant.Price, preorder.Currency),
		Strategy:       strategy,
	}, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *AddToCartOutput, error) {
	if input.VariantID == "" {
		return nil, nil, fmt.Errorf("variant_id is required")
	}
	qty := input.Quantity
	if qty < 1 {
		qty = 1
	}
	if h.shop.MaxQuantity > 0 && qty > h.shop.MaxQuantity {
		qty = h.shop.MaxQuantity
	}

	sections := input.Sections
	if len(sections) == 0 {
		sections = h.shop.DefaultSections
	}

	resp, err := h.store.AddToCart(ctx, &model.CartAddRequest{
		VariantID: input.VariantID,
		Quantity:  qty,
		Properties: map[string]string{
			model.PropPreorder:          "true",
			model.PropOriginalProductID: input.OriginalProductID,
			model.PropPreorderProductID: input.PreorderProductID,
			model.PropMatchedSKU:        input.MatchedSKU,
			model.PropOriginalHandle:    input.OriginalHandle,
		},
		Sections: sections,
	})
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	if resp.Failed() {
		msg := resp.ErrorMessage()
		if msg == "" {
			msg = "cart add rejected"
		}
		return nil, nil, h.mcpError(model.NewCartRejectedError(msg))
	}

	count := resp.ItemCount
	if count == 0 {
		count = qty
	}
	return nil, &AddToCartOutput{
		VariantID: input.VariantID,
		Quantity:  qty,
		ItemCount: count,
		Sections:  resp.Sections,
	}, nil
}

// mcpError converts service errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	if apiErr, ok := err.(*model.APIError); ok {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
