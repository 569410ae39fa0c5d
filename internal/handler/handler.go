// Package handler provides the HTTP surface of the pre-order service:
// stateless REST endpoints, the per-connection WebSocket session, and the
// MCP tool transport.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"preorder-proxy/internal/config"
	"preorder-proxy/internal/model"
	"preorder-proxy/internal/resolver"
)

// Storefront is the remote shop surface the handlers depend on.
// Implemented by storefront.Client.
type Storefront interface {
	resolver.Catalog
	resolver.Cart
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store  Storefront
	shop   config.ShopConfig
	logger *slog.Logger
}

// New creates a Handler backed by the given storefront client.
func New(store Storefront, shop config.ShopConfig, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		shop:   shop,
		logger: logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Stateless REST transport
	mux.HandleFunc("GET /preorder/resolve", h.handleResolve)
	mux.HandleFunc("POST /preorder/cart/add", h.handleCartAdd)

	// Session transport - one resolver per WebSocket connection
	mux.HandleFunc("GET /preorder/session", h.handleSession)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"shop":   h.shop.StoreDomain,
	})
}

// resolveResponse is the REST shape of a single matcher run.
type resolveResponse struct {
	VariantID      string `json:"variant_id"`
	SKU            string `json:"sku"`
	Title          string `json:"title,omitempty"`
	Available      bool   `json:"available"`
	Price          int64  `json:"price"`
	FormattedPrice string `json:"formatted_price"`
	Strategy       string `json:"strategy"`
}

// handleResolve runs the matcher once for a selected SKU against a
// pre-order product, without session state.
//
//	GET /preorder/resolve?handle={preorder}&sku={selected}&original={primary}
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	handle := strings.TrimSpace(q.Get("handle"))
	sku := strings.TrimSpace(q.Get("sku"))
	if handle == "" {
		h.writeError(w, model.NewValidationError("handle", "is required"))
		return
	}
	if sku == "" {
		h.writeError(w, model.NewValidationError("sku", "is required"))
		return
	}

	ctx := r.Context()
	preorder, err := h.store.ProductByHandle(ctx, handle)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// The primary product only matters for positional matching; its fetch
	// failing degrades the chain rather than failing the request.
	var primary *model.Product
	if original := strings.TrimSpace(q.Get("original")); original != "" {
		primary, err = h.store.ProductByHandle(ctx, original)
		if err != nil {
			h.logger.Warn("primary product fetch failed",
				slog.String("handle", original),
				slog.String("error", err.Error()))
			primary = nil
		}
	}

	variant, strategy := resolver.MatchVariant(sku, preorder, primary)
	if variant == nil {
		h.writeError(w, model.NewNotFoundError("variant"))
		return
	}

	h.writeJSON(w, http.StatusOK, resolveResponse{
		VariantID:      variant.ID,
		SKU:            variant.SKU,
		Title:          variant.Title,
		Available:      variant.Available,
		Price:          variant.Price,
		FormattedPrice: model.FormatMinorUnits(variant.Price, preorder.Currency),
		Strategy:       strategy,
	})
}

// cartAddBody is the REST request shape for a pre-order add-to-cart.
type cartAddBody struct {
	VariantID         string   `json:"variant_id"`
	Quantity          int      `json:"quantity"`
	MatchedSKU        string   `json:"matched_sku,omitempty"`
	OriginalProductID string   `json:"original_product_id,omitempty"`
	PreorderProductID string   `json:"preorder_product_id,omitempty"`
	OriginalHandle    string   `json:"original_handle,omitempty"`
	Sections          []string `json:"sections,omitempty"`
}

// handleCartAdd forwards one pre-order line to the storefront cart,
// stamping the linkage properties the fulfillment side reads back.
func (h *Handler) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var body cartAddBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	if body.VariantID == "" {
		h.writeError(w, model.NewValidationError("variant_id", "is required"))
		return
	}
	if body.Quantity < 1 {
		body.Quantity = 1
	}
	if h.shop.MaxQuantity > 0 && body.Quantity > h.shop.MaxQuantity {
		body.Quantity = h.shop.MaxQuantity
	}

	sections := body.Sections
	if len(sections) == 0 {
		sections = h.shop.DefaultSections
	}

	req := &model.CartAddRequest{
		VariantID: body.VariantID,
		Quantity:  body.Quantity,
		Properties: map[string]string{
			model.PropPreorder:          "true",
			model.PropOriginalProductID: body.OriginalProductID,
			model.PropPreorderProductID: body.PreorderProductID,
			model.PropMatchedSKU:        body.MatchedSKU,
			model.PropOriginalHandle:    body.OriginalHandle,
		},
		Sections: sections,
	}

	resp, err := h.store.AddToCart(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if resp.Failed() {
		msg := resp.ErrorMessage()
		if msg == "" {
			msg = "cart add rejected"
		}
		h.writeError(w, model.NewCartRejectedError(msg))
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if errors.As(err, &apiErr) {
		// Found APIError in error chain - use it
	} else {
		// Wrap unexpected errors
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	// Limit request body size to prevent DoS
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}
