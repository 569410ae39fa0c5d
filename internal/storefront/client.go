package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"preorder-proxy/internal/model"
	"preorder-proxy/internal/transport"
)

// defaultCartAddPath is where form-encoded add-to-cart requests go.
const defaultCartAddPath = "/cart/add.js"

// Default client-side throttle for storefront calls. CDN-fronted shops
// return 429s well below their documented limits when traffic looks
// scripted, so we stay conservative.
const (
	defaultRequestsPerSecond = 4
	defaultBurst             = 2
)

// Config holds storefront client configuration.
type Config struct {
	// StoreURL is the shop's base URL, e.g. "https://shop.example.com".
	StoreURL string

	// CartAddPath overrides the add-to-cart endpoint path. Default /cart/add.js.
	CartAddPath string

	// Currency is the shop's ISO 4217 currency code, stamped onto fetched
	// product snapshots (the product JSON does not carry it).
	Currency string

	// RequestsPerSecond and Burst tune the client-side rate limiter.
	// Zero values use the defaults above.
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the shop's public storefront endpoints.
//
// Uses the browser-fingerprint TLS transport for the same reason the
// checkout proxies do: storefront CDNs rate-limit unfamiliar JA3
// fingerprints aggressively. All calls go through a shared rate limiter.
type Client struct {
	httpClient  *http.Client
	storeURL    string
	cartAddPath string
	currency    string
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates a storefront client with the given configuration.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cartAddPath := cfg.CartAddPath
	if cartAddPath == "" {
		cartAddPath = defaultCartAddPath
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport.NewBrowserTransport(30 * time.Second),
		},
		storeURL:    strings.TrimSuffix(cfg.StoreURL, "/"),
		cartAddPath: cartAddPath,
		currency:    cfg.Currency,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		logger:      logger,
	}, nil
}

// ProductByHandle fetches GET /products/{handle}.js and returns the product
// snapshot in model form.
func (c *Client) ProductByHandle(ctx context.Context, handle string) (*model.Product, error) {
	if handle == "" {
		return nil, model.NewValidationError("handle", "must not be empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}

	reqURL := c.storeURL + "/products/" + url.PathEscape(handle) + ".js"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, model.NewNotFoundError("product " + handle)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, model.NewRateLimitError("storefront")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, model.NewUpstreamError("storefront",
			fmt.Errorf("product fetch returned status %d", resp.StatusCode))
	}

	var p sfProduct
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, model.NewUpstreamError("storefront",
			fmt.Errorf("malformed product payload: %w", err))
	}

	c.logger.Debug("product fetched",
		slog.String("handle", handle),
		slog.Int("variants", len(p.Variants)),
	)
	return productToModel(&p, c.currency), nil
}

// AddToCart posts a form-encoded add-to-cart request and decodes the JSON
// reply. A server-side rejection (the reply carries a status field) is NOT
// an error here; callers inspect CartAddResponse.Failed(). Errors are
// reserved for transport and malformed-payload failures.
func (c *Client) AddToCart(ctx context.Context, req *model.CartAddRequest) (*model.CartAddResponse, error) {
	if req.VariantID == "" {
		return nil, model.NewValidationError("id", "variant id is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}

	form := url.Values{}
	form.Set("id", req.VariantID)
	form.Set("quantity", strconv.Itoa(req.Quantity))
	for k, v := range req.Properties {
		form.Set("properties["+k+"]", v)
	}
	if len(req.Sections) > 0 {
		form.Set("sections", strings.Join(req.Sections, ","))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.storeURL+c.cartAddPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, model.NewRateLimitError("storefront")
	}
	if resp.StatusCode >= 500 {
		return nil, model.NewUpstreamError("storefront",
			fmt.Errorf("cart add returned status %d", resp.StatusCode))
	}

	// Rejections (422 and friends) come back as JSON with a status field;
	// successful adds return the created line. Both decode into the same
	// response type.
	var out model.CartAddResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, model.NewUpstreamError("storefront",
			fmt.Errorf("malformed cart payload: %w", err))
	}

	c.logger.Debug("cart add completed",
		slog.String("variant_id", req.VariantID),
		slog.Int("quantity", req.Quantity),
		slog.Bool("rejected", out.Failed()),
	)
	return &out, nil
}
