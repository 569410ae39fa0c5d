// Package resolver implements the pre-order variant resolver: it tracks the
// shopper's selection on a primary product, maps it to a variant on the
// linked pre-order product, and submits pre-order add-to-cart requests with
// cross-product linkage metadata.
//
// One resolver instance serves one primary/pre-order product pair for one
// session. Instances attach to a notification bus, keep a private product
// snapshot cache, and tear down through a single cancellation token.
package resolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"preorder-proxy/internal/bus"
	"preorder-proxy/internal/model"
)

// Control labels shown alongside states.
const (
	labelPreorder    = "Pre-order"
	labelResolving   = "Loading"
	labelUnavailable = "Unavailable"
	labelAdded       = "Added"
)

// genericErrorLabel is shown when the server gives no usable message.
const genericErrorLabel = "Could not add to cart"

// defaultRevertDelay is how long the timed "added"/error states last before
// the control re-enables.
const defaultRevertDelay = 2 * time.Second

// Config identifies the product pair a resolver serves. Values come from
// the presentational data attributes of the hosting page.
type Config struct {
	// OriginalProductID scopes inbound variant:update notifications.
	OriginalProductID string

	// OriginalHandle names the primary product for positional matching.
	OriginalHandle string

	// PreorderProductID and PreorderHandle name the linked pre-order
	// product. A missing handle is a configuration error: the matcher
	// yields no match and the control shows unavailable.
	PreorderProductID string
	PreorderHandle    string

	// InitialSKU and InitialVariantID seed the resolution state from a
	// previously persisted resolution, if any.
	InitialSKU       string
	InitialVariantID string

	// MaxQuantity caps submission quantity. 0 means no cap.
	MaxQuantity int

	// RevertDelay overrides how long timed control states last.
	// Zero uses defaultRevertDelay.
	RevertDelay time.Duration
}

// Deps are the resolver's injected collaborators.
type Deps struct {
	Catalog  Catalog
	Cart     Cart
	Bus      *bus.Bus
	Control  Control
	Sections SectionProvider
	Quantity QuantitySource
	Effects  Effects // optional
	Logger   *slog.Logger
}

// Resolver binds a primary product's selection to a pre-order variant and
// drives the submit control. All state mutation happens under mu; remote
// fetches run on their own goroutines and re-validate against the epoch
// counter before applying results.
type Resolver struct {
	id   string
	cfg  Config
	deps Deps
	log  *slog.Logger

	token  *bus.Token
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      model.ResolutionState
	resolved   *model.Variant
	epoch      uint64
	submitting bool
	changing   bool
	detached   bool
	revert     *time.Timer

	// Snapshot cache: each product is fetched at most once per instance
	// and never invalidated. Staleness over a session is accepted.
	fetchMu  sync.Mutex
	preorder *model.Product
	primary  *model.Product
}

// New creates a resolver for one product pair. It does not subscribe to
// anything until Attach is called.
func New(cfg Config, deps Deps) (*Resolver, error) {
	if deps.Catalog == nil {
		return nil, model.NewValidationError("deps", "catalog is required")
	}
	if deps.Cart == nil {
		return nil, model.NewValidationError("deps", "cart is required")
	}
	if deps.Bus == nil {
		return nil, model.NewValidationError("deps", "bus is required")
	}
	if deps.Control == nil {
		return nil, model.NewValidationError("deps", "control is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := &Resolver{
		id:   uuid.NewString(),
		cfg:  cfg,
		deps: deps,
		state: model.ResolutionState{
			CurrentSKU:        cfg.InitialSKU,
			ResolvedVariantID: cfg.InitialVariantID,
		},
	}
	r.log = deps.Logger.With(
		slog.String("resolver_id", r.id),
		slog.String("original_product_id", cfg.OriginalProductID),
		slog.String("preorder_handle", cfg.PreorderHandle),
	)
	return r, nil
}

// ID returns the resolver's identity, used as SourceID on error broadcasts.
func (r *Resolver) ID() string { return r.id }

// State returns a copy of the current resolution state.
func (r *Resolver) State() model.ResolutionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Attach subscribes the resolver to its notification topics. Mirrors the
// hosting component entering the document.
func (r *Resolver) Attach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != nil || r.detached {
		return
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.token = r.deps.Bus.NewToken()
	r.token.Subscribe(bus.TopicVariantUpdate, r.onVariantUpdate)
	r.token.Subscribe(bus.TopicVariantChanging, r.onVariantChanging)
}

// Detach cancels every subscription, stops timers, and makes in-flight
// resolution and submission completions no-ops. Idempotent.
func (r *Resolver) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detached {
		return
	}
	r.detached = true
	r.epoch++
	if r.token != nil {
		r.token.Cancel()
	}
	if r.revert != nil {
		r.revert.Stop()
		r.revert = nil
	}
	if r.cancel != nil {
		r.cancel()
	}
}

// onVariantChanging disables the control before the next selection's
// resolution begins. Runs inline on the publisher's goroutine; the bus
// dispatches synchronously, which closes the window where a shopper could
// submit against a resolution that is about to go stale. The changing flag
// blocks Submit until the next variant:update arrives.
func (r *Resolver) onVariantChanging(any) {
	r.mu.Lock()
	if r.detached {
		r.mu.Unlock()
		return
	}
	r.changing = true
	r.mu.Unlock()
	r.deps.Control.SetState(ControlDisabled, labelPreorder)
}

// onVariantUpdate filters, de-duplicates, and kicks off matching for a
// variant:update notification.
func (r *Resolver) onVariantUpdate(payload any) {
	upd, ok := payload.(model.VariantUpdate)
	if !ok {
		return
	}
	if upd.ProductID != r.cfg.OriginalProductID {
		return
	}

	r.mu.Lock()
	if r.detached {
		r.mu.Unlock()
		return
	}
	wasChanging := r.changing
	r.changing = false

	if upd.Variant == nil {
		// Selection maps to no purchasable configuration on the primary
		// product; clear the binding and park the control.
		r.state = model.ResolutionState{}
		r.resolved = nil
		r.epoch++
		r.mu.Unlock()
		r.deps.Control.SetState(ControlUnavailable, labelUnavailable)
		return
	}

	if upd.Variant.SKU == r.state.CurrentSKU {
		// Repeated notification for an unchanged selection: no re-fetch,
		// no UI flash. If variant:changing parked the control, restore it
		// to match the still-valid resolution.
		resolved := r.state.Resolved()
		available := r.resolved != nil && r.resolved.Available
		r.mu.Unlock()
		if wasChanging {
			switch {
			case resolved && available:
				r.deps.Control.SetState(ControlReady, labelPreorder)
			case resolved:
				r.deps.Control.SetState(ControlDisabled, labelPreorder)
			default:
				r.deps.Control.SetState(ControlUnavailable, labelUnavailable)
			}
		}
		return
	}

	r.state.CurrentSKU = upd.Variant.SKU
	r.state.ResolvedVariantID = ""
	r.resolved = nil
	r.epoch++
	epoch := r.epoch
	sku := upd.Variant.SKU
	ctx := r.ctx
	r.mu.Unlock()

	r.deps.Control.SetState(ControlResolving, labelResolving)
	go r.resolveAndApply(ctx, epoch, sku)
}

// resolveAndApply runs the matcher for one tracked SKU and applies the
// outcome, unless the tracked SKU changed while the fetch was in flight.
func (r *Resolver) resolveAndApply(ctx context.Context, epoch uint64, sku string) {
	variant, strategy := r.match(ctx, sku)

	r.mu.Lock()
	if r.detached || epoch != r.epoch {
		r.mu.Unlock()
		r.log.Debug("stale resolution discarded", slog.String("sku", sku))
		return
	}

	if variant == nil {
		r.state.ResolvedVariantID = ""
		r.resolved = nil
		r.mu.Unlock()
		r.deps.Control.SetState(ControlUnavailable, labelUnavailable)
		return
	}

	v := *variant
	r.state.ResolvedVariantID = v.ID
	r.resolved = &v
	r.mu.Unlock()

	currency := ""
	if p := r.cachedPreorder(); p != nil {
		currency = p.Currency
	}

	r.log.Debug("variant resolved",
		slog.String("sku", sku),
		slog.String("variant_id", v.ID),
		slog.String("strategy", strategy),
		slog.Bool("available", v.Available),
	)

	r.deps.Control.SetPrice(model.FormatMinorUnits(v.Price, currency))
	if v.Available {
		r.deps.Control.SetState(ControlReady, labelPreorder)
	} else {
		r.deps.Control.SetState(ControlDisabled, labelPreorder)
	}
}

// match loads the needed snapshots and runs the strategy chain. Fetch and
// configuration failures are logged and surface as "no match"; nothing
// propagates to the caller.
func (r *Resolver) match(ctx context.Context, sku string) (*model.Variant, string) {
	preorder := r.preorderProduct(ctx)
	if preorder == nil {
		return nil, ""
	}

	// The primary product is only needed for positional matching, and only
	// when the counts could line up.
	var primary *model.Product
	if len(preorder.Variants) > 0 && r.cfg.OriginalHandle != "" {
		primary = r.primaryProduct(ctx)
	}

	return MatchVariant(sku, preorder, primary)
}

// preorderProduct returns the cached pre-order snapshot, fetching it on
// first use. Returns nil on configuration or fetch failure.
func (r *Resolver) preorderProduct(ctx context.Context) *model.Product {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()
	if r.preorder != nil {
		return r.preorder
	}
	if r.cfg.PreorderHandle == "" {
		r.log.Error("preorder handle is not configured")
		return nil
	}

	p, err := r.deps.Catalog.ProductByHandle(ctx, r.cfg.PreorderHandle)
	if err != nil {
		r.log.Error("preorder product fetch failed", slog.String("error", err.Error()))
		return nil
	}
	r.preorder = p
	return p
}

// primaryProduct returns the cached primary snapshot, fetching it on first
// use. Failures are logged and disable positional matching only.
func (r *Resolver) primaryProduct(ctx context.Context) *model.Product {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()
	if r.primary != nil {
		return r.primary
	}

	p, err := r.deps.Catalog.ProductByHandle(ctx, r.cfg.OriginalHandle)
	if err != nil {
		r.log.Warn("primary product fetch failed, positional matching disabled",
			slog.String("error", err.Error()))
		return nil
	}
	r.primary = p
	return p
}

// cachedPreorder returns the pre-order snapshot without fetching.
func (r *Resolver) cachedPreorder() *model.Product {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()
	return r.preorder
}

// revertDelay returns the configured timed-state duration.
func (r *Resolver) revertDelay() time.Duration {
	if r.cfg.RevertDelay > 0 {
		return r.cfg.RevertDelay
	}
	return defaultRevertDelay
}
