package resolver

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"preorder-proxy/internal/bus"
	"preorder-proxy/internal/model"
)

// Source tag on success broadcasts, identifying the pre-order flow to cart
// UI listeners.
const sourceTag = "preorder"

// Activation describes a direct user activation of the submit control.
type Activation struct {
	// ID keys performance timing samples back to the triggering event.
	ID string

	At time.Time
}

// Submit runs the add-to-cart pipeline for the current resolution.
//
// Preconditions: the control is not blocked (no submission in flight, no
// selection change announced and still unresolved, matched variant
// purchasable) and the resolution state carries a variant produced for the
// current SKU. Unmet preconditions abort silently with no request sent.
//
// Every outcome (success, server rejection, network failure) re-enables the
// control after the timed "added" state elapses; nothing propagates to the
// caller.
func (r *Resolver) Submit(ctx context.Context, act Activation) {
	start := time.Now()

	r.mu.Lock()
	if r.detached || r.submitting || r.changing || !r.state.Resolved() {
		r.mu.Unlock()
		return
	}
	if r.resolved != nil && !r.resolved.Available {
		// Resolved but not purchasable: the control is parked on disabled.
		r.mu.Unlock()
		return
	}
	variantID := r.state.ResolvedVariantID
	matchedSKU := r.state.CurrentSKU
	resolved := r.resolved
	r.submitting = true
	r.mu.Unlock()

	// Timed visual state starts immediately; the revert timer re-enables
	// the control regardless of how the request ends.
	r.deps.Control.SetState(ControlAdded, labelAdded)
	r.scheduleRevert()

	qty := parseQuantity(r.rawQuantity(), r.cfg.MaxQuantity)

	req := &model.CartAddRequest{
		VariantID: variantID,
		Quantity:  qty,
		Properties: map[string]string{
			model.PropPreorder:          "true",
			model.PropOriginalProductID: r.cfg.OriginalProductID,
			model.PropPreorderProductID: r.cfg.PreorderProductID,
			model.PropMatchedSKU:        matchedSKU,
			model.PropOriginalHandle:    r.cfg.OriginalHandle,
		},
	}
	if r.deps.Sections != nil {
		req.Sections = r.deps.Sections.CartSections()
	}

	resp, err := r.deps.Cart.AddToCart(ctx, req)
	switch {
	case err != nil:
		// Network-level failures are user-facing identical to a server
		// rejection.
		r.log.Error("cart add request failed", slog.String("error", err.Error()))
		r.reportFailure(genericErrorLabel)

	case resp.Failed():
		msg := resp.ErrorMessage()
		if msg == "" {
			msg = genericErrorLabel
		}
		r.log.Warn("cart add rejected", slog.String("message", msg))
		r.reportFailure(msg)

	default:
		count := resp.ItemCount
		if count == 0 {
			count = qty
		}
		r.deps.Bus.Publish(bus.TopicCartAdd, model.CartAdded{
			Source:            sourceTag,
			VariantID:         variantID,
			ItemCount:         count,
			ProductID:         r.cfg.PreorderProductID,
			OriginalProductID: r.cfg.OriginalProductID,
			Sections:          resp.Sections,
			IsPreorder:        true,
		})
		if r.deps.Effects != nil {
			r.deps.Effects.FlyToCart(r.flightImage(resolved))
		}
	}

	r.log.Debug("submit completed",
		slog.String("activation_id", act.ID),
		slog.Duration("duration", time.Since(start)),
	)
}

// reportFailure broadcasts a cart error and shows the timed inline label.
func (r *Resolver) reportFailure(msg string) {
	r.deps.Bus.Publish(bus.TopicCartError, model.CartError{
		SourceID: r.id,
		Message:  msg,
	})

	r.mu.Lock()
	detached := r.detached
	r.mu.Unlock()
	if !detached {
		r.deps.Control.SetState(ControlError, msg)
	}
}

// scheduleRevert arms the timer that ends the current timed control state.
// A pending timer is replaced; detachment stops it.
func (r *Resolver) scheduleRevert() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revert != nil {
		r.revert.Stop()
	}
	r.revert = time.AfterFunc(r.revertDelay(), r.revertControl)
}

// revertControl re-enables the control according to the state the resolver
// is in once the timed visual state ends.
func (r *Resolver) revertControl() {
	r.mu.Lock()
	if r.detached {
		r.mu.Unlock()
		return
	}
	r.submitting = false
	changing := r.changing
	resolved := r.state.Resolved()
	available := r.resolved != nil && r.resolved.Available
	r.mu.Unlock()

	switch {
	case changing:
		// A new selection is in flight; stay blocked until it resolves.
		r.deps.Control.SetState(ControlDisabled, labelPreorder)
	case resolved && available:
		r.deps.Control.SetState(ControlReady, labelPreorder)
	case resolved:
		r.deps.Control.SetState(ControlDisabled, labelPreorder)
	default:
		r.deps.Control.SetState(ControlUnavailable, labelUnavailable)
	}
}

// rawQuantity reads the quantity input, tolerating a missing source.
func (r *Resolver) rawQuantity() string {
	if r.deps.Quantity == nil {
		return ""
	}
	return r.deps.Quantity.Quantity()
}

// flightImage picks the image for the fly-to-cart effect: the resolved
// variant's image when it has one, else the pre-order product image.
func (r *Resolver) flightImage(v *model.Variant) string {
	if v != nil && v.ImageURL != "" {
		return v.ImageURL
	}
	if p := r.cachedPreorder(); p != nil {
		return p.ImageURL
	}
	return ""
}

// parseQuantity interprets the raw quantity input: non-numeric input and
// values below one submit as one; max caps the result when positive.
func parseQuantity(raw string, max int) int {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || q < 1 {
		q = 1
	}
	if max > 0 && q > max {
		q = max
	}
	return q
}
