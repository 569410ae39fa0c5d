package resolver

import (
	"context"

	"preorder-proxy/internal/model"
)

// Catalog fetches product snapshots from the remote storefront catalog.
// Implemented by storefront.Client.
type Catalog interface {
	ProductByHandle(ctx context.Context, handle string) (*model.Product, error)
}

// Cart issues add-to-cart requests against the storefront.
// Implemented by storefront.Client.
type Cart interface {
	AddToCart(ctx context.Context, req *model.CartAddRequest) (*model.CartAddResponse, error)
}

// ControlState enumerates the submit control's presentation states.
type ControlState string

const (
	// ControlReady: enabled, submission allowed.
	ControlReady ControlState = "ready"

	// ControlDisabled: disabled without a dedicated reason (selection in
	// flight, matched variant not purchasable).
	ControlDisabled ControlState = "disabled"

	// ControlResolving: disabled while the matcher is running.
	ControlResolving ControlState = "resolving"

	// ControlUnavailable: disabled because no pre-order resolution exists.
	ControlUnavailable ControlState = "unavailable"

	// ControlAdded: the timed post-submission state.
	ControlAdded ControlState = "added"

	// ControlError: the timed inline-error state.
	ControlError ControlState = "error"
)

// Disabled reports whether the state blocks submission.
func (s ControlState) Disabled() bool {
	return s != ControlReady
}

// Control is the submit-control surface a resolver drives. Injected rather
// than looked up so resolvers can run against fakes and remote sessions
// alike.
type Control interface {
	// SetState moves the control to a presentation state with a label.
	SetState(state ControlState, label string)

	// SetPrice updates the displayed price, already formatted for the
	// shopper's currency.
	SetPrice(formatted string)
}

// SectionProvider lists the cart-rendering section IDs currently present on
// the page, queried at submission time.
type SectionProvider interface {
	CartSections() []string
}

// QuantitySource returns the raw value of the quantity input nearest the
// control. The pipeline parses, defaults, and clamps it.
type QuantitySource interface {
	Quantity() string
}

// Effects hosts visual side effects. Optional; a nil Effects skips them.
type Effects interface {
	// FlyToCart launches the add-to-cart flight animation with the given
	// product image.
	FlyToCart(imageURL string)
}
