// api/schemas/header.go
package schemas

// Attribute names the controller reads from and publishes onto the header
// element. AttrStickyMode is declarative configuration; the data-* attributes
// are derived state consumed by styling and by other components.
const (
	AttrStickyMode      = "sticky"
	AttrStickyState     = "data-sticky-state"
	AttrScrollDirection = "data-scroll-direction"
	AttrAnimating       = "data-animating"
)

// Page-level CSS custom properties written by the height propagators.
const (
	VarHeaderHeight      = "--header-height"
	VarHeaderGroupHeight = "--header-group-height"
)

// Sticky mode attribute values. An absent or unrecognized value means no
// sticky behavior.
const (
	StickyModeAlways   = "always"
	StickyModeScrollUp = "scroll-up"
)

// ObservationKind discriminates the records arriving over the page binding.
type ObservationKind string

const (
	ObservationIntersection ObservationKind = "intersection"
	ObservationScroll       ObservationKind = "scroll"
	ObservationResize       ObservationKind = "resize"
	ObservationChildren     ObservationKind = "children"
	ObservationOverflow     ObservationKind = "overflow"
)

// ObservationRecord is the payload posted by the injected observer script for
// every platform callback (IntersectionObserver, ResizeObserver,
// MutationObserver, scroll listener, application events). Fields beyond Kind
// and Sub are populated per kind.
type ObservationRecord struct {
	Kind ObservationKind `json:"kind"`
	// Sub identifies the Go-side subscription this record belongs to.
	Sub int64 `json:"sub"`

	// intersection
	Intersecting bool    `json:"intersecting,omitempty"`
	Top          float64 `json:"top,omitempty"`

	// scroll: Top carries the document scroll offset.

	// resize
	Target string  `json:"target,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// children
	Members []string `json:"members,omitempty"`

	// overflow
	MinimumReached bool `json:"minimumReached,omitempty"`
}

// OverflowMinimumEvent is the application-level event dispatched by the menu
// when it can no longer fit all of its items.
type OverflowMinimumEvent struct {
	MinimumReached bool `json:"minimumReached"`
}
