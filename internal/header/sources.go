// internal/header/sources.go
package header

import "github.com/xkilldash9x/headerkit/api/schemas"

// Unsubscribe releases one observation subscription. Implementations must be
// synchronous: after it returns, the callback is never invoked again.
type Unsubscribe func()

// ResizeEntry reports one box-size change of an observed element.
type ResizeEntry struct {
	Target string
	Width  float64
	Height float64
}

// Sources provides the observation channels for one header instance. The
// live implementation is the browser bridge; tests use fakes. Callbacks may
// be delivered from any goroutine; the controller serializes them onto its
// event loop.
type Sources interface {
	// ObserveIntersection arms an intersection observer on the header with
	// the given threshold (0 reports full exit/entry, 1 reports any part
	// leaving view).
	ObserveIntersection(threshold float64, fn func(Intersection)) (Unsubscribe, error)

	// ObserveScroll arms a document scroll listener.
	ObserveScroll(fn func(Scroll)) (Unsubscribe, error)

	// ObserveViewport reports viewport width changes (window resizes).
	ObserveViewport(fn func(width float64)) (Unsubscribe, error)

	// ObserveResize arms a resize observer on the element matching target.
	ObserveResize(target string, fn func(ResizeEntry)) (Unsubscribe, error)

	// ObserveChildren reports membership changes of the element matching
	// target; fn receives the current child identifiers.
	ObserveChildren(target string, fn func(members []string)) (Unsubscribe, error)

	// ViewportWidth returns the current viewport width.
	ViewportWidth() float64

	// OriginTop returns the header's natural document-flow top offset.
	OriginTop() float64
}

// ModeReader is implemented by sources that can re-read the declarative
// sticky mode from the document. The controller consults it at attach and on
// breakpoint-crossing resizes; without it, the configured mode is fixed.
type ModeReader interface {
	ReadMode() Mode
}

// OverflowSource is implemented by sources that surface the menu's
// overflow-capacity application event.
type OverflowSource interface {
	ObserveOverflow(fn func(schemas.OverflowMinimumEvent)) (Unsubscribe, error)
}

// Surface is the DOM collaborator the controller writes through. All methods
// are best-effort: failures are logged, never retried.
type Surface interface {
	// PublishState writes the sticky-state, scroll-direction and animating
	// attributes.
	PublishState(p Published) error

	// UpdateThemeColor re-derives the browser chrome color from the
	// header's top row.
	UpdateThemeColor() error

	// SetDrawerVisible toggles the navigation drawer.
	SetDrawerVisible(visible bool) error

	// SetMenuHidden toggles visual hiding of the overflowing menu.
	SetMenuHidden(hidden bool) error
}
