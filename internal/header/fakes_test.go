// internal/header/fakes_test.go
package header

import (
	"sync"

	"github.com/xkilldash9x/headerkit/api/schemas"
)

type fakeIntersectionSub struct {
	threshold float64
	fn        func(Intersection)
	active    bool
}

type fakeScrollSub struct {
	fn     func(Scroll)
	active bool
}

type fakeViewportSub struct {
	fn     func(float64)
	active bool
}

type fakeResizeSub struct {
	target string
	fn     func(ResizeEntry)
	active bool
}

type fakeChildrenSub struct {
	target string
	fn     func([]string)
	active bool
}

type fakeOverflowSub struct {
	fn     func(schemas.OverflowMinimumEvent)
	active bool
}

// fakeSources is an in-memory Sources implementation. Subscriptions are kept
// after unsubscribe with active=false so tests can count registrations and
// replay stale callbacks deliberately.
type fakeSources struct {
	mu        sync.Mutex
	mode      Mode
	width     float64
	originTop float64

	intersections []*fakeIntersectionSub
	scrolls       []*fakeScrollSub
	viewports     []*fakeViewportSub
	resizes       []*fakeResizeSub
	children      []*fakeChildrenSub
	overflows     []*fakeOverflowSub
}

func newFakeSources(mode Mode, width float64) *fakeSources {
	return &fakeSources{mode: mode, width: width}
}

func (f *fakeSources) ObserveIntersection(threshold float64, fn func(Intersection)) (Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeIntersectionSub{threshold: threshold, fn: fn, active: true}
	f.intersections = append(f.intersections, sub)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		sub.active = false
	}, nil
}

func (f *fakeSources) ObserveScroll(fn func(Scroll)) (Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeScrollSub{fn: fn, active: true}
	f.scrolls = append(f.scrolls, sub)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		sub.active = false
	}, nil
}

func (f *fakeSources) ObserveViewport(fn func(width float64)) (Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeViewportSub{fn: fn, active: true}
	f.viewports = append(f.viewports, sub)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		sub.active = false
	}, nil
}

func (f *fakeSources) ObserveResize(target string, fn func(ResizeEntry)) (Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeResizeSub{target: target, fn: fn, active: true}
	f.resizes = append(f.resizes, sub)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		sub.active = false
	}, nil
}

func (f *fakeSources) ObserveChildren(target string, fn func(members []string)) (Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeChildrenSub{target: target, fn: fn, active: true}
	f.children = append(f.children, sub)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		sub.active = false
	}, nil
}

func (f *fakeSources) ObserveOverflow(fn func(schemas.OverflowMinimumEvent)) (Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeOverflowSub{fn: fn, active: true}
	f.overflows = append(f.overflows, sub)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		sub.active = false
	}, nil
}

func (f *fakeSources) ViewportWidth() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width
}

func (f *fakeSources) OriginTop() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.originTop
}

func (f *fakeSources) ReadMode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeSources) setMode(m Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
}

func (f *fakeSources) setWidth(w float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.width = w
}

func (f *fakeSources) emitIntersection(intersecting bool) {
	f.mu.Lock()
	var fns []func(Intersection)
	for _, s := range f.intersections {
		if s.active {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(Intersection{Intersecting: intersecting})
	}
}

func (f *fakeSources) emitScroll(top float64) {
	f.mu.Lock()
	var fns []func(Scroll)
	for _, s := range f.scrolls {
		if s.active {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(Scroll{Top: top})
	}
}

func (f *fakeSources) emitViewport(width float64) {
	f.setWidth(width)
	f.mu.Lock()
	var fns []func(float64)
	for _, s := range f.viewports {
		if s.active {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(width)
	}
}

func (f *fakeSources) emitResize(target string, width, height float64) {
	f.mu.Lock()
	var fns []func(ResizeEntry)
	for _, s := range f.resizes {
		if s.active && s.target == target {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ResizeEntry{Target: target, Width: width, Height: height})
	}
}

func (f *fakeSources) emitChildren(target string, members []string) {
	f.mu.Lock()
	var fns []func([]string)
	for _, s := range f.children {
		if s.active && s.target == target {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(members)
	}
}

func (f *fakeSources) emitOverflow(minimumReached bool) {
	f.mu.Lock()
	var fns []func(schemas.OverflowMinimumEvent)
	for _, s := range f.overflows {
		if s.active {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(schemas.OverflowMinimumEvent{MinimumReached: minimumReached})
	}
}

// activeSubs counts live subscriptions of every kind.
func (f *fakeSources) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.intersections {
		if s.active {
			n++
		}
	}
	for _, s := range f.scrolls {
		if s.active {
			n++
		}
	}
	for _, s := range f.viewports {
		if s.active {
			n++
		}
	}
	for _, s := range f.resizes {
		if s.active {
			n++
		}
	}
	for _, s := range f.children {
		if s.active {
			n++
		}
	}
	for _, s := range f.overflows {
		if s.active {
			n++
		}
	}
	return n
}

func (f *fakeSources) intersectionSubs() []*fakeIntersectionSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeIntersectionSub, len(f.intersections))
	copy(out, f.intersections)
	return out
}

func (f *fakeSources) activeResizeSubs(target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.resizes {
		if s.active && s.target == target {
			n++
		}
	}
	return n
}

// fakeSurface records every write the controller and coordinators make.
type fakeSurface struct {
	mu          sync.Mutex
	published   []Published
	themeColors int
	drawer      []bool
	menu        []bool
}

func (f *fakeSurface) PublishState(p Published) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, p)
	return nil
}

func (f *fakeSurface) UpdateThemeColor() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.themeColors++
	return nil
}

func (f *fakeSurface) SetDrawerVisible(visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drawer = append(f.drawer, visible)
	return nil
}

func (f *fakeSurface) SetMenuHidden(hidden bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menu = append(f.menu, hidden)
	return nil
}

func (f *fakeSurface) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeSurface) lastPublished() (Published, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return Published{}, false
	}
	return f.published[len(f.published)-1], true
}

func (f *fakeSurface) allPublished() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Published, len(f.published))
	copy(out, f.published)
	return out
}

func (f *fakeSurface) themeColorCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.themeColors
}

func (f *fakeSurface) drawerCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.drawer))
	copy(out, f.drawer)
	return out
}

func (f *fakeSurface) menuCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.menu))
	copy(out, f.menu)
	return out
}
