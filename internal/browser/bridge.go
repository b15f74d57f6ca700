// internal/browser/bridge.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/headerkit/api/schemas"
	"github.com/xkilldash9x/headerkit/internal/config"
	"github.com/xkilldash9x/headerkit/internal/header"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const evalTimeout = 5 * time.Second

// evaluator runs a script in the page and optionally unmarshals the result.
// Factored out so the bridge's bookkeeping is testable without a browser.
type evaluator func(ctx context.Context, js string, out interface{}) error

func chromedpEvaluator(ctx context.Context, js string, out interface{}) error {
	evalCtx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()
	return chromedp.Run(evalCtx, chromedp.Evaluate(js, out))
}

// Bridge projects the page's observation callbacks into Go callbacks and the
// controller's writes back onto the live DOM. One bridge serves one tab.
//
// The page posts every observation as a JSON record through a single CDP
// binding; records are routed to the owning subscription by ID.
type Bridge struct {
	ctx    context.Context
	cfg    config.HeaderConfig
	logger *zap.Logger
	eval   evaluator

	nextSub atomic.Int64
	mu      sync.Mutex
	closed  bool
	subs    map[int64]func(schemas.ObservationRecord)

	// scrollLimiter caps how many scroll samples per second reach the
	// controller. Nil means unlimited.
	scrollLimiter *rate.Limiter
}

var (
	_ header.Sources        = (*Bridge)(nil)
	_ header.Surface        = (*Bridge)(nil)
	_ header.ModeReader     = (*Bridge)(nil)
	_ header.OverflowSource = (*Bridge)(nil)
)

// NewBridge installs the observer script and binding into the tab and starts
// routing records. The context must be the tab context; the bridge dies with
// it.
func NewBridge(ctx context.Context, cfg config.HeaderConfig, logger *zap.Logger) (*Bridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger.Named("bridge"),
		eval:   chromedpEvaluator,
		subs:   make(map[int64]func(schemas.ObservationRecord)),
	}
	if cfg.ScrollSampleHz > 0 {
		b.scrollLimiter = rate.NewLimiter(rate.Limit(cfg.ScrollSampleHz), 2)
	}

	if err := chromedp.Run(ctx, runtime.AddBinding(bindingName)); err != nil {
		return nil, fmt.Errorf("failed to add observation binding: %w", err)
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if ev, ok := ev.(*runtime.EventBindingCalled); ok && ev.Name == bindingName {
			b.dispatch(ev.Payload)
		}
	})

	// Persist the observer script across navigations, then evaluate it in the
	// already-loaded document.
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(observerScript).Do(c)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to install persistent observer script: %w", err)
	}
	if err := b.eval(ctx, observerScript, nil); err != nil {
		return nil, fmt.Errorf("failed to evaluate observer script: %w", err)
	}

	return b, nil
}

// Close stops routing records. Page-side observers are released per
// subscription by their unsubscribe functions.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[int64]func(schemas.ObservationRecord))
}

// dispatch routes one binding payload to its subscription.
func (b *Bridge) dispatch(payload string) {
	var rec schemas.ObservationRecord
	if err := jsonAPI.UnmarshalFromString(payload, &rec); err != nil {
		b.logger.Warn("Dropping malformed observation record", zap.Error(err))
		return
	}

	b.mu.Lock()
	fn := b.subs[rec.Sub]
	closed := b.closed
	b.mu.Unlock()

	if closed || fn == nil {
		return
	}
	fn(rec)
}

func (b *Bridge) removeSub(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// jsQuote renders s as a JS string literal.
func jsQuote(s string) string {
	out, err := jsonAPI.MarshalToString(s)
	if err != nil {
		return `""`
	}
	return out
}

// -- header.Sources --

func (b *Bridge) ObserveIntersection(threshold float64, fn func(header.Intersection)) (header.Unsubscribe, error) {
	return b.subscribeWithID(func(sub int64) string {
		return fmt.Sprintf("window.__headerkitObserveIntersection(%d, %s, %g)",
			sub, jsQuote(b.cfg.Selector), threshold)
	}, func(rec schemas.ObservationRecord) {
		fn(header.Intersection{Intersecting: rec.Intersecting})
	})
}

func (b *Bridge) ObserveScroll(fn func(header.Scroll)) (header.Unsubscribe, error) {
	return b.subscribeWithID(func(sub int64) string {
		return fmt.Sprintf("window.__headerkitObserveScroll(%d)", sub)
	}, func(rec schemas.ObservationRecord) {
		if b.scrollLimiter != nil && !b.scrollLimiter.Allow() {
			return
		}
		fn(header.Scroll{Top: rec.Top})
	})
}

func (b *Bridge) ObserveViewport(fn func(width float64)) (header.Unsubscribe, error) {
	return b.subscribeWithID(func(sub int64) string {
		return fmt.Sprintf("window.__headerkitObserveViewport(%d)", sub)
	}, func(rec schemas.ObservationRecord) {
		fn(rec.Width)
	})
}

func (b *Bridge) ObserveResize(target string, fn func(header.ResizeEntry)) (header.Unsubscribe, error) {
	return b.subscribeWithID(func(sub int64) string {
		return fmt.Sprintf("window.__headerkitObserveResize(%d, %s)", sub, jsQuote(target))
	}, func(rec schemas.ObservationRecord) {
		fn(header.ResizeEntry{Target: rec.Target, Width: rec.Width, Height: rec.Height})
	})
}

func (b *Bridge) ObserveChildren(target string, fn func(members []string)) (header.Unsubscribe, error) {
	return b.subscribeWithID(func(sub int64) string {
		return fmt.Sprintf("window.__headerkitObserveChildren(%d, %s)", sub, jsQuote(target))
	}, func(rec schemas.ObservationRecord) {
		fn(rec.Members)
	})
}

func (b *Bridge) ObserveOverflow(fn func(schemas.OverflowMinimumEvent)) (header.Unsubscribe, error) {
	return b.subscribeWithID(func(sub int64) string {
		return fmt.Sprintf("window.__headerkitObserveOverflow(%d, %s)", sub, jsQuote(b.cfg.MenuSelector))
	}, func(rec schemas.ObservationRecord) {
		fn(schemas.OverflowMinimumEvent{MinimumReached: rec.MinimumReached})
	})
}

func (b *Bridge) ViewportWidth() float64 {
	var width float64
	if err := b.eval(b.ctx, "window.innerWidth", &width); err != nil {
		b.logger.Warn("Failed to read viewport width", zap.Error(err))
		return 0
	}
	return width
}

func (b *Bridge) OriginTop() float64 {
	js := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) { return 0; }
  return el.getBoundingClientRect().top + window.scrollY;
})()`, jsQuote(b.cfg.Selector))

	var top float64
	if err := b.eval(b.ctx, js, &top); err != nil {
		b.logger.Warn("Failed to read header origin offset", zap.Error(err))
		return 0
	}
	return top
}

// ReadMode reads the declarative sticky attribute off the header element.
func (b *Bridge) ReadMode() header.Mode {
	js := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  return el ? (el.getAttribute(%s) || '') : '';
})()`, jsQuote(b.cfg.Selector), jsQuote(schemas.AttrStickyMode))

	var value string
	if err := b.eval(b.ctx, js, &value); err != nil {
		b.logger.Warn("Failed to read sticky mode", zap.Error(err))
		return header.ModeNone
	}
	return header.ParseMode(value)
}

// -- header.Surface --

func (b *Bridge) PublishState(p header.Published) error {
	js := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) { return false; }
  el.setAttribute(%s, %s);
  el.setAttribute(%s, %s);
  if (%t) { el.setAttribute(%s, ''); } else { el.removeAttribute(%s); }
  return true;
})()`,
		jsQuote(b.cfg.Selector),
		jsQuote(schemas.AttrStickyState), jsQuote(p.Sticky.String()),
		jsQuote(schemas.AttrScrollDirection), jsQuote(p.Direction.String()),
		p.Animating, jsQuote(schemas.AttrAnimating), jsQuote(schemas.AttrAnimating))

	return b.evalExpectingElement(js, "header")
}

// UpdateThemeColor re-derives the browser chrome color from the header's top
// row background so the surrounding UI matches the sticky surface.
func (b *Bridge) UpdateThemeColor() error {
	row := b.cfg.RowSelector
	if row == "" {
		row = b.cfg.Selector
	}
	js := fmt.Sprintf(`(() => {
  const row = document.querySelector(%s) || document.querySelector(%s);
  if (!row) { return false; }
  const color = getComputedStyle(row).backgroundColor;
  let meta = document.querySelector('meta[name="theme-color"]');
  if (!meta) {
    meta = document.createElement('meta');
    meta.name = 'theme-color';
    document.head.appendChild(meta);
  }
  meta.content = color;
  return true;
})()`, jsQuote(row), jsQuote(b.cfg.Selector))

	return b.evalExpectingElement(js, "header row")
}

func (b *Bridge) SetDrawerVisible(visible bool) error {
	js := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) { return false; }
  if (%t) {
    el.removeAttribute('hidden');
    el.setAttribute('aria-hidden', 'false');
  } else {
    el.setAttribute('hidden', '');
    el.setAttribute('aria-hidden', 'true');
  }
  return true;
})()`, jsQuote(b.cfg.DrawerSelector), visible)

	return b.evalExpectingElement(js, "drawer")
}

func (b *Bridge) SetMenuHidden(hidden bool) error {
	// Visibility keeps the menu in layout so its overflow measurements stay
	// meaningful while the drawer substitutes for it.
	js := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) { return false; }
  el.style.visibility = %t ? 'hidden' : '';
  el.setAttribute('aria-hidden', %t ? 'true' : 'false');
  return true;
})()`, jsQuote(b.cfg.MenuSelector), hidden, hidden)

	return b.evalExpectingElement(js, "menu")
}

// -- pagevars.Sink --

// Apply mirrors a page-level variable onto the document root.
func (b *Bridge) Apply(name, value string) error {
	js := fmt.Sprintf("document.documentElement.style.setProperty(%s, %s)",
		jsQuote(name), jsQuote(value))
	return b.eval(b.ctx, js, nil)
}

func (b *Bridge) evalExpectingElement(js, what string) error {
	var found bool
	if err := b.eval(b.ctx, js, &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s element not found in document", what)
	}
	return nil
}

// subscribeWithID is subscribe with the install call parameterized on the
// assigned subscription ID.
func (b *Bridge) subscribeWithID(install func(sub int64) string, fn func(schemas.ObservationRecord)) (header.Unsubscribe, error) {
	id := b.nextSub.Add(1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("bridge is closed")
	}
	b.subs[id] = fn
	b.mu.Unlock()

	installed := false
	if err := b.eval(b.ctx, install(id), &installed); err != nil {
		b.removeSub(id)
		return nil, fmt.Errorf("failed to install page observer: %w", err)
	}
	if !installed {
		b.removeSub(id)
		return nil, fmt.Errorf("observation target not found in document")
	}

	unsub := func() {
		b.removeSub(id)
		js := fmt.Sprintf("window.__headerkitUnobserve(%d)", id)
		if err := b.eval(b.ctx, js, nil); err != nil {
			b.logger.Debug("Failed to release page observer", zap.Int64("sub", id), zap.Error(err))
		}
	}
	return unsub, nil
}
