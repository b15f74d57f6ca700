// internal/header/controller.go
package header

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/headerkit/internal/config"
	"github.com/xkilldash9x/headerkit/internal/sched"
)

// eventBuffer sizes the loop queue. Observation callbacks are best-effort;
// when the loop falls behind, the oldest signals are the least interesting
// and new ones are dropped with a debug log.
const eventBuffer = 64

// Options tunes one controller instance.
type Options struct {
	// Mode is the configured sticky mode. Ignored when the sources
	// implement ModeReader, in which case the mode is re-read from the
	// document at attach and on breakpoint-crossing resizes.
	Mode Mode
	// Breakpoint separates mobile from desktop viewports. Defaults to 750.
	Breakpoint float64
	// HideDelay is the downward-scroll debounce. Defaults to 150ms.
	HideDelay time.Duration
	// OnPublish, when set, observes every published attribute triple. It
	// runs on the controller's event loop and must not block.
	OnPublish func(Published)
}

// Controller owns the sticky-state machine for one header instance. All
// observation callbacks are serialized onto a single event loop; processing
// order is dispatch order. Attach and Detach are idempotent, and Detach
// releases every observer, listener and timer the controller registered.
type Controller struct {
	opts    Options
	sources Sources
	surface Surface
	sched   sched.Scheduler
	logger  *zap.Logger

	mu       sync.Mutex
	attached bool
	queue    *eventQueue
	wg       sync.WaitGroup

	// Loop-owned. Touched only by the loop goroutine, and by Attach/Detach
	// while the loop is not running.
	state         State
	slot          sessionSlot
	mode          Mode
	mobile        bool
	originTop     float64
	scrollUnsub   Unsubscribe
	viewportUnsub Unsubscribe
	idleTimer     sched.Task
	settle        sched.Task
}

// NewController wires a controller. A nil scheduler gets a wall-clock one at
// the default frame interval.
func NewController(sources Sources, surface Surface, scheduler sched.Scheduler, logger *zap.Logger, opts Options) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scheduler == nil {
		scheduler = sched.NewWall(config.DefaultFrameInterval)
	}
	if opts.Breakpoint <= 0 {
		opts.Breakpoint = config.DefaultMobileBreakpoint
	}
	if opts.HideDelay <= 0 {
		opts.HideDelay = config.DefaultHideDebounce
	}
	return &Controller{
		opts:    opts,
		sources: sources,
		surface: surface,
		sched:   scheduler,
		logger:  logger.Named("header"),
	}
}

// loopEvent is one unit of work for the controller loop.
type loopEvent interface{ loopEvent() }

// sigEvent carries a machine signal. Intersection signals are stamped with
// their owning session so stale deliveries can be dropped.
type sigEvent struct {
	session uuid.UUID
	sig     Signal
}

// viewportEvent carries a window-resize width sample.
type viewportEvent struct {
	width float64
}

// settleStepEvent marks the first of the two render commits of a settle
// pulse.
type settleStepEvent struct{}

func (sigEvent) loopEvent()        {}
func (viewportEvent) loopEvent()   {}
func (settleStepEvent) loopEvent() {}

// eventQueue is the loop inbox. Observation callbacks capture the queue
// pointer, so a detach/reattach cycle can never route a stale callback into
// the wrong loop's channels.
type eventQueue struct {
	ch     chan loopEvent
	done   chan struct{}
	logger *zap.Logger
}

func (q *eventQueue) push(ev loopEvent) {
	select {
	case q.ch <- ev:
	case <-q.done:
	default:
		q.logger.Debug("Dropping observation event; loop queue full")
	}
}

// Attach arms the controller: reads the mode, installs the observation
// session for the current viewport class, arms listeners and publishes the
// initial state. Attaching an attached controller is a no-op.
func (c *Controller) Attach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attached {
		return nil
	}

	c.state = State{}
	c.queue = &eventQueue{
		ch:     make(chan loopEvent, eventBuffer),
		done:   make(chan struct{}),
		logger: c.logger,
	}

	c.mode = c.opts.Mode
	if mr, ok := c.sources.(ModeReader); ok {
		c.mode = mr.ReadMode()
	}

	if c.mode != ModeNone {
		c.originTop = c.sources.OriginTop()
		c.mobile = c.sources.ViewportWidth() < c.opts.Breakpoint

		if err := c.slot.Start(c.sources, c.env().Threshold(), c.intersectionDeliverer()); err != nil {
			return err
		}

		q := c.queue
		scrollUnsub, err := c.sources.ObserveScroll(func(s Scroll) {
			q.push(sigEvent{sig: s})
		})
		if err != nil {
			c.slot.Stop()
			return fmt.Errorf("failed to arm scroll listener: %w", err)
		}
		c.scrollUnsub = scrollUnsub

		if c.mode == ModeScrollUp {
			viewportUnsub, err := c.sources.ObserveViewport(func(w float64) {
				q.push(viewportEvent{width: w})
			})
			if err != nil {
				c.scrollUnsub()
				c.scrollUnsub = nil
				c.slot.Stop()
				return fmt.Errorf("failed to arm viewport listener: %w", err)
			}
			c.viewportUnsub = viewportUnsub
		}
	}

	c.publish()

	c.wg.Add(1)
	go c.loop(c.queue)
	c.attached = true

	c.logger.Debug("Header controller attached",
		zap.Stringer("mode", c.mode),
		zap.Bool("mobile", c.mobile),
		zap.Float64("origin_top", c.originTop))
	return nil
}

// Detach stops the loop, synchronously disconnects the observation session
// and every listener, and cancels outstanding timers. Detaching a detached
// controller is a no-op, and repeated attach/detach cycles leave no residual
// registrations.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached {
		return
	}

	close(c.queue.done)
	c.wg.Wait()

	// The loop has stopped; loop-owned resources are safe to release here.
	c.slot.Stop()
	if c.scrollUnsub != nil {
		c.scrollUnsub()
		c.scrollUnsub = nil
	}
	if c.viewportUnsub != nil {
		c.viewportUnsub()
		c.viewportUnsub = nil
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	if c.settle != nil {
		c.settle.Stop()
		c.settle = nil
	}

	c.state = State{}
	c.attached = false
	c.logger.Debug("Header controller detached")
}

// Attached reports whether the controller currently holds registrations.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// intersectionDeliverer routes session-stamped intersection signals into the
// current loop queue. The queue pointer is captured at subscription time so a
// mid-flight callback from a torn-down session can never reach a newer
// loop's inbox.
func (c *Controller) intersectionDeliverer() func(uuid.UUID, Intersection) {
	q := c.queue
	return func(id uuid.UUID, sig Intersection) {
		q.push(sigEvent{session: id, sig: sig})
	}
}

func (c *Controller) loop(q *eventQueue) {
	defer c.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case ev := <-q.ch:
			c.handle(ev)
		}
	}
}

func (c *Controller) env() Env {
	return Env{Mode: c.mode, Mobile: c.mobile, OriginTop: c.originTop}
}

func (c *Controller) handle(ev loopEvent) {
	switch ev := ev.(type) {
	case sigEvent:
		if ev.session != uuid.Nil && ev.session != c.slot.ID() {
			c.logger.Debug("Dropping stale-session signal", zap.String("session", ev.session.String()))
			return
		}
		c.apply(ev.sig)
	case viewportEvent:
		c.handleViewport(ev.width)
	case settleStepEvent:
		c.handleSettleStep()
	}
}

func (c *Controller) apply(sig Signal) {
	next, effects := Transition(c.state, sig, c.env())
	c.state = next
	for _, eff := range effects {
		c.runEffect(eff)
	}
}

func (c *Controller) runEffect(eff Effect) {
	switch eff.(type) {
	case PublishState:
		c.publish()
	case UpdateThemeColor:
		if err := c.surface.UpdateThemeColor(); err != nil {
			c.logger.Warn("Failed to update theme color", zap.Error(err))
		}
	case ScheduleIdle:
		if c.idleTimer != nil {
			c.idleTimer.Stop()
		}
		q := c.queue
		c.idleTimer = c.sched.AfterFunc(c.opts.HideDelay, func() {
			q.push(sigEvent{sig: IdleTimeout{}})
		})
	case CancelIdle:
		if c.idleTimer != nil {
			c.idleTimer.Stop()
			c.idleTimer = nil
		}
	case StartSettle:
		if c.settle != nil {
			c.settle.Stop()
		}
		q := c.queue
		c.settle = c.sched.NextFrame(func() {
			q.push(settleStepEvent{})
		})
	case CancelSettle:
		if c.settle != nil {
			c.settle.Stop()
			c.settle = nil
		}
	}
}

func (c *Controller) publish() {
	p := c.state.Published()
	if err := c.surface.PublishState(p); err != nil {
		c.logger.Warn("Failed to publish header state", zap.Error(err))
	}
	if c.opts.OnPublish != nil {
		c.opts.OnPublish(p)
	}
}

// handleSettleStep chains the second render commit of the settle pulse.
func (c *Controller) handleSettleStep() {
	if !c.state.SettlePending {
		return
	}
	q := c.queue
	c.settle = c.sched.NextFrame(func() {
		q.push(sigEvent{sig: SettleDone{}})
	})
}

// handleViewport processes a window-resize sample. Only breakpoint crossings
// matter: the observation session is torn down and recreated with the new
// threshold before any further signal is processed, and pending transitions
// belonging to the outgoing branch are cancelled.
func (c *Controller) handleViewport(width float64) {
	mobile := width < c.opts.Breakpoint
	if mobile == c.mobile {
		return
	}
	c.mobile = mobile

	// The mode attribute is declarative; re-read it on every crossing.
	if mr, ok := c.sources.(ModeReader); ok {
		c.mode = mr.ReadMode()
	}

	c.runEffect(CancelIdle{})
	c.runEffect(CancelSettle{})
	c.state.IdlePending = false
	c.state.SettlePending = false
	c.state.Animating = false
	c.state.Offscreen = false

	if c.mode == ModeNone {
		c.slot.Stop()
		c.state = State{}
		c.publish()
		return
	}

	if err := c.slot.Start(c.sources, c.env().Threshold(), c.intersectionDeliverer()); err != nil {
		c.logger.Error("Failed to swap observation session on breakpoint crossing", zap.Error(err))
		return
	}
	c.publish()

	c.logger.Debug("Observation session swapped",
		zap.Bool("mobile", c.mobile),
		zap.Float64("threshold", c.env().Threshold()))
}
