// cmd/watch.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/headerkit/api/schemas"
	"github.com/xkilldash9x/headerkit/internal/browser"
	"github.com/xkilldash9x/headerkit/internal/config"
	"github.com/xkilldash9x/headerkit/internal/header"
	"github.com/xkilldash9x/headerkit/internal/observability"
	"github.com/xkilldash9x/headerkit/internal/pagevars"
	"github.com/xkilldash9x/headerkit/internal/sched"
)

// newWatchCmd creates the `watch` command: load a page, attach the header
// controller and run until interrupted.
func newWatchCmd(getConfig func() *config.Config) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch <url>",
		Short: "Attach the sticky-header controller to a live page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := getConfig()

			flags := cmd.Flags()
			if flags.Changed("selector") {
				cfg.Header.Selector, _ = flags.GetString("selector")
			}
			if flags.Changed("group-selector") {
				cfg.Header.GroupSelector, _ = flags.GetString("group-selector")
			}
			if flags.Changed("menu-selector") {
				cfg.Header.MenuSelector, _ = flags.GetString("menu-selector")
			}
			if flags.Changed("drawer-selector") {
				cfg.Header.DrawerSelector, _ = flags.GetString("drawer-selector")
			}
			if flags.Changed("headful") {
				headful, _ := flags.GetBool("headful")
				cfg.Browser.Headless = !headful
			}
			duration, _ := flags.GetDuration("duration")

			return runWatch(ctx, cfg, args[0], duration, logger)
		},
	}

	watchCmd.Flags().String("selector", "", "Header element selector (overrides config)")
	watchCmd.Flags().String("group-selector", "", "Header sibling-group selector (overrides config)")
	watchCmd.Flags().String("menu-selector", "", "Overflowing menu selector (overrides config)")
	watchCmd.Flags().String("drawer-selector", "", "Navigation drawer selector (overrides config)")
	watchCmd.Flags().Bool("headful", false, "Run the browser with a visible window")
	watchCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")

	return watchCmd
}

func runWatch(ctx context.Context, cfg *config.Config, url string, duration time.Duration, logger *zap.Logger) error {
	session, err := browser.Launch(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Navigate(ctx, url); err != nil {
		return err
	}

	bridge, err := browser.NewBridge(session.Context(), cfg.Header, logger)
	if err != nil {
		return fmt.Errorf("failed to attach page bridge: %w", err)
	}
	defer bridge.Close()

	// Shared measurements, mirrored into the live page.
	store := pagevars.NewStore(logger)
	store.SetSink(bridge)

	heights := header.NewHeightPropagator(store, logger)
	if err := heights.Start(bridge, cfg.Header.Selector); err != nil {
		return fmt.Errorf("header %q: %w", cfg.Header.Selector, err)
	}
	defer heights.Close()

	// The sibling group and menu are optional page features; their absence is
	// not an error.
	group := header.NewGroupPropagator(bridge, cfg.Header.Selector, cfg.Header.GroupSelector,
		header.SumCalculator(store), logger)
	if err := group.Start(); err != nil {
		logger.Debug("No header sibling group on this page",
			zap.String("selector", cfg.Header.GroupSelector), zap.Error(err))
	} else {
		defer group.Close()
	}

	menu := header.NewMenuCoordinator(bridge, bridge.ViewportWidth, logger)
	if err := menu.Start(bridge, cfg.Header.Selector); err != nil {
		logger.Debug("No coordinated menu on this page",
			zap.String("selector", cfg.Header.MenuSelector), zap.Error(err))
	} else {
		defer menu.Close()
	}

	controller := header.NewController(bridge, bridge, sched.NewWall(cfg.Header.FrameInterval), logger,
		header.Options{
			Breakpoint: cfg.Header.MobileBreakpoint,
			HideDelay:  cfg.Header.HideDebounce,
			OnPublish: func(p header.Published) {
				logger.Info("Header state",
					zap.Stringer("sticky", p.Sticky),
					zap.Stringer("direction", p.Direction),
					zap.Bool("animating", p.Animating))
			},
		})
	if err := controller.Attach(); err != nil {
		return fmt.Errorf("failed to attach header controller: %w", err)
	}
	defer controller.Detach()

	logger.Info("Watching page",
		zap.String("url", url),
		zap.String("selector", cfg.Header.Selector),
		zap.Duration("duration", duration))

	watchCtx := ctx
	if duration > 0 {
		var cancel context.CancelFunc
		watchCtx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(watchCtx)
	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})
	g.Go(func() error {
		// Periodic snapshot of the shared measurements while watching.
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logger.Debug("Page measurements",
					zap.String(schemas.VarHeaderHeight, store.Get(schemas.VarHeaderHeight)),
					zap.String(schemas.VarHeaderGroupHeight, store.Get(schemas.VarHeaderGroupHeight)))
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Info("Watch finished")
		return nil
	}
	return err
}
