// File: cmd/serve.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/actions"
	"github.com/xkilldash9x/neurodesk/internal/bridge"
	"github.com/xkilldash9x/neurodesk/internal/config"
	"github.com/xkilldash9x/neurodesk/internal/digest"
	"github.com/xkilldash9x/neurodesk/internal/observability"
	"github.com/xkilldash9x/neurodesk/internal/platform"
	"github.com/xkilldash9x/neurodesk/internal/region"
	"github.com/xkilldash9x/neurodesk/internal/relay"
)

// newServeCmd creates and configures the `serve` command, the long-running
// service mode: sample the desktop, publish digests to the agent backend and
// dispatch the actions it sends back.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the sampling loop and relays desktop context to the agent backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			logger.Info("Starting NeuroDesk service",
				zap.String("backend_url", cfg.Relay().BackendURL),
				zap.String("automation_url", cfg.Relay().AutomationURL),
				zap.String("platform_mode", cfg.Platform().Mode),
				zap.Duration("poll_interval", cfg.Engine().PollInterval))

			components, err := initializeServeComponents(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize service components: %w", err)
			}
			defer components.Shutdown()

			g, groupCtx := errgroup.WithContext(ctx)
			components.Executor.Start(groupCtx)

			g.Go(func() error { return components.Coordinator.Run(groupCtx) })
			g.Go(func() error { return components.Backend.Run(groupCtx) })

			if err := g.Wait(); err != nil {
				logger.Error("Service terminated with error", zap.Error(err))
				return err
			}

			logger.Info("NeuroDesk service stopped")
			return nil
		},
	}

	serveCmd.Flags().Duration("poll-interval", 0, "Pause between context sampling cycles. (Overrides config/env)")
	serveCmd.Flags().String("platform-mode", "", "Desktop capability mode, 'simulated' or 'none'. (Overrides config/env)")
	return serveCmd
}

// serveComponents holds the initialized services of the serve command.
type serveComponents struct {
	Executor    *platform.Executor
	Coordinator *bridge.Coordinator
	Backend     *relay.BackendClient
}

// Shutdown stops the components in dependency order: no more sampling, then
// no more relay traffic, then drain the blocking-call pool. Executor.Stop
// only returns once its start context is cancelled, which the serve RunE
// guarantees before this runs.
func (sc *serveComponents) Shutdown() {
	if sc.Coordinator != nil {
		sc.Coordinator.Stop()
	}
	if sc.Backend != nil {
		sc.Backend.Stop()
	}
	if sc.Executor != nil {
		sc.Executor.Stop()
	}
}

// actionRelay delays binding the dispatcher into the backend client. The
// client must exist first because the dispatcher publishes results through
// it; the binding happens before any connection is opened.
type actionRelay struct {
	dispatcher *bridge.Dispatcher
}

func (a *actionRelay) HandleAction(ctx context.Context, req schemas.ActionRequest) {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.HandleAction(ctx, req)
}

// initializeServeComponents handles dependency injection for the service.
func initializeServeComponents(cfg config.Interface, logger *zap.Logger) (*serveComponents, error) {
	components := &serveComponents{}

	// 1. Desktop capability providers and the blocking-call pool.
	desk, err := platform.New(cfg.Platform(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize desktop providers: %w", err)
	}

	exec, err := platform.NewExecutor(cfg.Engine(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize platform executor: %w", err)
	}
	components.Executor = exec

	// 2. Sampling and rendering.
	sampler, err := region.NewSampler(desk, exec, cfg.Engine(), logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize sampler: %w", err)
	}

	builder := digest.NewBuilder(cfg.Digest())
	registry := actions.NewRegistry(cfg.Platform().ScreenWidth, cfg.Platform().ScreenHeight)

	// 3. Relay clients. The backend client carries digests out and actions
	// in; the automation client executes one desktop action per dial.
	handler := &actionRelay{}
	backend, err := relay.NewBackendClient(cfg.Relay(), registry.Wire(), handler, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize backend relay: %w", err)
	}
	components.Backend = backend

	automation, err := relay.NewAutomationClient(cfg.Relay(), desk.Pointer, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize automation client: %w", err)
	}

	// 4. Coordination and dispatch.
	coordinator, err := bridge.NewCoordinator(cfg, sampler, builder, backend, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize coordinator: %w", err)
	}
	components.Coordinator = coordinator

	dispatcher, err := bridge.NewDispatcher(coordinator, automation, backend, registry, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	handler.dispatcher = dispatcher

	return components, nil
}
