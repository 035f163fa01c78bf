// File: internal/bridge/dispatch.go
package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/actions"
)

// ResultPublisher delivers an action verdict back to the agent backend.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result schemas.ActionResult) error
}

// ActionExecutor performs one desktop action and reports the outcome. The
// returned result never carries the request ID; the dispatcher stitches
// that on.
type ActionExecutor interface {
	ExecuteAction(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult
}

// Dispatcher routes decoded agent requests: desktop actions go to the
// executor under the single-action gate, engine queries are answered from
// the coordinator's cache.
type Dispatcher struct {
	logger  *zap.Logger
	coord   *Coordinator
	exec    ActionExecutor
	results ResultPublisher
	reg     *actions.Registry
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(coord *Coordinator, exec ActionExecutor, results ResultPublisher, reg *actions.Registry, logger *zap.Logger) (*Dispatcher, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if results == nil {
		return nil, fmt.Errorf("result publisher cannot be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Dispatcher{
		logger:  logger.Named("dispatcher"),
		coord:   coord,
		exec:    exec,
		results: results,
		reg:     reg,
	}, nil
}

// HandleAction resolves one request end to end and publishes its result.
// Every request gets exactly one result, keyed by the request ID.
func (d *Dispatcher) HandleAction(ctx context.Context, req schemas.ActionRequest) {
	d.logger.Debug("action received", zap.String("id", req.ID), zap.String("name", req.Name))

	// context_update is a courtesy ping from the backend, not a registered
	// action. Acknowledge and move on.
	if req.Name == "context_update" {
		d.publish(ctx, req, success("context_update received by neurodesk"))
		return
	}

	def, ok := d.reg.Lookup(req.Name)
	if !ok {
		d.publish(ctx, req, failure(fmt.Sprintf("Unknown action '%s'", req.Name)))
		return
	}

	if def.Kind == actions.KindDesktop {
		d.executeDesktop(ctx, req)
		return
	}

	var result schemas.ActionResult
	switch req.Name {
	case "get_more_text":
		result = d.coord.GetMoreText(req.Params)
	case "get_more_windows":
		result = d.coord.GetMoreWindows(req.Params)
	case "refresh_context":
		result = d.coord.RefreshContext(ctx, req.Params)
	default:
		result = failure(fmt.Sprintf("Unknown action '%s'", req.Name))
	}
	d.publish(ctx, req, result)
}

// executeDesktop runs one hardware-touching action under the gate. The
// result is published before the gate releases so it always reaches the
// backend ahead of any context update queued behind the action.
func (d *Dispatcher) executeDesktop(ctx context.Context, req schemas.ActionRequest) {
	if !d.coord.tryBeginAction() {
		d.logger.Warn("action rejected, another in progress",
			zap.String("id", req.ID), zap.String("name", req.Name))
		d.publish(ctx, req, failure("Another action is already in progress"))
		return
	}
	defer d.coord.endAction()

	result := d.runExecutor(ctx, req)
	d.publish(ctx, req, result)
}

// runExecutor isolates executor panics so a crashing backend cannot leave
// the gate held.
func (d *Dispatcher) runExecutor(ctx context.Context, req schemas.ActionRequest) (result schemas.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("executor panic",
				zap.String("name", req.Name), zap.Any("panic", r))
			result = failure(fmt.Sprintf("Failed to execute action: panic: %v", r))
		}
	}()
	return d.exec.ExecuteAction(ctx, req)
}

func (d *Dispatcher) publish(ctx context.Context, req schemas.ActionRequest, result schemas.ActionResult) {
	result.ID = req.ID
	if err := d.results.PublishResult(ctx, result); err != nil {
		d.logger.Error("result publish failed",
			zap.String("id", req.ID),
			zap.String("name", req.Name),
			zap.Error(err))
		return
	}
	d.logger.Debug("result published",
		zap.String("id", req.ID),
		zap.String("name", req.Name),
		zap.Bool("success", result.Success))
}
