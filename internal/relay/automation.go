// File: internal/relay/automation.go
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
)

const defaultActionTimeout = 30 * time.Second

// PointerPositioner reports the live cursor position. The platform cursor
// provider implements it; a nil positioner just disables click aiming.
type PointerPositioner interface {
	MousePosition(ctx context.Context) (schemas.Coordinates, error)
}

// AutomationClient executes desktop actions against the automation server.
// The protocol is one connection per action: dial, send the flattened
// action frame, read the single reply, hang up.
type AutomationClient struct {
	logger  *zap.Logger
	cfg     config.RelayConfig
	pointer PointerPositioner
}

// NewAutomationClient builds the automation link. pointer may be nil.
func NewAutomationClient(cfg config.RelayConfig, pointer PointerPositioner, logger *zap.Logger) (*AutomationClient, error) {
	if cfg.AutomationURL == "" {
		return nil, errors.New("automation url cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &AutomationClient{
		logger:  logger.Named("automation"),
		cfg:     cfg,
		pointer: pointer,
	}, nil
}

// ExecuteAction performs one desktop action and maps the server's reply
// into an agent-facing result. It satisfies the dispatcher's executor
// contract; the caller holds the action gate for the duration.
func (a *AutomationClient) ExecuteAction(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	timeout := a.cfg.ActionTimeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	frame, err := a.buildFrame(callCtx, req)
	if err != nil {
		a.logger.Error("action frame rejected", zap.String("action", req.Name), zap.Error(err))
		return schemas.ActionResult{Success: false, Message: fmt.Sprintf("Failed to execute action: %v", err)}
	}

	raw, err := a.roundTrip(callCtx, frame)
	if err != nil {
		a.logger.Error("automation round trip failed",
			zap.String("action", req.Name),
			zap.String("code", string(schemas.CodeTransportFailure)),
			zap.Error(err),
		)
		return schemas.ActionResult{Success: false, Message: fmt.Sprintf("Failed to execute action: %v", err)}
	}

	result := mapResponse(req.Name, raw)
	a.logger.Debug("action executed",
		zap.String("action", req.Name),
		zap.Bool("success", result.Success),
	)
	return result
}

// buildFrame flattens the request into the automation wire form: the
// parameters at top level plus the token and action name. A click without
// explicit coordinates is aimed at the live pointer position when the
// cursor capability can report it.
func (a *AutomationClient) buildFrame(ctx context.Context, req schemas.ActionRequest) ([]byte, error) {
	payload := make(map[string]interface{}, len(req.Params)+2)
	for k, v := range req.Params {
		payload[k] = v
	}

	if req.Name == "click" && a.pointer != nil {
		_, hasX := payload["x"]
		_, hasY := payload["y"]
		if !hasX || !hasY {
			if pos, err := a.pointer.MousePosition(ctx); err == nil {
				payload["x"] = pos.X
				payload["y"] = pos.Y
			} else {
				a.logger.Debug("pointer position unavailable, clicking in place", zap.Error(err))
			}
		}
	}

	payload["token"] = a.cfg.Token
	payload["action"] = req.Name

	frame, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode action %s: %w", req.Name, err)
	}
	return frame, nil
}

func (a *AutomationClient) roundTrip(ctx context.Context, frame []byte) ([]byte, error) {
	dialTimeout := a.cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, a.cfg.AutomationURL, nil)
	if err != nil {
		return nil, transportErr("dial automation", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	}

	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return nil, transportErr("send action", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, transportErr("await result", err)
	}
	return raw, nil
}

// mapResponse turns the automation server's reply into a result. Only an
// explicit error status fails the action: the server acted on anything
// else, even if its reply does not fully parse.
func mapResponse(name string, raw []byte) schemas.ActionResult {
	var resp schemas.AutomationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return schemas.ActionResult{
			Success: true,
			Message: fmt.Sprintf("Action '%s' completed (response: %s)", name, clipBytes(raw, 100)),
		}
	}

	switch resp.Status {
	case schemas.AutomationStatusOK:
		result := "null"
		if len(resp.Result) > 0 {
			result = string(resp.Result)
		}
		return schemas.ActionResult{
			Success: true,
			Message: fmt.Sprintf("Action '%s' completed: %s", name, result),
		}
	case schemas.AutomationStatusError:
		msg := "unknown error"
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return schemas.ActionResult{
			Success: false,
			Message: fmt.Sprintf("Action '%s' failed: %s", name, msg),
		}
	default:
		return schemas.ActionResult{
			Success: true,
			Message: fmt.Sprintf("Action '%s' completed with unknown status", name),
		}
	}
}

func clipBytes(raw []byte, limit int) string {
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit])
}
