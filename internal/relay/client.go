// File: internal/relay/client.go

// Package relay maintains the two remote links: the persistent websocket
// to the agent backend, and the one-shot connections to the automation
// server that carry desktop actions.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
)

const (
	// Fallbacks when the relay configuration leaves a knob unset.
	defaultWriteWait   = 10 * time.Second
	defaultPongWait    = 60 * time.Second
	defaultDialTimeout = 10 * time.Second
	defaultReconnect   = 5 * time.Second
	defaultQueueSize   = 64

	// Maximum message size allowed from the backend.
	maxMessageSize = 1024 * 1024
)

const primerTemplate = "NeuroDesk desktop integration is active. I can control the desktop via actions: %s. I will periodically send summaries of the current screen, focused window, and available UI targets."

// ActionHandler consumes decoded action requests from the backend. The
// bridge dispatcher implements it.
type ActionHandler interface {
	HandleAction(ctx context.Context, req schemas.ActionRequest)
}

// Stats is a point-in-time snapshot of the connection counters.
type Stats struct {
	MessagesSent     uint64
	MessagesReceived uint64
	Reconnects       uint64
	LastUpdate       time.Time
}

// BackendClient speaks the backend dialect over a persistent websocket:
// it registers the action vocabulary on every connect, pushes context and
// result frames through a single writer goroutine, and hands inbound
// actions to the handler. It reconnects forever, paced by a rate limiter.
type BackendClient struct {
	logger  *zap.Logger
	cfg     config.RelayConfig
	defs    []schemas.ActionDefinition
	handler ActionHandler
	primer  string

	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	dialTimeout    time.Duration
	reconnectEvery time.Duration

	// outbound belongs to the client, not to one session, so frames
	// queued during a short outage go out after the reconnect.
	outbound chan []byte

	statsMu sync.Mutex
	stats   Stats

	// primerSent guards the once-per-process primer context. Guarded by
	// the single-session structure, not a lock.
	primerSent bool

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc

	wg sync.WaitGroup
}

// NewBackendClient builds the backend link. The given definitions are
// registered on every (re)connect and named in the primer context.
func NewBackendClient(cfg config.RelayConfig, defs []schemas.ActionDefinition, handler ActionHandler, logger *zap.Logger) (*BackendClient, error) {
	if cfg.BackendURL == "" {
		return nil, errors.New("backend url cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("action handler cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	writeWait := cfg.WriteTimeout
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	pongWait := cfg.PongTimeout
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	reconnect := cfg.ReconnectInterval
	if reconnect <= 0 {
		reconnect = defaultReconnect
	}
	queue := cfg.OutboundQueue
	if queue <= 0 {
		queue = defaultQueueSize
	}

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}

	return &BackendClient{
		logger:         logger.Named("backend_relay"),
		cfg:            cfg,
		defs:           defs,
		handler:        handler,
		primer:         fmt.Sprintf(primerTemplate, strings.Join(names, ", ")),
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pongWait * 9 / 10,
		dialTimeout:    dialTimeout,
		reconnectEvery: reconnect,
		outbound:       make(chan []byte, queue),
	}, nil
}

// Run connects and serves until ctx is cancelled or Stop is called. Every
// session failure is absorbed: the client waits out the reconnect pacing
// and dials again.
func (c *BackendClient) Run(ctx context.Context) error {
	c.stateMu.Lock()
	if c.running {
		c.stateMu.Unlock()
		return errors.New("backend client is already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.stateMu.Unlock()

	defer func() {
		cancel()
		c.wg.Wait()
		c.stateMu.Lock()
		c.running = false
		c.stateMu.Unlock()
	}()

	c.logger.Info("backend relay started", zap.String("url", c.cfg.BackendURL))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logStatsLoop(runCtx)
	}()

	limiter := rate.NewLimiter(rate.Every(c.reconnectEvery), 1)
	first := true
	for {
		if err := limiter.Wait(runCtx); err != nil {
			c.logger.Info("backend relay stopped")
			return nil
		}
		if !first {
			c.bumpReconnects()
		}
		first = false

		if err := c.session(runCtx); err != nil {
			if runCtx.Err() != nil {
				c.logger.Info("backend relay stopped")
				return nil
			}
			c.logger.Warn("backend session ended", zap.Error(err))
		}
	}
}

// Stop cancels the running client. Safe to call repeatedly and before Run.
func (c *BackendClient) Stop() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// session owns one connection from dial to teardown.
func (c *BackendClient) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.BackendURL, nil)
	if err != nil {
		return transportErr("dial backend", err)
	}
	c.logger.Info("backend connected", zap.String("url", c.cfg.BackendURL))

	// The handshake writes directly; the write pump is not running yet,
	// so the single-writer rule holds.
	if err := c.handshake(conn); err != nil {
		conn.Close()
		return err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeDone := make(chan error, 1)
	go func() { writeDone <- c.writePump(sessionCtx, conn) }()

	readErr := c.readPump(ctx, conn)
	cancel()
	writeErr := <-writeDone

	if readErr != nil {
		return readErr
	}
	return writeErr
}

// handshake announces the integration and registers the action vocabulary.
// The primer context goes out exactly once per process, on the first
// successful connect.
func (c *BackendClient) handshake(conn *websocket.Conn) error {
	frames := make([][]byte, 0, 3)

	startup, err := encodeEnvelope(schemas.CommandStartup, c.cfg.AppName, nil)
	if err != nil {
		return err
	}
	frames = append(frames, startup)

	register, err := encodeEnvelope(schemas.CommandRegisterActions, c.cfg.AppName,
		schemas.RegisterActionsPayload{Actions: c.defs})
	if err != nil {
		return err
	}
	frames = append(frames, register)

	if !c.primerSent {
		primer, err := encodeEnvelope(schemas.CommandContext, c.cfg.AppName,
			schemas.ContextPayload{Message: c.primer, Silent: true})
		if err != nil {
			return err
		}
		frames = append(frames, primer)
	}

	for _, frame := range frames {
		conn.SetWriteDeadline(time.Now().Add(c.writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return transportErr("handshake", err)
		}
		c.bumpSent()
	}
	c.primerSent = true

	c.logger.Info("action vocabulary registered", zap.Int("actions", len(c.defs)))
	return nil
}

// readPump consumes backend frames until the connection dies. Actions are
// dispatched on their own goroutines so a slow automation call can never
// stall pong handling.
func (c *BackendClient) readPump(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("backend closed the connection")
				return nil
			}
			return transportErr("read backend", err)
		}
		c.bumpReceived()
		c.dispatch(ctx, message)
	}
}

// dispatch decodes one inbound frame and routes action requests to the
// handler. Anything undecodable is logged and dropped; the pump survives.
func (c *BackendClient) dispatch(ctx context.Context, message []byte) {
	env, err := decodeEnvelope(message)
	if err != nil {
		c.logger.Warn("undecodable backend frame", zap.Error(err), zap.ByteString("frame", message))
		return
	}
	if env.Command != schemas.CommandAction {
		c.logger.Debug("ignoring backend command", zap.String("command", env.Command))
		return
	}

	payload, err := decodeActionPayload(env.Data)
	if err != nil {
		c.logger.Warn("undecodable action payload", zap.Error(err), zap.ByteString("frame", message))
		return
	}
	params, err := decodeParamString(payload.Data)
	if err != nil {
		c.logger.Warn("malformed action params, proceeding with none",
			zap.String("action", payload.Name), zap.Error(err))
	}

	req := schemas.ActionRequest{ID: payload.ID, Name: payload.Name, Params: params}
	c.logger.Debug("action request received",
		zap.String("id", req.ID), zap.String("name", req.Name))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.handler.HandleAction(ctx, req)
	}()
}

// writePump owns all writes on the connection after the handshake: queued
// frames and keepalive pings. It closes the connection on the way out,
// which also unblocks the read pump.
func (c *BackendClient) writePump(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case frame := <-c.outbound:
			conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return transportErr("write backend", err)
			}
			c.bumpSent()
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return transportErr("ping backend", err)
			}
		}
	}
}

// PublishContext enqueues one digest frame. It satisfies the coordinator's
// publisher contract.
func (c *BackendClient) PublishContext(ctx context.Context, message string, silent bool) error {
	frame, err := encodeEnvelope(schemas.CommandContext, c.cfg.AppName,
		schemas.ContextPayload{Message: message, Silent: silent})
	if err != nil {
		return err
	}
	if err := c.enqueue(frame); err != nil {
		return err
	}
	c.touchLastUpdate()
	return nil
}

// PublishResult enqueues one action result frame, correlated by id. It
// satisfies the dispatcher's result publisher contract.
func (c *BackendClient) PublishResult(ctx context.Context, result schemas.ActionResult) error {
	frame, err := encodeEnvelope(schemas.CommandActionResult, c.cfg.AppName,
		schemas.ActionResultPayload{ID: result.ID, Success: result.Success, Message: result.Message})
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// enqueue hands a frame to the writer without blocking the caller. A full
// queue means the link is down or far behind; the caller sees a transport
// error and the coordinator retransmits on a later cycle.
func (c *BackendClient) enqueue(frame []byte) error {
	select {
	case c.outbound <- frame:
		return nil
	default:
		return transportErr("enqueue", errOutboundFull)
	}
}

// Stats returns a copy of the connection counters.
func (c *BackendClient) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *BackendClient) bumpSent() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.MessagesSent++
}

func (c *BackendClient) bumpReceived() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.MessagesReceived++
}

func (c *BackendClient) bumpReconnects() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.Reconnects++
}

func (c *BackendClient) touchLastUpdate() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.LastUpdate = time.Now()
}

func (c *BackendClient) logStatsLoop(ctx context.Context) {
	interval := c.cfg.StatsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := c.Stats()
			c.logger.Info("relay statistics",
				zap.Uint64("messages_sent", s.MessagesSent),
				zap.Uint64("messages_received", s.MessagesReceived),
				zap.Uint64("reconnects", s.Reconnects),
				zap.Time("last_context_update", s.LastUpdate),
			)
		}
	}
}
