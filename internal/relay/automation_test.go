// File: internal/relay/automation_test.go
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
)

// newAutomationServer serves the one-frame-in, one-frame-out automation
// protocol: each connection reads a single action frame, records it, and
// answers with whatever respond returns.
func newAutomationServer(t *testing.T, respond func(frame map[string]interface{}) string) (string, chan map[string]interface{}) {
	t.Helper()
	frames := make(chan map[string]interface{}, 8)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame map[string]interface{}
		if err := json.Unmarshal(raw, &frame); err != nil {
			return
		}
		frames <- frame
		conn.WriteMessage(websocket.TextMessage, []byte(respond(frame)))
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http"), frames
}

func automationCfg(url string) config.RelayConfig {
	cfg := config.NewDefaultConfig().Relay()
	cfg.AutomationURL = url
	cfg.ActionTimeout = 2 * time.Second
	cfg.DialTimeout = 2 * time.Second
	return cfg
}

type fakePointer struct {
	pos schemas.Coordinates
	err error
}

func (f *fakePointer) MousePosition(context.Context) (schemas.Coordinates, error) {
	if f.err != nil {
		return schemas.Coordinates{}, f.err
	}
	return f.pos, nil
}

func TestNewAutomationClient_Validation(t *testing.T) {
	_, err := NewAutomationClient(config.RelayConfig{}, nil, zaptest.NewLogger(t))
	require.ErrorContains(t, err, "automation url")

	_, err = NewAutomationClient(automationCfg("ws://automation.example"), nil, nil)
	require.ErrorContains(t, err, "logger")
}

// TestAutomationClient_CompletedAction covers the happy path and the wire
// shape: params flattened to the top level plus token and action name.
func TestAutomationClient_CompletedAction(t *testing.T) {
	url, frames := newAutomationServer(t, func(map[string]interface{}) string {
		return `{"status": "ok", "result": {"clicked": true}}`
	})
	client, err := NewAutomationClient(automationCfg(url), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	res := client.ExecuteAction(context.Background(), schemas.ActionRequest{
		ID:     "a1",
		Name:   "click",
		Params: map[string]interface{}{"x": 10, "y": 20, "button": "left"},
	})
	require.True(t, res.Success)
	require.Equal(t, `Action 'click' completed: {"clicked": true}`, res.Message)

	frame := <-frames
	require.Equal(t, "click", frame["action"])
	require.Equal(t, "super-secret-token", frame["token"])
	require.Equal(t, float64(10), frame["x"])
	require.Equal(t, float64(20), frame["y"])
	require.Equal(t, "left", frame["button"])
}

func TestAutomationClient_FailedAction(t *testing.T) {
	url, _ := newAutomationServer(t, func(map[string]interface{}) string {
		return `{"status": "error", "error": {"message": "coordinates out of bounds"}}`
	})
	client, err := NewAutomationClient(automationCfg(url), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	res := client.ExecuteAction(context.Background(), schemas.ActionRequest{
		ID:     "a2",
		Name:   "move",
		Params: map[string]interface{}{"x": 99999, "y": 0},
	})
	require.False(t, res.Success)
	require.Equal(t, "Action 'move' failed: coordinates out of bounds", res.Message)
}

// TestAutomationClient_LenientResponses pins the tolerance rules: only an
// explicit error status fails the action.
func TestAutomationClient_LenientResponses(t *testing.T) {
	cases := []struct {
		name    string
		reply   string
		success bool
		want    string
	}{
		{"unknown status", `{"status": "busy"}`, true, "Action 'press' completed with unknown status"},
		{"empty object", `{}`, true, "Action 'press' completed with unknown status"},
		{"error without detail", `{"status": "error"}`, false, "Action 'press' failed: unknown error"},
		{"ok without result", `{"status": "ok"}`, true, "Action 'press' completed: null"},
		{"unparseable", `OK!!`, true, "Action 'press' completed (response: OK!!)"},
		{
			"unparseable truncated",
			strings.Repeat("x", 150),
			true,
			fmt.Sprintf("Action 'press' completed (response: %s)", strings.Repeat("x", 100)),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			url, _ := newAutomationServer(t, func(map[string]interface{}) string { return tc.reply })
			client, err := NewAutomationClient(automationCfg(url), nil, zaptest.NewLogger(t))
			require.NoError(t, err)

			res := client.ExecuteAction(context.Background(), schemas.ActionRequest{
				ID:     "a3",
				Name:   "press",
				Params: map[string]interface{}{"key": "enter"},
			})
			require.Equal(t, tc.success, res.Success)
			require.Equal(t, tc.want, res.Message)
		})
	}
}

func TestAutomationClient_TransportFailure(t *testing.T) {
	cfg := automationCfg("ws://127.0.0.1:1")
	cfg.DialTimeout = 200 * time.Millisecond
	cfg.ActionTimeout = 500 * time.Millisecond
	client, err := NewAutomationClient(cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	res := client.ExecuteAction(context.Background(), schemas.ActionRequest{ID: "a4", Name: "click"})
	require.False(t, res.Success)
	require.True(t, strings.HasPrefix(res.Message, "Failed to execute action:"), res.Message)
}

// TestAutomationClient_ClickAimsAtPointer covers the coordinate fill: a
// click without x/y targets the live cursor position, explicit
// coordinates pass through, and other actions are never touched.
func TestAutomationClient_ClickAimsAtPointer(t *testing.T) {
	url, frames := newAutomationServer(t, func(map[string]interface{}) string {
		return `{"status": "ok", "result": {}}`
	})
	logger := zaptest.NewLogger(t)

	aimed, err := NewAutomationClient(automationCfg(url), &fakePointer{pos: schemas.Coordinates{X: 400, Y: 300}}, logger)
	require.NoError(t, err)

	aimed.ExecuteAction(context.Background(), schemas.ActionRequest{
		Name:   "click",
		Params: map[string]interface{}{"button": "left"},
	})
	frame := <-frames
	require.Equal(t, float64(400), frame["x"])
	require.Equal(t, float64(300), frame["y"])

	aimed.ExecuteAction(context.Background(), schemas.ActionRequest{
		Name:   "click",
		Params: map[string]interface{}{"x": 1, "y": 2, "button": "left"},
	})
	frame = <-frames
	require.Equal(t, float64(1), frame["x"])
	require.Equal(t, float64(2), frame["y"])

	aimed.ExecuteAction(context.Background(), schemas.ActionRequest{
		Name:   "press",
		Params: map[string]interface{}{"key": "enter"},
	})
	frame = <-frames
	_, hasX := frame["x"]
	require.False(t, hasX, "non-click actions keep their params untouched")

	blind, err := NewAutomationClient(automationCfg(url), &fakePointer{err: errors.New("cursor gone")}, logger)
	require.NoError(t, err)
	blind.ExecuteAction(context.Background(), schemas.ActionRequest{
		Name:   "click",
		Params: map[string]interface{}{"button": "left"},
	})
	frame = <-frames
	_, hasX = frame["x"]
	require.False(t, hasX, "an unreadable cursor leaves the click unaimed")
}
