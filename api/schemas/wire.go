package schemas

import "encoding/json"

// Backend protocol commands. The engine speaks a small game-integration
// dialect to the agent backend: it announces itself, registers its action
// vocabulary, pushes context strings, and answers action requests with
// correlated results.
const (
	CommandStartup         = "startup"
	CommandRegisterActions = "actions/register"
	CommandContext         = "context"
	CommandActionResult    = "action/result"
	CommandAction          = "action"
)

// Envelope is the outer frame of every backend message in both directions.
type Envelope struct {
	Command string          `json:"command"`
	Game    string          `json:"game,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ActionDefinition is one registered action schema as the backend sees it.
type ActionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
}

// RegisterActionsPayload carries the action vocabulary on registration.
type RegisterActionsPayload struct {
	Actions []ActionDefinition `json:"actions"`
}

// ContextPayload carries one rendered digest. Silent context is absorbed by
// the agent without being spoken aloud.
type ContextPayload struct {
	Message string `json:"message"`
	Silent  bool   `json:"silent"`
}

// ActionPayload is an inbound action request. Data is a JSON-encoded string,
// not an object, per the backend protocol.
type ActionPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data string `json:"data,omitempty"`
}

// ActionResultPayload answers one action request, correlated by id.
type ActionResultPayload struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ActionRequest is the decoded form handed to the action dispatcher.
type ActionRequest struct {
	ID     string
	Name   string
	Params map[string]interface{}
}

// ActionResult is the dispatcher's verdict on one request.
type ActionResult struct {
	ID      string
	Success bool
	Message string
}

// Automation server protocol: one request, one response, per connection.

// AutomationStatus values returned by the automation server.
const (
	AutomationStatusOK    = "ok"
	AutomationStatusError = "error"
)

// AutomationResponse is the automation server's reply to a dispatched action.
type AutomationResponse struct {
	Status string           `json:"status"`
	Result json.RawMessage  `json:"result,omitempty"`
	Error  *AutomationError `json:"error,omitempty"`
}

// AutomationError carries the failure detail of a rejected action.
type AutomationError struct {
	Message string `json:"message"`
}
