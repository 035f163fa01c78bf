// File: internal/relay/protocol.go
package relay

import (
	stdjson "encoding/json"
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/neurodesk/api/schemas"
)

// encodeEnvelope frames one outbound backend command.
func encodeEnvelope(command, game string, payload interface{}) ([]byte, error) {
	env := schemas.Envelope{Command: command, Game: game}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", command, err)
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", command, err)
	}
	return frame, nil
}

func decodeEnvelope(raw []byte) (schemas.Envelope, error) {
	var env schemas.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return schemas.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

func decodeActionPayload(data stdjson.RawMessage) (schemas.ActionPayload, error) {
	var payload schemas.ActionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return schemas.ActionPayload{}, fmt.Errorf("decode action payload: %w", err)
	}
	if payload.Name == "" {
		return schemas.ActionPayload{}, fmt.Errorf("action payload has no name")
	}
	return payload, nil
}

// decodeParamString unpacks the double-encoded params carried in an action
// payload's data field. The returned map is always usable; the error only
// reports what was wrong with the original.
func decodeParamString(data string) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	if data == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return map[string]interface{}{}, fmt.Errorf("decode action params: %w", err)
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return params, nil
}
