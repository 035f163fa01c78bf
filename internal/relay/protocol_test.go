// File: internal/relay/protocol_test.go
package relay

import (
	"errors"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/neurodesk/api/schemas"
)

func TestEncodeEnvelope(t *testing.T) {
	frame, err := encodeEnvelope(schemas.CommandContext, "NeuroDesk",
		schemas.ContextPayload{Message: "hello", Silent: true})
	require.NoError(t, err)

	env, err := decodeEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, schemas.CommandContext, env.Command)
	assert.Equal(t, "NeuroDesk", env.Game)

	var payload schemas.ContextPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "hello", payload.Message)
	assert.True(t, payload.Silent)
}

func TestEncodeEnvelope_NoPayload(t *testing.T) {
	frame, err := encodeEnvelope(schemas.CommandStartup, "NeuroDesk", nil)
	require.NoError(t, err)

	env, err := decodeEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, schemas.CommandStartup, env.Command)
	assert.Empty(t, env.Data)
}

func TestDecodeActionPayload(t *testing.T) {
	payload, err := decodeActionPayload([]byte(`{"id": "a1", "name": "click", "data": "{\"x\": 1}"}`))
	require.NoError(t, err)
	assert.Equal(t, "a1", payload.ID)
	assert.Equal(t, "click", payload.Name)
	assert.Equal(t, `{"x": 1}`, payload.Data)

	_, err = decodeActionPayload([]byte(`{"id": "a2"}`))
	require.ErrorContains(t, err, "no name")

	_, err = decodeActionPayload([]byte(`not json`))
	require.Error(t, err)
}

func TestDecodeParamString(t *testing.T) {
	params, err := decodeParamString(`{"x": 5, "button": "left"}`)
	require.NoError(t, err)
	assert.Equal(t, float64(5), params["x"])
	assert.Equal(t, "left", params["button"])

	params, err = decodeParamString("")
	require.NoError(t, err)
	assert.NotNil(t, params)
	assert.Empty(t, params)

	params, err = decodeParamString("null")
	require.NoError(t, err)
	assert.NotNil(t, params)
	assert.Empty(t, params)

	params, err = decodeParamString(`{{broken`)
	require.Error(t, err)
	assert.NotNil(t, params, "a usable map comes back even on error")
	assert.Empty(t, params)
}

func TestTransportError(t *testing.T) {
	inner := errors.New("connection refused")
	err := transportErr("dial backend", inner)

	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, "dial backend: connection refused", err.Error())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, schemas.CodeTransportFailure, te.Code())
}
