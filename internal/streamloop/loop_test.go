// Copyright 2025 James Ross
package streamloop

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesross/dgrid-batch/internal/envelope"
)

func newLoopWithBuffer() (*Loop, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Loop{Encoder: envelope.NewEncoder(&buf)}, &buf
}

func TestEmitAttachesErrorToEnvelope(t *testing.T) {
	l, buf := newLoopWithBuffer()
	env := &envelope.Envelope{Operation: "list", Target: envelope.Target{Collection: "/z/x"}}
	env.Error = &envelope.Error{Code: -1, Message: "boom"}
	require.NoError(t, l.emit(env, nil, errors.New("boom")))

	var out envelope.Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "boom", out.Error.Message)
}

func TestEmitAttachesResultToValidEnvelope(t *testing.T) {
	l, buf := newLoopWithBuffer()
	env := &envelope.Envelope{Operation: "list", Target: envelope.Target{Collection: "/z/x"}}
	result := json.RawMessage(`{"ok":true}`)
	env.Result = result
	require.NoError(t, l.emit(env, result, nil))

	var out envelope.Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.JSONEq(t, `{"ok":true}`, string(out.Result))
}

func TestEmitDirectResultWhenNoEnvelopeShape(t *testing.T) {
	l, buf := newLoopWithBuffer()
	env := &envelope.Envelope{} // no operation, invalid target
	result := json.RawMessage(`{"direct":1}`)
	require.NoError(t, l.emit(env, result, nil))

	assert.JSONEq(t, `{"direct":1}`, buf.String())
}

func TestEmitUnchangedWhenNoResult(t *testing.T) {
	l, buf := newLoopWithBuffer()
	env := &envelope.Envelope{Operation: "move", Target: envelope.Target{Collection: "/z/x", DataObject: "f"}}
	require.NoError(t, l.emit(env, nil, nil))

	var out envelope.Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "move", out.Operation)
	assert.Nil(t, out.Result)
}

func TestBoolArgNilArguments(t *testing.T) {
	assert.False(t, boolArg(nil, "flush"))
}
