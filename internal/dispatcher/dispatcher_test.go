// Copyright 2025 James Ross
package dispatcher

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/primitives"
)

func rawBool(b bool) json.RawMessage {
	out, _ := json.Marshal(b)
	return out
}

func rawString(s string) json.RawMessage {
	out, _ := json.Marshal(s)
	return out
}

func TestBuildFlagsTranslatesArguments(t *testing.T) {
	args := envelope.Arguments{
		"acl":       rawBool(true),
		"checksum":  rawBool(true),
		"recurse":   rawBool(true),
		"contents":  rawBool(false),
	}
	fs, err := buildFlags(args, 0)
	require.NoError(t, err)
	assert.True(t, fs.Has(primitives.PrintACL))
	assert.True(t, fs.Has(primitives.CalculateChecksum))
	assert.True(t, fs.Has(primitives.PrintChecksum))
	assert.True(t, fs.Has(primitives.Recursive))
	assert.False(t, fs.Has(primitives.PrintContents))
}

func TestBuildFlagsNestedAddAVU(t *testing.T) {
	args := envelope.Arguments{"operation": rawString("add")}
	fs, err := buildFlags(args, 0)
	require.NoError(t, err)
	assert.True(t, fs.Has(primitives.AddAVU))
	assert.False(t, fs.Has(primitives.RemoveAVU))
}

func TestBuildFlagsNestedUnknownIsError(t *testing.T) {
	args := envelope.Arguments{"operation": rawString("bogus")}
	_, err := buildFlags(args, 0)
	assert.Error(t, err)
}

func TestBuildFlagsCarriesDefaults(t *testing.T) {
	fs, err := buildFlags(nil, primitives.NewFlagSet(primitives.Force))
	require.NoError(t, err)
	assert.True(t, fs.Has(primitives.Force))
}

func TestDispatchUnknownOperation(t *testing.T) {
	d := New(1024, nil)
	env := &envelope.Envelope{Operation: "bogus"}
	_, err := d.Dispatch(nil, nil, env, 0)
	assert.Error(t, err)
}
