// Copyright 2025 James Ross
// Package schema validates envelope.arguments against an optional JSON
// Schema document before dispatch, grounded on the teacher's
// internal/json-payload-studio use of gojsonschema for payload
// validation, trimmed from an interactive editor's lint pipeline to a
// single validate-before-dispatch call (SPEC_FULL.md §2.6).
package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/config"
)

// Validator validates arguments payloads against a loaded schema. A nil
// Validator (no schema configured) makes Validate a no-op.
type Validator struct {
	schema *gojsonschema.Schema
}

// Load reads the schema at cfg.Schema.ArgumentsSchemaPath, if set.
// Returns (nil, nil) when no schema is configured.
func Load(cfg *config.Config) (*Validator, error) {
	if cfg.Schema.ArgumentsSchemaPath == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(cfg.Schema.ArgumentsSchemaPath)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", cfg.Schema.ArgumentsSchemaPath, err)
	}
	loaded, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w", cfg.Schema.ArgumentsSchemaPath, err)
	}
	return &Validator{schema: loaded}, nil
}

// Validate checks args against the loaded schema, returning a
// ValidationError naming every violation found. Nil-safe: a nil
// Validator always succeeds.
func (v *Validator) Validate(args json.RawMessage) error {
	if v == nil || v.schema == nil {
		return nil
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return bferrors.NewValidationError("arguments", string(args), "schema validation error: "+err.Error())
	}
	if result.Valid() {
		return nil
	}
	msg := "arguments failed schema validation:"
	for _, e := range result.Errors() {
		msg += " " + e.String() + ";"
	}
	return bferrors.NewValidationError("arguments", string(args), msg)
}
