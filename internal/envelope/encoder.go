// Copyright 2025 James Ross
package envelope

import (
	"encoding/json"
	"io"
)

// Encoder writes one JSON value per envelope to w (spec §4.6, §6). It has
// no flush hook; flushing on the FLUSH argument is done by the Stream Loop.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder wraps w for envelope writes.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Encode writes v as a single JSON value.
func (e *Encoder) Encode(v interface{}) error {
	return e.enc.Encode(v)
}
