// Copyright 2025 James Ross
package envelope

import (
	"encoding/json"
	"fmt"
	"io"
)

// Decoder reads a stream of whitespace-separated JSON values, rejecting
// duplicate object keys at any nesting depth (spec §4.6, §6, §9 "streaming
// parser"). No third-party streaming-JSON library in the retrieval pack
// exposes duplicate-key detection (the closest, antfly's libaf/json, is a
// pluggable Marshal/Unmarshal swap layer with no duplicate-key option of its
// own); encoding/json's Decoder.Token() is the only way to observe raw
// object keys before they collide in a map, so this one piece is
// necessarily stdlib-based.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder wraps r for streaming envelope reads.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// More reports whether there is another JSON value to read before EOF.
func (d *Decoder) More() bool {
	return d.dec.More()
}

// Next reads one JSON value from the stream and rejects duplicate object
// keys at any depth. It returns the decoded value as a generic interface{}
// (map[string]interface{}, []interface{}, or a scalar) alongside the raw
// decode error, if any.
func (d *Decoder) Next() (interface{}, error) {
	return decodeValue(d.dec)
}

// NextEnvelope reads one JSON value and decodes it into an Envelope. It
// returns ok=false (with no error) when the top-level value is not a JSON
// object, per spec §4.6 ("non-object top-level items are counted as errors,
// logged, and skipped").
func (d *Decoder) NextEnvelope() (env Envelope, ok bool, err error) {
	v, err := d.Next()
	if err != nil {
		return Envelope{}, false, err
	}
	m, isObject := v.(map[string]interface{})
	if !isObject {
		return Envelope{}, false, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, false, err
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false, err
	}
	return env, true, nil
}

func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (interface{}, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("envelope: unexpected delimiter %q", t)
		}
	default:
		return tok, nil
	}
}

func decodeObject(dec *json.Decoder) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("envelope: non-string object key %v", keyTok)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("envelope: duplicate object key %q", key)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := decodeFromToken(dec, valTok)
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeArray(dec *json.Decoder) ([]interface{}, error) {
	var out []interface{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := decodeFromToken(dec, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	// consume closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
