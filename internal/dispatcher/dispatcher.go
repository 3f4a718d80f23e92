// Copyright 2025 James Ross
// Package dispatcher maps envelope.operation to the matching storage
// primitive and translates envelope.arguments into a per-call flag-set
// (spec §4.5).
package dispatcher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/primitives"
)

// Dispatcher routes one envelope to its primitive.
type Dispatcher struct {
	BufferSize int64
	Stdout     io.Writer
}

// New builds a Dispatcher.
func New(bufferSize int64, stdout io.Writer) *Dispatcher {
	return &Dispatcher{BufferSize: bufferSize, Stdout: stdout}
}

// argFlag is one row of the arguments -> flag translation table (spec §4.5).
var argFlag = map[string]primitives.Flag{
	"acl":           primitives.PrintACL,
	"avu":           primitives.PrintAVU,
	"contents":      primitives.PrintContents,
	"replicate":     primitives.PrintReplicate,
	"size":          primitives.PrintSize,
	"timestamp":     primitives.PrintTimestamp,
	"recurse":       primitives.Recursive,
	"force":         primitives.Force,
	"collection":    primitives.SearchCollections,
	"object":        primitives.SearchObjects,
	"single-server": primitives.SingleServer,
}

// buildFlags computes the per-call flag-set: global defaults OR'd with
// flags derived from arguments. checksum is split across two flags
// (CALCULATE_CHECKSUM | PRINT_CHECKSUM); the nested "operation" argument
// selects ADD_AVU/REMOVE_AVU and is validated separately since an unknown
// value is an invalid-argument error rather than a silently-ignored key.
func buildFlags(args envelope.Arguments, defaults primitives.FlagSet) (primitives.FlagSet, error) {
	fs := defaults
	for key, raw := range args {
		if key == "path" {
			continue
		}
		if key == "operation" {
			var nested string
			if err := json.Unmarshal(raw, &nested); err != nil {
				return 0, bferrors.NewValidationError("arguments.operation", string(raw), "must be a string")
			}
			switch nested {
			case "add":
				fs = fs.With(primitives.AddAVU)
			case "rem":
				fs = fs.With(primitives.RemoveAVU)
			default:
				return 0, bferrors.NewValidationError("arguments.operation", nested, "unknown nested metadata operation")
			}
			continue
		}
		if key == "checksum" {
			if args.Bool(key) {
				fs = fs.With(primitives.CalculateChecksum).With(primitives.PrintChecksum)
			}
			continue
		}
		flag, known := argFlag[key]
		if !known {
			continue
		}
		if args.Bool(key) {
			fs = fs.With(flag)
		}
	}
	return fs, nil
}

// Dispatch routes env to its primitive and returns the result JSON (or
// nil), or an error. defaults carries any global flags set at startup.
func (d *Dispatcher) Dispatch(ctx context.Context, pc *primitives.Context, env *envelope.Envelope, defaults primitives.FlagSet) (json.RawMessage, error) {
	flags, err := buildFlags(env.Arguments, defaults)
	if err != nil {
		return nil, err
	}

	switch env.Operation {
	case "list":
		return callBytes(pc.ListPath(ctx, env.Target, flags))
	case "metaquery":
		return callBytes(pc.SearchMetadata(ctx, env.Target, flags))
	case "metamod":
		return callBytes(pc.ModifyMetadata(ctx, env.Target, flags))
	case "chmod":
		return callBytes(pc.ModifyPermissions(ctx, env.Target, flags))
	case "checksum":
		return callBytes(pc.Checksum(ctx, env.Target, flags))
	case "get":
		return callBytes(pc.Get(ctx, env.Target, flags, d.BufferSize, d.Stdout))
	case "put":
		return callBytes(pc.Put(ctx, env.Target, flags))
	case "move":
		return callBytes(pc.Move(ctx, env.Target, env.Arguments.String("path")))
	case "remove":
		return callBytes(pc.Remove(ctx, env.Target, flags))
	case "mkcoll":
		return callBytes(pc.Mkcoll(ctx, env.Target, flags))
	case "rmcoll":
		return callBytes(pc.Rmcoll(ctx, env.Target, flags))
	default:
		return nil, bferrors.NewValidationError("operation", env.Operation, "unknown operation")
	}
}

func callBytes(b []byte, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	return json.RawMessage(b), nil
}
