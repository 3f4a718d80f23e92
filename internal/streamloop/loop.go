// Copyright 2025 James Ross
// Package streamloop implements the Stream Loop: reads JSON envelopes from
// an input stream, manages the connection lifecycle, dispatches each to
// its primitive, writes one JSON response per input item, and tallies
// errors (spec §4.6).
package streamloop

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/jamesross/dgrid-batch/internal/audit"
	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/dispatcher"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/eventhooks"
	"github.com/jamesross/dgrid-batch/internal/gridclient"
	"github.com/jamesross/dgrid-batch/internal/obs"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
	"github.com/jamesross/dgrid-batch/internal/primitives"
	"github.com/jamesross/dgrid-batch/internal/schema"
)

// mutatingOps notify event hooks and the audit sink once dispatched.
var mutatingOps = map[string]bool{
	"metamod": true, "chmod": true, "move": true,
	"remove": true, "mkcoll": true, "rmcoll": true, "put": true,
}

// Loop drives the request/response cycle over one input/output pair.
type Loop struct {
	Decoder    *envelope.Decoder
	Encoder    *envelope.Encoder
	Flush      func() error
	Dispatcher *dispatcher.Dispatcher
	Conn       *gridclient.Connection
	Resolver   *pathresolve.Resolver
	Env        gridclient.Environment
	Defaults   primitives.FlagSet
	Logger     *zap.Logger
	Schema     *schema.Validator
	Events     *eventhooks.Publisher
	Audit      *audit.Sink
}

// Result summarizes one full pass over the input stream.
type Result struct {
	Processed int
	Errored   int
}

// Run executes the loop to EOF, returning the total error count (spec §7,
// "final log line reports processed and errored counts"). A login failure
// when a connection is required terminates the loop early with the
// accumulated count and a non-nil error.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	var res Result
	defer func() {
		if err := l.Conn.Close(); err != nil {
			l.Logger.Error("closing connection", zap.Error(err))
		}
	}()

	for {
		parsed, ok, err := l.Decoder.NextEnvelope()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.Logger.Error("malformed JSON fragment, skipping", zap.Error(err))
			res.Errored++
			obs.ItemsMalformed.Inc()
			continue
		}
		if !ok {
			l.Logger.Error("non-object top-level item, skipping")
			res.Errored++
			obs.ItemsMalformed.Inc()
			continue
		}
		env := &parsed

		var dispatchErr error
		var result []byte
		var handle *gridclient.Connection

		argsJSON, _ := json.Marshal(env.Arguments)
		if dispatchErr = l.Schema.Validate(argsJSON); dispatchErr == nil {
			handle, dispatchErr = l.Conn.Handle(ctx)
			if dispatchErr != nil {
				l.Logger.Error("login failed, terminating stream", zap.Error(dispatchErr))
				return res, bferrors.ErrLoginFailed
			}

			start := time.Now()
			pc := &primitives.Context{Env: l.Env, Catalog: handle.Catalog, ObjectStore: handle.ObjectStore, Resolver: l.Resolver}
			result, dispatchErr = l.Dispatcher.Dispatch(ctx, pc, env, l.Defaults)
			obs.PrimitiveDuration.WithLabelValues(env.Operation).Observe(time.Since(start).Seconds())
			handle.Record(dispatchErr == nil)
		}

		res.Processed++
		if dispatchErr != nil {
			msg := dispatchErr.Error()
			var valErr *bferrors.ValidationError
			if errors.As(dispatchErr, &valErr) {
				msg = valErr.Message
			}
			env.Error = &envelope.Error{Code: bferrors.Code(dispatchErr), Message: msg}
			res.Errored++
			obs.ItemsErrored.Inc()
		} else if result != nil {
			env.Result = result
		}

		if mutatingOps[env.Operation] {
			l.Events.Publish(eventhooks.Event{
				Operation: env.Operation, Collection: env.Target.Collection, DataObject: env.Target.DataObject,
				Timestamp: time.Now(), Error: errString(dispatchErr),
			})
			l.Audit.Record(audit.Record{
				Operation: env.Operation, Collection: env.Target.Collection, DataObject: env.Target.DataObject,
				Succeeded: dispatchErr == nil, ErrorCode: bferrors.Code(dispatchErr), Timestamp: time.Now(),
			})
		}

		if err := l.emit(env, result, dispatchErr); err != nil {
			l.Logger.Error("failed to emit response", zap.Error(err))
			res.Errored++
			continue
		}
		obs.ItemsProcessed.Inc()

		if boolArg(env.Arguments, "flush") && l.Flush != nil {
			if err := l.Flush(); err != nil {
				l.Logger.Error("flush failed", zap.Error(err))
			}
		}
	}
	return res, nil
}

// emit implements the EMIT state's output-shape rule (spec §4.6): error
// or an envelope-shaped result get attached to the input envelope;
// a non-null envelope-less result is emitted directly; otherwise the
// input envelope is emitted unchanged.
func (l *Loop) emit(env *envelope.Envelope, result []byte, dispatchErr error) error {
	if dispatchErr != nil {
		return l.Encoder.Encode(env)
	}
	if env.Operation != "" && env.Target.Kind() != envelope.KindInvalid && result != nil {
		return l.Encoder.Encode(env)
	}
	if result != nil {
		return l.Encoder.Encode(json.RawMessage(result))
	}
	return l.Encoder.Encode(env)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func boolArg(args envelope.Arguments, key string) bool {
	if args == nil {
		return false
	}
	return args.Bool(key)
}
