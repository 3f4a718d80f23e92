// Copyright 2025 James Ross
// Package primitives implements the storage primitives the dispatcher
// calls: list-path, list-metadata, search-metadata, modify-metadata,
// modify-permissions, checksum, get, put, write, move, remove, mkcoll,
// rmcoll (spec §4.4). Each is a pure function of (env, conn, target,
// flags) returning a result or a typed error; none retains a reference to
// conn past its own return.
package primitives

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/catalog"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/gridclient"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
)

// CatalogStore is the slice of catalog.Executor's behavior the primitives
// depend on. Extracted as an interface so tests can substitute a fake
// instead of dialing Postgres.
type CatalogStore interface {
	Run(ctx context.Context, q *catalog.Query) ([]catalog.Row, error)
	ModifyDataObjectAVU(ctx context.Context, collPath, dataName, attr, value, units string, remove bool) error
	ModifyCollectionAVU(ctx context.Context, collPath, attr, value, units string, remove bool) error
	CreateCollection(ctx context.Context, collPath string) error
	RemoveCollection(ctx context.Context, collPath string) error
	ModifyAccess(ctx context.Context, path, owner, zone, level string) error
	ModifyAccessSubtree(ctx context.Context, rootPath, owner, zone, level string) error
	ListAccess(ctx context.Context, path string) ([]catalog.AccessEntry, error)
}

// ObjectStore is the slice of objectstore.Store's behavior the primitives
// depend on. Extracted as an interface so tests can substitute a fake
// instead of dialing S3.
type ObjectStore interface {
	Put(ctx context.Context, collection, dataObject string, r io.Reader) error
	PutSingleStream(ctx context.Context, collection, dataObject string, r io.ReadSeeker) error
	Get(ctx context.Context, collection, dataObject string, bufferSize int64) ([]byte, error)
	Move(ctx context.Context, srcColl, srcObj, dstColl, dstObj string) error
	Remove(ctx context.Context, collection, dataObject string) error
	Stat(ctx context.Context, collection, dataObject string) (int64, time.Time, error)
	Checksum(ctx context.Context, collection, dataObject string) (string, error)
}

// Resolver is the slice of pathresolve.Resolver's behavior the primitives
// depend on. Extracted as an interface so tests can substitute a fake
// instead of dialing the catalog and Redis.
type Resolver interface {
	Resolve(ctx context.Context, env gridclient.Environment, raw string) (string, pathresolve.Kind, error)
	Invalidate(ctx context.Context, absolute string)
}

// Context bundles the collaborators every primitive needs, borrowed fresh
// from the Stream Loop for the duration of one call.
type Context struct {
	Env         gridclient.Environment
	Catalog     CatalogStore
	ObjectStore ObjectStore
	Resolver    Resolver
}

// requireKind resolves target's effective path and errors if its kind
// does not match want. message is the exact validation message the Stream
// Loop puts in the envelope's error (e.g. "cannot checksum a non-data-object").
func (c *Context) requireKind(ctx context.Context, t envelope.Target, want pathresolve.Kind, message string) (string, error) {
	path := targetPath(t)
	abs, kind, err := c.Resolver.Resolve(ctx, c.Env, path)
	if err != nil {
		return "", err
	}
	if kind != want {
		return "", bferrors.NewValidationError("target", path, message)
	}
	return abs, nil
}

func targetPath(t envelope.Target) string {
	if t.Collection == "" {
		return ""
	}
	if t.DataObject != "" {
		return t.Collection + "/" + t.DataObject
	}
	return t.Collection
}

func splitAbs(abs string) (dir, base string) {
	for i := len(abs) - 1; i >= 0; i-- {
		if abs[i] == '/' {
			return abs[:i], abs[i+1:]
		}
	}
	return "", abs
}

func marshal(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, bferrors.NewOperationError("marshal", "", err)
	}
	return b, nil
}

// avuRowsToAVUs converts catalog rows keyed by attribute/value/units
// labels into envelope.AVU values, per property 3 (units present iff
// backend returned a non-empty string).
func avuRowsToAVUs(rows []catalog.Row) []envelope.AVU {
	out := make([]envelope.AVU, 0, len(rows))
	for _, r := range rows {
		out = append(out, envelope.AVU{
			Attribute: r["attribute"],
			Value:     r["value"],
			Units:     r["units"],
		})
	}
	return out
}
