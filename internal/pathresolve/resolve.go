// Copyright 2025 James Ross
// Package pathresolve implements the Path Resolver: classifying a
// user-supplied path against the loaded environment as a data object,
// collection, or absent (spec §4.3).
package pathresolve

import (
	"context"
	"path"
	"strings"

	"github.com/jamesross/dgrid-batch/internal/cache"
	"github.com/jamesross/dgrid-batch/internal/catalog"
	"github.com/jamesross/dgrid-batch/internal/gridclient"
	"github.com/jamesross/dgrid-batch/internal/obs"
)

// Kind classifies a resolved path (mirrors envelope.Kind but adds Absent,
// which only the backend-confirmed resolver can observe).
type Kind int

const (
	Absent Kind = iota
	DataObject
	Collection
)

// Resolver resolves paths against the catalog, fronted by a short-TTL
// cache.
type Resolver struct {
	Catalog *catalog.Executor
	Cache   *cache.PathCache
}

// New builds a Resolver.
func New(exec *catalog.Executor, c *cache.PathCache) *Resolver {
	return &Resolver{Catalog: exec, Cache: c}
}

// Resolve normalizes path against env (relative paths are qualified by the
// environment's default collection), stats the backend object, and
// classifies it. ABSENT is not itself an error at resolution time; callers
// turn it into one when the operation requires existence.
func (r *Resolver) Resolve(ctx context.Context, env gridclient.Environment, raw string) (absolute string, kind Kind, err error) {
	absolute = normalize(env, raw)

	if r.Cache != nil {
		if e, ok := r.Cache.Get(ctx, absolute); ok {
			obs.CacheHits.Inc()
			return e.AbsolutePath, Kind(e.Kind), nil
		}
		obs.CacheMisses.Inc()
	}

	kind, err = r.stat(ctx, env, absolute)
	if err != nil {
		return "", Absent, err
	}

	if r.Cache != nil {
		r.Cache.Set(ctx, absolute, cache.Entry{AbsolutePath: absolute, Kind: int(kind)})
	}
	return absolute, kind, nil
}

// Invalidate drops any cached entry for absolute, called by mutating
// primitives (metamod/chmod/put/move/remove/mkcoll/rmcoll).
func (r *Resolver) Invalidate(ctx context.Context, absolute string) {
	if r.Cache != nil {
		r.Cache.Invalidate(ctx, absolute)
	}
}

func normalize(env gridclient.Environment, raw string) string {
	if strings.HasPrefix(raw, "/") {
		return path.Clean(raw)
	}
	return path.Clean(env.DefaultCollection + "/" + raw)
}

func (r *Resolver) stat(ctx context.Context, env gridclient.Environment, absolute string) (Kind, error) {
	collQ := catalog.MakeQuery(1, []catalog.Projection{{Column: catalog.CollName, Label: "collection"}})
	catalog.AddQualifier(collQ, string(catalog.ZoneName), env.Zone)
	if _, err := catalog.AddConditions(collQ, []catalog.Condition{
		{Column: catalog.CollName, Operator: "=", Literal: absolute},
	}); err != nil {
		return Absent, err
	}
	rows, err := r.Catalog.Run(ctx, collQ)
	if err != nil {
		return Absent, err
	}
	if len(rows) > 0 {
		return Collection, nil
	}

	dir, base := path.Split(absolute)
	dir = strings.TrimSuffix(dir, "/")
	dataQ := catalog.MakeQuery(1, []catalog.Projection{
		{Column: catalog.CollName, Label: "collection"},
		{Column: catalog.DataName, Label: "data_object"},
	})
	catalog.AddQualifier(dataQ, string(catalog.ZoneName), env.Zone)
	if _, err := catalog.AddConditions(dataQ, []catalog.Condition{
		{Column: catalog.CollName, Operator: "=", Literal: dir},
		{Column: catalog.DataName, Operator: "=", Literal: base},
	}); err != nil {
		return Absent, err
	}
	rows, err = r.Catalog.Run(ctx, dataQ)
	if err != nil {
		return Absent, err
	}
	if len(rows) > 0 {
		return DataObject, nil
	}
	return Absent, nil
}
