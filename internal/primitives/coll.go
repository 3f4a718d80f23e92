// Copyright 2025 James Ross
package primitives

import (
	"context"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/catalog"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
)

// Mkcoll implements mkcoll: collection-only. With FORCE, an existing
// collection succeeds without change; without FORCE it errors "already
// exists" (spec §8 property 5).
func (c *Context) Mkcoll(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	if t.Collection == "" {
		return nil, bferrors.NewValidationError("target", t, "mkcoll requires target.collection")
	}
	abs, kind, err := c.Resolver.Resolve(ctx, c.Env, t.Collection)
	if err != nil {
		return nil, err
	}
	if kind == pathresolve.Collection {
		if flags.Has(Force) {
			return marshal(t)
		}
		return nil, bferrors.NewBackendError(-809000, "CAT_COLLECTION_ALREADY_EXISTS", "mkcoll", "already exists", nil)
	}
	if kind == pathresolve.DataObject {
		return nil, bferrors.NewValidationError("target", t, "a data object already exists at that path")
	}
	if err := c.Catalog.CreateCollection(ctx, abs); err != nil {
		return nil, err
	}
	c.Resolver.Invalidate(ctx, abs)
	return marshal(t)
}

// Rmcoll implements rmcoll: collection-only, honors RECURSIVE and FORCE.
func (c *Context) Rmcoll(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	abs, err := c.requireKind(ctx, t, pathresolve.Collection, "cannot rmcoll a non-collection")
	if err != nil {
		return nil, err
	}
	if !flags.Has(Recursive) {
		q := catalog.MakeQuery(1, []catalog.Projection{{Column: catalog.CollName, Label: "collection"}})
		catalog.AddQualifier(q, string(catalog.ZoneName), c.Env.Zone)
		if _, err := catalog.AddConditions(q, []catalog.Condition{catalog.RestrictToSubtreeCondition(abs)}); err != nil {
			return nil, err
		}
		rows, err := c.Catalog.Run(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(rows) > 1 && !flags.Has(Force) {
			return nil, bferrors.NewValidationError("target", t, "collection is not empty; set recurse or force")
		}
	}
	if err := c.Catalog.RemoveCollection(ctx, abs); err != nil {
		return nil, err
	}
	c.Resolver.Invalidate(ctx, abs)
	return marshal(t)
}
