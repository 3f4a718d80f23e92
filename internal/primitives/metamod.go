// Copyright 2025 James Ross
package primitives

import (
	"context"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
)

// ModifyMetadata implements modify-metadata: iterates target.avus, adding
// or removing each depending on which of ADD_AVU/REMOVE_AVU is set
// (ADD_AVU wins if both are set; neither set is an invalid-argument error
// raised here). Missing units are sent as empty string. Returns target
// unchanged on success (spec §9 "baton_json_move_op" note: here every
// mutating primitive normalizes on "always return target", except put with
// PRINT_CHECKSUM, which returns the checksum record).
func (c *Context) ModifyMetadata(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	path := targetPath(t)
	abs, kind, err := c.Resolver.Resolve(ctx, c.Env, path)
	if err != nil {
		return nil, err
	}

	var remove bool
	switch {
	case flags.Has(AddAVU):
		remove = false
	case flags.Has(RemoveAVU):
		remove = true
	default:
		return nil, bferrors.NewValidationError("arguments.operation", nil, "No metadata operation was specified")
	}

	for _, avu := range t.AVUs {
		if err := c.applyAVU(ctx, abs, kind, avu, remove); err != nil {
			return nil, err
		}
	}
	c.Resolver.Invalidate(ctx, abs)
	return marshal(t)
}

func (c *Context) applyAVU(ctx context.Context, abs string, kind pathresolve.Kind, avu envelope.AVU, remove bool) error {
	units := avu.Units
	switch kind {
	case pathresolve.DataObject:
		dir, base := splitAbs(abs)
		return c.Catalog.ModifyDataObjectAVU(ctx, dir, base, avu.Attribute, avu.Value, units, remove)
	case pathresolve.Collection:
		return c.Catalog.ModifyCollectionAVU(ctx, abs, avu.Attribute, avu.Value, units, remove)
	default:
		return bferrors.NewNotFoundError(abs)
	}
}

// ModifyPermissions implements modify-permissions (chmod): iterates
// target.access, invoking the permission mutator for each entry.
// RECURSIVE propagates to the subtree when target is a collection.
func (c *Context) ModifyPermissions(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	path := targetPath(t)
	abs, kind, err := c.Resolver.Resolve(ctx, c.Env, path)
	if err != nil {
		return nil, err
	}
	recursive := flags.Has(Recursive) && kind == pathresolve.Collection
	for _, a := range t.Access {
		if recursive {
			if err := c.Catalog.ModifyAccessSubtree(ctx, abs, a.Owner, a.Zone, a.Level); err != nil {
				return nil, err
			}
			continue
		}
		if err := c.Catalog.ModifyAccess(ctx, abs, a.Owner, a.Zone, a.Level); err != nil {
			return nil, err
		}
	}
	c.Resolver.Invalidate(ctx, abs)
	return marshal(t)
}
