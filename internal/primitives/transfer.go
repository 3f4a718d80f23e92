// Copyright 2025 James Ross
package primitives

import (
	"context"
	"io"
	"os"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
)

type getResult struct {
	Collection string `json:"collection"`
	DataObject string `json:"data_object"`
	Contents   string `json:"contents,omitempty"`
	Size       int    `json:"size,omitempty"`
}

// Get implements get: SAVE_FILES writes to a local file, PRINT_RAW copies
// bytes to stdout, the default mode returns a JSON record bounded by
// bufferSize (spec §4.4).
func (c *Context) Get(ctx context.Context, t envelope.Target, flags FlagSet, bufferSize int64, stdout io.Writer) ([]byte, error) {
	abs, err := c.requireKind(ctx, t, pathresolve.DataObject, "cannot get a non-data-object")
	if err != nil {
		return nil, err
	}
	dir, base := splitAbs(abs)
	data, err := c.ObjectStore.Get(ctx, dir, base, bufferSize)
	if err != nil {
		return nil, err
	}

	switch {
	case flags.Has(PrintRaw):
		if _, err := stdout.Write(data); err != nil {
			return nil, bferrors.NewOperationError("get", abs, err)
		}
		return nil, nil
	case flags.Has(SaveFiles):
		if t.Directory == "" || t.File == "" {
			return nil, bferrors.NewValidationError("target", t, "get with save_files requires target.directory and target.file")
		}
		if err := os.WriteFile(t.Directory+"/"+t.File, data, 0o644); err != nil {
			return nil, bferrors.NewOperationError("get", abs, err)
		}
		return marshal(t)
	default:
		r := getResult{Collection: dir, DataObject: base, Size: len(data)}
		if flags.Has(PrintContents) {
			r.Contents = string(data)
		}
		return marshal(r)
	}
}

// Put implements put/write: reads a local file and uploads it. write is
// the single-server fallback selected by SINGLE_SERVER. Both honor FORCE
// and CALCULATE_CHECKSUM/PRINT_CHECKSUM.
func (c *Context) Put(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	if t.Collection == "" || t.DataObject == "" {
		return nil, bferrors.NewValidationError("target", t, "put requires target.collection and target.data_object")
	}
	if t.Directory == "" || t.File == "" {
		return nil, bferrors.NewValidationError("target", t, "put requires target.directory and target.file")
	}
	local := t.Directory + "/" + t.File
	f, err := os.Open(local)
	if err != nil {
		return nil, bferrors.NewOperationError("put", local, err)
	}
	defer f.Close()

	if !flags.Has(Force) {
		if _, kind, err := c.Resolver.Resolve(ctx, c.Env, t.Collection+"/"+t.DataObject); err == nil && kind == pathresolve.DataObject {
			return nil, bferrors.NewValidationError("target", t, "data object already exists")
		}
	}

	if flags.Has(SingleServer) {
		err = c.ObjectStore.PutSingleStream(ctx, t.Collection, t.DataObject, f)
	} else {
		err = c.ObjectStore.Put(ctx, t.Collection, t.DataObject, f)
	}
	if err != nil {
		return nil, err
	}
	c.Resolver.Invalidate(ctx, t.Collection+"/"+t.DataObject)

	if flags.Has(CalculateChecksum) || flags.Has(PrintChecksum) {
		sum, err := c.ObjectStore.Checksum(ctx, t.Collection, t.DataObject)
		if err != nil {
			return nil, err
		}
		if flags.Has(PrintChecksum) {
			return marshal(checksumResult{Collection: t.Collection, DataObject: t.DataObject, Checksum: sum})
		}
	}
	return marshal(t)
}

// Move implements move: renames to arguments.path, passed in via newPath.
func (c *Context) Move(ctx context.Context, t envelope.Target, newPath string) ([]byte, error) {
	abs, err := c.requireKind(ctx, t, pathresolve.DataObject, "cannot move a non-data-object")
	if err != nil {
		return nil, err
	}
	if newPath == "" {
		return nil, bferrors.NewValidationError("arguments.path", newPath, "move requires arguments.path")
	}
	srcDir, srcBase := splitAbs(abs)
	dstAbs, _, err := c.Resolver.Resolve(ctx, c.Env, newPath)
	if err != nil {
		return nil, err
	}
	dstDir, dstBase := splitAbs(dstAbs)

	if err := c.ObjectStore.Move(ctx, srcDir, srcBase, dstDir, dstBase); err != nil {
		return nil, err
	}
	c.Resolver.Invalidate(ctx, abs)
	c.Resolver.Invalidate(ctx, dstAbs)
	return marshal(t)
}

// Remove implements remove: data-object only. FORCE permanently deletes;
// without FORCE the object is relocated to the zone's trash collection
// (iRODS-style soft delete, mirrored here as a same-store move rather than
// an actual unlink).
func (c *Context) Remove(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	abs, err := c.requireKind(ctx, t, pathresolve.DataObject, "cannot remove a non-data-object")
	if err != nil {
		return nil, err
	}
	dir, base := splitAbs(abs)

	if flags.Has(Force) {
		if err := c.ObjectStore.Remove(ctx, dir, base); err != nil {
			return nil, err
		}
		c.Resolver.Invalidate(ctx, abs)
		return marshal(t)
	}

	trashDir := "/" + c.Env.Zone + "/trash/home/" + c.Env.Username + dir
	if err := c.ObjectStore.Move(ctx, dir, base, trashDir, base); err != nil {
		return nil, err
	}
	c.Resolver.Invalidate(ctx, abs)
	c.Resolver.Invalidate(ctx, trashDir+"/"+base)
	return marshal(t)
}
