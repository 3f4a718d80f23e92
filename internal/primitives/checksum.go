// Copyright 2025 James Ross
package primitives

import (
	"context"

	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
)

type checksumResult struct {
	Collection string `json:"collection"`
	DataObject string `json:"data_object"`
	Checksum   string `json:"checksum"`
}

// Checksum implements checksum: data-object only (spec §4.4, scenario S4).
func (c *Context) Checksum(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	abs, err := c.requireKind(ctx, t, pathresolve.DataObject, "cannot checksum a non-data-object")
	if err != nil {
		return nil, err
	}
	dir, base := splitAbs(abs)
	sum, err := c.ObjectStore.Checksum(ctx, dir, base)
	if err != nil {
		return nil, err
	}
	return marshal(checksumResult{Collection: dir, DataObject: base, Checksum: sum})
}
