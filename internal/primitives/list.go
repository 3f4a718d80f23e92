// Copyright 2025 James Ross
package primitives

import (
	"context"
	"strconv"
	"time"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/catalog"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
)

// replicaEntry is one row of a data object's replica info. The object
// store backing this module is a single S3-compatible bucket rather than
// iRODS's multi-resource replication, so there is always exactly one
// replica; it is still reported under its own resource name so PRINT_REPLICATE
// output has the shape a multi-replica backend would produce.
type replicaEntry struct {
	Resource string `json:"resource"`
	Number   int    `json:"number"`
	Status   string `json:"status"`
}

// dataObjectEntry is the record list-path returns for a data-object
// target, enriched per the PRINT_* flags (spec §4.4).
type dataObjectEntry struct {
	Collection string            `json:"collection"`
	DataObject string            `json:"data_object"`
	Checksum   string            `json:"checksum,omitempty"`
	Size       string            `json:"size,omitempty"`
	Timestamp  string            `json:"timestamp,omitempty"`
	AVUs       []envelope.AVU    `json:"avus,omitempty"`
	ACL        []envelope.Access `json:"acl,omitempty"`
	Replicate  []replicaEntry    `json:"replicate,omitempty"`
}

// ListPath implements the list-path primitive.
func (c *Context) ListPath(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	path := targetPath(t)
	abs, kind, err := c.Resolver.Resolve(ctx, c.Env, path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case pathresolve.DataObject:
		dir, base := splitAbs(abs)
		entry := dataObjectEntry{Collection: dir, DataObject: base}
		if flags.Has(PrintChecksum) {
			sum, err := c.ObjectStore.Checksum(ctx, dir, base)
			if err != nil {
				return nil, err
			}
			entry.Checksum = sum
		}
		if flags.Has(PrintAVU) {
			avus, err := c.listDataObjectAVUs(ctx, dir, base, "")
			if err != nil {
				return nil, err
			}
			entry.AVUs = avus
		}
		if flags.Has(PrintSize) || flags.Has(PrintTimestamp) {
			size, modTime, err := c.ObjectStore.Stat(ctx, dir, base)
			if err != nil {
				return nil, err
			}
			if flags.Has(PrintSize) {
				entry.Size = strconv.FormatInt(size, 10)
			}
			if flags.Has(PrintTimestamp) {
				entry.Timestamp = modTime.UTC().Format(time.RFC3339)
			}
		}
		if flags.Has(PrintACL) {
			rows, err := c.Catalog.ListAccess(ctx, abs)
			if err != nil {
				return nil, err
			}
			entry.ACL = make([]envelope.Access, 0, len(rows))
			for _, r := range rows {
				entry.ACL = append(entry.ACL, envelope.Access{Owner: r.Owner, Zone: r.Zone, Level: r.Level})
			}
		}
		if flags.Has(PrintReplicate) {
			entry.Replicate = []replicaEntry{{Resource: c.Env.DefaultResource, Number: 0, Status: "current"}}
		}
		return marshal(entry)
	case pathresolve.Collection:
		q := catalog.MakeQuery(pageSize, []catalog.Projection{
			{Column: catalog.CollName, Label: "collection"},
			{Column: catalog.DataName, Label: "data_object"},
		})
		catalog.AddQualifier(q, string(catalog.ZoneName), c.Env.Zone)
		rows, err := c.runQuery(ctx, q, catalog.Condition{Column: catalog.CollName, Operator: "=", Literal: abs})
		if err != nil {
			return nil, err
		}
		entries := make([]dataObjectEntry, 0, len(rows))
		for _, r := range rows {
			if r["data_object"] == "" {
				continue
			}
			entries = append(entries, dataObjectEntry{Collection: r["collection"], DataObject: r["data_object"]})
		}
		return marshal(entries)
	default:
		return nil, bferrors.NewNotFoundError(abs)
	}
}

const pageSize = 500

func (c *Context) runQuery(ctx context.Context, q *catalog.Query, extra catalog.Condition) ([]catalog.Row, error) {
	if _, err := catalog.AddConditions(q, []catalog.Condition{extra}); err != nil {
		return nil, err
	}
	return c.Catalog.Run(ctx, q)
}

func (c *Context) listDataObjectAVUs(ctx context.Context, collPath, dataName, attr string) ([]envelope.AVU, error) {
	q := catalog.MakeQuery(pageSize, []catalog.Projection{
		{Column: catalog.MetaDataAttrName, Label: "attribute"},
		{Column: catalog.MetaDataAttrVal, Label: "value"},
		{Column: catalog.MetaDataAttrUnit, Label: "units"},
	})
	catalog.AddQualifier(q, string(catalog.ZoneName), c.Env.Zone)
	if _, err := catalog.AddConditions(q, catalog.ListMetadataDataObjectConditions(collPath, dataName, attr)); err != nil {
		return nil, err
	}
	rows, err := c.Catalog.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	return avuRowsToAVUs(rows), nil
}

func (c *Context) listCollectionAVUs(ctx context.Context, collPath, attr string) ([]envelope.AVU, error) {
	q := catalog.MakeQuery(pageSize, []catalog.Projection{
		{Column: catalog.MetaCollAttrName, Label: "attribute"},
		{Column: catalog.MetaCollAttrVal, Label: "value"},
		{Column: catalog.MetaCollAttrUnit, Label: "units"},
	})
	catalog.AddQualifier(q, string(catalog.ZoneName), c.Env.Zone)
	if _, err := catalog.AddConditions(q, catalog.ListMetadataCollectionConditions(collPath, attr)); err != nil {
		return nil, err
	}
	rows, err := c.Catalog.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	return avuRowsToAVUs(rows), nil
}

// ListMetadata implements the list-metadata primitive.
func (c *Context) ListMetadata(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	path := targetPath(t)
	abs, kind, err := c.Resolver.Resolve(ctx, c.Env, path)
	if err != nil {
		return nil, err
	}
	var attr string
	if len(t.AVUs) > 0 {
		attr = t.AVUs[0].Attribute
	}
	switch kind {
	case pathresolve.DataObject:
		dir, base := splitAbs(abs)
		avus, err := c.listDataObjectAVUs(ctx, dir, base, attr)
		if err != nil {
			return nil, err
		}
		return marshal(avus)
	case pathresolve.Collection:
		avus, err := c.listCollectionAVUs(ctx, abs, attr)
		if err != nil {
			return nil, err
		}
		return marshal(avus)
	default:
		return nil, bferrors.NewNotFoundError(abs)
	}
}
