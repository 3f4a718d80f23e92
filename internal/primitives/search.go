// Copyright 2025 James Ross
package primitives

import (
	"context"

	"github.com/jamesross/dgrid-batch/internal/catalog"
	"github.com/jamesross/dgrid-batch/internal/envelope"
)

type searchMatch struct {
	Collection string `json:"collection"`
	DataObject string `json:"data_object,omitempty"`
}

// SearchMetadata implements search-metadata: two queries (collections,
// then data objects), concatenated in that order (spec §4.4, §5 ordering
// guarantee ii).
func (c *Context) SearchMetadata(ctx context.Context, t envelope.Target, flags FlagSet) ([]byte, error) {
	var conds []catalog.Condition
	var attr, value, operator string
	if len(t.AVUs) > 0 {
		attr = t.AVUs[0].Attribute
		value = t.AVUs[0].Value
		operator = t.AVUs[0].Operator
	}

	var matches []searchMatch

	if !flags.Has(SearchObjects) || flags.Has(SearchCollections) {
		conds = catalog.SearchCollectionsByAVUConditions(attr, value, operator)
		if t.Collection != "" {
			conds = append(conds, catalog.RestrictToSubtreeCondition(t.Collection))
		}
		q := catalog.MakeQuery(pageSize, []catalog.Projection{{Column: catalog.CollName, Label: "collection"}})
		catalog.AddQualifier(q, string(catalog.ZoneName), c.Env.Zone)
		if _, err := catalog.AddConditions(q, conds); err != nil {
			return nil, err
		}
		rows, err := c.Catalog.Run(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			matches = append(matches, searchMatch{Collection: r["collection"]})
		}
	}

	if !flags.Has(SearchCollections) || flags.Has(SearchObjects) {
		conds = catalog.SearchDataObjectsByAVUConditions(attr, value, operator)
		if t.Collection != "" {
			conds = append(conds, catalog.RestrictToSubtreeCondition(t.Collection))
		}
		q := catalog.MakeQuery(pageSize, []catalog.Projection{
			{Column: catalog.CollName, Label: "collection"},
			{Column: catalog.DataName, Label: "data_object"},
		})
		catalog.AddQualifier(q, string(catalog.ZoneName), c.Env.Zone)
		if _, err := catalog.AddConditions(q, conds); err != nil {
			return nil, err
		}
		rows, err := c.Catalog.Run(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			matches = append(matches, searchMatch{Collection: r["collection"], DataObject: r["data_object"]})
		}
	}

	if matches == nil {
		matches = []searchMatch{}
	}
	return marshal(matches)
}
