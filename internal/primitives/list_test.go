// Copyright 2025 James Ross
package primitives

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jamesross/dgrid-batch/internal/catalog"
	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/gridclient"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPathDataObjectPopulatesEveryPrintFlag(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)

	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := newFakeObjectStore()
	store.objects["/z/home/u/f1"] = []byte("hello")
	store.modTimes["/z/home/u/f1"] = stamp
	store.checksum = "abc123"

	cat := &fakeCatalog{
		rows: []catalog.Row{{"attribute": "a1", "value": "v1", "units": "u1"}},
		access: map[string][]catalog.AccessEntry{
			"/z/home/u/f1": {{Owner: "alice", Zone: "z", Level: "read"}},
		},
	}

	c := &Context{Catalog: cat, ObjectStore: store, Resolver: resolver}
	flags := NewFlagSet(PrintChecksum, PrintAVU, PrintSize, PrintTimestamp, PrintACL, PrintReplicate)

	out, err := c.ListPath(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1"}, flags)
	require.NoError(t, err)

	var entry dataObjectEntry
	require.NoError(t, json.Unmarshal(out, &entry))
	assert.Equal(t, "abc123", entry.Checksum)
	assert.Equal(t, "5", entry.Size)
	assert.Equal(t, stamp.Format(time.RFC3339), entry.Timestamp)
	require.Len(t, entry.AVUs, 1)
	assert.Equal(t, "a1", entry.AVUs[0].Attribute)
	require.Len(t, entry.ACL, 1)
	assert.Equal(t, "alice", entry.ACL[0].Owner)
	require.Len(t, entry.Replicate, 1)
}

func TestListPathDataObjectWithNoFlagsPopulatesNothing(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: newFakeObjectStore(), Resolver: resolver}

	out, err := c.ListPath(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1"}, FlagSet(0))
	require.NoError(t, err)

	var entry dataObjectEntry
	require.NoError(t, json.Unmarshal(out, &entry))
	assert.Empty(t, entry.Checksum)
	assert.Empty(t, entry.Size)
	assert.Nil(t, entry.ACL)
}

func TestListPathCollectionListsDataObjects(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u", "/z/home/u", pathresolve.Collection)
	cat := &fakeCatalog{rows: []catalog.Row{
		{"collection": "/z/home/u", "data_object": "f1"},
		{"collection": "/z/home/u", "data_object": "f2"},
		{"collection": "/z/home/u", "data_object": ""},
	}}
	c := &Context{Catalog: cat, ObjectStore: newFakeObjectStore(), Resolver: resolver, Env: gridclient.Environment{Zone: "z1"}}

	out, err := c.ListPath(context.Background(), envelope.Target{Collection: "/z/home/u"}, FlagSet(0))
	require.NoError(t, err)

	var entries []dataObjectEntry
	require.NoError(t, json.Unmarshal(out, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "f1", entries[0].DataObject)
	assert.Equal(t, "z1", cat.lastQuery.Qualifiers["ZONE_NAME"])
}

func TestListPathAbsentReturnsNotFound(t *testing.T) {
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: newFakeObjectStore(), Resolver: newFakeResolver()}
	_, err := c.ListPath(context.Background(), envelope.Target{Collection: "/z/home/u/missing"}, FlagSet(0))
	require.Error(t, err)
}

func TestListMetadataDataObject(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	cat := &fakeCatalog{rows: []catalog.Row{{"attribute": "a1", "value": "v1"}}}
	c := &Context{Catalog: cat, ObjectStore: newFakeObjectStore(), Resolver: resolver}

	out, err := c.ListMetadata(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1"}, FlagSet(0))
	require.NoError(t, err)

	var avus []envelope.AVU
	require.NoError(t, json.Unmarshal(out, &avus))
	require.Len(t, avus, 1)
	assert.Equal(t, "a1", avus[0].Attribute)
}

func TestListMetadataCollectionFiltersByAttribute(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u", "/z/home/u", pathresolve.Collection)
	cat := &fakeCatalog{rows: []catalog.Row{{"attribute": "a1", "value": "v1"}}}
	c := &Context{Catalog: cat, ObjectStore: newFakeObjectStore(), Resolver: resolver}

	_, err := c.ListMetadata(context.Background(), envelope.Target{Collection: "/z/home/u", AVUs: []envelope.AVU{{Attribute: "a1"}}}, FlagSet(0))
	require.NoError(t, err)
	assert.Equal(t, catalog.MetaCollAttrName, cat.lastQuery.Conditions[len(cat.lastQuery.Conditions)-1].Column)
}
