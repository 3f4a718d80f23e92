// Copyright 2025 James Ross
package primitives

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesross/dgrid-batch/internal/envelope"
	"github.com/jamesross/dgrid-batch/internal/gridclient"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsStoredBytes(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	store := newFakeObjectStore()
	store.objects["/z/home/u/f1"] = []byte("contents")
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: store, Resolver: resolver}

	out, err := c.Get(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1"}, FlagSet(0), 1024, nil)
	require.NoError(t, err)

	var result getResult
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, len("contents"), result.Size)
}

func TestGetExceedingBufferSizeErrors(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	store := newFakeObjectStore()
	store.objects["/z/home/u/f1"] = []byte("too much data")
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: store, Resolver: resolver}

	_, err := c.Get(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1"}, FlagSet(0), 2, nil)
	require.Error(t, err)
}

func TestPutUploadsLocalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f1"), []byte("payload"), 0o644))

	resolver := newFakeResolver()
	store := newFakeObjectStore()
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: store, Resolver: resolver}

	_, err := c.Put(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1", Directory: dir, File: "f1"}, FlagSet(0))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), store.objects["/z/home/u/f1"])
	assert.Equal(t, 1, store.multipartCalls)
	assert.Equal(t, 0, store.singleStreamCalls)
	assert.Contains(t, resolver.invalidated, "/z/home/u/f1")
}

func TestPutWithSingleServerUsesSingleStream(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f1"), []byte("payload"), 0o644))

	store := newFakeObjectStore()
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: store, Resolver: newFakeResolver()}

	_, err := c.Put(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1", Directory: dir, File: "f1"}, NewFlagSet(SingleServer))
	require.NoError(t, err)
	assert.Equal(t, 1, store.singleStreamCalls)
	assert.Equal(t, 0, store.multipartCalls)
}

func TestPutWithoutForceRejectsExistingDataObject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f1"), []byte("payload"), 0o644))

	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: newFakeObjectStore(), Resolver: resolver}

	_, err := c.Put(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1", Directory: dir, File: "f1"}, FlagSet(0))
	require.Error(t, err)
}

func TestPutWithForceOverwritesExistingDataObject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f1"), []byte("new"), 0o644))

	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	store := newFakeObjectStore()
	store.objects["/z/home/u/f1"] = []byte("old")
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: store, Resolver: resolver}

	_, err := c.Put(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1", Directory: dir, File: "f1"}, NewFlagSet(Force))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), store.objects["/z/home/u/f1"])
}

func TestMoveRenamesAndInvalidatesBothPaths(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	resolver.set("/z/home/u/f2", "/z/home/u/f2", pathresolve.Absent)
	store := newFakeObjectStore()
	store.objects["/z/home/u/f1"] = []byte("data")
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: store, Resolver: resolver}

	_, err := c.Move(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1"}, "/z/home/u/f2")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), store.objects["/z/home/u/f2"])
	assert.Contains(t, resolver.invalidated, "/z/home/u/f1")
	assert.Contains(t, resolver.invalidated, "/z/home/u/f2")
}

func TestRemoveWithForceDeletesPermanently(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	store := newFakeObjectStore()
	store.objects["/z/home/u/f1"] = []byte("data")
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: store, Resolver: resolver, Env: gridclient.Environment{Zone: "z", Username: "u"}}

	_, err := c.Remove(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1"}, NewFlagSet(Force))
	require.NoError(t, err)
	assert.Empty(t, store.moveCalls)
	assert.Contains(t, store.removeCalls, "/z/home/u/f1")
	_, stillThere := store.objects["/z/home/u/f1"]
	assert.False(t, stillThere)
}

func TestRemoveWithoutForceRelocatesToTrash(t *testing.T) {
	resolver := newFakeResolver()
	resolver.set("/z/home/u/f1", "/z/home/u/f1", pathresolve.DataObject)
	store := newFakeObjectStore()
	store.objects["/z/home/u/f1"] = []byte("data")
	c := &Context{Catalog: &fakeCatalog{}, ObjectStore: store, Resolver: resolver, Env: gridclient.Environment{Zone: "z", Username: "u"}}

	_, err := c.Remove(context.Background(), envelope.Target{Collection: "/z/home/u", DataObject: "f1"}, FlagSet(0))
	require.NoError(t, err)
	require.Len(t, store.moveCalls, 1)
	assert.Equal(t, "/z/trash/home/u/z/home/u", store.moveCalls[0].dstColl)
	assert.Equal(t, []byte("data"), store.objects["/z/trash/home/u/z/home/u/f1"])
	assert.Empty(t, store.removeCalls)
}
