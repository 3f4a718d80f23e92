// Copyright 2025 James Ross
package primitives

import (
	"context"
	"io"
	"time"

	"github.com/jamesross/dgrid-batch/internal/catalog"
	"github.com/jamesross/dgrid-batch/internal/gridclient"
	"github.com/jamesross/dgrid-batch/internal/pathresolve"
)

// fakeCatalog is an in-memory stand-in for *catalog.Executor: rows are
// seeded directly rather than reconstructing render()'s SQL, since the
// primitives under test never see the query text.
type fakeCatalog struct {
	rows        []catalog.Row
	runErr      error
	lastQuery   *catalog.Query
	access      map[string][]catalog.AccessEntry
	accessCalls []accessCall
	avuCalls    []avuCall
	createColls []string
	removeColls []string
}

type accessCall struct {
	kind                    string // "single" or "subtree"
	path, owner, zone, level string
}

type avuCall struct {
	kind    string // "data" or "coll"
	coll    string
	name    string
	attr    string
	value   string
	units   string
	remove  bool
}

func (f *fakeCatalog) Run(_ context.Context, q *catalog.Query) ([]catalog.Row, error) {
	f.lastQuery = q
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.rows, nil
}

func (f *fakeCatalog) ModifyDataObjectAVU(_ context.Context, collPath, dataName, attr, value, units string, remove bool) error {
	f.avuCalls = append(f.avuCalls, avuCall{kind: "data", coll: collPath, name: dataName, attr: attr, value: value, units: units, remove: remove})
	return nil
}

func (f *fakeCatalog) ModifyCollectionAVU(_ context.Context, collPath, attr, value, units string, remove bool) error {
	f.avuCalls = append(f.avuCalls, avuCall{kind: "coll", coll: collPath, attr: attr, value: value, units: units, remove: remove})
	return nil
}

func (f *fakeCatalog) CreateCollection(_ context.Context, collPath string) error {
	f.createColls = append(f.createColls, collPath)
	return nil
}

func (f *fakeCatalog) RemoveCollection(_ context.Context, collPath string) error {
	f.removeColls = append(f.removeColls, collPath)
	return nil
}

func (f *fakeCatalog) ModifyAccess(_ context.Context, path, owner, zone, level string) error {
	f.accessCalls = append(f.accessCalls, accessCall{kind: "single", path: path, owner: owner, zone: zone, level: level})
	return nil
}

func (f *fakeCatalog) ModifyAccessSubtree(_ context.Context, rootPath, owner, zone, level string) error {
	f.accessCalls = append(f.accessCalls, accessCall{kind: "subtree", path: rootPath, owner: owner, zone: zone, level: level})
	return nil
}

func (f *fakeCatalog) ListAccess(_ context.Context, path string) ([]catalog.AccessEntry, error) {
	return f.access[path], nil
}

// fakeObjectStore is an in-memory stand-in for *objectstore.Store, keyed
// the same way the real store keys S3 objects (collection/dataObject).
type fakeObjectStore struct {
	objects  map[string][]byte
	modTimes map[string]time.Time
	checksum string
	putErr   error

	singleStreamCalls int
	multipartCalls    int
	moveCalls         []moveCall
	removeCalls       []string
}

type moveCall struct {
	srcColl, srcObj, dstColl, dstObj string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, modTimes: map[string]time.Time{}}
}

func objKey(collection, dataObject string) string {
	if collection == "" {
		return dataObject
	}
	return collection + "/" + dataObject
}

func (f *fakeObjectStore) Put(_ context.Context, collection, dataObject string, r io.Reader) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.multipartCalls++
	f.objects[objKey(collection, dataObject)] = b
	return nil
}

func (f *fakeObjectStore) PutSingleStream(_ context.Context, collection, dataObject string, r io.ReadSeeker) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.singleStreamCalls++
	f.objects[objKey(collection, dataObject)] = b
	return nil
}

func (f *fakeObjectStore) Get(_ context.Context, collection, dataObject string, bufferSize int64) ([]byte, error) {
	b := f.objects[objKey(collection, dataObject)]
	if int64(len(b)) > bufferSize {
		return nil, errBufferExceeded
	}
	return b, nil
}

func (f *fakeObjectStore) Move(_ context.Context, srcColl, srcObj, dstColl, dstObj string) error {
	f.moveCalls = append(f.moveCalls, moveCall{srcColl, srcObj, dstColl, dstObj})
	srcKey, dstKey := objKey(srcColl, srcObj), objKey(dstColl, dstObj)
	f.objects[dstKey] = f.objects[srcKey]
	delete(f.objects, srcKey)
	return nil
}

func (f *fakeObjectStore) Remove(_ context.Context, collection, dataObject string) error {
	f.removeCalls = append(f.removeCalls, objKey(collection, dataObject))
	delete(f.objects, objKey(collection, dataObject))
	return nil
}

func (f *fakeObjectStore) Stat(_ context.Context, collection, dataObject string) (int64, time.Time, error) {
	key := objKey(collection, dataObject)
	return int64(len(f.objects[key])), f.modTimes[key], nil
}

func (f *fakeObjectStore) Checksum(_ context.Context, collection, dataObject string) (string, error) {
	return f.checksum, nil
}

var errBufferExceeded = &bufferExceededErr{}

type bufferExceededErr struct{}

func (*bufferExceededErr) Error() string { return "object exceeds configured buffer_size" }

// fakeResolver is a scripted stand-in for *pathresolve.Resolver: tests
// register the (absolute, kind) a given raw path resolves to, rather than
// exercising normalization or caching (covered by pathresolve's own tests).
type fakeResolver struct {
	resolved    map[string]resolved
	defaultErr  error
	invalidated []string
}

type resolved struct {
	abs  string
	kind pathresolve.Kind
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{resolved: map[string]resolved{}}
}

func (f *fakeResolver) set(raw, abs string, kind pathresolve.Kind) {
	f.resolved[raw] = resolved{abs: abs, kind: kind}
}

func (f *fakeResolver) Resolve(_ context.Context, _ gridclient.Environment, raw string) (string, pathresolve.Kind, error) {
	if f.defaultErr != nil {
		return "", pathresolve.Absent, f.defaultErr
	}
	if r, ok := f.resolved[raw]; ok {
		return r.abs, r.kind, nil
	}
	return raw, pathresolve.Absent, nil
}

func (f *fakeResolver) Invalidate(_ context.Context, absolute string) {
	f.invalidated = append(f.invalidated, absolute)
}
