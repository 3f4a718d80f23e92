// Copyright 2025 James Ross
package pathresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamesross/dgrid-batch/internal/gridclient"
)

func TestNormalizeAbsolute(t *testing.T) {
	env := gridclient.Environment{DefaultCollection: "/tempZone/home/alice"}
	assert.Equal(t, "/a/b", normalize(env, "/a/b"))
}

func TestNormalizeRelative(t *testing.T) {
	env := gridclient.Environment{DefaultCollection: "/tempZone/home/alice"}
	assert.Equal(t, "/tempZone/home/alice/data.txt", normalize(env, "data.txt"))
}

func TestNormalizeCleansDotSegments(t *testing.T) {
	env := gridclient.Environment{DefaultCollection: "/tempZone/home/alice"}
	assert.Equal(t, "/tempZone/home/alice/sub", normalize(env, "./x/../sub"))
}
