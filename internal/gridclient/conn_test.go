// Copyright 2025 James Ross
package gridclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jamesross/dgrid-batch/internal/breaker"
)

func TestConnectionRecordFeedsBreaker(t *testing.T) {
	c := &Connection{
		breaker: breaker.New(time.Minute, time.Second, 0.5, 1),
		state:   stateClosed,
	}
	c.Record(true)
	assert.Equal(t, breaker.Closed, c.breaker.State())
}

func TestEnvironmentAccessor(t *testing.T) {
	c := &Connection{env: Environment{Host: "h", Zone: "z"}}
	assert.Equal(t, "h", c.Environment().Host)
	assert.Equal(t, "z", c.Environment().Zone)
}

func TestOpenLockedStampsOpenedAt(t *testing.T) {
	c := &Connection{maxConnect: time.Minute}
	assert.NoError(t, c.openLocked())
	assert.Equal(t, stateOpen, c.state)
	assert.WithinDuration(t, time.Now(), c.openedAt, time.Second)
}

func TestCloseLockedResetsState(t *testing.T) {
	c := &Connection{state: stateOpen}
	c.closeLocked()
	assert.Equal(t, stateClosed, c.state)
}
