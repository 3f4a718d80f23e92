// Copyright 2025 James Ross
package eventhooks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamesross/dgrid-batch/internal/config"
)

func TestNewDisabledReturnsNilPublisher(t *testing.T) {
	cfg := &config.Config{}
	p, err := New(cfg, nil)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestPublishOnNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() { p.Publish(Event{Operation: "move"}) })
}

func TestCloseOnNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Close())
}
