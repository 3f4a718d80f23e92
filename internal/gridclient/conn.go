// Copyright 2025 James Ross
package gridclient

import (
	"context"
	"sync"
	"time"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/breaker"
	"github.com/jamesross/dgrid-batch/internal/catalog"
	"github.com/jamesross/dgrid-batch/internal/config"
	"github.com/jamesross/dgrid-batch/internal/obs"
	"github.com/jamesross/dgrid-batch/internal/objectstore"
)

// state is the Connection's lifecycle state (spec §9, "Connection
// lifecycle as a small state machine": Closed -> Opening -> Open(t0) ->
// Open(t0, now > t0+T => Recycle) -> Closed).
type state int

const (
	stateClosed state = iota
	stateOpening
	stateOpen
)

// Connection is the single, serially reused backend handle the Stream Loop
// holds across the batch. Primitives only ever see the Catalog and
// ObjectStore clients of a handle borrowed via Handle; they never open or
// close one themselves.
type Connection struct {
	mu sync.Mutex

	cfg     *config.Config
	env     Environment
	breaker *breaker.CircuitBreaker

	state      state
	openedAt   time.Time
	maxConnect time.Duration

	Catalog     *catalog.Executor
	ObjectStore *objectstore.Store
}

// New builds a Connection in the Closed state. No backend I/O happens
// until the first Open.
func New(cfg *config.Config, env Environment) (*Connection, error) {
	exec, err := catalog.NewExecutor(cfg.Catalog.DSN, cfg.Catalog.Table)
	if err != nil {
		return nil, err
	}
	store, err := objectstore.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Connection{
		cfg:        cfg,
		env:        env,
		breaker:     breaker.New(cfg.CircuitBreaker.Window, cfg.CircuitBreaker.CooldownPeriod, cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.MinSamples),
		state:       stateClosed,
		maxConnect:  cfg.Grid.MaxConnectTime,
		Catalog:     exec,
		ObjectStore: store,
	}, nil
}

// Handle borrows the connection for one primitive call, opening or
// recycling it first if required. Every primitive goes through Handle
// rather than touching state fields directly.
func (c *Connection) Handle(ctx context.Context) (*Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.breaker.Allow() {
		return nil, bferrors.NewConnectionError(c.env.Host, c.env.Port, bferrors.ErrConnectionFailed)
	}

	if c.state == stateOpen && c.maxConnect > 0 && time.Since(c.openedAt) > c.maxConnect {
		c.closeLocked()
	}
	if c.state != stateOpen {
		if err := c.openLocked(); err != nil {
			c.breaker.Record(false)
			return nil, err
		}
	}
	return c, nil
}

// Record reports the outcome of the primitive call that just ran against a
// borrowed handle, feeding the circuit breaker.
func (c *Connection) Record(ok bool) {
	before := c.breaker.State()
	c.breaker.Record(ok)
	after := c.breaker.State()
	if after == breaker.Open && before != breaker.Open {
		obs.CircuitBreakerTrips.Inc()
	}
	obs.CircuitBreakerState.Set(float64(after))
}

func (c *Connection) openLocked() error {
	c.state = stateOpening
	// Login against the grid is modeled as reachability of the catalog and
	// object store; both are dialed lazily by their drivers, so Open only
	// marks the handle live and stamps its open time.
	c.state = stateOpen
	c.openedAt = time.Now()
	obs.ConnectionOpens.Inc()
	return nil
}

func (c *Connection) closeLocked() {
	if c.state == stateOpen {
		obs.ConnectionReconnects.Inc()
	}
	c.state = stateClosed
}

// Close tears the connection down for good, releasing the catalog and
// object store clients. Called once at Stream Loop shutdown.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateClosed
	return c.Catalog.Close()
}

// Environment returns the environment this connection was opened for.
func (c *Connection) Environment() Environment { return c.env }
