package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
	"github.com/Mamadi-exe/Snoofit/internal/sensing"
	"github.com/Mamadi-exe/Snoofit/internal/store"
)

// Sensing modes.
const (
	SensingOff       = ""
	SensingSimulated = "simulated"
	SensingDevice    = "device"
)

type RegistryConfig struct {
	SensingMode   string
	Intervals     sensing.Intervals
	ActivityLimit int
	// Clock overrides the engines' time source. Nil uses wall time.
	Clock engine.Clock
}

// Player is one loaded engine together with its sensing pipeline.
type Player struct {
	Engine *engine.Engine
	// Device is set only in device sensing mode.
	Device *sensing.Device
}

// Registry keeps one engine per player, restoring it from the store on
// first use and writing changed engines back on Flush.
type Registry struct {
	store  *store.Store
	broker *Broker
	relay  *RedisRelay
	cfg    RegistryConfig
	logger *slog.Logger

	mu      sync.RWMutex
	players map[string]*Player
	closed  bool
	loading singleflight.Group

	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	drivers sync.WaitGroup
}

// NewRegistry creates a registry. relay may be nil.
func NewRegistry(st *store.Store, broker *Broker, relay *RedisRelay, cfg RegistryConfig, logger *slog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:   st,
		broker:  broker,
		relay:   relay,
		cfg:     cfg,
		logger:  logger,
		players: make(map[string]*Player),
		dirty:   make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ErrRegistryClosed is returned once Close has started.
var ErrRegistryClosed = errors.New("player registry closed")

// Get returns the loaded player, restoring or creating its engine.
// Concurrent first requests for one player share a single load, and loads
// for different players do not wait on each other.
func (r *Registry) Get(ctx context.Context, id engine.Player) (*Player, error) {
	r.mu.RLock()
	p, ok := r.players[id.ID]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := r.loading.Do(id.ID, func() (any, error) {
		return r.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Player), nil
}

// Lookup returns a player that has already been loaded or persisted. It
// never creates a new one.
func (r *Registry) Lookup(ctx context.Context, playerID string) (*Player, error) {
	r.mu.RLock()
	p, ok := r.players[playerID]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	snap, err := r.store.LoadState(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, snap.Player)
}

func (r *Registry) load(ctx context.Context, id engine.Player) (*Player, error) {
	r.mu.RLock()
	p, ok := r.players[id.ID]
	closed := r.closed
	r.mu.RUnlock()
	if ok {
		return p, nil
	}
	if closed {
		return nil, ErrRegistryClosed
	}

	opts := []engine.Option{
		engine.WithLogger(r.logger),
		engine.WithListener(r.listener(id.ID)),
		engine.WithActivityLimit(r.cfg.ActivityLimit),
	}
	if r.cfg.Clock != nil {
		opts = append(opts, engine.WithClock(r.cfg.Clock))
	}

	var e *engine.Engine
	created := false
	snap, err := r.store.LoadState(ctx, id.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		e = engine.New(id, opts...)
		created = true
	case err != nil:
		return nil, fmt.Errorf("loading player %s: %w", id.ID, err)
	default:
		e = engine.Restore(snap, opts...)
	}

	p = &Player{Engine: e}
	var provider sensing.Provider
	switch r.cfg.SensingMode {
	case SensingSimulated:
		provider = sensing.NewSimulated(nil)
	case SensingDevice:
		p.Device = sensing.NewDevice()
		provider = p.Device
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Close may have started while the state was loading.
	if r.closed {
		return nil, ErrRegistryClosed
	}
	r.players[id.ID] = p
	if provider != nil {
		d := sensing.NewDriver(e, provider, r.cfg.Intervals, r.logger)
		r.drivers.Go(func() {
			d.Run(r.ctx)
		})
	}

	if created {
		r.markDirty(id.ID)
		r.logger.Info("player created", "player_id", id.ID)
	} else {
		r.logger.Info("player restored", "player_id", id.ID)
	}
	return p, nil
}

func (r *Registry) listener(playerID string) func(engine.Event) {
	return func(ev engine.Event) {
		r.markDirty(playerID)
		r.broker.Publish(playerID, ev)
		if r.relay != nil {
			r.relay.Enqueue(playerID, ev)
		}
	}
}

func (r *Registry) markDirty(playerID string) {
	r.dirtyMu.Lock()
	r.dirty[playerID] = struct{}{}
	r.dirtyMu.Unlock()
}

// Save persists one loaded player immediately.
func (r *Registry) Save(ctx context.Context, playerID string) error {
	r.mu.RLock()
	p, ok := r.players[playerID]
	r.mu.RUnlock()
	if !ok {
		return store.ErrNotFound
	}

	r.dirtyMu.Lock()
	delete(r.dirty, playerID)
	r.dirtyMu.Unlock()

	if err := r.store.SaveState(ctx, p.Engine.Snapshot()); err != nil {
		r.markDirty(playerID)
		return err
	}
	return nil
}

// Flush persists every player changed since the last flush.
func (r *Registry) Flush(ctx context.Context) error {
	r.dirtyMu.Lock()
	ids := make([]string, 0, len(r.dirty))
	for id := range r.dirty {
		ids = append(ids, id)
	}
	r.dirtyMu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := r.Save(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(ids) > 0 {
		r.logger.Debug("flushed player states", "count", len(ids))
	}
	return errors.Join(errs...)
}

// Run flushes dirty players every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.Error("flushing player states", "error", err)
			}
		}
	}
}

// Close stops every sensing driver and writes outstanding changes. Players
// that are not loaded yet can no longer be loaded afterwards.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.drivers.Wait()
	return r.Flush(ctx)
}
