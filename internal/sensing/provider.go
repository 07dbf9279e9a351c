// Package sensing feeds step counts and geofence readings into a capture
// engine.
package sensing

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
)

// Provider reports movement for the player carrying the device.
type Provider interface {
	// StepDelta returns the steps taken since the previous call.
	StepDelta(ctx context.Context) (int, error)
	// InsideGeofence reports whether the player is inside the zone being
	// captured.
	InsideGeofence(ctx context.Context) (bool, error)
}

// Simulated produces plausible walking data without hardware: 5 to 14 steps
// per reading and an occasional geofence exit.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand

	MinSteps   int
	MaxSteps   int
	ExitChance float64
}

// NewSimulated seeds the generator from src, or randomly when src is nil.
func NewSimulated(src rand.Source) *Simulated {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Simulated{
		rng:        rand.New(src),
		MinSteps:   5,
		MaxSteps:   14,
		ExitChance: 0.08,
	}
}

func (s *Simulated) StepDelta(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.MinSteps + s.rng.IntN(s.MaxSteps-s.MinSteps+1), nil
}

func (s *Simulated) InsideGeofence(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() >= s.ExitChance, nil
}

var ErrNegativeSteps = errors.New("negative step count")

// Device buffers readings pushed by the phone. Steps accumulate until the
// next StepDelta drains them; the geofence flag is the last reported value.
type Device struct {
	mu      sync.Mutex
	pending int
	inside  bool
}

func NewDevice() *Device {
	return &Device{inside: true}
}

// Push records a reading from the phone.
func (d *Device) Push(steps int, inside bool) error {
	if steps < 0 {
		return ErrNegativeSteps
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending += steps
	d.inside = inside
	return nil
}

func (d *Device) StepDelta(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.pending
	d.pending = 0
	return n, nil
}

func (d *Device) InsideGeofence(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inside, nil
}
