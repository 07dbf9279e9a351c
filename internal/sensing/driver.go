package sensing

import (
	"context"
	"log/slog"
	"time"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
)

type Intervals struct {
	Step     time.Duration
	Geofence time.Duration
	Grace    time.Duration
}

// DefaultIntervals poll steps every second and check the geofence and the
// grace period every five seconds.
var DefaultIntervals = Intervals{
	Step:     time.Second,
	Geofence: 5 * time.Second,
	Grace:    5 * time.Second,
}

// Driver polls a Provider and applies its readings to an engine while a
// capture session is active.
type Driver struct {
	engine    *engine.Engine
	provider  Provider
	intervals Intervals
	logger    *slog.Logger
}

func NewDriver(e *engine.Engine, p Provider, iv Intervals, logger *slog.Logger) *Driver {
	return &Driver{
		engine:    e,
		provider:  p,
		intervals: iv,
		logger:    logger.With("player_id", e.Player().ID),
	}
}

// Run blocks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	steps := time.NewTicker(d.intervals.Step)
	defer steps.Stop()
	geo := time.NewTicker(d.intervals.Geofence)
	defer geo.Stop()
	grace := time.NewTicker(d.intervals.Grace)
	defer grace.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-steps.C:
			d.Step(ctx)
		case <-geo.C:
			d.Geofence(ctx)
		case <-grace.C:
			d.Grace()
		}
	}
}

// Step feeds one step reading to the active capture. The engine finalises
// the capture when the reading completes it; a zone that was already
// credited is not paid out again.
func (d *Driver) Step(ctx context.Context) {
	if !d.engine.Session().IsCapturing {
		return
	}

	n, err := d.provider.StepDelta(ctx)
	if err != nil {
		d.logger.Warn("reading steps", "error", err)
		return
	}

	if res := d.engine.AdvanceSession(n); res.Completed {
		d.logger.Debug("capture completed by step reading", "steps", res.Capture.StepsAccumulated)
	}
}

// Geofence records one geofence reading for the active capture.
func (d *Driver) Geofence(ctx context.Context) {
	if !d.engine.Session().IsCapturing {
		return
	}

	inside, err := d.provider.InsideGeofence(ctx)
	if err != nil {
		d.logger.Warn("reading geofence", "error", err)
		return
	}
	d.engine.SetOutsideZone(!inside)
}

// Grace enforces the grace period while the player is outside the zone.
func (d *Driver) Grace() {
	s := d.engine.Session()
	if !s.IsCapturing || !s.IsOutsideZone {
		return
	}
	d.engine.CheckAndResetProgress(s.ZoneID)
}
