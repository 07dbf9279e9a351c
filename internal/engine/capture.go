package engine

import (
	"fmt"

	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
)

// StartCapture points the session cursor at zoneID. An uncaptured zone gets
// a fresh capture state owned by the local player; a zone that is already
// in progress or held keeps its state untouched. Starting while another
// capture is active replaces the cursor and leaves the previous zone's
// banked progress as it is.
func (e *Engine) StartCapture(zoneID string) {
	e.lock()
	defer e.unlock()

	z := e.zone(zoneID)
	if z == nil {
		e.logger.Debug("start capture ignored", "zone_id", zoneID, "reason", "unknown zone")
		return
	}

	switch z.Tag {
	case fitquest.TagUncaptured:
		z.SetCapture(fitquest.NewCaptureState(e.player.ID, e.player.Name, 0, e.clock.Now()))
	case fitquest.TagInProgress, fitquest.TagHeld:
		// Reuse the existing owner and progress.
	}

	if e.session.IsCapturing && e.session.ZoneID != zoneID {
		e.logger.Info("capture session replaced", "previous_zone_id", e.session.ZoneID, "zone_id", zoneID)
	}

	e.session = Session{IsCapturing: true, ZoneID: zoneID}
	e.logger.Info("capture started", "zone_id", zoneID, "tag", z.Tag)
	e.emit(EventCaptureStarted, zoneID, "")
}

// CancelCapture abandons the local session only. Steps already banked on
// the zone stay credited to its owner.
func (e *Engine) CancelCapture() {
	e.lock()
	defer e.unlock()

	zoneID := e.session.ZoneID
	e.endSession()
	e.emit(EventCaptureCancelled, zoneID, "")
}

// AddSteps feeds a step delta for zoneID. Outside the geofence nothing is
// accumulated and the exit streak starts if it has not already. Inside, the
// delta is banked on the zone and the streak is cleared. It returns the
// zone's capture state after the call and whether steps were accumulated.
// Calls without an active session or capture state are ignored, as are
// negative deltas.
func (e *Engine) AddSteps(zoneID string, steps int, insideZone bool) (fitquest.CaptureState, bool) {
	e.lock()
	defer e.unlock()
	return e.addSteps(zoneID, steps, insideZone)
}

// StepResult is the outcome of one sensing step reading.
type StepResult struct {
	Capture     fitquest.CaptureState
	Accumulated bool
	// Completed is set when the reading finished the capture and the zone
	// was credited.
	Completed bool
}

// AdvanceSession applies a step reading to the active session's zone using
// the session's own geofence state. A reading that completes an uncredited
// capture finalises it under the same lock.
func (e *Engine) AdvanceSession(steps int) StepResult {
	e.lock()
	defer e.unlock()

	if !e.session.IsCapturing {
		return StepResult{}
	}
	zoneID := e.session.ZoneID
	cs, ok := e.addSteps(zoneID, steps, !e.session.IsOutsideZone)
	res := StepResult{Capture: cs, Accumulated: ok}
	if ok && e.completable(zoneID) {
		e.completeZoneCapture(zoneID)
		res.Capture = *e.zone(zoneID).Capture
		res.Completed = true
	}
	return res
}

func (e *Engine) addSteps(zoneID string, steps int, insideZone bool) (fitquest.CaptureState, bool) {
	z := e.zone(zoneID)
	if z == nil || !e.session.IsCapturing || z.Capture == nil {
		e.logger.Debug("add steps ignored", "zone_id", zoneID, "reason", "no active capture")
		return fitquest.CaptureState{}, false
	}

	if !insideZone {
		e.markOutside()
		return *z.Capture, false
	}

	if steps < 0 {
		e.logger.Debug("add steps ignored", "zone_id", zoneID, "reason", "negative steps", "steps", steps)
		return *z.Capture, false
	}

	total := z.Capture.StepsAccumulated + steps
	z.Capture.SetSteps(total)
	z.SetCapture(z.Capture)

	dist := float64(steps) / 1000
	e.addActivity(fitquest.ActivityInput{
		Type:        fitquest.ActivityDistanceSync,
		Description: fmt.Sprintf("Added %d steps to %s capture (%d/%d)", steps, z.Name, total, fitquest.StepsToCapture),
		DistanceKm:  &dist,
	})

	e.session.StepsInCurrentZone = total
	e.markInside()
	e.emit(EventStepsAdded, zoneID, "")
	return *z.Capture, true
}

// SetOutsideZone records a geofence reading for the active session.
func (e *Engine) SetOutsideZone(outside bool) {
	e.lock()
	defer e.unlock()

	if outside {
		e.markOutside()
		return
	}
	e.markInside()
}

func (e *Engine) markOutside() {
	if e.session.OutsideZoneSince != nil {
		e.session.IsOutsideZone = true
		return
	}
	now := e.clock.Now()
	e.session.IsOutsideZone = true
	e.session.OutsideZoneSince = &now
	e.logger.Info("left zone geofence", "zone_id", e.session.ZoneID)
	e.emit(EventLeftZone, e.session.ZoneID, "")
}

func (e *Engine) markInside() {
	wasOutside := e.session.IsOutsideZone || e.session.OutsideZoneSince != nil
	e.session.IsOutsideZone = false
	e.session.OutsideZoneSince = nil
	if wasOutside {
		e.emit(EventReturnedToZone, e.session.ZoneID, "")
	}
}

// CheckAndResetProgress enforces the grace period. When the current exit
// streak has lasted longer than fitquest.GracePeriod the session ends and
// zoneID loses its accumulated progress; the owner and start time are kept.
// It reports whether a reset happened.
func (e *Engine) CheckAndResetProgress(zoneID string) bool {
	e.lock()
	defer e.unlock()

	since := e.session.OutsideZoneSince
	if since == nil {
		return false
	}
	if e.clock.Now().Sub(*since) <= fitquest.GracePeriod {
		return false
	}

	e.endSession()
	if z := e.zone(zoneID); z != nil && z.Capture != nil {
		z.Capture.SetSteps(0)
		z.SetCapture(z.Capture)
	}
	e.logger.Info("grace period exceeded, capture reset", "zone_id", zoneID)
	e.emit(EventCaptureReset, zoneID, "")
	return true
}

// CompleteZoneCapture finalises a capture the accumulator has reported as
// complete: the zone is marked held, its points are credited, the session
// ends and milestones are re-evaluated. The completion threshold is not
// re-checked here.
func (e *Engine) CompleteZoneCapture(zoneID string) {
	e.lock()
	defer e.unlock()
	e.completeZoneCapture(zoneID)
}

// CompleteActiveCapture finalises zoneID only if it is the active session's
// zone, has reached the completion threshold and has not been credited yet.
// It reports whether the capture was finalised.
func (e *Engine) CompleteActiveCapture(zoneID string) bool {
	e.lock()
	defer e.unlock()

	if !e.session.IsCapturing || e.session.ZoneID != zoneID || !e.completable(zoneID) {
		e.logger.Debug("complete capture refused", "zone_id", zoneID)
		return false
	}
	e.completeZoneCapture(zoneID)
	return true
}

func (e *Engine) completable(zoneID string) bool {
	z := e.zone(zoneID)
	return z != nil && z.Capture != nil && z.Capture.IsCompleted && !z.Capture.Credited()
}

func (e *Engine) completeZoneCapture(zoneID string) {
	z := e.zone(zoneID)
	if z == nil || z.Capture == nil {
		e.logger.Debug("complete capture ignored", "zone_id", zoneID, "reason", "no capture state")
		return
	}

	now := e.clock.Now()
	z.Capture.ProgressPercentage = 100
	z.Capture.IsCompleted = true
	z.Capture.CompletedAt = &now
	z.SetCapture(z.Capture)

	e.stats.TotalPoints += z.Points
	e.stats.MonthlyPoints += z.Points
	e.stats.ZonesCaptured++
	e.endSession()

	e.addActivity(fitquest.ActivityInput{
		Type:         fitquest.ActivityZoneCapture,
		Description:  fmt.Sprintf("Successfully captured %s! +%d points", z.Name, z.Points),
		PointsEarned: z.Points,
	})
	e.logger.Info("zone captured", "zone_id", zoneID, "points", z.Points)
	e.emit(EventZoneCaptured, zoneID, "")

	e.checkAndUnlockMilestones()
}
