package engine

import (
	"fmt"

	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
)

// TransferOutcome is the result of an ownership challenge.
type TransferOutcome string

const (
	TransferSucceeded      TransferOutcome = "transferred"
	TransferNoCapture      TransferOutcome = "no_capture"
	TransferWindowExpired  TransferOutcome = "window_expired"
	TransferNotEnoughSteps TransferOutcome = "not_enough_steps"
)

// OK reports whether ownership changed hands.
func (o TransferOutcome) OK() bool { return o == TransferSucceeded }

// AttemptTransfer lets a challenger take over a zone that already has a
// capture state. The challenge is only evaluated while the current owner's
// attempt is at most fitquest.ChallengeWindow old, and the challenger must
// have strictly more steps. A rejected challenge changes nothing.
func (e *Engine) AttemptTransfer(zoneID, challengerID, challengerName string, challengerSteps int) TransferOutcome {
	e.lock()
	defer e.unlock()

	z := e.zone(zoneID)
	if z == nil || z.Capture == nil {
		return TransferNoCapture
	}

	now := e.clock.Now()
	if now.Sub(z.Capture.CaptureStartTime) > fitquest.ChallengeWindow {
		e.logger.Debug("transfer rejected", "zone_id", zoneID, "challenger_id", challengerID, "reason", TransferWindowExpired)
		return TransferWindowExpired
	}
	if challengerSteps <= z.Capture.StepsAccumulated {
		e.logger.Debug("transfer rejected", "zone_id", zoneID, "challenger_id", challengerID, "reason", TransferNotEnoughSteps)
		return TransferNotEnoughSteps
	}

	previous := z.Capture.OwnerName
	z.SetCapture(fitquest.NewCaptureState(challengerID, challengerName, challengerSteps, now))
	z.LastOwnerTransfer = &now

	e.addActivity(fitquest.ActivityInput{
		Type:         fitquest.ActivityZoneCapture,
		Description:  fmt.Sprintf("%s outpaced %s and took control of %s!", challengerName, previous, z.Name),
		PointsEarned: z.Points,
		Metadata: map[string]string{
			"zoneId":       zoneID,
			"challengerId": challengerID,
		},
	})
	e.logger.Info("zone ownership transferred", "zone_id", zoneID, "challenger_id", challengerID, "steps", challengerSteps)
	e.emit(EventZoneTransferred, zoneID, "")
	return TransferSucceeded
}

// Contestable reports whether zone's current owner can still be challenged
// at the engine's current time.
func (e *Engine) Contestable(zoneID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	z := e.zone(zoneID)
	if z == nil || z.Capture == nil {
		return false
	}
	return e.clock.Now().Sub(z.Capture.CaptureStartTime) <= fitquest.ChallengeWindow
}
