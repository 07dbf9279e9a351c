package engine

import (
	"fmt"
	"math"

	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
)

// CheckAndUnlockMilestones unlocks every locked milestone whose distance has
// been reached and returns only those unlocked by this call.
func (e *Engine) CheckAndUnlockMilestones() []fitquest.Milestone {
	e.lock()
	defer e.unlock()
	return e.checkAndUnlockMilestones()
}

func (e *Engine) checkAndUnlockMilestones() []fitquest.Milestone {
	var unlocked []fitquest.Milestone
	for i := range e.milestones {
		m := &e.milestones[i]
		if m.Unlocked || e.stats.TotalDistance < m.Distance {
			continue
		}
		m.Unlocked = true
		unlocked = append(unlocked, *m)
		e.addActivity(fitquest.ActivityInput{
			Type:        fitquest.ActivityMilestoneUnlocked,
			Description: "Unlocked " + m.Title,
		})
		e.logger.Info("milestone unlocked", "milestone_id", m.ID, "distance_km", m.Distance)
		e.emit(EventMilestoneUnlocked, "", m.ID)
	}
	return unlocked
}

// UnlockMilestone unlocks a milestone regardless of distance. Unlocking is
// permanent; unknown or already unlocked milestones are ignored.
func (e *Engine) UnlockMilestone(id string) {
	e.lock()
	defer e.unlock()

	m := e.milestone(id)
	if m == nil || m.Unlocked {
		return
	}
	m.Unlocked = true
	e.emit(EventMilestoneUnlocked, "", id)
}

// RedeemMilestone marks an unlocked milestone redeemed and returns its promo
// code. Redeeming again returns the code issued the first time. Unknown and
// still-locked milestones report false.
func (e *Engine) RedeemMilestone(id string) (string, bool) {
	e.lock()
	defer e.unlock()

	m := e.milestone(id)
	if m == nil || !m.Unlocked {
		e.logger.Debug("redeem ignored", "milestone_id", id, "reason", "not unlocked")
		return "", false
	}
	if m.Redeemed {
		return m.PromoCode, true
	}

	m.Redeemed = true
	m.PromoCode = e.newCode()
	e.addActivity(fitquest.ActivityInput{
		Type:        fitquest.ActivityMilestoneRedeemed,
		Description: "Redeemed " + m.Title,
		Metadata:    map[string]string{"milestoneId": id},
	})
	e.logger.Info("milestone redeemed", "milestone_id", id)
	e.emit(EventMilestoneRedeemed, "", id)
	return m.PromoCode, true
}

// AddActivity prepends an entry to the activity log.
func (e *Engine) AddActivity(in fitquest.ActivityInput) fitquest.Activity {
	e.lock()
	defer e.unlock()
	return e.addActivity(in)
}

// UpdateUserStats merges patch into the stats aggregate.
func (e *Engine) UpdateUserStats(patch fitquest.StatsPatch) fitquest.UserStats {
	e.lock()
	defer e.unlock()

	patch.Apply(&e.stats)
	e.emit(EventStatsUpdated, "", "")
	return e.stats
}

// SyncDistance adds km walked outside capture sessions to the total distance
// and re-evaluates milestones. Non-positive and non-finite distances are
// rejected.
func (e *Engine) SyncDistance(km float64) ([]fitquest.Milestone, bool) {
	if !(km > 0) || math.IsInf(km, 0) {
		return nil, false
	}

	e.lock()
	defer e.unlock()

	e.stats.TotalDistance += km
	e.addActivity(fitquest.ActivityInput{
		Type:        fitquest.ActivityDistanceSync,
		Description: fmt.Sprintf("Synced %.2f km", km),
		DistanceKm:  &km,
	})
	e.emit(EventStatsUpdated, "", "")
	return e.checkAndUnlockMilestones(), true
}
