package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
)

type ChallengeRequest struct {
	ChallengerID   string `json:"challengerId"`
	ChallengerName string `json:"challengerName"`
	Steps          int    `json:"steps"`
}

type ChallengeResponse struct {
	Outcome     engine.TransferOutcome `json:"outcome"`
	Transferred bool                   `json:"transferred"`
	// Contestable reports whether the zone's current owner can still be
	// challenged.
	Contestable bool          `json:"contestable"`
	Zone        fitquest.Zone `json:"zone"`
}

type DistanceRequest struct {
	Km float64 `json:"km"`
}

type MilestonesResponse struct {
	Unlocked []fitquest.Milestone `json:"unlocked"`
	Stats    fitquest.UserStats   `json:"stats"`
}

type RedeemResponse struct {
	MilestoneID string `json:"milestoneId"`
	PromoCode   string `json:"promoCode"`
}

// handleChallenge evaluates a challenge against a zone. The challenger
// defaults to the calling player when the body leaves it out.
func handleChallenge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChallengeRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Steps < 0 {
			writeError(w, http.StatusBadRequest, "steps must not be negative")
			return
		}
		if strings.TrimSpace(req.ChallengerID) == "" {
			claims := claimsFrom(r)
			req.ChallengerID, req.ChallengerName = claims.PlayerID, claims.Name
		}

		e := playerFrom(r).Engine
		zoneID := chi.URLParam(r, "zoneID")
		if _, ok := e.Zone(zoneID); !ok {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}

		outcome := e.AttemptTransfer(zoneID, req.ChallengerID, req.ChallengerName, req.Steps)
		z, _ := e.Zone(zoneID)
		writeJSON(w, http.StatusOK, ChallengeResponse{
			Outcome:     outcome,
			Transferred: outcome.OK(),
			Contestable: e.Contestable(zoneID),
			Zone:        z,
		})
	}
}

func handleSyncDistance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DistanceRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		e := playerFrom(r).Engine
		unlocked, ok := e.SyncDistance(req.Km)
		if !ok {
			writeError(w, http.StatusBadRequest, "km must be a positive number")
			return
		}
		writeJSON(w, http.StatusOK, MilestonesResponse{
			Unlocked: nonNil(unlocked),
			Stats:    e.Snapshot().Stats,
		})
	}
}

func handleCheckMilestones() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := playerFrom(r).Engine
		unlocked := e.CheckAndUnlockMilestones()
		writeJSON(w, http.StatusOK, MilestonesResponse{
			Unlocked: nonNil(unlocked),
			Stats:    e.Snapshot().Stats,
		})
	}
}

func handleRedeem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := playerFrom(r).Engine
		id := chi.URLParam(r, "milestoneID")

		m, ok := findMilestone(e.Snapshot().Milestones, id)
		if !ok {
			writeError(w, http.StatusNotFound, "milestone not found")
			return
		}
		if !m.Unlocked {
			writeError(w, http.StatusConflict, "milestone is locked")
			return
		}

		code, ok := e.RedeemMilestone(id)
		if !ok {
			writeError(w, http.StatusConflict, "milestone cannot be redeemed")
			return
		}
		writeJSON(w, http.StatusOK, RedeemResponse{MilestoneID: id, PromoCode: code})
	}
}

func findMilestone(ms []fitquest.Milestone, id string) (fitquest.Milestone, bool) {
	for _, m := range ms {
		if m.ID == id {
			return m, true
		}
	}
	return fitquest.Milestone{}, false
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
