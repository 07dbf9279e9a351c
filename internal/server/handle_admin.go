package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
	"github.com/Mamadi-exe/Snoofit/internal/store"
)

// adminPlayer resolves {playerID}, writing the error response itself when
// the player cannot be loaded.
func adminPlayer(w http.ResponseWriter, r *http.Request, players *Registry) (*Player, bool) {
	p, err := players.Lookup(r.Context(), chi.URLParam(r, "playerID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "player not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading player failed")
		return nil, false
	}
	return p, true
}

func handleAdminPatchStats(players *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch fitquest.StatsPatch
		if err := readJSON(w, r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p, ok := adminPlayer(w, r, players)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, p.Engine.UpdateUserStats(patch))
	}
}

func handleAdminUnlockMilestone(players *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := adminPlayer(w, r, players)
		if !ok {
			return
		}

		id := chi.URLParam(r, "milestoneID")
		if _, ok := findMilestone(p.Engine.Snapshot().Milestones, id); !ok {
			writeError(w, http.StatusNotFound, "milestone not found")
			return
		}

		p.Engine.UnlockMilestone(id)
		m, _ := findMilestone(p.Engine.Snapshot().Milestones, id)
		writeJSON(w, http.StatusOK, m)
	}
}

func handleAdminAddActivity(players *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in fitquest.ActivityInput
		if err := readJSON(w, r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !in.Type.Valid() {
			writeError(w, http.StatusBadRequest, "unknown activity type")
			return
		}
		if strings.TrimSpace(in.Description) == "" {
			writeError(w, http.StatusBadRequest, "description is required")
			return
		}

		p, ok := adminPlayer(w, r, players)
		if !ok {
			return
		}
		writeJSON(w, http.StatusCreated, p.Engine.AddActivity(in))
	}
}
