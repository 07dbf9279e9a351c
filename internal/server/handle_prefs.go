package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mamadi-exe/Snoofit/internal/store"
)

// PreferencesPatch updates only the fields that are present.
type PreferencesPatch struct {
	Language            *string `json:"language,omitempty"`
	OnboardingCompleted *bool   `json:"onboardingCompleted,omitempty"`
}

func handleGetPrefs(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefs, err := st.GetPreferences(r.Context(), claimsFrom(r).PlayerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "loading preferences failed")
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	}
}

func handlePutPrefs(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PreferencesPatch
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		playerID := claimsFrom(r).PlayerID
		var updates [][2]string
		if req.Language != nil {
			updates = append(updates, [2]string{store.PrefLanguage, *req.Language})
		}
		if req.OnboardingCompleted != nil {
			updates = append(updates, [2]string{store.PrefOnboardingCompleted, strconv.FormatBool(*req.OnboardingCompleted)})
		}

		for _, u := range updates {
			if err := st.SetPreference(r.Context(), playerID, u[0], u[1]); err != nil {
				if errors.Is(err, store.ErrInvalidPreference) {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
				writeError(w, http.StatusInternalServerError, "saving preferences failed")
				return
			}
		}

		prefs, err := st.GetPreferences(r.Context(), playerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "loading preferences failed")
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	}
}
