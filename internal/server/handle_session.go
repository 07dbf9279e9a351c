package server

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Mamadi-exe/Snoofit/internal/auth"
	"github.com/Mamadi-exe/Snoofit/internal/engine"
)

const maxPlayerNameLen = 40

type SessionRequest struct {
	Name string `json:"name"`
}

type SessionResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

func handleCreateSession(players *Registry, tokens *auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SessionRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if utf8.RuneCountInString(name) > maxPlayerNameLen {
			writeError(w, http.StatusBadRequest, "name is too long")
			return
		}

		id := engine.Player{ID: uuid.NewString(), Name: name}
		if _, err := players.Get(r.Context(), id); errors.Is(err, ErrRegistryClosed) {
			writeError(w, http.StatusServiceUnavailable, "server shutting down")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "creating player failed")
			return
		}
		if err := players.Save(r.Context(), id.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "saving player failed")
			return
		}

		token, err := tokens.Issue(id.ID, id.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "issuing token failed")
			return
		}

		writeJSON(w, http.StatusCreated, SessionResponse{
			Token:    token,
			PlayerID: id.ID,
			Name:     id.Name,
		})
	}
}
