package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
	"github.com/Mamadi-exe/Snoofit/internal/store"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps each dependency name to its status.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

// Request shapes for operations with path parameters.
type (
	challengeParams struct {
		ZoneID string `path:"zoneID"`
		ChallengeRequest
	}
	redeemParams struct {
		MilestoneID string `path:"milestoneID"`
	}
	adminStatsParams struct {
		PlayerID string `path:"playerID"`
		fitquest.StatsPatch
	}
	adminUnlockParams struct {
		PlayerID    string `path:"playerID"`
		MilestoneID string `path:"milestoneID"`
	}
	adminActivityParams struct {
		PlayerID string `path:"playerID"`
		fitquest.ActivityInput
	}
)

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               any
	status                             int
	errors                             []int
}

var operations = []operation{
	{http.MethodGet, "/healthz", "Health check", "Returns the health status of backend dependencies.",
		nil, HealthResponse{}, http.StatusOK, []int{http.StatusServiceUnavailable}},

	{http.MethodPost, "/api/session", "Create player session", "Creates a player and returns a bearer token for it.",
		SessionRequest{}, SessionResponse{}, http.StatusCreated, []int{http.StatusBadRequest}},

	{http.MethodGet, "/api/game/state", "Get game state", "Returns the player's zones, capture session, stats, milestones and activity log.",
		nil, engine.Snapshot{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/capture/start", "Start capture", "Points the capture session at a zone, creating capture progress for an uncaptured zone.",
		ZoneRequest{}, CaptureResponse{}, http.StatusOK, []int{http.StatusNotFound, http.StatusConflict, http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/capture/cancel", "Cancel capture", "Ends the capture session. Banked steps stay on the zone.",
		nil, CaptureResponse{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/capture/check", "Check grace period", "Wipes the zone's progress when the player has been outside it for more than 30 seconds.",
		ZoneRequest{}, GraceCheckResponse{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/capture/complete", "Complete capture", "Finalises the active capture once it has 10000 steps, crediting its points once.",
		ZoneRequest{}, CaptureResponse{}, http.StatusOK, []int{http.StatusNotFound, http.StatusConflict, http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/steps", "Add steps", "Feeds a step delta for the zone being captured. Steps taken outside the zone are not counted.",
		StepsRequest{}, StepsResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/geofence", "Report geofence", "Records whether the player is outside the zone being captured.",
		GeofenceRequest{}, engine.Session{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/device", "Push device reading", "Buffers a step and geofence reading from the phone for the sensing driver.",
		DeviceReading{}, nil, http.StatusAccepted, []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/zones/{zoneID}/challenge", "Challenge zone owner", "Transfers the zone when the challenger has strictly more steps within an hour of the owner's capture start.",
		challengeParams{}, ChallengeResponse{}, http.StatusOK, []int{http.StatusNotFound, http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/distance", "Sync distance", "Adds walked distance and unlocks any milestones reached.",
		DistanceRequest{}, MilestonesResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/milestones/check", "Check milestones", "Unlocks every milestone whose distance has been reached and returns the newly unlocked ones.",
		nil, MilestonesResponse{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodPost, "/api/game/milestones/{milestoneID}/redeem", "Redeem milestone", "Returns the promo code for an unlocked milestone. Repeated calls return the same code.",
		redeemParams{}, RedeemResponse{}, http.StatusOK, []int{http.StatusNotFound, http.StatusConflict, http.StatusUnauthorized}},

	{http.MethodGet, "/api/prefs", "Get preferences", "Returns the player's language and onboarding flags.",
		nil, store.Preferences{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodPut, "/api/prefs", "Update preferences", "Updates the flags present in the body. Language must be en or ar.",
		PreferencesPatch{}, store.Preferences{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized}},

	{http.MethodPatch, "/api/admin/players/{playerID}/stats", "Patch player stats", "Overwrites the stats fields present in the body. Requires basic auth.",
		adminStatsParams{}, fitquest.UserStats{}, http.StatusOK, []int{http.StatusNotFound, http.StatusUnauthorized}},
	{http.MethodPost, "/api/admin/players/{playerID}/milestones/{milestoneID}/unlock", "Unlock milestone", "Unlocks a milestone regardless of distance. Requires basic auth.",
		adminUnlockParams{}, fitquest.Milestone{}, http.StatusOK, []int{http.StatusNotFound, http.StatusUnauthorized}},
	{http.MethodPost, "/api/admin/players/{playerID}/activities", "Add activity", "Prepends an activity to the player's log. Requires basic auth.",
		adminActivityParams{}, fitquest.Activity{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "FitQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Zone capture and progression backend for FitQuest.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		for _, code := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(code))
		}
		_ = r.AddOperation(oc)
	}

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of engine events. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/game/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/game/ws")
	getWS.SetSummary("Live state socket")
	getWS.SetDescription("Upgrades to a WebSocket that pushes the full state after every engine event. Pass token as query parameter.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("application/json"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
