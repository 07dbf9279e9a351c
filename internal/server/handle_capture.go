package server

import (
	"net/http"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
)

type ZoneRequest struct {
	ZoneID string `json:"zoneId"`
}

type CaptureResponse struct {
	Session engine.Session `json:"session"`
	Zone    *fitquest.Zone `json:"zone,omitempty"`
}

type GraceCheckResponse struct {
	Reset   bool           `json:"reset"`
	Session engine.Session `json:"session"`
}

type StepsRequest struct {
	ZoneID     string `json:"zoneId"`
	Steps      int    `json:"steps"`
	InsideZone bool   `json:"insideZone"`
}

type StepsResponse struct {
	Accepted     bool                  `json:"accepted"`
	CaptureState fitquest.CaptureState `json:"captureState"`
	Session      engine.Session        `json:"session"`
}

type GeofenceRequest struct {
	Outside bool `json:"outside"`
}

type DeviceReading struct {
	Steps  int  `json:"steps"`
	Inside bool `json:"inside"`
}

func handleGameState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, playerFrom(r).Engine.Snapshot())
	}
}

func captureResponse(e *engine.Engine, zoneID string) CaptureResponse {
	resp := CaptureResponse{Session: e.Session()}
	if z, ok := e.Zone(zoneID); ok {
		resp.Zone = &z
	}
	return resp
}

func handleStartCapture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ZoneRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		e := playerFrom(r).Engine
		z, ok := e.Zone(req.ZoneID)
		if !ok {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		if !z.CanCapture {
			writeError(w, http.StatusConflict, "zone cannot be captured")
			return
		}

		e.StartCapture(req.ZoneID)
		writeJSON(w, http.StatusOK, captureResponse(e, req.ZoneID))
	}
}

func handleCancelCapture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := playerFrom(r).Engine
		zoneID := e.Session().ZoneID
		e.CancelCapture()
		writeJSON(w, http.StatusOK, captureResponse(e, zoneID))
	}
}

// handleCheckGrace runs the grace period check for the zone in the body,
// defaulting to the zone being captured.
func handleCheckGrace() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ZoneRequest
		if r.ContentLength != 0 {
			if err := readJSON(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		e := playerFrom(r).Engine
		zoneID := req.ZoneID
		if zoneID == "" {
			zoneID = e.Session().ZoneID
		}

		reset := e.CheckAndResetProgress(zoneID)
		writeJSON(w, http.StatusOK, GraceCheckResponse{Reset: reset, Session: e.Session()})
	}
}

func handleCompleteCapture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ZoneRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		e := playerFrom(r).Engine
		if _, ok := e.Zone(req.ZoneID); !ok {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		if !e.CompleteActiveCapture(req.ZoneID) {
			writeError(w, http.StatusConflict, "no completed capture in progress for this zone")
			return
		}

		writeJSON(w, http.StatusOK, captureResponse(e, req.ZoneID))
	}
}

func handleAddSteps() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StepsRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Steps < 0 {
			writeError(w, http.StatusBadRequest, "steps must not be negative")
			return
		}

		e := playerFrom(r).Engine
		if _, ok := e.Zone(req.ZoneID); !ok {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}

		cs, accepted := e.AddSteps(req.ZoneID, req.Steps, req.InsideZone)
		writeJSON(w, http.StatusOK, StepsResponse{
			Accepted:     accepted,
			CaptureState: cs,
			Session:      e.Session(),
		})
	}
}

func handleGeofence() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GeofenceRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		e := playerFrom(r).Engine
		e.SetOutsideZone(req.Outside)
		writeJSON(w, http.StatusOK, e.Session())
	}
}

// handleDeviceReading buffers a phone reading for the sensing driver.
func handleDeviceReading() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DeviceReading
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p := playerFrom(r)
		if p.Device == nil {
			writeError(w, http.StatusConflict, "device sensing is not enabled")
			return
		}
		if err := p.Device.Push(req.Steps, req.Inside); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
