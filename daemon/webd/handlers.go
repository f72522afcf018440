package webd

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotblauer/fieldcat/api"
	"github.com/rotblauer/fieldcat/backend"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/events"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/tidwall/gjson"
)

const maxBodyBytes = 8 << 20

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// requireAgent writes 503 and returns false when no agent is attached.
func (s *WebDaemon) requireAgent(w http.ResponseWriter) bool {
	if s.Agent == nil {
		http.Error(w, "No agent", http.StatusServiceUnavailable)
		return false
	}
	return true
}

type webDaemonStatus struct {
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	Device    string    `json:"device,omitempty"`
	WSConns   int       `json:"ws_conns"`
	Accepted  uint64    `json:"accepted"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	st := webDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		WSConns:   s.melodyInstance.Len(),
		Accepted:  s.accepted.Load(),
	}
	if s.Agent != nil {
		st.Device = s.Agent.DeviceID.String()
	}
	s.writeJSON(w, http.StatusOK, st)
}

// handleFixes runs one pipeline pass and delivery attempt per posted fix.
// The body may be a single fix, an array, NDJSON, or GeoJSON.
func (s *WebDaemon) handleFixes(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgent(w) {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Error("Failed to read request body", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	fixes, err := fix.DecodeFixes(body)
	if err != nil || len(fixes) == 0 {
		s.logger.Error("Failed to decode fixes", "error", err, "bytes", len(body))
		http.Error(w, "Failed to decode", http.StatusUnprocessableEntity)
		return
	}
	events.RawFixFeed.Send(fixes)

	route := conceptual.RouteID(r.URL.Query().Get("route"))
	results, err := s.Agent.Ingest(r.Context(), fixes, route)
	if err != nil {
		s.logger.Error("Failed to process fixes", "error", err)
		http.Error(w, "Failed to process", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *WebDaemon) handleLast(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgent(w) {
		return
	}
	res, ok := s.Agent.Last()
	if !ok {
		http.Error(w, "No fix yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *WebDaemon) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgent(w) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.Agent.Statistics())
}

func (s *WebDaemon) handlePending(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgent(w) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.Agent.PendingRecords(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list pending", "error", err)
		http.Error(w, "Failed to list pending", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []pending.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *WebDaemon) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgent(w) {
		return
	}
	report, err := s.Agent.Drain(r.Context())
	switch {
	case errors.Is(err, backend.ErrUnreachable):
		s.writeJSON(w, http.StatusBadGateway, report)
	case errors.Is(err, api.ErrNoDelivery):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case err != nil:
		s.logger.Error("Drain failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, report)
	default:
		s.writeJSON(w, http.StatusOK, report)
	}
}

// handleLocations is the backend side of delivery: it accepts one
// GeoJSON feature per request and acknowledges a repeated
// (device, timestamp) pair without accepting it again.
func (s *WebDaemon) handleLocations(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !gjson.ValidBytes(body) {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	props := gjson.GetBytes(body, "properties")
	device := conceptual.DeviceID(props.Get("DeviceID").String())
	ts, err := time.Parse(time.RFC3339Nano, props.Get("Time").String())
	if device.Empty() || err != nil {
		http.Error(w, "Missing DeviceID or Time", http.StatusUnprocessableEntity)
		return
	}
	if s.acks.Observe(device, ts) {
		s.logger.Debug("Duplicate delivery acknowledged", "device", device, "time", ts)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	s.accepted.Add(1)
	s.received.Add(json.RawMessage(body))
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "accepted"})
}

// handleReceived lists the features most recently accepted by the sink, oldest first.
// The optional n query param limits the list to the newest n.
func (s *WebDaemon) handleReceived(w http.ResponseWriter, r *http.Request) {
	var received []json.RawMessage
	if n, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && n >= 0 {
		received = s.received.Tail(n)
	} else {
		received = s.received.Get()
	}
	if received == nil {
		received = []json.RawMessage{}
	}
	s.writeJSON(w, http.StatusOK, received)
}

func (s *WebDaemon) handleDevices(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	device := gjson.GetBytes(body, "deviceId").String()
	if device == "" {
		http.Error(w, "Missing deviceId", http.StatusUnprocessableEntity)
		return
	}
	s.logger.Info("Device announced", "device", device, "remote", r.RemoteAddr)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
