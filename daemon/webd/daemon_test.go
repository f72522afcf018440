package webd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotblauer/fieldcat/api"
	"github.com/rotblauer/fieldcat/backend"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// newTestSink serves a daemon with no agent, acting as the delivery backend.
func newTestSink(t *testing.T) (*WebDaemon, *httptest.Server) {
	t.Helper()
	d, err := NewWebDaemon(params.DefaultTestWebDaemonConfig(), nil)
	require.NoError(t, err)
	srv := httptest.NewServer(d.NewRouter())
	t.Cleanup(srv.Close)
	return d, srv
}

// newTestAgentDaemon serves a daemon whose agent delivers to backendURL.
func newTestAgentDaemon(t *testing.T, backendURL string) (*WebDaemon, *httptest.Server) {
	t.Helper()
	cfg := params.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Delivery.BackendURL = backendURL
	cfg.Delivery.Timeout = 2 * time.Second
	cfg.Delivery.ServerErrorPause = time.Millisecond

	store, err := pending.OpenBolt(filepath.Join(cfg.DataDir, params.PendingDBName))
	require.NoError(t, err)
	agent := api.NewAgent(cfg, "webd-test", api.Options{
		Pending: store,
		Sender:  backend.NewHTTPClient(cfg.Delivery),
	})
	t.Cleanup(func() { agent.Close() })

	wcfg := params.DefaultTestWebDaemonConfig()
	wcfg.DataDir = cfg.DataDir
	d, err := NewWebDaemon(wcfg, agent)
	require.NoError(t, err)
	srv := httptest.NewServer(d.NewRouter())
	t.Cleanup(srv.Close)
	return d, srv
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

const fixesNDJSON = `{"latitude":45.5123457,"longitude":-122.6123457,"accuracy":8.5,"timestamp":"2024-06-01T09:00:00Z"}
{"latitude":45.5123691,"longitude":-122.6123457,"accuracy":8.5,"timestamp":"2024-06-01T09:00:02Z"}
{"latitude":45.5123926,"longitude":-122.6123457,"accuracy":8.5,"timestamp":"2024-06-01T09:00:04Z"}
`

func TestWebDaemon_Ping(t *testing.T) {
	_, srv := newTestSink(t)
	resp, body := get(t, srv.URL+"/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebDaemon_SinkToken(t *testing.T) {
	t.Setenv("FIELDCAT_TOKEN", "s3cret")
	sink, srv := newTestSink(t)
	rec := &pending.Record{DeviceID: "d1"}
	rec.Location.Latitude = 2
	rec.Location.Longitude = 1
	rec.Location.Timestamp = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	cfg := params.DefaultDeliveryConfig()
	cfg.BackendURL = srv.URL
	cfg.Timeout = 2 * time.Second
	err := backend.NewHTTPClient(cfg).Send(context.Background(), rec)
	var se *backend.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)

	cfg.Token = "s3cret"
	require.NoError(t, backend.NewHTTPClient(cfg).Send(context.Background(), rec))
	assert.Equal(t, uint64(1), sink.accepted.Load())
}

func TestWebDaemon_SinkIdempotent(t *testing.T) {
	sink, srv := newTestSink(t)
	feature := `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},
		"properties":{"DeviceID":"d1","Time":"2024-06-01T09:00:00Z"}}`

	resp, _ := post(t, srv.URL+"/locations", feature)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body := post(t, srv.URL+"/locations", feature)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplicate", gjson.GetBytes(body, "status").String())
	assert.Equal(t, uint64(1), sink.accepted.Load())

	resp, _ = post(t, srv.URL+"/locations", `{"type":"Feature","properties":{}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp, _ = post(t, srv.URL+"/locations", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = get(t, srv.URL+"/locations")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), gjson.GetBytes(body, "#").Int())
}

func TestWebDaemon_NoAgent(t *testing.T) {
	_, srv := newTestSink(t)
	resp, _ := post(t, srv.URL+"/fixes", fixesNDJSON)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = get(t, srv.URL+"/last")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebDaemon_FixesDeliveredToSink(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn)()
	sink, sinkSrv := newTestSink(t)
	_, srv := newTestAgentDaemon(t, sinkSrv.URL)

	resp, body := post(t, srv.URL+"/fixes?route=r7", fixesNDJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, int64(3), gjson.GetBytes(body, "#").Int())
	assert.Equal(t, uint64(3), sink.accepted.Load())

	received := sink.received.Get()
	require.Len(t, received, 3)
	assert.Equal(t, "webd-test", gjson.GetBytes(received[0], "properties.DeviceID").String())
	assert.Equal(t, "r7", gjson.GetBytes(received[0], "properties.RouteID").String())

	resp, body = get(t, sinkSrv.URL+"/locations?n=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-06-01T09:00:04Z", gjson.GetBytes(body, "0.properties.Time").String())

	// Replaying the same fixes is deduplicated before the pipeline.
	resp, body = post(t, srv.URL+"/fixes", fixesNDJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), gjson.GetBytes(body, "#").Int())

	resp, body = get(t, srv.URL+"/last")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-06-01T09:00:04Z", gjson.GetBytes(body, "fusedLocation.timestamp").String())

	resp, body = get(t, srv.URL+"/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3.0, gjson.GetBytes(body, "count").Float())

	resp, body = get(t, srv.URL+"/pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestWebDaemon_QueueAndDrain(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError)()
	var down atomic.Bool
	down.Store(true)
	sink, sinkSrv := newTestSink(t)
	gate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		sinkSrv.Config.Handler.ServeHTTP(w, r)
	}))
	defer gate.Close()
	_, srv := newTestAgentDaemon(t, gate.URL)

	resp, _ := post(t, srv.URL+"/fixes", fixesNDJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, srv.URL+"/pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), gjson.GetBytes(body, "#").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(body, "0.id").Int())

	resp, _ = post(t, srv.URL+"/drain", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	down.Store(false)
	resp, body = post(t, srv.URL+"/drain", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, int64(3), gjson.GetBytes(body, "delivered").Int())
	assert.Equal(t, uint64(3), sink.accepted.Load())

	resp, body = get(t, srv.URL+"/pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), gjson.GetBytes(body, "#").Int())
}

func TestWebDaemon_Token(t *testing.T) {
	t.Setenv("FIELDCAT_TOKEN", "s3cret")
	_, srv := newTestSink(t)
	feature := `{"type":"Feature","properties":{"DeviceID":"d","Time":"2024-06-01T09:00:00Z"}}`

	resp, _ := post(t, srv.URL+"/locations", feature)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/locations", bytes.NewBufferString(feature))
	require.NoError(t, err)
	req.Header.Set("X-Fieldcat-Token", "s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestWebDaemon_Run(t *testing.T) {
	cfg := params.DefaultTestWebDaemonConfig()
	cfg.Address = "127.0.0.1:0"
	d, err := NewWebDaemon(cfg, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
