//go:build !integration

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mydailyprop/internal/engine"
)

func newTestServer(t *testing.T, fetchErr error) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	eng := testEngine(t, fetchErr, engine.NewMetrics(reg))
	srv := httptest.NewServer(newRouter(eng, reg, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

// readSSE parses a text/event-stream body into its events.
func readSSE(t *testing.T, body io.Reader) []wireEvent {
	t.Helper()

	var (
		events []wireEvent
		name   string
	)
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var ev wireEvent
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
			assert.Equal(t, name, ev.Type)
			events = append(events, ev)
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func postRun(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServe_Health(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServe_Graph(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/graph")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var body struct {
		Order   []string `json:"order"`
		Mermaid string   `json:"mermaid"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"extract", "critique", "psychological", "synthesis"}, body.Order)
	assert.Contains(t, body.Mermaid, "extract --> critique")
}

func TestServe_RunStreamsEvents(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postRun(t, srv, `{"url":"`+testURL+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Run-ID"))

	events := readSSE(t, resp.Body)
	require.NotEmpty(t, events)
	assert.Equal(t, eventRunDone, events[len(events)-1].Type)

	texts := map[string]string{}
	for _, ev := range events {
		assert.Equal(t, resp.Header.Get("X-Run-ID"), ev.RunID)
		if ev.Type == eventStageDone {
			texts[ev.Stage] = ev.Value
		}
	}
	assert.Equal(t, "Critique", texts["critique"])
	assert.Equal(t, "Psycho", texts["psychological"])
	assert.Equal(t, "Synth", texts["synthesis"])
}

func TestServe_RunFailureEvent(t *testing.T) {
	srv := newTestServer(t, errors.New("blocked"))

	resp := postRun(t, srv, `{"url":"`+testURL+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readSSE(t, resp.Body)
	require.Len(t, events, 1)
	assert.Equal(t, eventRunFailed, events[0].Type)
	assert.Equal(t, "extract", events[0].Stage)
	assert.Equal(t, "fetch", events[0].ErrorKind)
	assert.Contains(t, events[0].Error, "blocked")
}

func TestServe_RunBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed body", `{"url":`, "invalid request body"},
		{"empty url", `{"url":""}`, "url is empty"},
		{"bad scheme", `{"url":"ftp://example.com"}`, "scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postRun(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestServe_MetricsAfterRun(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postRun(t, srv, `{"url":"`+testURL+`"}`)
	readSSE(t, resp.Body)

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mydailyprop_engine_runs_total{outcome="success"} 1`)
	assert.Contains(t, string(data), "mydailyprop_engine_chunks_total")
}

func TestServe_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/runs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
