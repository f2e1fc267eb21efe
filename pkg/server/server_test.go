package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/bbflame/pkg/buildinfo"
	"github.com/matzehuels/bbflame/pkg/cache"
	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/observability"
	"github.com/matzehuels/bbflame/pkg/pipeline"
	"github.com/matzehuels/bbflame/pkg/session"
	"github.com/matzehuels/bbflame/pkg/trace"
)

const testTrace = `{
  "roots": [
    {"addr": 0, "size": 100, "children": [
      {"addr": "0x401000", "size": 40, "children": [{"addr": "0x401200", "size": 10}]},
      {"addr": "0x402000", "size": 20}
    ]},
    {"addr": 0, "size": 30}
  ],
  "symbols": [
    {"addr": "0x401000", "name": "main", "module": "app.exe"}
  ]
}`

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	src, err := trace.Decode(strings.NewReader(testTrace), trace.FormatJSON, false)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Source = src
	ts := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", resp.Request.URL.Path, err)
	}
	return v
}

func createSession(t *testing.T, ts *httptest.Server, query string) session.Info {
	t.Helper()
	resp := do(t, ts, http.MethodPost, "/api/sessions"+query)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/sessions status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	return decode[session.Info](t, resp)
}

func TestRoots(t *testing.T) {
	ts := newTestServer(t, Config{})

	resp := do(t, ts, http.MethodGet, "/api/roots")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	roots := decode[[]pipeline.RootSummary](t, resp)
	if len(roots) != 2 {
		t.Fatalf("len(roots) = %d, want 2", len(roots))
	}
	if roots[0].Nodes != 4 || roots[1].Size != 30 {
		t.Errorf("roots = %+v", roots)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, Config{Step: 10})

	info := createSession(t, ts, "?width=100")
	if info.Root != 0 || info.Offset != 0 || info.Width != 100 {
		t.Fatalf("created session = %+v, want root 0, offset 0, width 100", info)
	}
	base := "/api/sessions/" + info.ID

	steps := []struct {
		method     string
		path       string
		wantStatus int
		wantRoot   int
		wantOffset int64
	}{
		{http.MethodGet, base, http.StatusOK, 0, 0},
		{http.MethodPost, base + "/scroll?delta=30", http.StatusOK, 0, 30},
		{http.MethodPost, base + "/scroll?step=left", http.StatusOK, 0, 20},
		{http.MethodPost, base + "/scroll?step=right", http.StatusOK, 0, 30},
		{http.MethodPost, base + "/scroll?delta=-100", http.StatusOK, 0, 0},
		{http.MethodPost, base + "/scroll?delta=15", http.StatusOK, 0, 15},
		{http.MethodPost, base + "/root/1", http.StatusOK, 1, 0},
	}
	for _, s := range steps {
		resp := do(t, ts, s.method, s.path)
		if resp.StatusCode != s.wantStatus {
			t.Fatalf("%s %s status = %d, want %d", s.method, s.path, resp.StatusCode, s.wantStatus)
		}
		got := decode[session.Info](t, resp)
		if got.Root != s.wantRoot || got.Offset != s.wantOffset {
			t.Errorf("%s %s = root %d offset %d, want root %d offset %d",
				s.method, s.path, got.Root, got.Offset, s.wantRoot, s.wantOffset)
		}
	}

	if resp := do(t, ts, http.MethodDelete, base); resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, base); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after DELETE status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionErrors(t *testing.T) {
	ts := newTestServer(t, Config{})
	info := createSession(t, ts, "")
	base := "/api/sessions/" + info.ID

	tests := []struct {
		name     string
		method   string
		path     string
		want     int
		wantCode errors.Code
	}{
		{"unknown session", http.MethodGet, "/api/sessions/deadbeef", http.StatusNotFound, errors.ErrCodeSessionNotFound},
		{"bad session id", http.MethodGet, "/api/sessions/not_an_id", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"root out of range", http.MethodPost, base + "/root/9", http.StatusNotFound, errors.ErrCodeNoTraceData},
		{"root not a number", http.MethodPost, base + "/root/x", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad delta", http.MethodPost, base + "/scroll?delta=far", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad step", http.MethodPost, base + "/scroll?step=up", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad format", http.MethodGet, base + "/frame.gif", http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"negative width", http.MethodGet, base + "/frame.json?width=-1", http.StatusBadRequest, errors.ErrCodeInvalidWindow},
		{"create with bad root", http.MethodPost, "/api/sessions?root=7", http.StatusNotFound, errors.ErrCodeNoTraceData},
		{"create with bad width", http.MethodPost, "/api/sessions?width=-3", http.StatusBadRequest, errors.ErrCodeInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, ts, tt.method, tt.path)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			body := decode[errorResponse](t, resp)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Error == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestFrame(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, Config{Cache: fc})
	info := createSession(t, ts, "?width=100")
	base := "/api/sessions/" + info.ID

	resp := do(t, ts, http.MethodGet, base+"/frame.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := resp.Header.Get("X-Cache"); got != "miss" {
		t.Errorf("first X-Cache = %q, want miss", got)
	}
	var frame struct {
		Root  int      `json:"root"`
		Width int64    `json:"width"`
		Depth int      `json:"depth"`
		Roots []string `json:"roots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		t.Fatal(err)
	}
	if frame.Width != 100 || frame.Depth != 3 || len(frame.Roots) != 2 {
		t.Errorf("frame = %+v, want width 100, depth 3, 2 roots", frame)
	}

	again := do(t, ts, http.MethodGet, base+"/frame.json")
	if got := again.Header.Get("X-Cache"); got != "hit" {
		t.Errorf("second X-Cache = %q, want hit", got)
	}

	svg := do(t, ts, http.MethodGet, base+"/frame.svg?width=50")
	if svg.StatusCode != http.StatusOK {
		t.Fatalf("svg status = %d", svg.StatusCode)
	}
	if ct := svg.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("svg Content-Type = %q", ct)
	}
	if got := svg.Header.Get("X-Cache"); got != "miss" {
		t.Errorf("resized X-Cache = %q, want miss", got)
	}

	state := decode[session.Info](t, do(t, ts, http.MethodGet, base))
	if state.Width != 50 {
		t.Errorf("session width after resize = %d, want 50", state.Width)
	}
}

func TestFrameCacheScopedBySession(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, Config{Cache: fc})
	a := createSession(t, ts, "?width=100")
	b := createSession(t, ts, "?width=100")

	do(t, ts, http.MethodGet, "/api/sessions/"+a.ID+"/frame.svg")
	resp := do(t, ts, http.MethodGet, "/api/sessions/"+b.ID+"/frame.svg")
	if got := resp.Header.Get("X-Cache"); got != "miss" {
		t.Errorf("other session X-Cache = %q, want miss", got)
	}
}

func TestFrameCacheAfterRootSwitch(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, Config{Cache: fc})
	base := "/api/sessions/" + createSession(t, ts, "?width=100").ID

	do(t, ts, http.MethodGet, base+"/frame.svg")
	for _, path := range []string{base + "/root/1", base + "/root/0"} {
		if resp := do(t, ts, http.MethodPost, path); resp.StatusCode != http.StatusOK {
			t.Fatalf("POST %s status = %d", path, resp.StatusCode)
		}
	}

	// Root 0 was reselected with fresh colors, so the old frame is stale.
	if got := do(t, ts, http.MethodGet, base+"/frame.svg").Header.Get("X-Cache"); got != "miss" {
		t.Errorf("X-Cache after root switch = %q, want miss", got)
	}
	if got := do(t, ts, http.MethodGet, base+"/frame.svg").Header.Get("X-Cache"); got != "hit" {
		t.Errorf("X-Cache on repeat = %q, want hit", got)
	}
}

func TestMetricsAndHealth(t *testing.T) {
	hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
	ts := newTestServer(t, Config{Metrics: hooks.Handler()})

	health := do(t, ts, http.MethodGet, "/healthz")
	if health.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", health.StatusCode)
	}
	if info := decode[buildinfo.Info](t, health); info.Version == "" {
		t.Error("/healthz reported no version")
	}
	if resp := do(t, ts, http.MethodGet, "/metrics"); resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", resp.StatusCode)
	}

	bare := newTestServer(t, Config{})
	if resp := do(t, bare, http.MethodGet, "/metrics"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics without handler status = %d, want 404", resp.StatusCode)
	}
}

type recordingHooks struct {
	mu     sync.Mutex
	routes []string
	status []int
}

func (h *recordingHooks) OnRequest(_ context.Context, _, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	h.status = append(h.status, status)
}

func TestRequestHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	ts := newTestServer(t, Config{})
	do(t, ts, http.MethodGet, "/api/roots")

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.routes) != 1 {
		t.Fatalf("hook calls = %d, want 1", len(hooks.routes))
	}
	if hooks.routes[0] != "/api/roots" || hooks.status[0] != http.StatusOK {
		t.Errorf("hook = %s %d, want /api/roots 200", hooks.routes[0], hooks.status[0])
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidWindow, http.StatusBadRequest},
		{errors.ErrCodeInvalidFormat, http.StatusBadRequest},
		{errors.ErrCodeNoTraceData, http.StatusNotFound},
		{errors.ErrCodeSessionNotFound, http.StatusNotFound},
		{errors.ErrCodeUnsupported, http.StatusNotImplemented},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(errors.New(tt.code, "x")); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
	if got := statusFor(context.Canceled); got != http.StatusInternalServerError {
		t.Errorf("statusFor(plain) = %d, want 500", got)
	}
}
