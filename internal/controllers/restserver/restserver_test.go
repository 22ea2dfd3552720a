package restserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chrissnell/tempcast/internal/history"
	"github.com/chrissnell/tempcast/internal/predict"
	"github.com/chrissnell/tempcast/internal/session"
	"github.com/chrissnell/tempcast/pkg/config"
	"go.uber.org/zap"
)

type fakePredictor struct {
	result  predict.Result
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakePredictor) Predict(ctx context.Context, req predict.Request) (predict.Result, error) {
	if err := req.Validate(); err != nil {
		return predict.Result{}, err
	}
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.result, f.err
}

func newTestServer(t *testing.T, p Predictor) *httptest.Server {
	t.Helper()
	srv, _ := newTestServerWithStore(t, p)
	return srv
}

func newTestServerWithStore(t *testing.T, p Predictor) (*httptest.Server, *session.Store) {
	t.Helper()

	cfg := &config.ConfigData{}
	cfg.ApplyDefaults()

	store := session.NewStore(time.Hour, zap.NewNop().Sugar())
	ctrl, err := NewController(cfg, p, store, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	srv := httptest.NewServer(ctrl.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

// client keeps cookies so that requests share a session
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := c.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// newSessionClient returns a client that has already started a session
func newSessionClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	c := newClient(t)
	resp, err := c.Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/session status = %d", resp.StatusCode)
	}
	return c
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		t.Fatalf("unexpected health response %d %+v", resp.StatusCode, body)
	}
}

func TestSessionIntroFlow(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})
	c := newClient(t)

	getSession := func() sessionResponse {
		t.Helper()
		resp, err := c.Get(srv.URL + "/api/session")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var s sessionResponse
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			t.Fatal(err)
		}
		return s
	}

	first := getSession()
	if first.IntroSeen {
		t.Fatal("intro should not be marked seen for a new session")
	}

	resp := postJSON(t, c, srv.URL+"/api/session/intro", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("intro status = %d", resp.StatusCode)
	}

	second := getSession()
	if second.SessionID != first.SessionID || !second.IntroSeen {
		t.Fatalf("expected same session with intro seen, got %+v (first %+v)", second, first)
	}

	// A new browser session starts without the flag.
	fresh := newClient(t)
	resp, err := fresh.Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var other sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&other); err != nil {
		t.Fatal(err)
	}
	if other.IntroSeen || other.SessionID == first.SessionID {
		t.Fatalf("new session inherited state: %+v", other)
	}
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		result     predict.Result
		err        error
		wantStatus int
		wantTemp   *float64
		wantSource predict.Source
	}{
		{
			name:       "service value",
			body:       `{"month":7,"hour":14}`,
			result:     predict.Result{Temperature: 24.5, Source: predict.SourceService, Available: true},
			wantStatus: http.StatusOK,
			wantTemp:   ptr(24.5),
			wantSource: predict.SourceService,
		},
		{
			name:       "unavailable omits temperature",
			body:       `{"month":1,"hour":0}`,
			result:     predict.Result{Source: predict.SourceUnavailable},
			wantStatus: http.StatusOK,
			wantSource: predict.SourceUnavailable,
		},
		{name: "month out of range", body: `{"month":13,"hour":0}`, wantStatus: http.StatusBadRequest},
		{name: "missing hour", body: `{"month":3}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{"month":`, wantStatus: http.StatusBadRequest},
		{name: "caller canceled", body: `{"month":5,"hour":8}`, err: context.Canceled, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakePredictor{result: tt.result, err: tt.err})
			resp := postJSON(t, newSessionClient(t, srv), srv.URL+"/api/predict", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, expected %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var got predictionResponse
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Source != tt.wantSource {
				t.Errorf("source = %q, expected %q", got.Source, tt.wantSource)
			}
			switch {
			case tt.wantTemp == nil && got.Temperature != nil:
				t.Errorf("temperature = %v, expected none", *got.Temperature)
			case tt.wantTemp != nil && (got.Temperature == nil || *got.Temperature != *tt.wantTemp):
				t.Errorf("temperature = %v, expected %v", got.Temperature, *tt.wantTemp)
			}
		})
	}
}

func TestPredictInFlightConflict(t *testing.T) {
	p := &fakePredictor{
		result:  predict.Result{Temperature: 22.0, Source: predict.SourceService, Available: true},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	srv := newTestServer(t, p)
	// Establish the session before racing two predictions on it.
	c := newSessionClient(t, srv)

	firstDone := make(chan int, 1)
	go func() {
		r, err := c.Post(srv.URL+"/api/predict", "application/json", strings.NewReader(`{"month":6,"hour":12}`))
		if err != nil {
			firstDone <- 0
			return
		}
		r.Body.Close()
		firstDone <- r.StatusCode
	}()

	<-p.started
	second := postJSON(t, c, srv.URL+"/api/predict", `{"month":6,"hour":13}`)
	second.Body.Close()
	close(p.release)

	if second.StatusCode != http.StatusConflict {
		t.Fatalf("second prediction status = %d, expected 409", second.StatusCode)
	}
	if status := <-firstDone; status != http.StatusOK {
		t.Fatalf("first prediction status = %d", status)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})
	c := newSessionClient(t, srv)

	listHistory := func() []history.Entry {
		t.Helper()
		resp, err := c.Get(srv.URL + "/api/history")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var entries []history.Entry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			t.Fatal(err)
		}
		return entries
	}

	before := listHistory()
	if len(before) != 6 {
		t.Fatalf("expected 6 sample entries, got %d", len(before))
	}

	del := func(id string) int {
		t.Helper()
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/history/"+id, nil)
		resp, err := c.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := del("3"); status != http.StatusNoContent {
		t.Fatalf("delete status = %d", status)
	}
	if status := del("3"); status != http.StatusNotFound {
		t.Fatalf("second delete status = %d, expected 404", status)
	}
	if status := del("abc"); status != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, expected 400", status)
	}

	after := listHistory()
	if len(after) != 5 {
		t.Fatalf("expected 5 entries after delete, got %d", len(after))
	}
	for _, e := range after {
		if e.ID == 3 {
			t.Fatal("deleted entry still listed")
		}
	}

	resp, err := c.Get(srv.URL + "/api/history/summary")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var sum history.Summary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	if sum.Total != 5 {
		t.Fatalf("summary total = %d, expected 5", sum.Total)
	}
}

func TestSessionRequiredOutsideSessionEndpoint(t *testing.T) {
	srv, store := newTestServerWithStore(t, &fakePredictor{})

	requests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/history", ""},
		{http.MethodGet, "/api/history/summary", ""},
		{http.MethodDelete, "/api/history/1", ""},
		{http.MethodPost, "/api/session/intro", ""},
		{http.MethodPost, "/api/predict", `{"month":1,"hour":1}`},
	}

	for _, r := range requests {
		for i := 0; i < 3; i++ {
			req, _ := http.NewRequest(r.method, srv.URL+r.path, strings.NewReader(r.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("%s %s without cookie: status = %d, expected 401", r.method, r.path, resp.StatusCode)
			}
			if len(resp.Cookies()) != 0 {
				t.Fatalf("%s %s without cookie set a cookie", r.method, r.path)
			}
		}
	}
	if n := store.Len(); n != 0 {
		t.Fatalf("store holds %d sessions after cookieless requests, expected 0", n)
	}

	// A stale cookie is rejected as well.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/history", nil)
	req.AddCookie(&http.Cookie{Name: config.DefaultSessionCookie, Value: "expired-or-forged"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown session cookie: status = %d, expected 401", resp.StatusCode)
	}

	newSessionClient(t, srv)
	if n := store.Len(); n != 1 {
		t.Fatalf("store holds %d sessions after GET /api/session, expected 1", n)
	}
}

func TestChartsAndLogs(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})

	resp, err := http.Get(srv.URL + "/api/charts")
	if err != nil {
		t.Fatal(err)
	}
	var data struct {
		Hourly  []json.RawMessage `json:"hourly"`
		Monthly []json.RawMessage `json:"monthly"`
		Stats   []json.RawMessage `json:"stats"`
	}
	err = json.NewDecoder(resp.Body).Decode(&data)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Hourly) != 6 || len(data.Monthly) != 6 || len(data.Stats) != 3 {
		t.Fatalf("unexpected chart sizes %d/%d/%d", len(data.Hourly), len(data.Monthly), len(data.Stats))
	}

	// The log entry is written after the response, so poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get(srv.URL + "/api/logs/http")
		if err != nil {
			t.Fatal(err)
		}
		var entries []map[string]any
		err = json.NewDecoder(resp.Body).Decode(&entries)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) > 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the charts request in the HTTP log")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCORSCredentials(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		wantCreds   bool
		wantOrigins string
	}{
		{"any origin", []string{"*"}, false, "*"},
		{"explicit origin", []string{"http://localhost:5173"}, true, "http://localhost:5173"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.ConfigData{}
			cfg.Server.AllowedOrigins = tt.origins
			cfg.ApplyDefaults()
			logger := zap.NewNop().Sugar()

			ctrl, err := NewController(cfg, &fakePredictor{}, session.NewStore(time.Hour, logger), logger)
			if err != nil {
				t.Fatal(err)
			}
			srv := httptest.NewServer(ctrl.Handler())
			defer srv.Close()

			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/session", nil)
			req.Header.Set("Origin", "http://localhost:5173")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.wantOrigins {
				t.Errorf("Access-Control-Allow-Origin = %q, expected %q", got, tt.wantOrigins)
			}
			if got := resp.Header.Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCreds {
				t.Errorf("credentials allowed = %v, expected %v", got, tt.wantCreds)
			}
		})
	}
}

func TestNewControllerRequiresDependencies(t *testing.T) {
	cfg := &config.ConfigData{}
	cfg.ApplyDefaults()
	logger := zap.NewNop().Sugar()

	if _, err := NewController(cfg, nil, session.NewStore(time.Hour, logger), logger); err == nil {
		t.Error("expected error without predictor")
	}
	if _, err := NewController(cfg, &fakePredictor{}, nil, logger); err == nil {
		t.Error("expected error without session store")
	}
}

func ptr(v float64) *float64 { return &v }
