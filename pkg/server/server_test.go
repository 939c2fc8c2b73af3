package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/loader"
	"github.com/vanderheijden86/storymap/pkg/page"
	"github.com/vanderheijden86/storymap/pkg/testutil"
)

func newTestServer(t *testing.T, p controller.Profile, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	b := &loader.Bundle{Source: "mem", Story: testutil.Journey(3)}
	s := New(b, p, opts...)
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func do(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func decodeSnapshot(t *testing.T, b []byte) Snapshot {
	t.Helper()
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		t.Fatalf("decode snapshot: %v\n%s", err, b)
	}
	return snap
}

func createSession(t *testing.T, ts *httptest.Server, body string) Snapshot {
	t.Helper()
	resp, b := do(t, http.MethodPost, ts.URL+"/api/sessions", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d: %s", resp.StatusCode, b)
	}
	return decodeSnapshot(t, b)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, controller.Example)
	resp, b := do(t, http.MethodGet, ts.URL+"/health", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), `"ok"`) {
		t.Errorf("health: %d %s", resp.StatusCode, b)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
}

func TestStory(t *testing.T) {
	_, ts := newTestServer(t, controller.Classic)
	resp, b := do(t, http.MethodGet, ts.URL+"/api/story", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var got struct {
		Profile string               `json:"profile"`
		Slides  []json.RawMessage    `json:"slides"`
		Lines   []controller.LineRef `json:"lines"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Profile != "classic" || len(got.Slides) != 3 || len(got.Lines) != 2 {
		t.Errorf("unexpected story response: %+v", got)
	}
}

func TestGeoJSON(t *testing.T) {
	_, ts := newTestServer(t, controller.Classic)
	resp, b := do(t, http.MethodGet, ts.URL+"/api/geojson?slide=1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	if !strings.Contains(string(b), "FeatureCollection") || !strings.Contains(string(b), "#ff0000") {
		t.Errorf("expected a collection with a highlighted line: %s", b)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/geojson?slide=x", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad slide: status %d", resp.StatusCode)
	}
}

func TestCreateSession(t *testing.T) {
	s, ts := newTestServer(t, controller.Classic)
	snap := createSession(t, ts, "")
	if snap.ID == "" {
		t.Fatal("expected session id")
	}
	if snap.State.Index != 0 || snap.State.Len != 3 {
		t.Errorf("state = %+v", snap.State)
	}
	if snap.Page.Headline != "Stop 0" {
		t.Errorf("headline = %q", snap.Page.Headline)
	}
	if snap.Page.Prev != page.Disabled || snap.Page.Next != page.Enabled {
		t.Errorf("buttons = %+v / %+v", snap.Page.Prev, snap.Page.Next)
	}
	if len(snap.Lines) != 2 || len(snap.Markers) != 3 {
		t.Errorf("expected 2 lines and 3 markers, got %d/%d", len(snap.Lines), len(snap.Markers))
	}
	if s.Sessions() != 1 {
		t.Errorf("expected 1 session, got %d", s.Sessions())
	}

	started := createSession(t, ts, `{"start": 99}`)
	if started.State.Index != 2 {
		t.Errorf("start index should clamp to 2, got %d", started.State.Index)
	}

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/sessions", "{nope")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid body: status %d", resp.StatusCode)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	_, ts := newTestServer(t, controller.Example)
	for _, path := range []string{"/api/sessions/missing", "/api/sessions/missing/next"} {
		method := http.MethodGet
		if strings.HasSuffix(path, "next") {
			method = http.MethodPost
		}
		resp, _ := do(t, method, ts.URL+path, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestNavigate_NonAnimated(t *testing.T) {
	_, ts := newTestServer(t, controller.Example)
	id := createSession(t, ts, "").ID

	resp, b := do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/next", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("next: status %d: %s", resp.StatusCode, b)
	}
	snap := decodeSnapshot(t, b)
	if snap.State.Index != 1 || snap.Page.Headline != "Stop 1" {
		t.Errorf("after next: %+v %q", snap.State, snap.Page.Headline)
	}
	if len(snap.Markers) != 2 {
		t.Errorf("lazy markers after two slides shown = %d", len(snap.Markers))
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/prev", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("prev: status %d", resp.StatusCode)
	}
	resp, b = do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/prev", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("prev at first slide: status %d: %s", resp.StatusCode, b)
	}
}

func TestNavigate_WaitForTransition(t *testing.T) {
	p := controller.Classic
	p.TransitionDelay = 5 * time.Millisecond
	_, ts := newTestServer(t, p)
	id := createSession(t, ts, "").ID

	resp, b := do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/next?wait=1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("next: status %d: %s", resp.StatusCode, b)
	}
	snap := decodeSnapshot(t, b)
	if snap.State.Index != 1 || snap.State.Animating {
		t.Errorf("state after wait = %+v", snap.State)
	}
	if len(snap.Page.Classes) != 0 {
		t.Errorf("transition classes left behind: %v", snap.Page.Classes)
	}
	if snap.Page.Headline != "Stop 1" {
		t.Errorf("headline = %q", snap.Page.Headline)
	}
	for _, l := range snap.Lines {
		want := controller.NeutralColor
		if l.ID == controller.LineID(0) {
			want = controller.HighlightColor
		}
		if l.Paint.Color != want {
			t.Errorf("line %s color %s, want %s", l.ID, l.Paint.Color, want)
		}
	}
}

func TestNavigate_ConflictWhileAnimating(t *testing.T) {
	p := controller.Classic
	p.TransitionDelay = time.Hour
	s, ts := newTestServer(t, p)
	id := createSession(t, ts, "").ID

	resp, b := do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/next", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first next: status %d: %s", resp.StatusCode, b)
	}
	snap := decodeSnapshot(t, b)
	if !snap.State.Animating || snap.State.Phase != "exit" {
		t.Errorf("expected exit phase, got %+v", snap.State)
	}
	if snap.Page.Headline != "Stop 0" {
		t.Errorf("render should wait for the exit delay, headline %q", snap.Page.Headline)
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/next", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second next: status %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/sessions/"+id, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: status %d", resp.StatusCode)
	}
	if s.Sessions() != 0 {
		t.Errorf("expected no sessions, got %d", s.Sessions())
	}
	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/sessions/"+id, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: status %d", resp.StatusCode)
	}
}

func TestReap(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s, ts := newTestServer(t, controller.Example, WithSessionTTL(time.Minute), WithClock(clock))
	old := createSession(t, ts, "").ID

	mu.Lock()
	now = now.Add(45 * time.Second)
	mu.Unlock()
	fresh := createSession(t, ts, "").ID

	mu.Lock()
	now = now.Add(30 * time.Second)
	mu.Unlock()
	if n := s.Reap(); n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if _, err := s.session(old); err != ErrSessionNotFound {
		t.Errorf("old session should be gone, got %v", err)
	}
	if _, err := s.session(fresh); err != nil {
		t.Errorf("fresh session should survive: %v", err)
	}
}

func TestReplace(t *testing.T) {
	s, ts := newTestServer(t, controller.Example)
	before := createSession(t, ts, "")

	s.Replace(&loader.Bundle{Source: "mem", Story: testutil.Journey(5)})
	after := createSession(t, ts, "")
	if before.State.Len != 3 || after.State.Len != 5 {
		t.Errorf("lengths before/after = %d/%d", before.State.Len, after.State.Len)
	}

	resp, b := do(t, http.MethodGet, ts.URL+"/api/sessions/"+before.ID, "")
	if resp.StatusCode != http.StatusOK || decodeSnapshot(t, b).State.Len != 3 {
		t.Error("existing session should keep its story")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, controller.Example)
	createSession(t, ts, "")
	resp, b := do(t, http.MethodGet, ts.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), "timings") {
		t.Errorf("metrics: %d %s", resp.StatusCode, b)
	}
}
