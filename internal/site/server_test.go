package site

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharganotra/portfolio/internal/analytics"
	"github.com/tusharganotra/portfolio/internal/config"
	"github.com/tusharganotra/portfolio/internal/content"
	"github.com/tusharganotra/portfolio/internal/feed"
	"github.com/tusharganotra/portfolio/internal/metrics"
	"github.com/tusharganotra/portfolio/internal/store"
	"github.com/tusharganotra/portfolio/internal/theme"
	"github.com/tusharganotra/portfolio/internal/typewriter"
)

type testEnv struct {
	srv      *Server
	handler  http.Handler
	registry *prometheus.Registry
	theme    *theme.Preference
	tracker  *analytics.Tracker
}

type envOptions struct {
	feedHandler http.HandlerFunc
	cors        []string
	noTracker   bool
}

const feedOK = `{"status":"ok","items":[{"title":"Scaling RAG","pubDate":"2024-01-15 08:30:00",
"link":"https://medium.com/p/rag","guid":"https://medium.com/p/rag","thumbnail":"",
"description":"<p>Notes on <b>retrieval</b></p>","categories":["ai"]}]}`

func newEnv(t *testing.T, o envOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	if o.feedHandler == nil {
		o.feedHandler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(feedOK))
		}
	}
	upstream := httptest.NewServer(o.feedHandler)
	t.Cleanup(upstream.Close)

	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "portfolio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pref, err := theme.Load(ctx, db)
	require.NoError(t, err)

	var tracker *analytics.Tracker
	if !o.noTracker {
		tracker, err = analytics.NewTracker(db.DB(), time.Hour)
		require.NoError(t, err)
	}

	siteContent, err := content.Load()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	fast := typewriter.Config{MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	looping := fast
	looping.Loop = true
	looping.LoopPause = 5 * time.Millisecond
	looping.CaretWhenDone = true

	srv, err := New(Options{
		Content: siteContent,
		Theme:   pref,
		Feed: feed.NewClient(feed.Config{
			Endpoint:   upstream.URL,
			RSSURL:     "https://medium.com/feed/@ganotra.vox",
			ProfileURL: "https://medium.com/@ganotra.vox",
			Timeout:    2 * time.Second,
		}, upstream.Client(), m),
		Tracker:     tracker,
		Metrics:     m,
		Gatherer:    reg,
		Admin:       config.Admin{Username: "admin", Password: "hunter2"},
		CORSOrigins: o.cors,
		Debug:       true,
		Variants:    map[string]typewriter.Config{"once": fast, "loop": looping},
		Now:         func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	if tracker != nil {
		t.Cleanup(tracker.Wait)
	}
	return &testEnv{srv: srv, handler: srv.Handler(), registry: reg, theme: pref, tracker: tracker}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func TestPagesRender(t *testing.T) {
	env := newEnv(t, envOptions{})

	tests := []struct {
		path     string
		contains []string
	}{
		{"/", []string{"Technical Specifications", "developer.ts", `data-stream="/terminal/stream?script=home&variant=once"`}},
		{"/now", []string{"Current Status", "HCL Technologies", "variant=loop"}},
		{"/projects", []string{"Multithreaded Proxy Server", "https://vectorthink.dev/"}},
		{"/blog", []string{`hx-get="/blog/posts"`, "spinner"}},
		{"/privacy", []string{"Privacy Policy"}},
	}
	for _, tt := range tests {
		w := env.get(tt.path)
		require.Equalf(t, http.StatusOK, w.Code, "GET %s", tt.path)
		body := w.Body.String()
		assert.Containsf(t, body, `<html lang="en" class="dark">`, "GET %s", tt.path)
		assert.Containsf(t, body, "&copy; 2025", "GET %s", tt.path)
		for _, want := range tt.contains {
			assert.Containsf(t, body, want, "GET %s", tt.path)
		}
	}
	assert.Equal(t, 4.0, metricValue(t, env.registry, "portfolio_page_views_total"))
}

func TestNavHighlightsCurrentRoute(t *testing.T) {
	env := newEnv(t, envOptions{})
	body := env.get("/projects").Body.String()
	assert.Contains(t, body, `<a href="/projects" class="active">Projects</a>`)
	assert.Contains(t, body, `<a href="/" class="">Home</a>`)
}

func TestIsActive(t *testing.T) {
	assert.True(t, IsActive("/", "/"))
	assert.False(t, IsActive("/blog", "/"))
	assert.True(t, IsActive("/blog", "/blog"))
	assert.True(t, IsActive("/blog/posts", "/blog"))
	assert.False(t, IsActive("/now", "/blog"))
}

func TestNotFound(t *testing.T) {
	env := newEnv(t, envOptions{})
	w := env.get("/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "/nope")
}

func TestBlogPostStates(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		contains []string
		absent   []string
	}{
		{
			name:     "posts",
			handler:  nil,
			contains: []string{"Scaling RAG", "Jan 15, 2024", "Notes on retrieval", "Read more on Medium"},
			absent:   []string{"Visit Medium Profile"},
		},
		{
			name: "status error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"error"}`))
			},
			contains: []string{"Failed to fetch blog posts.", "Visit Medium Profile", "https://medium.com/@ganotra.vox"},
		},
		{
			name: "transport error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			contains: []string{"Failed to load blog posts. Please try again later.", "Visit Medium Profile"},
		},
		{
			name: "empty",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"ok","items":[]}`))
			},
			contains: []string{"No posts found yet.", "Check my Medium profile directly"},
			absent:   []string{"Visit Medium Profile"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, envOptions{feedHandler: tt.handler})
			w := env.get("/blog/posts")
			require.Equal(t, http.StatusOK, w.Code)
			for _, want := range tt.contains {
				assert.Contains(t, w.Body.String(), want)
			}
			for _, not := range tt.absent {
				assert.NotContains(t, w.Body.String(), not)
			}
		})
	}
}

func TestThemeToggle(t *testing.T) {
	env := newEnv(t, envOptions{})

	form := url.Values{"return": {"/projects"}}
	req := httptest.NewRequest(http.MethodPost, "/theme/toggle", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/projects", w.Header().Get("Location"))
	assert.Equal(t, theme.Light, env.theme.Current())
	assert.Contains(t, env.get("/").Body.String(), `<html lang="en" class="light">`)

	req = httptest.NewRequest(http.MethodPost, "/theme/toggle", nil)
	req.Header.Set("HX-Request", "true")
	w = env.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "true", w.Header().Get("HX-Refresh"))
	assert.Equal(t, theme.Dark, env.theme.Current())

	var body map[string]string
	require.NoError(t, json.Unmarshal(env.get("/api/theme").Body.Bytes(), &body))
	assert.Equal(t, "dark", body["theme"])
}

func TestThemeToggleRejectsCrossSitePosts(t *testing.T) {
	env := newEnv(t, envOptions{})

	tests := []struct {
		name   string
		header map[string]string
		status int
	}{
		{"cross-site fetch metadata", map[string]string{"Sec-Fetch-Site": "cross-site"}, http.StatusForbidden},
		{"same-site subdomain", map[string]string{"Sec-Fetch-Site": "same-site"}, http.StatusForbidden},
		{"foreign origin", map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"same origin", map[string]string{"Sec-Fetch-Site": "same-origin", "Origin": "http://example.com"}, http.StatusSeeOther},
		{"matching origin only", map[string]string{"Origin": "http://example.com"}, http.StatusSeeOther},
	}
	want := env.theme.Current()
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/theme/toggle", nil)
		for k, v := range tt.header {
			req.Header.Set(k, v)
		}
		w := env.do(req)
		assert.Equal(t, tt.status, w.Code, tt.name)
		if tt.status == http.StatusSeeOther {
			want = want.Opposite()
		}
		assert.Equal(t, want, env.theme.Current(), tt.name)
	}
}

func TestSafeReturn(t *testing.T) {
	assert.Equal(t, "/now", safeReturn("/now"))
	assert.Equal(t, "/", safeReturn(""))
	assert.Equal(t, "/", safeReturn("https://evil.example"))
	assert.Equal(t, "/", safeReturn("//evil.example"))
	assert.Equal(t, "/", safeReturn(`/\evil.example`))
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimPrefix(line, "data:")
		case line == "" && cur.name != "":
			events = append(events, cur)
			cur = sseEvent{}
		}
	}
	return events
}

func TestTerminalStreamOnce(t *testing.T) {
	env := newEnv(t, envOptions{})
	w := env.get("/terminal/stream?script=home&variant=once")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	events := parseSSE(t, w.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, "done", events[len(events)-1].name)

	frames := events[:len(events)-1]
	siteContent, _ := content.Load()
	home, _ := siteContent.Terminal("home")
	// initial frame plus one per step
	assert.Len(t, frames, typewriter.Steps(home.Script())+1)

	var first, last typewriter.Frame
	require.NoError(t, json.Unmarshal([]byte(frames[0].data), &first))
	require.NoError(t, json.Unmarshal([]byte(frames[len(frames)-1].data), &last))
	assert.Empty(t, first.Lines)
	assert.True(t, first.Caret)
	assert.True(t, last.Done)
	assert.False(t, last.Caret)
	require.Len(t, last.Lines, len(home.Lines))
	for i, line := range last.Lines {
		assert.Equal(t, home.Lines[i], line.Text)
		assert.Equal(t, typewriter.ClassKeyword, line.Class)
	}

	assert.Equal(t, 0.0, metricValue(t, env.registry, "portfolio_terminal_sessions"))
	assert.Equal(t, float64(len(frames)), metricValue(t, env.registry, "portfolio_terminal_frames_total"))
}

func TestTerminalStreamRejectsUnknown(t *testing.T) {
	env := newEnv(t, envOptions{})
	assert.Equal(t, http.StatusNotFound, env.get("/terminal/stream?script=missing").Code)
	assert.Equal(t, http.StatusBadRequest, env.get("/terminal/stream?variant=sideways").Code)
}

func TestTerminalStreamStopsOnDisconnect(t *testing.T) {
	env := newEnv(t, envOptions{})
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/terminal/stream?script=now&variant=loop", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)

	// read the first event, then hang up
	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event:frame\n", line)
	assert.Equal(t, 1.0, metricValue(t, env.registry, "portfolio_terminal_sessions"))

	cancel()
	_ = resp.Body.Close()

	require.Eventually(t, func() bool {
		return metricValue(t, env.registry, "portfolio_terminal_sessions") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAPI(t *testing.T) {
	env := newEnv(t, envOptions{cors: []string{"https://example.com"}})

	var projects []content.Project
	require.NoError(t, json.Unmarshal(env.get("/api/projects").Body.Bytes(), &projects))
	assert.Len(t, projects, 5)

	var term struct {
		Title   string            `json:"title"`
		Variant string            `json:"variant"`
		Lines   []typewriter.Line `json:"lines"`
		Timing  map[string]any    `json:"timing"`
	}
	require.NoError(t, json.Unmarshal(env.get("/api/terminal?script=now&variant=loop").Body.Bytes(), &term))
	assert.Equal(t, "status.ts", term.Title)
	assert.Equal(t, typewriter.ClassComment, term.Lines[0].Class)
	assert.Equal(t, "01", term.Lines[0].Number)
	assert.Equal(t, true, term.Timing["loop"])

	req := httptest.NewRequest(http.MethodGet, "/api/now", nil)
	req.Header.Set("Origin", "https://example.com")
	w := env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusOK, env.get("/api/profile").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/api/terminal?script=missing").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(t, envOptions{})
	env.get("/blog/posts")

	assert.Equal(t, http.StatusOK, env.get("/healthz").Code)
	w := env.get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `portfolio_feed_fetches_total{outcome="ok"} 1`)
}

func TestStaticAssets(t *testing.T) {
	env := newEnv(t, envOptions{})
	w := env.get("/static/site.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "EventSource")
}
