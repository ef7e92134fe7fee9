package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"storyboard/internal/board"
	"storyboard/internal/credentials"
	"storyboard/internal/imagegen"
	"storyboard/internal/llm"
	"storyboard/internal/scene"
	"storyboard/internal/session"
)

type fakePlanner struct{}

func (fakePlanner) PlanScenes(context.Context, string) (*scene.Set, error) {
	return &scene.Set{Scenes: []scene.Scene{
		{Number: 2, Timestamp: "00:03-00:06", ScriptLine: "Second line.", ImagePrompt: "fail here"},
		{Number: 1, Timestamp: "00:00-00:03", ScriptLine: "First line.", ImagePrompt: "paint here"},
	}}, nil
}

type fakeRenderer struct{}

func (fakeRenderer) GenerateImage(_ context.Context, prompt string) (*imagegen.Image, error) {
	if prompt == "fail here" {
		return nil, errors.New("billing required")
	}
	return &imagegen.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}, nil
}

type fakeBackend struct {
	preset  *credentials.Static
	exports []string
}

func (b *fakeBackend) Preset() credentials.Source { return b.preset }

func (b *fakeBackend) NewBoard(fallback credentials.Source) *board.Board {
	return board.New(session.New(session.Options{
		Credentials: credentials.Chain{b.preset, fallback},
		Planner: func(context.Context, string) (llm.Planner, error) {
			return fakePlanner{}, nil
		},
		Renderer: func(context.Context, string) (imagegen.Renderer, error) {
			return fakeRenderer{}, nil
		},
		PlannerName:  "fake",
		RendererName: "fake",
	}))
}

func (b *fakeBackend) ExportSubdir(_ context.Context, _ *board.Board, sub string) ([]string, error) {
	b.exports = append(b.exports, sub)
	return []string{"out/scenes.json"}, nil
}

type client struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (c *client) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) page() string {
	c.t.Helper()
	rec := c.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		c.t.Fatalf("GET / status = %d", rec.Code)
	}
	return rec.Body.String()
}

func newTestServer(t *testing.T, preset *credentials.Static) (*Server, *fakeBackend) {
	t.Helper()
	return newTestServerWith(t, preset, Options{})
}

func newTestServerWith(t *testing.T, preset *credentials.Static, opts Options) (*Server, *fakeBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := &fakeBackend{preset: preset}
	opts.Labels = map[credentials.Key]string{
		credentials.Text:  "Gemini API Key",
		credentials.Image: "Gemini API Key",
	}
	srv, err := New(backend, opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, backend
}

func TestIndexShowsKeyFields(t *testing.T) {
	srv, _ := newTestServer(t, credentials.NewStatic())
	c := &client{t: t, h: srv.Handler()}

	body := c.page()
	if !strings.Contains(body, "AI Storyboard Generator") {
		t.Error("page has no title")
	}
	if !strings.Contains(body, `type="password" name="text_key"`) {
		t.Error("page has no masked text key field")
	}
	if c.cookie == nil {
		t.Fatal("no session cookie set")
	}

	c.do(http.MethodPost, "/keys", url.Values{"text_key": {"k1"}, "image_key": {"k2"}})
	if body := c.page(); strings.Contains(body, `name="text_key"`) {
		t.Error("key fields still shown after keys were entered")
	}
}

func TestAnalyzeFlow(t *testing.T) {
	preset := credentials.NewStatic()
	preset.Set(credentials.Text, "text")
	preset.Set(credentials.Image, "image")
	srv, _ := newTestServer(t, preset)
	c := &client{t: t, h: srv.Handler()}

	rec := c.do(http.MethodPost, "/analyze", url.Values{"script": {"   "}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST /analyze status = %d, want 303", rec.Code)
	}
	if body := c.page(); !strings.Contains(body, "Please enter a script!") {
		t.Error("empty script flash missing")
	}

	c.do(http.MethodPost, "/analyze", url.Values{"script": {"First line. Second line."}})
	body := c.page()
	if !strings.Contains(body, "Generated 2 scenes!") {
		t.Error("success flash missing")
	}
	first := strings.Index(body, `id="scene-1"`)
	second := strings.Index(body, `id="scene-2"`)
	if first < 0 || second < 0 || first > second {
		t.Errorf("scene cards missing or out of order: %d, %d", first, second)
	}
	if strings.Contains(c.page(), "Generated 2 scenes!") {
		t.Error("flash shown twice")
	}
}

func TestGenerateImageFlow(t *testing.T) {
	preset := credentials.NewStatic()
	preset.Set(credentials.Text, "text")
	preset.Set(credentials.Image, "image")
	srv, _ := newTestServer(t, preset)
	c := &client{t: t, h: srv.Handler()}

	c.do(http.MethodPost, "/analyze", url.Values{"script": {"A script."}})

	rec := c.do(http.MethodPost, "/scenes/1/image", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/#scene-1" {
		t.Fatalf("POST image = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	c.do(http.MethodPost, "/scenes/2/image", nil)

	body := c.page()
	if !strings.Contains(body, "data:image/png;base64,") {
		t.Error("generated image not inlined")
	}
	if !strings.Contains(body, "Image gen failed: ") || !strings.Contains(body, "enable billing") {
		t.Error("per-scene warning or hint missing")
	}
	if strings.Count(body, `class="warning"`) != 1 {
		t.Error("warning shown on more than one scene")
	}

	if rec := c.do(http.MethodPost, "/scenes/abc/image", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid scene number status = %d, want 400", rec.Code)
	}
}

func TestEditPromptAndExport(t *testing.T) {
	preset := credentials.NewStatic()
	preset.Set(credentials.Text, "text")
	srv, backend := newTestServer(t, preset)
	c := &client{t: t, h: srv.Handler()}

	c.do(http.MethodPost, "/analyze", url.Values{"script": {"A script."}})
	c.do(http.MethodPost, "/scenes/1/prompt", url.Values{"prompt": {"edited by hand"}})

	if body := c.page(); !strings.Contains(body, "edited by hand") {
		t.Error("edited prompt not displayed")
	}

	c.do(http.MethodPost, "/export", url.Values{})
	c.do(http.MethodPost, "/export", url.Values{"subdir": {" run1/ "}})
	if len(backend.exports) != 2 || backend.exports[0] != "" || backend.exports[1] != "run1" {
		t.Errorf("exports = %q, want default then run1", backend.exports)
	}
	if body := c.page(); !strings.Contains(body, "Exported 1 files") {
		t.Error("export flash missing")
	}
}

func TestExportRejectsEscapingDir(t *testing.T) {
	preset := credentials.NewStatic()
	preset.Set(credentials.Text, "text")
	srv, backend := newTestServer(t, preset)
	c := &client{t: t, h: srv.Handler()}

	c.do(http.MethodPost, "/analyze", url.Values{"script": {"A script."}})

	for _, sub := range []string{"../outside", "/etc/cron.d", "a/../../outside", "gs://other-bucket/x"} {
		rec := c.do(http.MethodPost, "/export", url.Values{"subdir": {sub}})
		if rec.Code != http.StatusSeeOther {
			t.Errorf("POST /export %q status = %d, want 303", sub, rec.Code)
		}
		if body := c.page(); !strings.Contains(body, "invalid export directory") {
			t.Errorf("POST /export %q: no rejection flash", sub)
		}
	}
	if len(backend.exports) != 0 {
		t.Errorf("backend exported to %q, want nothing", backend.exports)
	}
}

func TestSessionsAreSeparate(t *testing.T) {
	preset := credentials.NewStatic()
	preset.Set(credentials.Text, "text")
	srv, _ := newTestServer(t, preset)

	a := &client{t: t, h: srv.Handler()}
	b := &client{t: t, h: srv.Handler()}

	a.do(http.MethodPost, "/analyze", url.Values{"script": {"A script."}})
	b.page()

	if srv.Sessions() != 2 {
		t.Errorf("Sessions() = %d, want 2", srv.Sessions())
	}
	if strings.Contains(b.page(), `id="scene-1"`) {
		t.Error("second browser sees scenes of the first")
	}
}

func TestSessionsAreBounded(t *testing.T) {
	srv, _ := newTestServerWith(t, credentials.NewStatic(), Options{MaxSessions: 5})

	for i := 0; i < 50; i++ {
		c := &client{t: t, h: srv.Handler()}
		c.page()
	}
	if got := srv.Sessions(); got != 5 {
		t.Errorf("Sessions() after 50 cookieless visits = %d, want 5", got)
	}
}

func TestUnknownCookieGetsFreshID(t *testing.T) {
	srv, _ := newTestServer(t, credentials.NewStatic())
	forged := &http.Cookie{Name: sessionCookie, Value: "chosen-by-client"}
	c := &client{t: t, h: srv.Handler(), cookie: forged}

	c.page()
	if c.cookie.Value == forged.Value {
		t.Error("server adopted a client-chosen session id")
	}

	issued := c.cookie.Value
	c.page()
	if c.cookie.Value != issued || srv.Sessions() != 1 {
		t.Errorf("known cookie not reused: %q vs %q, %d sessions", c.cookie.Value, issued, srv.Sessions())
	}
}

func TestIdleSessionsExpire(t *testing.T) {
	preset := credentials.NewStatic()
	preset.Set(credentials.Text, "text")
	srv, _ := newTestServerWith(t, preset, Options{IdleTimeout: time.Minute})
	now := time.Now()
	srv.now = func() time.Time { return now }

	a := &client{t: t, h: srv.Handler()}
	a.do(http.MethodPost, "/analyze", url.Values{"script": {"A script."}})
	first := a.cookie.Value

	now = now.Add(2 * time.Minute)
	b := &client{t: t, h: srv.Handler()}
	b.page()
	if srv.Sessions() != 1 {
		t.Errorf("Sessions() = %d, want idle session swept", srv.Sessions())
	}

	if body := a.page(); strings.Contains(body, `id="scene-1"`) || a.cookie.Value == first {
		t.Error("expired session still served")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, credentials.NewStatic())
	c := &client{t: t, h: srv.Handler()}

	if rec := c.do(http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}
}
