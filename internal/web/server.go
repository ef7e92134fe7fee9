// Package web serves the storyboard page: one script form, one card per
// scene, and inline images. Each browser gets its own in-memory session.
package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storyboard/internal/board"
	"storyboard/internal/credentials"
	"storyboard/internal/metrics"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Backend creates boards and exports them below the configured export target.
type Backend interface {
	Preset() credentials.Source
	NewBoard(fallback credentials.Source) *board.Board
	ExportSubdir(ctx context.Context, b *board.Board, sub string) ([]string, error)
}

const (
	defaultMaxSessions = 256
	defaultIdleTimeout = 2 * time.Hour
)

type Options struct {
	Title  string
	Labels map[credentials.Key]string

	// MaxSessions caps live browser sessions; the least recently seen one is
	// dropped to make room. IdleTimeout expires sessions not seen for that long.
	MaxSessions int
	IdleTimeout time.Duration
}

type Server struct {
	backend Backend
	opts    Options
	router  *gin.Engine
	now     func() time.Time

	// whether the preset store lacks each key, checked once at start
	needText bool
	needImg  bool

	mu       sync.Mutex
	sessions map[string]*entry
}

type flash struct {
	Kind    string
	Message string
}

type entry struct {
	board *board.Board
	keys  *credentials.Static

	// guarded by Server.mu
	lastSeen time.Time

	mu      sync.Mutex
	script  string
	flashes []flash
}

func (e *entry) addFlash(kind, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flashes = append(e.flashes, flash{Kind: kind, Message: msg})
}

func (e *entry) takeFlashes() []flash {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.flashes
	e.flashes = nil
	return out
}

func New(backend Backend, opts Options) (*Server, error) {
	if opts.Title == "" {
		opts.Title = "AI Storyboard Generator"
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaultMaxSessions
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}

	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	s := &Server{
		backend:  backend,
		opts:     opts,
		now:      time.Now,
		needText: !presetHas(ctx, backend.Preset(), credentials.Text),
		needImg:  !presetHas(ctx, backend.Preset(), credentials.Image),
		sessions: make(map[string]*entry),
	}

	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())
	router.SetHTMLTemplate(tmpl)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	pages := router.Group("/", s.withSession())
	{
		pages.GET("/", s.index)
		pages.POST("/analyze", s.analyze)
		pages.POST("/keys", s.setKeys)
		pages.POST("/export", s.export)
		pages.POST("/scenes/:number/image", s.generateImage)
		pages.POST("/scenes/:number/prompt", s.editPrompt)
	}

	s.router = router
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// lookup returns the live session with the given id.
func (s *Server) lookup(id string) (*entry, bool) {
	if id == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(e.lastSeen) > s.opts.IdleTimeout {
		delete(s.sessions, id)
		return nil, false
	}
	e.lastSeen = now
	return e, true
}

// create starts a session under a fresh id, expiring idle sessions and
// evicting the least recently seen one when the cap is reached.
func (s *Server) create() (string, *entry) {
	keys := credentials.NewStatic()
	e := &entry{board: s.backend.NewBoard(keys), keys: keys}
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for sid, old := range s.sessions {
		if now.Sub(old.lastSeen) > s.opts.IdleTimeout {
			delete(s.sessions, sid)
		}
	}
	if len(s.sessions) >= s.opts.MaxSessions {
		var oldestID string
		var oldest time.Time
		for sid, old := range s.sessions {
			if oldestID == "" || old.lastSeen.Before(oldest) {
				oldestID, oldest = sid, old.lastSeen
			}
		}
		delete(s.sessions, oldestID)
		slog.Debug("Evicted browser session", "live", len(s.sessions))
	}

	e.lastSeen = now
	s.sessions[id] = e
	return id, e
}

func presetHas(ctx context.Context, src credentials.Source, key credentials.Key) bool {
	_, err := src.Lookup(ctx, key)
	return err == nil
}

// Sessions returns the number of live browser sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
