// Package site serves the portfolio: pages, the typewriter terminal stream,
// the theme toggle, a small JSON API and the admin dashboard.
package site

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tusharganotra/portfolio/internal/analytics"
	"github.com/tusharganotra/portfolio/internal/config"
	"github.com/tusharganotra/portfolio/internal/content"
	"github.com/tusharganotra/portfolio/internal/feed"
	"github.com/tusharganotra/portfolio/internal/logging"
	"github.com/tusharganotra/portfolio/internal/metrics"
	"github.com/tusharganotra/portfolio/internal/theme"
	"github.com/tusharganotra/portfolio/internal/typewriter"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Options wires the server's collaborators. Tracker may be nil to disable
// analytics and the admin area.
type Options struct {
	Content  *content.Site
	Theme    *theme.Preference
	Feed     *feed.Client
	Tracker  *analytics.Tracker
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Admin       config.Admin
	CORSOrigins []string
	Debug       bool

	// Variants maps the terminal variant query value to its config. Defaults
	// to "once" and "loop".
	Variants map[string]typewriter.Config
	// TerminalOptions are passed to every typewriter.Animator.
	TerminalOptions []typewriter.Option
	Now             func() time.Time
}

// Server holds the gin engine and everything handlers need.
type Server struct {
	engine *gin.Engine

	content  *content.Site
	theme    *theme.Preference
	feed     *feed.Client
	tracker  *analytics.Tracker
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	admin      config.Admin
	adminToken string
	debug      bool

	variants     map[string]typewriter.Config
	terminalOpts []typewriter.Option
	now          func() time.Time
	log          *slog.Logger
}

// New builds the server and registers all routes.
func New(opts Options) (*Server, error) {
	if opts.Content == nil || opts.Theme == nil || opts.Feed == nil || opts.Metrics == nil {
		return nil, errors.New("site: content, theme, feed and metrics are required")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Variants == nil {
		opts.Variants = map[string]typewriter.Config{
			"once": typewriter.Once(),
			"loop": typewriter.Looping(),
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	token, err := analytics.RandomToken()
	if err != nil {
		return nil, err
	}

	s := &Server{
		content:      opts.Content,
		theme:        opts.Theme,
		feed:         opts.Feed,
		tracker:      opts.Tracker,
		metrics:      opts.Metrics,
		gatherer:     opts.Gatherer,
		admin:        opts.Admin,
		adminToken:   token,
		debug:        opts.Debug,
		variants:     opts.Variants,
		terminalOpts: opts.TerminalOptions,
		now:          opts.Now,
		log:          logging.WithComponent("site"),
	}

	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	if s.tracker != nil {
		r.Use(s.tracker.Middleware())
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(static))

	// Pages
	r.GET("/", s.home)
	r.GET("/now", s.nowPage)
	r.GET("/projects", s.projects)
	r.GET("/blog", s.blog)

	// HTMX fragments and streams
	r.GET("/blog/posts", s.blogPosts)
	r.GET("/terminal/stream", s.terminalStream)
	r.POST("/theme/toggle", sameOrigin(), s.toggleTheme)

	// JSON API
	api := r.Group("/api")
	if len(opts.CORSOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins: opts.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Accept", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	api.GET("/profile", s.apiProfile)
	api.GET("/projects", s.apiProjects)
	api.GET("/now", s.apiNow)
	api.GET("/terminal", s.apiTerminal)
	api.GET("/theme", s.apiTheme)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	s.setupAdminRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "not-found.html", s.page(c, "Not Found", gin.H{}))
	})

	s.engine = r
	return s, nil
}

// Handler returns the HTTP handler for the whole site.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// AdminToken is the session token issued on admin login. It changes on every
// start.
func (s *Server) AdminToken() string {
	return s.adminToken
}

// requestLogger logs one line per request through slog.
func requestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// Streams would log only when the client leaves; skip them.
		if c.Request.URL.Path == "/terminal/stream" {
			return
		}
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		l.Log(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
