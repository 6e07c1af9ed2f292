package site

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tusharganotra/portfolio/internal/feed"
	"github.com/tusharganotra/portfolio/internal/typewriter"
)

// NavLink is one entry of the fixed route table.
type NavLink struct {
	Name string
	Path string
}

// Routes is the fixed set of pages, in navigation order.
var Routes = []NavLink{
	{Name: "Home", Path: "/"},
	{Name: "Now", Path: "/now"},
	{Name: "Projects", Path: "/projects"},
	{Name: "Blog", Path: "/blog"},
}

// IsActive reports whether the nav entry for path is highlighted on current.
// Home only matches itself; the rest match by prefix.
func IsActive(current, path string) bool {
	if path == "/" {
		return current == "/"
	}
	return strings.HasPrefix(current, path)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"isActive": IsActive,
		"chars": func(s string) []string {
			out := make([]string, 0, len(s))
			for _, r := range s {
				out = append(out, string(r))
			}
			return out
		},
		"mul": func(a, b int) int { return a * b },
		"inc": func(i int) int { return i + 1 },
		"classify": func(line string) string {
			return string(typewriter.Classify(line))
		},
	}
}

// page merges the data every layout needs into data.
func (s *Server) page(c *gin.Context, title string, data gin.H) gin.H {
	data["title"] = title
	data["path"] = c.Request.URL.Path
	data["nav"] = Routes
	data["theme"] = string(s.theme.Current())
	data["profile"] = s.content.Profile
	data["year"] = s.now().Year()
	return data
}

// Home page route
func (s *Server) home(c *gin.Context) {
	s.metrics.PageView("/")
	term, _ := s.content.Terminal("home")
	c.HTML(http.StatusOK, "home.html", s.page(c, s.content.Profile.Name, gin.H{
		"skills":   s.content.Skills,
		"terminal": term,
		"script":   "home",
		"variant":  "once",
	}))
}

func (s *Server) nowPage(c *gin.Context) {
	s.metrics.PageView("/now")
	term, _ := s.content.Terminal("now")
	c.HTML(http.StatusOK, "now.html", s.page(c, "Now", gin.H{
		"now":      s.content.Now,
		"terminal": term,
		"script":   "now",
		"variant":  "loop",
	}))
}

func (s *Server) projects(c *gin.Context) {
	s.metrics.PageView("/projects")
	c.HTML(http.StatusOK, "projects.html", s.page(c, "Projects", gin.H{
		"projects": s.content.Projects,
	}))
}

// Blog shell; the posts are loaded by HTMX from /blog/posts so the page shows
// a spinner while the feed is fetched.
func (s *Server) blog(c *gin.Context) {
	s.metrics.PageView("/blog")
	c.HTML(http.StatusOK, "blog.html", s.page(c, "Blog", gin.H{
		"profileURL": s.feed.ProfileURL(),
	}))
}

// blogPosts fetches the feed once and renders one of: posts, error, empty.
func (s *Server) blogPosts(c *gin.Context) {
	posts, err := s.feed.Fetch(c.Request.Context())
	data := gin.H{
		"profileURL": s.feed.ProfileURL(),
		"posts":      posts,
	}
	switch {
	case err == nil:
	case errors.Is(err, feed.ErrEmpty):
		data["empty"] = feed.Message(err)
	default:
		data["error"] = feed.Message(err)
	}
	c.HTML(http.StatusOK, "blog-posts.html", data)
}
