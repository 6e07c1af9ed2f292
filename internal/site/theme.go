package site

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// toggleTheme flips the site theme and sends the visitor back where they were.
func (s *Server) toggleTheme(c *gin.Context) {
	next, err := s.theme.Toggle(c.Request.Context())
	if err != nil {
		s.log.Error("toggle theme failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save theme"})
		return
	}
	s.metrics.ThemeToggled(string(next))

	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Refresh", "true")
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, safeReturn(c.PostForm("return")))
}

// sameOrigin rejects cross-site form posts. Browsers send Sec-Fetch-Site on
// every request; older ones fall back to the Origin check.
func sameOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if site := c.GetHeader("Sec-Fetch-Site"); site != "" {
			if site != "same-origin" && site != "none" {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cross-site request"})
				return
			}
			c.Next()
			return
		}
		if origin := c.GetHeader("Origin"); origin != "" {
			u, err := url.Parse(origin)
			if err != nil || u.Host != c.Request.Host {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cross-site request"})
				return
			}
		}
		c.Next()
	}
}

// safeReturn only allows local paths as redirect targets.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
