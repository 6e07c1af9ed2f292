package site

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const adminCookie = "admin_token"

// adminAuth lets the request through only with a valid session cookie.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) validCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	return userOK && passOK && s.admin.Username != ""
}

// Setup all admin routes
func (s *Server) setupAdminRoutes(r *gin.Engine) {
	// Privacy policy route
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", s.page(c, "Privacy Policy", gin.H{
			"tracking": s.tracker != nil,
		}))
	})

	if s.tracker == nil {
		return
	}

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", s.page(c, "Admin Login", gin.H{}))
	})

	r.POST("/admin/login", func(c *gin.Context) {
		who := s.tracker.HashIP(c.ClientIP())
		if !s.validCredentials(c.PostForm("username"), c.PostForm("password")) {
			s.log.Warn("failed admin login attempt", slog.String("from", who))
			c.HTML(http.StatusUnauthorized, "admin-login.html", s.page(c, "Admin Login", gin.H{
				"error": "Invalid credentials",
			}))
			return
		}
		// 24 hour session
		c.SetCookie(adminCookie, s.adminToken, 3600*24, "/admin", "", !s.debug, true)
		s.log.Info("admin login", slog.String("from", who))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", !s.debug, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin")
	admin.Use(s.adminAuth())

	admin.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			s.log.Error("load admin stats", slog.Any("err", err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", s.page(c, "Error", gin.H{
				"error": "Failed to load statistics",
			}))
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", s.page(c, "Dashboard", gin.H{
			"stats": stats,
		}))
	})

	admin.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	admin.GET("/visitors", func(c *gin.Context) {
		visitors, err := s.tracker.Recent(c.Request.Context(), 200)
		if err != nil {
			s.log.Error("load visitors", slog.Any("err", err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", s.page(c, "Error", gin.H{
				"error": "Failed to load visitors",
			}))
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", s.page(c, "Visitors", gin.H{
			"visitors": visitors,
		}))
	})

	// Purge visits past the retention window now instead of waiting a day.
	admin.POST("/privacy/cleanup", func(c *gin.Context) {
		n, err := s.tracker.Cleanup(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
	})

	admin.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		c.JSON(http.StatusOK, stats)
	})
}
