package site

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tusharganotra/portfolio/internal/typewriter"
)

func (s *Server) apiProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"profile": s.content.Profile,
		"skills":  s.content.Skills,
	})
}

func (s *Server) apiProjects(c *gin.Context) {
	c.JSON(http.StatusOK, s.content.Projects)
}

func (s *Server) apiNow(c *gin.Context) {
	c.JSON(http.StatusOK, s.content.Now)
}

func (s *Server) apiTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": s.theme.Current()})
}

// apiTerminal returns a script with each line's style class and the variant
// timing, for clients that animate on their own.
func (s *Server) apiTerminal(c *gin.Context) {
	term, ok := s.content.Terminal(c.DefaultQuery("script", "home"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown script"})
		return
	}
	variant := c.DefaultQuery("variant", "once")
	cfg, ok := s.variants[variant]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown variant"})
		return
	}

	lines := make([]typewriter.Line, 0, len(term.Lines))
	for i, text := range term.Lines {
		lines = append(lines, typewriter.Line{
			Number: typewriter.LineNumber(i),
			Text:   text,
			Class:  typewriter.Classify(text),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"title":   term.Title,
		"variant": variant,
		"lines":   lines,
		"timing": gin.H{
			"min_delay_ms":    cfg.MinDelay.Milliseconds(),
			"max_delay_ms":    cfg.MaxDelay.Milliseconds(),
			"loop":            cfg.Loop,
			"loop_pause_ms":   cfg.LoopPause.Milliseconds(),
			"caret_when_done": cfg.CaretWhenDone,
		},
	})
}
