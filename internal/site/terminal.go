package site

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tusharganotra/portfolio/internal/typewriter"
)

// terminalStream runs one Animator per connection and pushes every frame as
// an SSE "frame" event. The animator is stopped when the client goes away.
func (s *Server) terminalStream(c *gin.Context) {
	term, ok := s.content.Terminal(c.DefaultQuery("script", "home"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown script"})
		return
	}
	cfg, ok := s.variants[c.DefaultQuery("variant", "once")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown variant"})
		return
	}

	ctx := c.Request.Context()
	frames := make(chan typewriter.Frame, 16)
	anim := typewriter.New(term.Script(), cfg, func(f typewriter.Frame) {
		select {
		case frames <- f:
		case <-ctx.Done():
		}
	}, s.terminalOpts...)

	defer s.metrics.TerminalOpened()()
	defer anim.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(f typewriter.Frame) {
		c.SSEvent("frame", f)
		c.Writer.Flush()
		s.metrics.TerminalFrame()
	}

	anim.Start()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-frames:
			send(f)
		case <-anim.Done():
			// the final frame is queued before Done closes
			for {
				select {
				case f := <-frames:
					send(f)
				default:
					c.SSEvent("done", gin.H{"script": term.Title})
					c.Writer.Flush()
					return
				}
			}
		}
	}
}
