// Package server exposes each diagnostic as an HTTP operation. It is a thin
// boundary: parse the window, call the engine, render JSON.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matz-e/oci-db-doctor/src/diagnostics"
	"github.com/matz-e/oci-db-doctor/src/oracle"
	"github.com/matz-e/oci-db-doctor/src/queries"
)

// defaultWindow is how far back windowed diagnostics look when the request
// does not bound the incident window itself.
const defaultWindow = time.Hour

type Server struct {
	engine *diagnostics.Engine
	db     oracle.DataSource
}

func New(engine *diagnostics.Engine, db oracle.DataSource) *Server {
	return &Server{engine: engine, db: db}
}

// Router wires the diagnostic operations. Windowed endpoints accept start
// and end query parameters in RFC3339.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", s.health)

	v1 := router.Group("/v1/diagnostics")
	v1.GET("/blocking", s.blocking)
	v1.GET("/cpu", s.cpuSaturation)
	v1.GET("/long-operations", s.longOperations)
	v1.GET("/parallelism", s.parallelism)
	v1.GET("/full-scans", s.fullScans)
	v1.GET("/report", s.report)

	return router
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), oracle.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx, queries.Ping)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	rows.Close()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) blocking(c *gin.Context) {
	reports, err := s.engine.AnalyzeBlocking(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"blocker_reports": reports,
		"total_chains":    len(reports),
	})
}

func (s *Server) cpuSaturation(c *gin.Context) {
	t0, t1, ok := s.window(c)
	if !ok {
		return
	}
	findings, err := s.engine.AnalyzeCPUSaturation(c.Request.Context(), t0, t1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings})
}

func (s *Server) longOperations(c *gin.Context) {
	t0, t1, ok := s.window(c)
	if !ok {
		return
	}
	findings, err := s.engine.AnalyzeLongOperations(c.Request.Context(), t0, t1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings})
}

func (s *Server) parallelism(c *gin.Context) {
	findings, err := s.engine.AnalyzeParallelism(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings})
}

func (s *Server) fullScans(c *gin.Context) {
	findings, err := s.engine.AnalyzeFullScans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings})
}

func (s *Server) report(c *gin.Context) {
	t0, t1, ok := s.window(c)
	if !ok {
		return
	}
	rep, err := s.engine.AssembleReport(c.Request.Context(), t0, t1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// window parses the start/end query parameters. A malformed bound is a
// client error and ends the request here.
func (s *Server) window(c *gin.Context) (time.Time, time.Time, bool) {
	t1 := time.Now().UTC()
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter, want RFC3339"})
			return time.Time{}, time.Time{}, false
		}
		t1 = parsed
	}
	t0 := t1.Add(-defaultWindow)
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter, want RFC3339"})
			return time.Time{}, time.Time{}, false
		}
		t0 = parsed
	}
	if !t0.Before(t1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be before end"})
		return time.Time{}, time.Time{}, false
	}
	return t0, t1, true
}
