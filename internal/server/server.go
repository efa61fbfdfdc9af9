// Package server relays test results received over HTTP to the remote service through a
// single logged-in client.
package server

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/zephyrrun/internal/auth"
	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/probe"
	"github.com/loykin/zephyrrun/internal/zephyr"
)

// Client is the subset of the zephyrrun client the relay drives.
type Client interface {
	Identity() string
	FindExecution(ctx context.Context, testKey, cycleID, projectID string) (zephyr.Execution, bool, error)
	SetStatus(ctx context.Context, executionID, status string, comment *string) (zephyr.UpdatedExecution, error)
	SetStatusBulk(ctx context.Context, executionIDs []string, status string, comment *string) (zephyr.BulkResult, error)
	Probe(ctx context.Context, candidates []probe.Candidate) iter.Seq[probe.EndpointStatus]
}

type Config struct {
	Addr string
	// JWT enables bearer verification on /api routes when Secret is set.
	JWT    VerifyConfig
	Logger *common.Logger
}

// Server owns the gin engine. Calls into the client are serialized: the remote session
// cannot take overlapping requests.
type Server struct {
	cfg    Config
	client Client
	logger *common.Logger
	engine *gin.Engine

	mu sync.Mutex
}

func New(cfg Config, client Client) *Server {
	s := &Server{
		cfg:    cfg,
		client: client,
		logger: common.OrDefault(cfg.Logger).WithComponent("server"),
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), s.accessLog())
	engine.GET("/healthz", s.health)

	api := engine.Group("/api/v1")
	if len(cfg.JWT.Secret) > 0 {
		api.Use(JWTMiddleware(cfg.JWT))
	}
	api.POST("/executions/status", s.setStatus)
	api.POST("/executions/bulk", s.setStatusBulk)
	api.GET("/probe", s.probe)
	s.engine = engine
	return s
}

// Handler exposes the engine, mostly for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		id, _ := c.Get(requestIDKey)
		s.logger.WithRequest(c.Request.Method, c.Request.URL.Path).Debug("request served",
			"status", c.Writer.Status(), "duration", time.Since(start), "request_id", id)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type statusRequest struct {
	TestKey   string  `json:"testKey"`
	CycleID   string  `json:"cycleId"`
	ProjectID string  `json:"projectId"`
	Status    string  `json:"status"`
	Comment   *string `json:"comment"`
}

func (s *Server) setStatus(c *gin.Context) {
	var in statusRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}
	in.TestKey = strings.TrimSpace(in.TestKey)
	if in.TestKey == "" || in.CycleID == "" || in.ProjectID == "" {
		abort(c, http.StatusBadRequest, "testKey, cycleId and projectId are required")
		return
	}
	if _, err := zephyr.ParseStatus(in.Status); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := c.Request.Context()
	exec, found, err := s.client.FindExecution(ctx, in.TestKey, in.CycleID, in.ProjectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !found {
		abort(c, http.StatusNotFound, "no execution of "+in.TestKey+" in cycle "+in.CycleID)
		return
	}
	out, err := s.client.SetStatus(ctx, exec.ID, in.Status, in.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"executionId":  exec.ID,
		"status":       out.Status.String(),
		"acknowledged": out.Acknowledged,
		"identity":     s.client.Identity(),
	})
}

type bulkRequest struct {
	ExecutionIDs []string `json:"executionIds"`
	Status       string   `json:"status"`
	Comment      *string  `json:"comment"`
}

func (s *Server) setStatusBulk(c *gin.Context) {
	var in bulkRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.client.SetStatusBulk(c.Request.Context(), in.ExecutionIDs, in.Status, in.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"executionIds": out.IDs,
		"status":       out.Status.String(),
		"jobToken":     out.JobToken,
		"acknowledged": out.Acknowledged,
	})
}

type probeEntry struct {
	Capability string `json:"capability"`
	Path       string `json:"path"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) probe(c *gin.Context) {
	cands := probe.Catalogue()
	if capName := c.Query("capability"); capName != "" {
		cands = probe.ForCapability(cands, probe.Capability(capName))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]probeEntry, 0, len(cands))
	for st := range s.client.Probe(c.Request.Context(), cands) {
		e := probeEntry{Capability: string(st.Capability), Path: st.Path, Status: st.Status.String(), StatusCode: st.StatusCode}
		if st.Err != nil {
			e.Error = st.Err.Error()
		}
		out = append(out, e)
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": out})
}

// fail maps client errors onto relay status codes.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		ise *zephyr.InvalidStatusError
		rej *zephyr.RemoteRejectedError
		af  *auth.AuthFailure
		te  *httpc.TransportError
	)
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &ise), errors.Is(err, zephyr.ErrEmptyExecutionList), errors.Is(err, zephyr.ErrEmptyExecutionID):
		code = http.StatusBadRequest
	case errors.As(err, &rej), errors.As(err, &af):
		code = http.StatusBadGateway
	case errors.As(err, &te):
		code = http.StatusGatewayTimeout
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("relay call failed", "error", err, "status", code)
	}
	abort(c, code, err.Error())
}
