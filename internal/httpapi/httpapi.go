// Package httpapi exposes an optional HTTP surface around scan.Engine: a
// trigger endpoint, a server-sent-events heartbeat stream, and a Prometheus
// scrape endpoint. Nothing in internal/scan depends on this package; it is
// one possible caller, not part of the core.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portsweep/internal/metrics"
	"portsweep/internal/pkg/logger"
	"portsweep/internal/scan"
)

// Server wires a scan.Engine to gin routes.
type Server struct {
	engine *scan.Engine
	router *gin.Engine

	mu   sync.Mutex
	runs map[string]*runState
}

type runState struct {
	mu     sync.Mutex
	result scan.Result
	err    error
	done   bool
	subs   []chan scan.HeartbeatEvent
}

// NewServer builds a Server around engine. Call Router().Run(addr) to serve.
func NewServer(engine *scan.Engine) *Server {
	s := &Server{
		engine: engine,
		runs:   make(map[string]*runState),
	}
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	go s.fanOutHeartbeats()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.POST("/scans", s.handleCreateScan)
	s.router.GET("/scans/:id/heartbeat", s.handleHeartbeat)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// scanRequest is the POST /scans body. It mirrors the fields of
// scan.ScanConfig that make sense to expose over the wire; Addresses is a
// list of dotted-decimal/IPv6 strings rather than net.IP for JSON transport.
type scanRequest struct {
	Addresses  []string `json:"addresses" binding:"required"`
	Ports      []int    `json:"ports" binding:"required"`
	Technique  string   `json:"technique"`
	ScanOrder  string   `json:"scan_order"`
	TimeoutMS  int      `json:"timeout_ms"`
	MaxRetries int      `json:"max_retries"`
}

func (s *Server) handleCreateScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	addrs := make([]net.IP, 0, len(req.Addresses))
	for _, a := range req.Addresses {
		ip := net.ParseIP(a)
		if ip == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid address: %s", a)})
			return
		}
		addrs = append(addrs, ip)
	}

	runID := uuid.NewString()
	cfg := &scan.ScanConfig{
		RunID:                  runID,
		Addresses:              addrs,
		Ports:                  req.Ports,
		Timeout:                time.Duration(req.TimeoutMS) * time.Millisecond,
		MaxRetries:             req.MaxRetries,
		ScanOrder:              scan.ScanOrder(req.ScanOrder),
		Technique:              scan.Technique(req.Technique),
		AllowPrivilegeFallback: true,
	}

	state := &runState{}
	s.mu.Lock()
	s.runs[runID] = state
	s.mu.Unlock()

	go s.runScan(runID, cfg, state)

	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

func (s *Server) runScan(runID string, cfg *scan.ScanConfig, state *runState) {
	start := time.Now()
	result, err := s.engine.Scan(context.Background(), cfg)
	metrics.ObserveRun(time.Since(start))
	for _, h := range result.Hosts {
		metrics.ObserveHost(h)
	}
	logger.LogScanFinished(runID, len(result.Hosts), result.Stats.OpenCount, time.Since(start), err)

	state.mu.Lock()
	state.result = result
	state.err = err
	state.done = true
	for _, sub := range state.subs {
		close(sub)
	}
	state.subs = nil
	state.mu.Unlock()
}

// handleHeartbeat streams heartbeat events as server-sent events until this
// run finishes or the client disconnects. Events are not filtered by run:
// while several runs overlap, each stream also carries the other runs'
// events (see fanOutHeartbeats).
func (s *Server) handleHeartbeat(c *gin.Context) {
	runID := c.Param("id")

	s.mu.Lock()
	state, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run id"})
		return
	}

	sub := make(chan scan.HeartbeatEvent, 32)
	state.mu.Lock()
	if state.done {
		state.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"done": true})
		return
	}
	state.subs = append(state.subs, sub)
	state.mu.Unlock()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub:
			if !ok {
				c.SSEvent("done", gin.H{})
				return false
			}
			c.SSEvent("heartbeat", gin.H{
				"address":          ev.Address.String(),
				"probes_completed": ev.ProbesCompleted,
				"open_found":       ev.OpenFound,
			})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// fanOutHeartbeats copies every event off the engine's shared heartbeat
// channel to each run's per-client subscriber list, since scan.Engine has
// one heartbeat stream shared across all hosts and runs it ever processes.
func (s *Server) fanOutHeartbeats() {
	for ev := range s.engine.Heartbeats() {
		metrics.ObserveHeartbeat(ev)

		s.mu.Lock()
		states := make([]*runState, 0, len(s.runs))
		for _, st := range s.runs {
			states = append(states, st)
		}
		s.mu.Unlock()

		for _, st := range states {
			st.mu.Lock()
			if !st.done {
				for _, sub := range st.subs {
					select {
					case sub <- ev:
					default:
					}
				}
			}
			st.mu.Unlock()
		}
	}
}
