// Package profiling serves pprof endpoints for debugging the engine.
package profiling

import (
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/akshaygadendss/CryptoMinerApp/internal/config"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

// Server provides pprof profiling endpoints
type Server struct {
	cfg      *config.ProfilingConfig
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new profiling server
func NewServer(cfg *config.ProfilingConfig) *Server {
	return &Server{
		cfg: cfg,
	}
}

// Handler returns the pprof mux
func Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	for _, name := range []string{"goroutine", "heap", "allocs", "threadcreate", "block", "mutex"} {
		mux.Handle("/debug/pprof/"+name, pprof.Handler(name))
	}
	return mux
}

// Start binds the profiling listener and serves in the background.
// Bind errors are returned immediately.
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		return nil
	}

	if s.cfg.BlockRate > 0 {
		runtime.SetBlockProfileRate(s.cfg.BlockRate)
	}
	if s.cfg.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(s.cfg.MutexFraction)
	}

	ln, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{Handler: Handler()}

	util.Infof("pprof profiling server listening on %s", ln.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Errorf("Profiling server error: %v", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts down the profiling server
func (s *Server) Stop() error {
	if s.server != nil {
		util.Info("Stopping profiling server")
		return s.server.Close()
	}
	return nil
}
