package profiling

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/config"
)

func TestServerStartDisabled(t *testing.T) {
	server := NewServer(&config.ProfilingConfig{Enabled: false, Bind: "127.0.0.1:6060"})

	if err := server.Start(); err != nil {
		t.Errorf("Start() returned error when disabled: %v", err)
	}
	if server.server != nil || server.Addr() != "" {
		t.Error("server should not be created when disabled")
	}
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&config.ProfilingConfig{Enabled: true, Bind: "127.0.0.1:0"})

	if err := server.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	addr := server.Addr()
	if addr == "" || strings.HasSuffix(addr, ":0") {
		t.Fatalf("Addr() = %q, want bound port", addr)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/debug/pprof/")
	if err != nil {
		t.Fatalf("GET index failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("index status = %d, want 200", resp.StatusCode)
	}

	if err := server.Stop(); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}
}

func TestServerBindError(t *testing.T) {
	first := NewServer(&config.ProfilingConfig{Enabled: true, Bind: "127.0.0.1:0"})
	if err := first.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	defer first.Stop()

	second := NewServer(&config.ProfilingConfig{Enabled: true, Bind: first.Addr()})
	if err := second.Start(); err == nil {
		second.Stop()
		t.Error("Start() on a taken port should fail")
	}
}

func TestServerStopNotStarted(t *testing.T) {
	server := NewServer(&config.ProfilingConfig{Enabled: true, Bind: "127.0.0.1:6060"})

	if err := server.Stop(); err != nil {
		t.Errorf("Stop() on unstarted server returned error: %v", err)
	}
}

func TestHandlerEndpoints(t *testing.T) {
	h := Handler()

	endpoints := []struct {
		path   string
		method string
	}{
		{"/debug/pprof/", http.MethodGet},
		{"/debug/pprof/goroutine", http.MethodGet},
		{"/debug/pprof/heap", http.MethodGet},
		{"/debug/pprof/allocs", http.MethodGet},
		{"/debug/pprof/threadcreate", http.MethodGet},
		{"/debug/pprof/block", http.MethodGet},
		{"/debug/pprof/mutex", http.MethodGet},
		{"/debug/pprof/cmdline", http.MethodGet},
		{"/debug/pprof/symbol", http.MethodPost},
	}

	for _, ep := range endpoints {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(ep.method, ep.path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("Endpoint %s returned status %d, want 200", ep.path, w.Code)
		}
	}
}
