package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/metrics"
	"github.com/akshaygadendss/CryptoMinerApp/internal/mining"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait   = 10 * time.Second
	streamReadTimeout = 5 * time.Second
)

// ProgressSource computes session progress for a wallet
type ProgressSource interface {
	Progress(ctx context.Context, wallet string) (*mining.Snapshot, error)
}

// StreamMessage is pushed to progress stream clients
type StreamMessage struct {
	Type     string           `json:"type"` // progress, complete or error
	Snapshot *mining.Snapshot `json:"snapshot,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
}

// Stream pushes progress snapshots over websockets until the session
// leaves the mining state
type Stream struct {
	source    ProgressSource
	interval  time.Duration
	upgrader  websocket.Upgrader
	clients   sync.Map // clientID -> *StreamClient
	clientSeq uint64

	// mu orders client registration against Stop so that no loop is
	// added to wg once Stop has begun waiting on it.
	mu      sync.Mutex
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// StreamClient is one connected progress watcher
type StreamClient struct {
	ID          uint64
	Conn        *websocket.Conn
	Wallet      string
	RemoteAddr  string
	ConnectedAt time.Time

	writeMu sync.Mutex
	quit    chan struct{}
}

// NewStream creates a progress stream. Origins follow the CORS list.
func NewStream(source ProgressSource, interval time.Duration, origins []string) *Stream {
	if interval <= 0 {
		interval = time.Second
	}
	s := &Stream{
		source:   source,
		interval: interval,
		quit:     make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return s
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Count returns the number of connected clients
func (s *Stream) Count() int {
	n := 0
	s.clients.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Stop disconnects all clients and waits for their loops to exit
func (s *Stream) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.quit)
	}
	s.mu.Unlock()

	s.clients.Range(func(_, value interface{}) bool {
		value.(*StreamClient).Conn.Close()
		return true
	})

	s.wg.Wait()
}

func (s *Server) handleStream(c *gin.Context) {
	wallet, ok := s.requireWallet(c, c.Param("wallet"))
	if !ok {
		return
	}
	s.stream.Serve(c.Writer, c.Request, wallet, c.ClientIP())
}

// Serve upgrades the request and starts pushing progress for wallet
func (s *Stream) Serve(w http.ResponseWriter, r *http.Request, wallet, ip string) {
	select {
	case <-s.quit:
		http.Error(w, "Shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	client := &StreamClient{
		ID:          atomic.AddUint64(&s.clientSeq, 1),
		Conn:        conn,
		Wallet:      wallet,
		RemoteAddr:  ip,
		ConnectedAt: time.Now(),
		quit:        make(chan struct{}),
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.close(client, websocket.CloseGoingAway, "server shutting down")
		conn.Close()
		return
	}
	s.clients.Store(client.ID, client)
	s.wg.Add(2)
	s.mu.Unlock()

	util.Debugf("Progress stream %d connected for %s from %s", client.ID, util.TruncateWallet(wallet), ip)
	go s.readLoop(client)
	go s.pushLoop(client)
}

// readLoop drains client frames so close and pong control messages are
// processed. It signals the push loop when the peer goes away.
func (s *Stream) readLoop(client *StreamClient) {
	defer s.wg.Done()
	defer close(client.quit)

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Stream) pushLoop(client *StreamClient) {
	defer s.wg.Done()
	disconnected := metrics.StreamConnected()
	defer func() {
		disconnected()
		client.Conn.Close()
		s.clients.Delete(client.ID)
		util.Debugf("Progress stream %d disconnected", client.ID)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if !s.push(client) {
			s.close(client, websocket.CloseNormalClosure, "")
			return
		}

		select {
		case <-s.quit:
			s.close(client, websocket.CloseGoingAway, "server shutting down")
			return
		case <-client.quit:
			return
		case <-ticker.C:
		}
	}
}

// push sends one snapshot and reports whether the stream should continue
func (s *Stream) push(client *StreamClient) bool {
	ctx, cancel := context.WithTimeout(context.Background(), streamReadTimeout)
	defer cancel()

	snap, err := s.source.Progress(ctx, client.Wallet)
	if err != nil {
		msg := StreamMessage{Type: "error", Error: err.Error(), Code: util.ErrorCode(err)}
		if !util.IsDomainError(err) && !errors.Is(err, storage.ErrConflict) {
			util.Warnf("Progress stream %d failed: %v", client.ID, err)
			msg.Error = "Internal server error"
		}
		s.send(client, msg)
		return false
	}

	if snap.Session.Status != storage.StatusMining {
		s.send(client, StreamMessage{Type: "complete", Snapshot: snap})
		return false
	}
	return s.send(client, StreamMessage{Type: "progress", Snapshot: snap})
}

func (s *Stream) send(client *StreamClient, msg StreamMessage) bool {
	client.writeMu.Lock()
	defer client.writeMu.Unlock()

	client.Conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := client.Conn.WriteJSON(msg); err != nil {
		util.Debugf("Progress stream %d write failed: %v", client.ID, err)
		return false
	}
	return true
}

func (s *Stream) close(client *StreamClient, code int, reason string) {
	client.writeMu.Lock()
	defer client.writeMu.Unlock()

	deadline := time.Now().Add(streamWriteWait)
	client.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
