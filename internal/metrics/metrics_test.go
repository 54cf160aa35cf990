package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type rejection struct{}

func (rejection) Error() string     { return "rejected" }
func (rejection) DomainError() bool { return true }

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, StatusSuccess},
		{"domain", rejection{}, StatusRejected},
		{"wrapped domain", errors.Join(errors.New("ctx"), rejection{}), StatusRejected},
		{"store", errors.New("connection refused"), StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusOf(tt.err); got != tt.want {
				t.Errorf("statusOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestObserveEngine(t *testing.T) {
	start := time.Now().Add(-time.Millisecond)

	if inc := delta(t, engineOperationsTotal.WithLabelValues("claim", StatusSuccess), func() {
		ObserveEngine("claim", nil, start)
	}); inc != 1 {
		t.Fatalf("expected claim success increment, got %v", inc)
	}

	if inc := delta(t, engineOperationsTotal.WithLabelValues("upgrade", StatusRejected), func() {
		ObserveEngine("upgrade", rejection{}, start)
	}); inc != 1 {
		t.Fatalf("expected upgrade rejected increment, got %v", inc)
	}
}

func TestCounters(t *testing.T) {
	if inc := delta(t, pointsSettledTotal, func() { AddPointsSettled(36) }); inc != 36 {
		t.Errorf("points settled increment = %v, want 36", inc)
	}
	if inc := delta(t, pointsSettledTotal, func() { AddPointsSettled(-1) }); inc != 0 {
		t.Errorf("negative points should be ignored, got %v", inc)
	}
	if inc := delta(t, referralCreditTotal.WithLabelValues("ad"), func() { AddCredit("ad", 10) }); inc != 10 {
		t.Errorf("ad credit increment = %v, want 10", inc)
	}
	if inc := delta(t, settlementsTotal.WithLabelValues(StatusError), func() { ObserveSettlement(errors.New("down")) }); inc != 1 {
		t.Errorf("settlement error increment = %v, want 1", inc)
	}

	SetPendingSettlements(3)
	if got := testutil.ToFloat64(settlementQueueDepth); got != 3 {
		t.Errorf("pending jobs = %v, want 3", got)
	}

	done := StreamConnected()
	if got := testutil.ToFloat64(streamClients); got != 1 {
		t.Errorf("stream clients = %v, want 1", got)
	}
	done()
	if got := testutil.ToFloat64(streamClients); got != 0 {
		t.Errorf("stream clients after disconnect = %v, want 0", got)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/user/:wallet", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	counter := httpRequestsTotal.WithLabelValues("/api/user/:wallet", "GET", "200")
	if inc := delta(t, counter, func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/user/abc", nil)
		router.ServeHTTP(w, req)
	}); inc != 1 {
		t.Errorf("request counter increment = %v, want 1", inc)
	}

	unmatched := httpRequestsTotal.WithLabelValues("unmatched", "GET", "404")
	if inc := delta(t, unmatched, func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	}); inc != 1 {
		t.Errorf("unmatched counter increment = %v, want 1", inc)
	}
}
