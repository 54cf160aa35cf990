package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastWebhook(url string) *Webhook {
	w := NewWebhook(url, "Crypto Mining Village", "https://example.com")
	w.baseDelay = time.Millisecond
	w.rateLimitDelay = time.Millisecond
	return w
}

func TestNewWebhook(t *testing.T) {
	w := NewWebhook("https://discord.com/api/webhooks/test", "Village", "")

	if w.client == nil {
		t.Fatal("Webhook.client should not be nil")
	}
	if w.client.Timeout != 10*time.Second {
		t.Errorf("Client timeout = %v, want 10s", w.client.Timeout)
	}
	if w.baseDelay != RetryBaseDelay {
		t.Errorf("baseDelay = %v, want %v", w.baseDelay, RetryBaseDelay)
	}
}

func TestReferralSignupMessage(t *testing.T) {
	w := NewWebhook("", "Village", "https://example.com")
	msg := w.ReferralSignupMessage("referrer-wallet-0123456789", "bob", 200)

	if len(msg.Embeds) != 1 {
		t.Fatalf("Embeds = %d, want 1", len(msg.Embeds))
	}
	e := msg.Embeds[0]
	if e.Title != "New Referral" || e.URL != "https://example.com" || e.Footer.Text != "Village" {
		t.Errorf("embed = %+v", e)
	}
	if len(e.Fields) != 3 || e.Fields[0].Value != "referrer...456789" || e.Fields[2].Value != "200.00 tokens" {
		t.Errorf("fields = %+v", e.Fields)
	}
}

func TestSendSuccess(t *testing.T) {
	var received DiscordMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %s", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	w := fastWebhook(server.URL)
	if err := w.Send(w.ReferralRewardMessage("alice", "bob", 3.6)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(received.Embeds) != 1 || received.Embeds[0].Title != "Referral Mining Reward" {
		t.Errorf("received = %+v", received)
	}
}

func TestSendRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	w := fastWebhook(server.URL)
	if err := w.Send(DiscordMessage{Content: "hi"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestSendGivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	w := fastWebhook(server.URL)
	if err := w.Send(DiscordMessage{Content: "hi"}); err == nil {
		t.Error("Send() should fail after retries")
	}
	if atomic.LoadInt32(&calls) != MaxRetries {
		t.Errorf("calls = %d, want %d", calls, MaxRetries)
	}
}
