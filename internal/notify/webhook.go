// Package notify delivers in-app notifications and mirrors referral events to Discord.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

// Retry configuration
const (
	MaxRetries     = 3
	RetryBaseDelay = 2 * time.Second
	rateLimitDelay = 5 * time.Second
)

// Webhook posts event embeds to a Discord webhook
type Webhook struct {
	url     string
	appName string
	appURL  string
	client  *http.Client

	baseDelay      time.Duration
	rateLimitDelay time.Duration
}

// NewWebhook creates a Discord webhook sender
func NewWebhook(url, appName, appURL string) *Webhook {
	return &Webhook{
		url:     url,
		appName: appName,
		appURL:  appURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseDelay:      RetryBaseDelay,
		rateLimitDelay: rateLimitDelay,
	}
}

// DiscordEmbed represents a Discord embed object
type DiscordEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color,omitempty"`
	Fields      []DiscordField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Footer      *DiscordFooter `json:"footer,omitempty"`
}

// DiscordField represents a field in a Discord embed
type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordFooter represents the footer of a Discord embed
type DiscordFooter struct {
	Text string `json:"text"`
}

// DiscordMessage represents a Discord webhook message
type DiscordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

func (w *Webhook) embed(title, description string, color int, fields []DiscordField) DiscordMessage {
	e := DiscordEmbed{
		Title:       title,
		Description: description,
		URL:         w.appURL,
		Color:       color,
		Fields:      fields,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer:      &DiscordFooter{Text: w.appName},
	}
	return DiscordMessage{Embeds: []DiscordEmbed{e}}
}

// ReferralSignupMessage builds the embed for an applied referral code
func (w *Webhook) ReferralSignupMessage(referrer, referred string, bonus float64) DiscordMessage {
	return w.embed(
		"New Referral",
		fmt.Sprintf("**%s** gained a new miner", w.appName),
		0x00FF00, // Green
		[]DiscordField{
			{Name: "Referrer", Value: util.TruncateWallet(referrer), Inline: true},
			{Name: "Referred", Value: util.TruncateWallet(referred), Inline: true},
			{Name: "Bonus", Value: fmt.Sprintf("%.2f tokens", bonus), Inline: true},
		},
	)
}

// ReferralRewardMessage builds the embed for a referrer's mining share
func (w *Webhook) ReferralRewardMessage(referrer, referred string, amount float64) DiscordMessage {
	return w.embed(
		"Referral Mining Reward",
		fmt.Sprintf("**%s** paid a referral share", w.appName),
		0x0099FF, // Blue
		[]DiscordField{
			{Name: "Referrer", Value: util.TruncateWallet(referrer), Inline: true},
			{Name: "Miner", Value: util.TruncateWallet(referred), Inline: true},
			{Name: "Amount", Value: fmt.Sprintf("%.4f tokens", amount), Inline: true},
		},
	)
}

// Send posts msg with exponential backoff retry
func (w *Webhook) Send(msg DiscordMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal Discord message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 2s, 4s
			time.Sleep(w.baseDelay * time.Duration(1<<uint(attempt-1)))
		}

		resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode < 400 {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			time.Sleep(w.rateLimitDelay)
			lastErr = fmt.Errorf("rate limited")
			continue
		}

		lastErr = fmt.Errorf("status %d", resp.StatusCode)
	}

	return fmt.Errorf("discord webhook failed after %d retries: %w", MaxRetries, lastErr)
}

// sendAsync delivers msg in the background, logging failures
func (w *Webhook) sendAsync(msg DiscordMessage) {
	go func() {
		if err := w.Send(msg); err != nil {
			util.Warnf("Failed to send Discord notification: %v", err)
		}
	}()
}
