package notify

import (
	"context"
	"fmt"

	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/google/uuid"
)

// InboxStore persists per-wallet notifications
type InboxStore interface {
	AddNotification(ctx context.Context, n *storage.Notification, maxSize int64) error
	ListNotifications(ctx context.Context, wallet string, limit int64) ([]*storage.Notification, error)
	MarkNotificationRead(ctx context.Context, wallet, id string) (bool, error)
}

// ErrNotificationNotFound is returned when marking an unknown notification read
var ErrNotificationNotFound = util.NewDomainError("NOTIFICATION_NOT_FOUND", "notification not found")

// Inbox records engine events as in-app notifications. Delivery failures are
// logged and never reach the caller.
type Inbox struct {
	store   InboxStore
	size    int64
	clock   util.Clock
	webhook *Webhook
}

// NewInbox creates an inbox keeping at most size notifications per wallet
func NewInbox(store InboxStore, size int64, clock util.Clock) *Inbox {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Inbox{store: store, size: size, clock: clock}
}

// SetWebhook mirrors referral events to a Discord webhook
func (i *Inbox) SetWebhook(w *Webhook) {
	i.webhook = w
}

func (i *Inbox) add(ctx context.Context, wallet string, typ storage.NotificationType, title, message string, data storage.NotificationData) {
	n := &storage.Notification{
		ID:        uuid.NewString(),
		Wallet:    wallet,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: i.clock.Now().Unix(),
	}
	if err := i.store.AddNotification(ctx, n, i.size); err != nil {
		util.Warnf("Failed to store %s notification for %s: %v", typ, util.TruncateWallet(wallet), err)
	}
}

// MiningComplete tells the miner their session is ready to claim
func (i *Inbox) MiningComplete(ctx context.Context, s *storage.Session) {
	i.add(ctx, s.Wallet, storage.NotificationMining,
		"Mining Complete!",
		fmt.Sprintf("Your %d hour session finished with %.2f tokens. Claim them now!", s.SelectedHourTarget, s.CurrentMiningPoints),
		storage.NotificationData{Tokens: s.CurrentMiningPoints},
	)
}

// ReferralSignup tells the referrer a new wallet used their code
func (i *Inbox) ReferralSignup(ctx context.Context, referrer, referred string, bonus float64) {
	i.add(ctx, referrer, storage.NotificationReferral,
		"Referral Signup Reward!",
		fmt.Sprintf("%s used your referral code. You earned %.0f tokens!", util.TruncateWallet(referred), bonus),
		storage.NotificationData{ReferrerWallet: referrer, ReferredWallet: referred, Tokens: bonus},
	)
	if i.webhook != nil {
		i.webhook.sendAsync(i.webhook.ReferralSignupMessage(referrer, referred, bonus))
	}
}

// ReferralReward tells the referrer they earned a share of a claim
func (i *Inbox) ReferralReward(ctx context.Context, referrer, referred string, amount float64) {
	i.add(ctx, referrer, storage.NotificationReferral,
		"Mining Referral Reward!",
		fmt.Sprintf("%s claimed a mining reward. You earned %.4f tokens!", util.TruncateWallet(referred), amount),
		storage.NotificationData{ReferrerWallet: referrer, ReferredWallet: referred, Tokens: amount},
	)
	if i.webhook != nil {
		i.webhook.sendAsync(i.webhook.ReferralRewardMessage(referrer, referred, amount))
	}
}

// AdReward records a credited ad view
func (i *Inbox) AdReward(ctx context.Context, wallet string, amount float64) {
	i.add(ctx, wallet, storage.NotificationReward,
		"Ad Reward",
		fmt.Sprintf("You earned %.0f tokens for watching an ad.", amount),
		storage.NotificationData{Tokens: amount},
	)
}

// List returns a wallet's notifications, newest first
func (i *Inbox) List(ctx context.Context, wallet string, limit int64) ([]*storage.Notification, error) {
	return i.store.ListNotifications(ctx, wallet, limit)
}

// MarkRead flags one notification as read
func (i *Inbox) MarkRead(ctx context.Context, wallet, id string) error {
	found, err := i.store.MarkNotificationRead(ctx, wallet, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}
