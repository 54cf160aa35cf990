package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "cm:"

	// Key patterns. Each per-id family owns a prefix that is neither a
	// prefix of another family nor of a fixed key, so no wallet or
	// session id can alias a key outside its own family.
	keyWallet          = keyPrefix + "wallet:%s"
	keyWalletSessions  = keyPrefix + "wallet-sessions:%s"
	keySession         = keyPrefix + "session:%s"
	keyReferralLink    = keyPrefix + "referral-link:%s"
	keyReferralList    = keyPrefix + "referral-list:%s"
	keyReferrerRewards = keyPrefix + "referral-rewards:%s"
	keyRewardSettled   = keyPrefix + "referral-settled:%s"
	keyAdRewards       = keyPrefix + "ads:%s"
	keyConfig          = keyPrefix + "config:%s"
	keyNotifications   = keyPrefix + "notifications:%s"

	// Fixed keys live under their own namespace
	keyMeta            = keyPrefix + "meta:"
	keyWalletSeq       = keyMeta + "wallet-seq"
	keyWalletOrder     = keyMeta + "wallet-order"
	keyWalletCreated   = keyMeta + "wallet-created"
	keyReferralCodes   = keyMeta + "referral-codes"
	keyReferralRewards = keyMeta + "referral-rewards"
	keySettlements     = keyMeta + "settlements"
	keyBlacklist       = keyMeta + "blacklist"
	keyWhitelist       = keyMeta + "whitelist"
)

// maxTxRetries bounds optimistic retries of a per-wallet update
const maxTxRetries = 16

// RedisClient wraps Redis operations for the engine
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(url, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     url,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	util.Info("Connected to Redis at ", url)
	return &RedisClient{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Ping checks the connection
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Wallets

// RegisterWallet creates the wallet record if it does not exist yet.
// It returns the stored record and whether it was created by this call.
func (r *RedisClient) RegisterWallet(ctx context.Context, wallet, code string, createdAt int64) (*Wallet, bool, error) {
	walletKey := fmt.Sprintf(keyWallet, wallet)

	seq, err := r.client.Incr(ctx, keyWalletSeq).Result()
	if err != nil {
		return nil, false, err
	}

	created := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, walletKey).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return nil
		}

		w := &Wallet{
			Wallet:       wallet,
			ReferralCode: code,
			CreatedAt:    createdAt,
			Version:      1,
			LastUpdated:  createdAt,
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, walletKey, walletFields(w))
			pipe.ZAdd(ctx, keyWalletOrder, &redis.Z{Score: float64(seq), Member: wallet})
			pipe.ZAdd(ctx, keyWalletCreated, &redis.Z{Score: float64(createdAt), Member: wallet})
			pipe.HSet(ctx, keyReferralCodes, strings.ToUpper(code), wallet)
			return nil
		})
		if err == nil {
			created = true
		}
		return err
	}, walletKey)
	// A lost race means another caller registered the wallet first.
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return nil, false, err
	}

	w, err := r.GetWallet(ctx, wallet)
	if err != nil {
		return nil, false, err
	}
	return w, created, nil
}

// GetWallet returns wallet data, or nil if the wallet is not registered
func (r *RedisClient) GetWallet(ctx context.Context, wallet string) (*Wallet, error) {
	data, err := r.client.HGetAll(ctx, fmt.Sprintf(keyWallet, wallet)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return parseWallet(wallet, data), nil
}

// ListWallets returns registrations newest first
func (r *RedisClient) ListWallets(ctx context.Context, offset, limit int64) ([]*Wallet, error) {
	ids, err := r.client.ZRevRange(ctx, keyWalletCreated, offset, offset+limit-1).Result()
	if err != nil {
		return nil, err
	}
	return r.loadWallets(ctx, ids)
}

// ListWalletsBetween returns registrations created in [from, to], newest first
func (r *RedisClient) ListWalletsBetween(ctx context.Context, from, to int64) ([]*Wallet, error) {
	ids, err := r.client.ZRevRangeByScore(ctx, keyWalletCreated, &redis.ZRangeBy{
		Min: strconv.FormatInt(from, 10),
		Max: strconv.FormatInt(to, 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	return r.loadWallets(ctx, ids)
}

// CountWallets returns the number of registered wallets
func (r *RedisClient) CountWallets(ctx context.Context) (int64, error) {
	return r.client.ZCard(ctx, keyWalletOrder).Result()
}

func (r *RedisClient) loadWallets(ctx context.Context, ids []string) ([]*Wallet, error) {
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, fmt.Sprintf(keyWallet, id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	wallets := make([]*Wallet, 0, len(ids))
	for i, cmd := range cmds {
		data := cmd.Val()
		if len(data) == 0 {
			continue
		}
		wallets = append(wallets, parseWallet(ids[i], data))
	}
	return wallets, nil
}

// ResolveCode returns the wallet owning a referral code, or "" if none
func (r *RedisClient) ResolveCode(ctx context.Context, code string) (string, error) {
	wallet, err := r.client.HGet(ctx, keyReferralCodes, strings.ToUpper(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return wallet, err
}

// UpdateWallet runs fn inside a compare-and-swap boundary on the wallet record.
// Staged writes from fn commit atomically with a version bump; a concurrent
// writer causes fn to run again against fresh state.
func (r *RedisClient) UpdateWallet(ctx context.Context, wallet string, fn func(tx *WalletTx) error) error {
	walletKey := fmt.Sprintf(keyWallet, wallet)

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, walletKey).Result()
		if err != nil {
			return err
		}

		wtx := &WalletTx{ctx: ctx, tx: tx}
		if len(data) > 0 {
			wtx.Wallet = parseWallet(wallet, data)
		}

		if err := fn(wtx); err != nil {
			return err
		}
		if wtx.Wallet == nil {
			return nil
		}

		wtx.Wallet.Version++
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, walletKey, walletFields(wtx.Wallet))
			for _, op := range wtx.ops {
				op(pipe)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, walletKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	util.Warnf("Wallet update for %s gave up after %d retries", util.TruncateWallet(wallet), maxTxRetries)
	return ErrConflict
}

// WalletTx is the view of one wallet inside UpdateWallet.
// Wallet is nil when the wallet is not registered.
type WalletTx struct {
	Wallet *Wallet

	ctx context.Context
	tx  *redis.Tx
	ops []func(pipe redis.Pipeliner)
}

func (t *WalletTx) stage(op func(pipe redis.Pipeliner)) {
	t.ops = append(t.ops, op)
}

// Session loads a session by id, or nil if it does not exist
func (t *WalletTx) Session(id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	return getSession(t.ctx, t.tx, id)
}

// PutSession stages a session write
func (t *WalletTx) PutSession(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	t.stage(func(pipe redis.Pipeliner) {
		pipe.Set(t.ctx, fmt.Sprintf(keySession, s.ID), data, 0)
	})
	return nil
}

// AddSession stages a new session and links it into the wallet's history
func (t *WalletTx) AddSession(s *Session) error {
	if err := t.PutSession(s); err != nil {
		return err
	}
	t.stage(func(pipe redis.Pipeliner) {
		pipe.LPush(t.ctx, fmt.Sprintf(keyWalletSessions, s.Wallet), s.ID)
	})
	return nil
}

// ReferralLink loads the link for a referred wallet and watches it
func (t *WalletTx) ReferralLink(referred string) (*ReferralLink, error) {
	linkKey := fmt.Sprintf(keyReferralLink, referred)
	if err := t.tx.Watch(t.ctx, linkKey).Err(); err != nil {
		return nil, err
	}
	return getReferralLink(t.ctx, t.tx, linkKey)
}

// CreateReferralLink stages a new link owned by the current wallet as referrer
func (t *WalletTx) CreateReferralLink(link *ReferralLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}
	t.stage(func(pipe redis.Pipeliner) {
		pipe.Set(t.ctx, fmt.Sprintf(keyReferralLink, link.ReferredWallet), data, 0)
		pipe.RPush(t.ctx, fmt.Sprintf(keyReferralList, link.ReferrerWallet), link.ReferredWallet)
	})
	return nil
}

// RewardSettled reports whether the referral share of a session was already credited
func (t *WalletTx) RewardSettled(sessionID string) (bool, error) {
	key := fmt.Sprintf(keyRewardSettled, sessionID)
	if err := t.tx.Watch(t.ctx, key).Err(); err != nil {
		return false, err
	}
	n, err := t.tx.Exists(t.ctx, key).Result()
	return n > 0, err
}

// AppendReferralReward stages a ledger entry and marks its session settled
func (t *WalletTx) AppendReferralReward(reward *ReferralMiningReward) error {
	data, err := json.Marshal(reward)
	if err != nil {
		return err
	}
	t.stage(func(pipe redis.Pipeliner) {
		pipe.Set(t.ctx, fmt.Sprintf(keyRewardSettled, reward.SessionID), reward.ID, 0)
		pipe.LPush(t.ctx, keyReferralRewards, data)
		pipe.LPush(t.ctx, fmt.Sprintf(keyReferrerRewards, reward.ReferrerWallet), data)
	})
	return nil
}

// AppendAdReward stages an ad reward ledger entry
func (t *WalletTx) AppendAdReward(reward *AdReward) error {
	data, err := json.Marshal(reward)
	if err != nil {
		return err
	}
	t.stage(func(pipe redis.Pipeliner) {
		pipe.LPush(t.ctx, fmt.Sprintf(keyAdRewards, reward.Wallet), data)
	})
	return nil
}

// Sessions

// GetSession returns a session by id, or nil if it does not exist
func (r *RedisClient) GetSession(ctx context.Context, id string) (*Session, error) {
	return getSession(ctx, r.client, id)
}

// ListSessions returns a wallet's sessions newest first
func (r *RedisClient) ListSessions(ctx context.Context, wallet string, limit int64) ([]*Session, error) {
	ids, err := r.client.LRange(ctx, fmt.Sprintf(keyWalletSessions, wallet), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	return r.loadSessions(ctx, ids)
}

func (r *RedisClient) loadSessions(ctx context.Context, ids []string) ([]*Session, error) {
	if len(ids) == 0 {
		return []*Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(keySession, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var session Session
		if err := json.Unmarshal([]byte(s), &session); err == nil {
			sessions = append(sessions, &session)
		}
	}
	return sessions, nil
}

// LeaderboardRows returns per-wallet settled totals and credit buckets in
// registration order. One pipelined round trip reads every wallet.
func (r *RedisClient) LeaderboardRows(ctx context.Context) ([]WalletTotals, error) {
	wallets, err := r.client.ZRange(ctx, keyWalletOrder, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return []WalletTotals{}, nil
	}

	pipe := r.client.Pipeline()
	totalCmds := make([]*redis.SliceCmd, len(wallets))
	countCmds := make([]*redis.IntCmd, len(wallets))
	for i, w := range wallets {
		totalCmds[i] = pipe.HMGet(ctx, fmt.Sprintf(keyWallet, w), "totalEarned", "bonusBalance")
		countCmds[i] = pipe.LLen(ctx, fmt.Sprintf(keyWalletSessions, w))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	rows := make([]WalletTotals, 0, len(wallets))
	for i, w := range wallets {
		vals := totalCmds[i].Val()
		rows = append(rows, WalletTotals{
			Wallet:       w,
			TotalEarned:  parseFloatField(vals[0]),
			BonusBalance: parseFloatField(vals[1]),
			Sessions:     int(countCmds[i].Val()),
		})
	}
	return rows, nil
}

// Referrals

// GetReferralLink returns the link for a referred wallet, or nil if none
func (r *RedisClient) GetReferralLink(ctx context.Context, referred string) (*ReferralLink, error) {
	return getReferralLink(ctx, r.client, fmt.Sprintf(keyReferralLink, referred))
}

// CountReferrals returns how many wallets a referrer has brought in
func (r *RedisClient) CountReferrals(ctx context.Context, referrer string) (int64, error) {
	return r.client.LLen(ctx, fmt.Sprintf(keyReferralList, referrer)).Result()
}

// GetReferrerRewards returns a referrer's mining reward ledger, newest first
func (r *RedisClient) GetReferrerRewards(ctx context.Context, referrer string, limit int64) ([]*ReferralMiningReward, error) {
	results, err := r.client.LRange(ctx, fmt.Sprintf(keyReferrerRewards, referrer), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	rewards := make([]*ReferralMiningReward, 0, len(results))
	for _, result := range results {
		var reward ReferralMiningReward
		if err := json.Unmarshal([]byte(result), &reward); err == nil {
			rewards = append(rewards, &reward)
		}
	}
	return rewards, nil
}

// GetAdRewards returns a wallet's ad reward ledger, newest first
func (r *RedisClient) GetAdRewards(ctx context.Context, wallet string, limit int64) ([]*AdReward, error) {
	results, err := r.client.LRange(ctx, fmt.Sprintf(keyAdRewards, wallet), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	rewards := make([]*AdReward, 0, len(results))
	for _, result := range results {
		var reward AdReward
		if err := json.Unmarshal([]byte(result), &reward); err == nil {
			rewards = append(rewards, &reward)
		}
	}
	return rewards, nil
}

// Config store

// GetConfig returns a config entry, or nil if the key is unset
func (r *RedisClient) GetConfig(ctx context.Context, key string) (*ConfigEntry, error) {
	data, err := r.client.HGetAll(ctx, fmt.Sprintf(keyConfig, key)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	entry := &ConfigEntry{Key: key, Value: json.RawMessage(data["value"])}
	entry.Version, _ = strconv.ParseInt(data["version"], 10, 64)
	entry.UpdatedAt, _ = strconv.ParseInt(data["updatedAt"], 10, 64)
	return entry, nil
}

// ConfigVersion returns the write counter of a config key, 0 if unset.
// Every write bumps it, so two writes in the same millisecond still differ.
func (r *RedisClient) ConfigVersion(ctx context.Context, key string) (int64, error) {
	v, err := r.client.HGet(ctx, fmt.Sprintf(keyConfig, key), "version").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetConfig overwrites a config entry
func (r *RedisClient) SetConfig(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	configKey := fmt.Sprintf(keyConfig, key)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, configKey, "value", string(data), "updatedAt", time.Now().UnixMilli())
		pipe.HIncrBy(ctx, configKey, "version", 1)
		return nil
	})
	return err
}

// SeedConfig writes a config entry only if the key is unset
func (r *RedisClient) SeedConfig(ctx context.Context, key string, value interface{}) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	configKey := fmt.Sprintf(keyConfig, key)
	set, err := r.client.HSetNX(ctx, configKey, "value", string(data)).Result()
	if err != nil || !set {
		return false, err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, configKey, "updatedAt", time.Now().UnixMilli())
		pipe.HIncrBy(ctx, configKey, "version", 1)
		return nil
	})
	return true, err
}

// Notifications

// AddNotification prepends a notification and trims the inbox to maxSize
func (r *RedisClient) AddNotification(ctx context.Context, n *Notification, maxSize int64) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	key := fmt.Sprintf(keyNotifications, n.Wallet)
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, key, data)
	if maxSize > 0 {
		pipe.LTrim(ctx, key, 0, maxSize-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// ListNotifications returns a wallet's notifications newest first
func (r *RedisClient) ListNotifications(ctx context.Context, wallet string, limit int64) ([]*Notification, error) {
	results, err := r.client.LRange(ctx, fmt.Sprintf(keyNotifications, wallet), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]*Notification, 0, len(results))
	for _, result := range results {
		var n Notification
		if err := json.Unmarshal([]byte(result), &n); err == nil {
			notifications = append(notifications, &n)
		}
	}
	return notifications, nil
}

// MarkNotificationRead flags one notification as read.
// It returns false if the id is not in the inbox.
func (r *RedisClient) MarkNotificationRead(ctx context.Context, wallet, id string) (bool, error) {
	key := fmt.Sprintf(keyNotifications, wallet)
	found := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		results, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}

		for i, result := range results {
			var n Notification
			if err := json.Unmarshal([]byte(result), &n); err != nil || n.ID != id {
				continue
			}
			found = true
			if n.IsRead {
				return nil
			}
			n.IsRead = true
			data, err := json.Marshal(&n)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LSet(ctx, key, int64(i), data)
				return nil
			})
			return err
		}
		return nil
	}, key)

	return found, err
}

// Settlement jobs

// SaveSettlementJob inserts or updates a pending settlement job
func (r *RedisClient) SaveSettlementJob(ctx context.Context, job *SettlementJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, keySettlements, job.ID, data).Err()
}

// GetPendingSettlements returns all queued settlement jobs
func (r *RedisClient) GetPendingSettlements(ctx context.Context) ([]*SettlementJob, error) {
	results, err := r.client.HGetAll(ctx, keySettlements).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*SettlementJob, 0, len(results))
	for _, result := range results {
		var job SettlementJob
		if err := json.Unmarshal([]byte(result), &job); err == nil {
			jobs = append(jobs, &job)
		}
	}
	return jobs, nil
}

// RemoveSettlementJob deletes a settlement job
func (r *RedisClient) RemoveSettlementJob(ctx context.Context, id string) error {
	return r.client.HDel(ctx, keySettlements, id).Err()
}

// Access lists

// IsBlacklisted checks if a wallet is blacklisted
func (r *RedisClient) IsBlacklisted(ctx context.Context, wallet string) (bool, error) {
	return r.client.SIsMember(ctx, keyBlacklist, wallet).Result()
}

// IsWhitelisted checks if an IP is whitelisted
func (r *RedisClient) IsWhitelisted(ctx context.Context, ip string) (bool, error) {
	return r.client.SIsMember(ctx, keyWhitelist, ip).Result()
}

// AddToBlacklist adds a wallet to the blacklist
func (r *RedisClient) AddToBlacklist(ctx context.Context, wallet string) error {
	return r.client.SAdd(ctx, keyBlacklist, wallet).Err()
}

// RemoveFromBlacklist removes a wallet from the blacklist
func (r *RedisClient) RemoveFromBlacklist(ctx context.Context, wallet string) error {
	return r.client.SRem(ctx, keyBlacklist, wallet).Err()
}

// GetBlacklist returns all blacklisted wallets
func (r *RedisClient) GetBlacklist(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, keyBlacklist).Result()
}

// GetWhitelist returns all whitelisted IPs
func (r *RedisClient) GetWhitelist(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, keyWhitelist).Result()
}

// AddToWhitelist adds an IP to the whitelist
func (r *RedisClient) AddToWhitelist(ctx context.Context, ip string) error {
	return r.client.SAdd(ctx, keyWhitelist, ip).Err()
}

// RemoveFromWhitelist removes an IP from the whitelist
func (r *RedisClient) RemoveFromWhitelist(ctx context.Context, ip string) error {
	return r.client.SRem(ctx, keyWhitelist, ip).Err()
}

// helpers

// getter is satisfied by both the client and a watched transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getSession(ctx context.Context, c getter, id string) (*Session, error) {
	data, err := c.Get(ctx, fmt.Sprintf(keySession, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func getReferralLink(ctx context.Context, c getter, key string) (*ReferralLink, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var link ReferralLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("decode referral link: %w", err)
	}
	return &link, nil
}

func parseFloatField(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func walletFields(w *Wallet) map[string]interface{} {
	return map[string]interface{}{
		"wallet":        w.Wallet,
		"referralCode":  w.ReferralCode,
		"createdAt":     w.CreatedAt,
		"totalEarned":   strconv.FormatFloat(w.TotalEarned, 'f', -1, 64),
		"bonusBalance":  strconv.FormatFloat(w.BonusBalance, 'f', -1, 64),
		"activeSession": w.ActiveSession,
		"lastSession":   w.LastSession,
		"lastAdReward":  w.LastAdReward,
		"version":       w.Version,
		"lastUpdated":   w.LastUpdated,
	}
}

func parseWallet(wallet string, data map[string]string) *Wallet {
	w := &Wallet{
		Wallet:        wallet,
		ReferralCode:  data["referralCode"],
		ActiveSession: data["activeSession"],
		LastSession:   data["lastSession"],
	}
	if v, ok := data["createdAt"]; ok {
		w.CreatedAt, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := data["totalEarned"]; ok {
		w.TotalEarned, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := data["bonusBalance"]; ok {
		w.BonusBalance, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := data["lastAdReward"]; ok {
		w.LastAdReward, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := data["version"]; ok {
		w.Version, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := data["lastUpdated"]; ok {
		w.LastUpdated, _ = strconv.ParseInt(v, 10, 64)
	}
	return w
}
