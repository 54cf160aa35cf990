package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

// Config store keys
const (
	KeyMiningRates     = "MINING_RATES"
	KeyDurationOptions = "DURATION_OPTIONS"
)

// ConfigStore is the subset of storage the provider reads and writes
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (*storage.ConfigEntry, error)
	ConfigVersion(ctx context.Context, key string) (int64, error)
	SetConfig(ctx context.Context, key string, value interface{}) error
	SeedConfig(ctx context.Context, key string, value interface{}) (bool, error)
}

// Provider serves the rate table and duration options from the config store.
// Decoded values are cached until the entry's write version changes.
type Provider struct {
	store ConfigStore

	mu        sync.Mutex
	table     Table
	tableVer  int64
	durations []DurationOption
	durVer    int64
}

// NewProvider creates a provider that starts from the defaults
func NewProvider(store ConfigStore) *Provider {
	return &Provider{
		store:     store,
		table:     Default(),
		durations: DefaultDurations(),
	}
}

// Seed writes the default table and durations if the store has none
func (p *Provider) Seed(ctx context.Context) error {
	seeded, err := p.store.SeedConfig(ctx, KeyMiningRates, Default())
	if err != nil {
		return fmt.Errorf("seed %s: %w", KeyMiningRates, err)
	}
	if seeded {
		util.Infof("Seeded %s with default rate table", KeyMiningRates)
	}

	seeded, err = p.store.SeedConfig(ctx, KeyDurationOptions, DefaultDurations())
	if err != nil {
		return fmt.Errorf("seed %s: %w", KeyDurationOptions, err)
	}
	if seeded {
		util.Infof("Seeded %s with default durations", KeyDurationOptions)
	}
	return nil
}

// Rates returns the current rate table. Store errors and undecodable
// entries keep the last good table.
func (p *Provider) Rates(ctx context.Context) Table {
	p.mu.Lock()
	defer p.mu.Unlock()

	var table Table
	if ver, ok := p.refresh(ctx, KeyMiningRates, p.tableVer, &table); ok {
		if err := Validate(table); err != nil {
			util.Warnf("Ignoring invalid %s: %v", KeyMiningRates, err)
		} else {
			p.table = table
		}
		p.tableVer = ver
	}
	return p.table
}

// Durations returns the current duration options
func (p *Provider) Durations(ctx context.Context) []DurationOption {
	p.mu.Lock()
	defer p.mu.Unlock()

	var opts []DurationOption
	if ver, ok := p.refresh(ctx, KeyDurationOptions, p.durVer, &opts); ok {
		if err := ValidateDurations(opts); err != nil {
			util.Warnf("Ignoring invalid %s: %v", KeyDurationOptions, err)
		} else {
			p.durations = opts
		}
		p.durVer = ver
	}
	return p.durations
}

// refresh decodes key into dst when its version differs from cached.
// It reports the decoded version and whether dst was filled.
func (p *Provider) refresh(ctx context.Context, key string, cached int64, dst interface{}) (int64, bool) {
	ver, err := p.store.ConfigVersion(ctx, key)
	if err != nil {
		util.Warnf("Failed to read %s version: %v", key, err)
		return cached, false
	}
	if ver == 0 || ver == cached {
		return cached, false
	}

	entry, err := p.store.GetConfig(ctx, key)
	if err != nil {
		util.Warnf("Failed to read %s: %v", key, err)
		return cached, false
	}
	if entry == nil {
		return cached, false
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		util.Warnf("Failed to decode %s: %v", key, err)
		return entry.Version, false
	}
	return entry.Version, true
}

// SetRates validates and stores a new rate table
func (p *Provider) SetRates(ctx context.Context, t Table) error {
	if err := Validate(t); err != nil {
		return err
	}
	return p.store.SetConfig(ctx, KeyMiningRates, t)
}

// SetDurations validates and stores new duration options
func (p *Provider) SetDurations(ctx context.Context, opts []DurationOption) error {
	if err := ValidateDurations(opts); err != nil {
		return err
	}
	return p.store.SetConfig(ctx, KeyDurationOptions, opts)
}
