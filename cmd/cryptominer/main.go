// CryptoMiner - idle mining engine for the Crypto Mining Village app
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/account"
	"github.com/akshaygadendss/CryptoMinerApp/internal/api"
	"github.com/akshaygadendss/CryptoMinerApp/internal/config"
	"github.com/akshaygadendss/CryptoMinerApp/internal/leaderboard"
	"github.com/akshaygadendss/CryptoMinerApp/internal/master"
	"github.com/akshaygadendss/CryptoMinerApp/internal/mining"
	"github.com/akshaygadendss/CryptoMinerApp/internal/newrelic"
	"github.com/akshaygadendss/CryptoMinerApp/internal/notify"
	"github.com/akshaygadendss/CryptoMinerApp/internal/policy"
	"github.com/akshaygadendss/CryptoMinerApp/internal/profiling"
	"github.com/akshaygadendss/CryptoMinerApp/internal/rates"
	"github.com/akshaygadendss/CryptoMinerApp/internal/referral"
	"github.com/akshaygadendss/CryptoMinerApp/internal/settlement"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("CryptoMiner v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := util.InitLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.Sync()

	util.Infof("CryptoMiner v%s starting", version)

	// Connect to Redis
	redis, err := storage.NewRedisClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		util.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	provider := rates.NewProvider(redis)
	if cfg.Mining.SeedConfig {
		if err := provider.Seed(context.Background()); err != nil {
			util.Fatalf("Failed to seed engine config: %v", err)
		}
	}

	// APM
	agent := newrelic.NewAgent(&cfg.NewRelic)
	if err := agent.Start(); err != nil {
		util.Warnf("Failed to start New Relic: %v", err)
	}
	defer agent.Stop()

	// Notifications
	inbox := notify.NewInbox(redis, cfg.Notify.InboxSize, nil)
	if cfg.Notify.Enabled && cfg.Notify.DiscordURL != "" {
		inbox.SetWebhook(notify.NewWebhook(cfg.Notify.DiscordURL, cfg.App.Name, cfg.App.URL))
		util.Info("Discord referral notifications enabled")
	}

	// Engine and its side effects
	engine := mining.NewEngine(redis, provider, nil)
	settler := settlement.NewService(redis, &cfg.Settlement, cfg.Referral.MiningShare, nil)
	ads := settlement.NewAdRewards(redis, cfg.Ads.RewardTokens, cfg.Ads.Cooldown, nil)
	referrals := referral.NewService(redis, cfg.Referral.SignupBonus, nil)

	engine.SetSettler(settler)
	engine.SetNotifier(inbox)
	engine.SetObserver(agent)
	settler.SetNotifier(inbox)
	settler.SetObserver(agent)
	ads.SetNotifier(inbox)
	referrals.SetNotifier(inbox)
	referrals.SetObserver(agent)

	policyServer := policy.NewServer(&cfg.Security, redis, nil)

	coordinator := master.NewMaster(redis, settler, cfg.Mining.StatsInterval, nil)
	coordinator.AddSink(agent)
	coordinator.Manage(policyServer)
	coordinator.Manage(settler)
	coordinator.Start()

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg, api.Deps{
			Redis:       redis,
			Accounts:    account.NewService(redis, nil),
			Engine:      engine,
			Rates:       provider,
			Settlement:  settler,
			Ads:         ads,
			Referrals:   referrals,
			Leaderboard: leaderboard.NewService(redis, cfg.Leaderboard.Size, cfg.Leaderboard.Cache, nil),
			Inbox:       inbox,
			Policy:      policyServer,
			Agent:       agent,
		})
		if err := apiServer.Start(); err != nil {
			util.Fatalf("Failed to start API server: %v", err)
		}
	}

	profiler := profiling.NewServer(&cfg.Profiling)
	if err := profiler.Start(); err != nil {
		util.Fatalf("Failed to start profiling server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	util.Info("Engine started successfully. Press Ctrl+C to stop.")

	<-sigChan
	util.Info("Shutting down...")

	// Graceful shutdown
	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := apiServer.Stop(ctx); err != nil {
			util.Warnf("API server shutdown: %v", err)
		}
		cancel()
	}
	if err := profiler.Stop(); err != nil {
		util.Warnf("Profiling server shutdown: %v", err)
	}
	coordinator.Stop()

	util.Info("Engine stopped")
}
