package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"ge-flipper/internal/api"
	"ge-flipper/internal/db"
	"ge-flipper/internal/ge"
	"ge-flipper/internal/logger"
	"ge-flipper/internal/prices"
)

var version = "dev"

func main() {
	port := flag.Int("port", 13380, "HTTP server port")
	flag.Parse()

	logger.Banner(version)

	// Open SQLite database
	database, err := db.Open()
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	// Load config from SQLite
	cfg := database.LoadConfig()

	pricesClient := prices.NewClient(cfg.PricesBaseURL, cfg.PricesUserAgent, database)

	tracker := ge.NewTracker(pricesClient.ItemMeta, cfg.MaxHistoryPerItem, cfg.MaxTrackedItems, cfg.MergeSplitAccounts)

	// Restore persisted accounts
	snaps, err := database.LoadAccounts()
	if err != nil {
		logger.Warn("DB", fmt.Sprintf("Restore accounts: %v", err))
	} else if len(snaps) > 0 {
		tracker.Restore(snaps)
	}

	logger.Section("Accounts")
	logger.Stats("restored", len(snaps))

	// Session clock: accrues active flipping time for the logged-in account.
	go func() {
		interval := time.Duration(cfg.SessionTickSeconds) * time.Second
		if interval <= 0 {
			interval = time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for now := range ticker.C {
			tracker.TickSessionTime(now)
		}
	}()

	// Periodic persistence of all account books.
	go func() {
		interval := time.Duration(cfg.PersistIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = 30 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := database.SaveAccounts(tracker.Snapshots()); err != nil {
				logger.Error("DB", fmt.Sprintf("Persist accounts: %v", err))
			}
		}
	}()

	srv := api.NewServer(cfg, tracker, pricesClient, database)

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	logger.Server(addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
}
