package db

import (
	"strconv"

	"ge-flipper/internal/config"
)

// LoadConfig reads config from SQLite. If empty, returns defaults.
func (d *DB) LoadConfig() *config.Config {
	cfg := config.Default()

	rows, err := d.sql.Query("SELECT key, value FROM config")
	if err != nil {
		return cfg
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		rows.Scan(&k, &v)
		m[k] = v
	}

	if len(m) == 0 {
		return cfg
	}

	if v, ok := m["max_history_per_item"]; ok {
		cfg.MaxHistoryPerItem, _ = strconv.Atoi(v)
	}
	if v, ok := m["max_tracked_items"]; ok {
		cfg.MaxTrackedItems, _ = strconv.Atoi(v)
	}
	if v, ok := m["merge_split_accounts"]; ok {
		cfg.MergeSplitAccounts, _ = strconv.ParseBool(v)
	}
	if v, ok := m["session_tick_seconds"]; ok {
		cfg.SessionTickSeconds, _ = strconv.Atoi(v)
	}
	if v, ok := m["persist_interval_seconds"]; ok {
		cfg.PersistIntervalSeconds, _ = strconv.Atoi(v)
	}
	if v, ok := m["prices_base_url"]; ok {
		cfg.PricesBaseURL = v
	}
	if v, ok := m["prices_user_agent"]; ok {
		cfg.PricesUserAgent = v
	}
	if v, ok := m["default_interval"]; ok {
		cfg.DefaultInterval = v
	}
	if v, ok := m["opacity"]; ok {
		cfg.Opacity, _ = strconv.Atoi(v)
	}
	if v, ok := m["window_x"]; ok {
		cfg.WindowX, _ = strconv.Atoi(v)
	}
	if v, ok := m["window_y"]; ok {
		cfg.WindowY, _ = strconv.Atoi(v)
	}
	if v, ok := m["window_w"]; ok {
		cfg.WindowW, _ = strconv.Atoi(v)
	}
	if v, ok := m["window_h"]; ok {
		cfg.WindowH, _ = strconv.Atoi(v)
	}

	return cfg
}

// SaveConfig writes config to SQLite (upsert all fields).
func (d *DB) SaveConfig(cfg *config.Config) error {
	pairs := map[string]string{
		"max_history_per_item":     strconv.Itoa(cfg.MaxHistoryPerItem),
		"max_tracked_items":        strconv.Itoa(cfg.MaxTrackedItems),
		"merge_split_accounts":     strconv.FormatBool(cfg.MergeSplitAccounts),
		"session_tick_seconds":     strconv.Itoa(cfg.SessionTickSeconds),
		"persist_interval_seconds": strconv.Itoa(cfg.PersistIntervalSeconds),
		"prices_base_url":          cfg.PricesBaseURL,
		"prices_user_agent":        cfg.PricesUserAgent,
		"default_interval":         cfg.DefaultInterval,
		"opacity":                  strconv.Itoa(cfg.Opacity),
		"window_x":                 strconv.Itoa(cfg.WindowX),
		"window_y":                 strconv.Itoa(cfg.WindowY),
		"window_w":                 strconv.Itoa(cfg.WindowW),
		"window_h":                 strconv.Itoa(cfg.WindowH),
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
