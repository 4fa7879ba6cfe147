package config

// Config holds application settings (in-memory representation).
// Persistence is handled by internal/db package.
type Config struct {
	// History retention caps (bounded drop-oldest policies).
	MaxHistoryPerItem int `json:"max_history_per_item"`
	MaxTrackedItems   int `json:"max_tracked_items"`

	// MergeSplitAccounts controls profit matching in the account-wide
	// view: false pools all accounts' capital (a buy on one account may
	// match a sell on another), true matches within each account only.
	MergeSplitAccounts bool `json:"merge_split_accounts"`

	// Session clock interval in seconds.
	SessionTickSeconds int `json:"session_tick_seconds"`

	// How often tracked state is flushed to the database, in seconds.
	PersistIntervalSeconds int `json:"persist_interval_seconds"`

	// Real-time prices API.
	PricesBaseURL   string `json:"prices_base_url"`
	PricesUserAgent string `json:"prices_user_agent"`

	// Display preferences.
	DefaultInterval string `json:"default_interval"` // session | day | week | month | all
	Opacity         int    `json:"opacity"`
	WindowX         int    `json:"window_x"`
	WindowY         int    `json:"window_y"`
	WindowW         int    `json:"window_w"`
	WindowH         int    `json:"window_h"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		MaxHistoryPerItem:      500,
		MaxTrackedItems:        200,
		MergeSplitAccounts:     false,
		SessionTickSeconds:     1,
		PersistIntervalSeconds: 30,
		PricesBaseURL:          "https://prices.runescape.wiki/api/v1/osrs",
		PricesUserAgent:        "ge-flipper/1.0 (github.com)",
		DefaultInterval:        "session",
		Opacity:                230,
		WindowW:                520,
		WindowH:                680,
	}
}
