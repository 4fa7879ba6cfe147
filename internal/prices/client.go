package prices

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ItemStore is a persistent L2 cache for item metadata.
type ItemStore interface {
	GetItemMeta(itemID int) (name string, geLimit int, ok bool)
	SetItemMeta(itemID int, name string, geLimit int)
}

// ItemMeta is one entry of the wiki /mapping endpoint: static item
// metadata including the GE buy limit.
type ItemMeta struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Limit    int    `json:"limit"` // 0 = no published limit
	Members  bool   `json:"members"`
	Value    int    `json:"value"`
	HighAlch int    `json:"highalch"`
}

// Quote is one entry of the wiki /latest endpoint: the most recent
// insta-buy (high) and insta-sell (low) prices.
type Quote struct {
	High     int64 `json:"high"`
	HighTime int64 `json:"highTime"`
	Low      int64 `json:"low"`
	LowTime  int64 `json:"lowTime"`
}

// Client is a rate-limited client for the OSRS wiki real-time prices API.
// Item metadata is cached L1 in memory and L2 in SQLite; the full mapping
// and latest-price documents are cached with a TTL, with singleflight
// coalescing concurrent refreshes.
type Client struct {
	http      *http.Client
	sem       chan struct{}
	baseURL   string
	userAgent string

	metaCache sync.Map // int -> ItemMeta (L1)
	metaStore ItemStore

	group singleflight.Group

	mu             sync.RWMutex
	mapping        map[int]ItemMeta
	mappingExpires time.Time
	latest         map[int]Quote
	latestExpires  time.Time
}

const (
	mappingTTL = 12 * time.Hour
	latestTTL  = 60 * time.Second
)

// NewClient creates a prices client with rate limiting and the given
// persistent metadata store.
func NewClient(baseURL, userAgent string, store ItemStore) *Client {
	return &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		sem:       make(chan struct{}, 4), // the wiki asks for a low request rate
		baseURL:   baseURL,
		userAgent: userAgent,
		metaStore: store,
	}
}

// HealthCheck pings the latest-prices endpoint to verify connectivity.
func (c *Client) HealthCheck() bool {
	req, err := http.NewRequest("GET", c.baseURL+"/latest", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == 200
}

// ItemMeta resolves an item's name and GE limit.
// L1: in-memory cache. L2: persistent DB cache. L3: wiki /mapping fetch.
// Unresolvable items return ("", 0); limit queries degrade gracefully.
func (c *Client) ItemMeta(itemID int) (name string, geLimit int) {
	if v, ok := c.metaCache.Load(itemID); ok {
		m := v.(ItemMeta)
		return m.Name, m.Limit
	}
	if c.metaStore != nil {
		if name, limit, ok := c.metaStore.GetItemMeta(itemID); ok {
			c.metaCache.Store(itemID, ItemMeta{ID: itemID, Name: name, Limit: limit})
			return name, limit
		}
	}
	mapping, err := c.fetchMappingCached()
	if err != nil {
		return "", 0
	}
	m, ok := mapping[itemID]
	if !ok {
		return "", 0
	}
	c.metaCache.Store(itemID, m)
	if c.metaStore != nil {
		c.metaStore.SetItemMeta(itemID, m.Name, m.Limit)
	}
	return m.Name, m.Limit
}

// LatestQuote returns the most recent insta-buy/insta-sell prices for an
// item, refreshing the latest-price document when its TTL lapses.
func (c *Client) LatestQuote(itemID int) (Quote, bool) {
	latest, err := c.fetchLatestCached()
	if err != nil {
		return Quote{}, false
	}
	q, ok := latest[itemID]
	return q, ok
}

func (c *Client) fetchMappingCached() (map[int]ItemMeta, error) {
	c.mu.RLock()
	if c.mapping != nil && time.Now().Before(c.mappingExpires) {
		m := c.mapping
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do("mapping", func() (interface{}, error) {
		var entries []ItemMeta
		if err := c.getJSON(c.baseURL+"/mapping", &entries); err != nil {
			return nil, err
		}
		m := make(map[int]ItemMeta, len(entries))
		for _, e := range entries {
			m[e.ID] = e
		}
		c.mu.Lock()
		c.mapping = m
		c.mappingExpires = time.Now().Add(mappingTTL)
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		// Serve stale mapping over nothing.
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.mapping != nil {
			return c.mapping, nil
		}
		return nil, err
	}
	return result.(map[int]ItemMeta), nil
}

func (c *Client) fetchLatestCached() (map[int]Quote, error) {
	c.mu.RLock()
	if c.latest != nil && time.Now().Before(c.latestExpires) {
		m := c.latest
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do("latest", func() (interface{}, error) {
		var doc struct {
			Data map[string]Quote `json:"data"`
		}
		if err := c.getJSON(c.baseURL+"/latest", &doc); err != nil {
			return nil, err
		}
		m := make(map[int]Quote, len(doc.Data))
		for id, q := range doc.Data {
			var itemID int
			if _, err := fmt.Sscanf(id, "%d", &itemID); err == nil {
				m[itemID] = q
			}
		}
		c.mu.Lock()
		c.latest = m
		c.latestExpires = time.Now().Add(latestTTL)
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.latest != nil {
			return c.latest, nil
		}
		return nil, err
	}
	return result.(map[int]Quote), nil
}

// getJSON fetches a URL and decodes JSON into dst.
func (c *Client) getJSON(url string, dst interface{}) error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("prices API %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}
