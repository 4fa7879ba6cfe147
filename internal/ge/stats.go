package ge

import (
	"time"
)

// FlipView is one display row for an item: interval profit and ROI plus
// current margin and GE-limit standing. Rows are computed under the
// tracker lock so they are a consistent snapshot.
type FlipView struct {
	ItemID   int    `json:"item_id"`
	ItemName string `json:"item_name"`

	Profit     int64   `json:"profit"`
	Expense    int64   `json:"expense"`
	Revenue    int64   `json:"revenue"`
	ROIPercent float64 `json:"roi_percent"`
	ROIDefined bool    `json:"roi_defined"`

	QuantityBought int `json:"quantity_bought"`
	QuantitySold   int `json:"quantity_sold"`

	MarginBuyPrice  int `json:"margin_buy_price"`  // latest insta-buy probe, 0 = none
	MarginSellPrice int `json:"margin_sell_price"` // latest insta-sell probe, 0 = none
	LatestBuyPrice  int `json:"latest_buy_price"`
	LatestSellPrice int `json:"latest_sell_price"`

	GeLimit        int    `json:"ge_limit"` // 0 = unknown
	BoughtInWindow int    `json:"bought_in_window"`
	RemainingLimit int    `json:"remaining_limit"`
	LimitKnown     bool   `json:"limit_known"`
	LimitRefresh   string `json:"limit_refresh,omitempty"` // RFC3339, empty = no buys in window

	LastActive time.Time `json:"last_active"`
}

// FlipSummary aggregates interval totals across a set of flip rows.
type FlipSummary struct {
	TotalProfit  int64   `json:"total_profit"`
	TotalExpense int64   `json:"total_expense"`
	TotalRevenue int64   `json:"total_revenue"`
	ROIPercent   float64 `json:"roi_percent"`
	ROIDefined   bool    `json:"roi_defined"`
	Items        int     `json:"items"`
}

// FlipViews builds the display rows for one account (or the account-wide
// merge) over the interval since..now.
func (t *Tracker) FlipViews(selector string, since, now time.Time) []FlipView {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ledgers []*ItemLedger
	if selector == AccountWide {
		ledgers = t.mergedLocked()
	} else if book, ok := t.books[selector]; ok {
		ledgers = book.Ledgers()
	}

	views := make([]FlipView, 0, len(ledgers))
	for _, l := range ledgers {
		views = append(views, t.buildView(l, since, now))
	}
	return views
}

func (t *Tracker) buildView(l *ItemLedger, since, now time.Time) FlipView {
	v := FlipView{
		ItemID:     l.ItemID,
		ItemName:   l.ItemName,
		GeLimit:    l.GeLimit,
		LastActive: l.LastActive,
	}

	interval := l.IntervalHistory(since)
	for _, ev := range interval {
		if ev.Buy {
			v.QuantityBought += ev.QuantityDelta
		} else {
			v.QuantitySold += ev.QuantityDelta
		}
	}
	if t.splitMerged {
		v.Expense, v.Revenue = splitCash(interval)
	} else {
		v.Expense, v.Revenue = cashOf(interval)
	}
	v.Profit = v.Revenue - v.Expense
	if v.Expense > 0 {
		v.ROIPercent = float64(v.Revenue-v.Expense) / float64(v.Expense) * 100
		v.ROIDefined = true
	}

	if ev, ok := l.LatestMarginCheckBuy(); ok {
		v.MarginBuyPrice = ev.Price
	}
	if ev, ok := l.LatestMarginCheckSell(); ok {
		v.MarginSellPrice = ev.Price
	}
	if ev, ok := l.LatestBuy(); ok {
		v.LatestBuyPrice = ev.Price
	}
	if ev, ok := l.LatestSell(); ok {
		v.LatestSellPrice = ev.Price
	}

	v.BoughtInWindow = l.BoughtInLimitWindow(now)
	v.RemainingLimit, v.LimitKnown = l.RemainingGeLimit(now)
	if refresh, ok := l.NextLimitRefresh(now); ok {
		v.LimitRefresh = refresh.UTC().Format(time.RFC3339)
	}
	return v
}

// SummarizeFlips totals a set of flip rows into one summary line.
func SummarizeFlips(views []FlipView) FlipSummary {
	var s FlipSummary
	s.Items = len(views)
	for _, v := range views {
		s.TotalProfit += v.Profit
		s.TotalExpense += v.Expense
		s.TotalRevenue += v.Revenue
	}
	if s.TotalExpense > 0 {
		s.ROIPercent = float64(s.TotalRevenue-s.TotalExpense) / float64(s.TotalExpense) * 100
		s.ROIDefined = true
	}
	return s
}
