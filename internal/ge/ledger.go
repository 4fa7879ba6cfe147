package ge

import (
	"time"
)

// GeLimitWindow is the window within which an account can buy at most an
// item's GE limit. The window is anchored at its first buy, not trailing:
// once anchor+window passes, the count resets and the next buy starts a
// fresh window.
const GeLimitWindow = 4 * time.Hour

// ItemLedger owns the accepted-event history for one traded item on one
// account and answers profit, ROI, and buy-limit queries over intervals.
type ItemLedger struct {
	ItemID          int          `json:"item_id"`
	ItemName        string       `json:"item_name"`
	GeLimit         int          `json:"ge_limit"` // 0 = unknown
	History         []OfferEvent `json:"history"`  // insertion order = acceptance order
	ValidForDisplay bool         `json:"valid_for_display"`
	LastActive      time.Time    `json:"last_active"`
}

// NewItemLedger creates a ledger for an item first seen on this account.
func NewItemLedger(itemID int, name string, geLimit int) *ItemLedger {
	return &ItemLedger{
		ItemID:   itemID,
		ItemName: name,
		GeLimit:  geLimit,
	}
}

// UpdateHistory appends one accepted event, enforcing the retention cap
// by dropping the oldest entries. A new offer for a soft-deleted item
// resurfaces it.
func (l *ItemLedger) UpdateHistory(ev OfferEvent, maxHistory int) {
	l.History = append(l.History, ev)
	if maxHistory > 0 && len(l.History) > maxHistory {
		l.History = l.History[len(l.History)-maxHistory:]
	}
	l.ValidForDisplay = true
	if ev.Time.After(l.LastActive) {
		l.LastActive = ev.Time
	}
}

// IntervalHistory returns all accepted events after since, in original order.
func (l *ItemLedger) IntervalHistory(since time.Time) []OfferEvent {
	var out []OfferEvent
	for _, ev := range l.History {
		if ev.Time.After(since) {
			out = append(out, ev)
		}
	}
	return out
}

// CurrentProfit computes realized profit over the interval by matching the
// earliest n bought units against the earliest n sold units, where n is
// the smaller of the two totals. Unmatched inventory is not a realized
// gain or loss, so either side being empty yields 0.
func (l *ItemLedger) CurrentProfit(since time.Time) int64 {
	return profitOf(l.IntervalHistory(since))
}

// FlippedCash returns the matched expense and revenue over the interval:
// the gp paid for and received from the n units that CurrentProfit matches.
func (l *ItemLedger) FlippedCash(since time.Time) (expense, revenue int64) {
	return cashOf(l.IntervalHistory(since))
}

// ROI returns the interval return on investment as a percentage. The
// second result is false when no matched expense exists, in which case
// the ratio is undefined.
func (l *ItemLedger) ROI(since time.Time) (float64, bool) {
	expense, revenue := l.FlippedCash(since)
	if expense == 0 {
		return 0, false
	}
	return float64(revenue-expense) / float64(expense) * 100, true
}

func profitOf(events []OfferEvent) int64 {
	expense, revenue := cashOf(events)
	return revenue - expense
}

func cashOf(events []OfferEvent) (expense, revenue int64) {
	var buys, sells []OfferEvent
	var numBought, numSold int
	for _, ev := range events {
		if ev.Buy {
			buys = append(buys, ev)
			numBought += ev.QuantityDelta
		} else {
			sells = append(sells, ev)
			numSold += ev.QuantityDelta
		}
	}
	if numBought == 0 || numSold == 0 {
		return 0, 0
	}
	n := numBought
	if numSold < n {
		n = numSold
	}
	return truncatedValue(buys, n), truncatedValue(sells, n)
}

// truncatedValue walks events chronologically accumulating quantity×price,
// truncating the last contributing event so the counted quantity never
// exceeds limit.
func truncatedValue(events []OfferEvent, limit int) int64 {
	var total int64
	remaining := limit
	for _, ev := range events {
		if remaining <= 0 {
			break
		}
		qty := ev.QuantityDelta
		if qty > remaining {
			qty = remaining
		}
		total += int64(qty) * int64(ev.Price)
		remaining -= qty
	}
	return total
}

// limitWindow walks the buy history and returns the current limit
// window's anchor (its first buy) and the quantity bought inside it.
// A buy later than anchor+window starts a fresh window. ok is false
// when no window is open at now.
func (l *ItemLedger) limitWindow(now time.Time) (anchor time.Time, bought int, ok bool) {
	for _, ev := range l.History {
		if !ev.Buy || ev.Time.After(now) {
			continue
		}
		if anchor.IsZero() || ev.Time.After(anchor.Add(GeLimitWindow)) {
			anchor = ev.Time
			bought = ev.QuantityDelta
		} else {
			bought += ev.QuantityDelta
		}
	}
	if anchor.IsZero() || now.After(anchor.Add(GeLimitWindow)) {
		return time.Time{}, 0, false
	}
	return anchor, bought, true
}

// BoughtInLimitWindow sums the quantities bought within the currently
// open anchored GE-limit window, 0 once the window has expired.
func (l *ItemLedger) BoughtInLimitWindow(now time.Time) int {
	_, bought, ok := l.limitWindow(now)
	if !ok {
		return 0
	}
	return bought
}

// RemainingGeLimit returns how many more units can be bought in the
// current window, floored at 0. The second result is false when the
// item's total limit is unknown; callers should fall back to
// BoughtInLimitWindow for display.
func (l *ItemLedger) RemainingGeLimit(now time.Time) (int, bool) {
	if l.GeLimit == 0 {
		return 0, false
	}
	remaining := l.GeLimit - l.BoughtInLimitWindow(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// NextLimitRefresh returns when the whole buy limit frees up again: the
// current window's anchor buy plus the window length. False when no
// window is open at now.
func (l *ItemLedger) NextLimitRefresh(now time.Time) (time.Time, bool) {
	anchor, _, ok := l.limitWindow(now)
	if !ok {
		return time.Time{}, false
	}
	return anchor.Add(GeLimitWindow), true
}

// LatestBuy returns the most recent buy event.
func (l *ItemLedger) LatestBuy() (OfferEvent, bool) {
	return l.latest(func(ev OfferEvent) bool { return ev.Buy })
}

// LatestSell returns the most recent sell event.
func (l *ItemLedger) LatestSell() (OfferEvent, bool) {
	return l.latest(func(ev OfferEvent) bool { return !ev.Buy })
}

// LatestMarginCheckBuy returns the most recent instant 1-unit buy, i.e.
// the current street price to insta-buy.
func (l *ItemLedger) LatestMarginCheckBuy() (OfferEvent, bool) {
	return l.latest(func(ev OfferEvent) bool { return ev.Buy && ev.IsMarginCheck() })
}

// LatestMarginCheckSell returns the most recent instant 1-unit sell.
func (l *ItemLedger) LatestMarginCheckSell() (OfferEvent, bool) {
	return l.latest(func(ev OfferEvent) bool { return !ev.Buy && ev.IsMarginCheck() })
}

func (l *ItemLedger) latest(match func(OfferEvent) bool) (OfferEvent, bool) {
	for i := len(l.History) - 1; i >= 0; i-- {
		if match(l.History[i]) {
			return l.History[i], true
		}
	}
	return OfferEvent{}, false
}

// TruncateBefore drops all history at or before cutoff and reports
// whether any history remains.
func (l *ItemLedger) TruncateBefore(cutoff time.Time) bool {
	kept := l.History[:0]
	for _, ev := range l.History {
		if ev.Time.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	l.History = kept
	return len(l.History) > 0
}
