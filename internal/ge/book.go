package ge

import (
	"time"
)

// MetaFunc resolves an item's display name and total GE limit at ledger
// creation time. Unresolvable metadata returns ("", 0); the ledger is
// still created and limit queries degrade (limit 0 = unknown).
type MetaFunc func(itemID int) (name string, geLimit int)

// AccountBook owns one account's ledgers, its slot screener, and its
// session-time bookkeeping. Books are not safe for concurrent use; the
// Tracker serializes access.
type AccountBook struct {
	DisplayName string

	ledgers  map[int]*ItemLedger
	order    []*ItemLedger // recency order, front = most recently active
	screener *SlotScreener

	maxHistory int
	maxItems   int

	sessionTime       time.Duration
	lastSessionUpdate time.Time // zero = not currently accruing
}

// NewAccountBook creates an empty book for one account.
func NewAccountBook(displayName string, maxHistory, maxItems int) *AccountBook {
	return &AccountBook{
		DisplayName: displayName,
		ledgers:     make(map[int]*ItemLedger),
		screener:    NewSlotScreener(),
		maxHistory:  maxHistory,
		maxItems:    maxItems,
	}
}

// ProcessRaw screens one raw offer event and, when accepted, records it
// in the item's ledger. Imported events (slot -1) bypass screening since
// they are already per-trade entries. Returns the accepted event and
// whether anything was recorded.
func (b *AccountBook) ProcessRaw(ev OfferEvent, meta MetaFunc) (OfferEvent, bool) {
	if ev.MadeBy == "" {
		ev.MadeBy = b.DisplayName
	}

	var accepted OfferEvent
	if ev.Slot == ImportedSlot {
		accepted = ev
		if accepted.QuantityDelta == 0 {
			accepted.QuantityDelta = accepted.CurrentQuantity
		}
	} else {
		var ok bool
		accepted, ok = b.screener.Screen(ev)
		if !ok {
			return OfferEvent{}, false
		}
	}

	ledger, existed := b.ledgers[accepted.ItemID]
	if !existed {
		name, limit := "", 0
		if meta != nil {
			name, limit = meta(accepted.ItemID)
		}
		ledger = NewItemLedger(accepted.ItemID, name, limit)
		b.ledgers[accepted.ItemID] = ledger
	}
	resurfaced := !existed || !ledger.ValidForDisplay
	ledger.UpdateHistory(accepted, b.maxHistory)

	// New items and margin checks jump to the front of the display order;
	// a margin check always re-surfaces an item.
	if resurfaced || accepted.IsMarginCheck() {
		b.moveToFront(ledger)
	}
	b.enforceItemCap()
	return accepted, true
}

// enforceItemCap drops the least recently active ledgers once the
// tracked-item cap is exceeded. Eviction goes by LastActive, not list
// position: ordinary fills keep an item alive without moving it in the
// display order.
func (b *AccountBook) enforceItemCap() {
	if b.maxItems <= 0 {
		return
	}
	for len(b.order) > b.maxItems {
		oldest := 0
		for i, l := range b.order {
			if l.LastActive.Before(b.order[oldest].LastActive) {
				oldest = i
			}
		}
		evicted := b.order[oldest]
		b.order = append(b.order[:oldest], b.order[oldest+1:]...)
		delete(b.ledgers, evicted.ItemID)
	}
}

func (b *AccountBook) moveToFront(ledger *ItemLedger) {
	for i, l := range b.order {
		if l == ledger {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.order = append([]*ItemLedger{ledger}, b.order...)
}

// Ledgers returns the displayable ledgers in recency order.
func (b *AccountBook) Ledgers() []*ItemLedger {
	out := make([]*ItemLedger, 0, len(b.order))
	for _, l := range b.order {
		if l.ValidForDisplay {
			out = append(out, l)
		}
	}
	return out
}

// Ledger returns the ledger for one item, if any.
func (b *AccountBook) Ledger(itemID int) (*ItemLedger, bool) {
	l, ok := b.ledgers[itemID]
	return l, ok
}

// Flipping reports whether the account has at least one slot holding a
// non-complete accepted offer.
func (b *AccountBook) Flipping() bool {
	return len(b.screener.OpenOffers()) > 0
}

// OpenOffers returns the last accepted event of every slot currently
// holding a non-complete offer.
func (b *AccountBook) OpenOffers() []OfferEvent {
	return b.screener.OpenOffers()
}

// TickSessionTime accrues active flipping time. Accumulation uses
// now−lastUpdate deltas rather than a fixed tick size so accuracy
// survives scheduler jitter and missed ticks.
func (b *AccountBook) TickSessionTime(now time.Time) {
	if !b.Flipping() {
		b.lastSessionUpdate = time.Time{}
		return
	}
	if !b.lastSessionUpdate.IsZero() {
		b.sessionTime += now.Sub(b.lastSessionUpdate)
	}
	b.lastSessionUpdate = now
}

// SessionTime returns the accumulated active flipping time.
func (b *AccountBook) SessionTime() time.Duration {
	return b.sessionTime
}

// ResetBefore truncates every ledger's history at or before cutoff.
// Ledgers left with no history are removed entirely.
func (b *AccountBook) ResetBefore(cutoff time.Time) {
	kept := b.order[:0]
	for _, l := range b.order {
		if l.TruncateBefore(cutoff) {
			kept = append(kept, l)
		} else {
			delete(b.ledgers, l.ItemID)
		}
	}
	b.order = kept
}

// HideFromDisplay soft-deletes one item from the active trading view.
// The ledger and its history stay in storage and resurface on the next
// offer for that item.
func (b *AccountBook) HideFromDisplay(itemID int) {
	if l, ok := b.ledgers[itemID]; ok {
		l.ValidForDisplay = false
	}
}

// AccountSnapshot is the persisted representation of one account:
// the slot baselines plus every ledger.
type AccountSnapshot struct {
	DisplayName    string             `json:"display_name"`
	LastOffers     map[int]OfferEvent `json:"lastOffers"`
	Trades         []*ItemLedger      `json:"trades"`
	SessionSeconds int64              `json:"session_seconds"`
}

// Snapshot captures the book's persistable state.
func (b *AccountBook) Snapshot() AccountSnapshot {
	trades := make([]*ItemLedger, len(b.order))
	copy(trades, b.order)
	return AccountSnapshot{
		DisplayName:    b.DisplayName,
		LastOffers:     b.screener.LastOffers(),
		Trades:         trades,
		SessionSeconds: int64(b.sessionTime / time.Second),
	}
}

// RestoreAccountBook rebuilds a book from a persisted snapshot.
func RestoreAccountBook(snap AccountSnapshot, maxHistory, maxItems int) *AccountBook {
	b := NewAccountBook(snap.DisplayName, maxHistory, maxItems)
	for _, l := range snap.Trades {
		if l == nil {
			continue
		}
		b.ledgers[l.ItemID] = l
		b.order = append(b.order, l)
	}
	for slot, ev := range snap.LastOffers {
		ev.Slot = slot
		b.screener.SetLastAccepted(ev)
	}
	b.sessionTime = time.Duration(snap.SessionSeconds) * time.Second
	return b
}
