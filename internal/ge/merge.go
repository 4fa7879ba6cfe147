package ge

import (
	"sort"
	"sync"
	"time"
)

// AccountWide is the view selector for the synthetic merge of every
// tracked account's ledgers.
const AccountWide = "all"

// Tracker owns all account books and the memoized account-wide merge.
// All mutation happens under a single writer lock (the host event stream
// is sequential); readers such as the session clock and API handlers take
// the same lock for consistent snapshots.
type Tracker struct {
	mu    sync.RWMutex
	books map[string]*AccountBook

	// Events observed before the player's display name resolved.
	pending []OfferEvent

	current string // logged-in account, "" when none

	merged      []*ItemLedger
	mergedDirty bool

	meta        MetaFunc
	maxHistory  int
	maxItems    int
	splitMerged bool // merged profit matched per account instead of pooled
}

// NewTracker creates a tracker with no accounts.
func NewTracker(meta MetaFunc, maxHistory, maxItems int, splitMergedProfit bool) *Tracker {
	return &Tracker{
		books:       make(map[string]*AccountBook),
		mergedDirty: true,
		meta:        meta,
		maxHistory:  maxHistory,
		maxItems:    maxItems,
		splitMerged: splitMergedProfit,
	}
}

// OnRawOffer is the intake for one host-reported offer change. Events
// arriving before any account is identified are buffered and replayed by
// OnAccountIdentified. Returns the accepted standardized event, if any.
func (t *Tracker) OnRawOffer(account string, ev OfferEvent) (OfferEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.BeforeLogin || account == "" {
		t.pending = append(t.pending, ev)
		return OfferEvent{}, false
	}
	return t.applyLocked(account, ev)
}

func (t *Tracker) applyLocked(account string, ev OfferEvent) (OfferEvent, bool) {
	book, ok := t.books[account]
	if !ok {
		book = NewAccountBook(account, t.maxHistory, t.maxItems)
		t.books[account] = book
	}
	accepted, ok := book.ProcessRaw(ev, t.meta)
	if ok {
		// Invalidate synchronously with the mutation so no reader can
		// observe and re-cache a stale merge.
		t.mergedDirty = true
	}
	return accepted, ok
}

// OnAccountIdentified records the logged-in account and replays any
// events buffered before the display name resolved.
func (t *Tracker) OnAccountIdentified(displayName string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = displayName
	if len(t.pending) == 0 {
		return
	}
	buffered := t.pending
	t.pending = nil
	for _, ev := range buffered {
		ev.BeforeLogin = false
		ev.MadeBy = displayName
		t.applyLocked(displayName, ev)
	}
}

// CurrentAccount returns the logged-in account, if any.
func (t *Tracker) CurrentAccount() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Accounts returns the tracked account names, sorted.
func (t *Tracker) Accounts() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.books))
	for name := range t.books {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TradesForView returns the display-ordered ledgers for one account, or
// the memoized account-wide merge for the AccountWide selector.
func (t *Tracker) TradesForView(selector string) []*ItemLedger {
	t.mu.Lock()
	defer t.mu.Unlock()

	if selector == AccountWide {
		return t.mergedLocked()
	}
	book, ok := t.books[selector]
	if !ok {
		return nil
	}
	return book.Ledgers()
}

// ItemHistory returns one item's name and interval history for an
// account's view (or the account-wide merge). The history is a copy
// taken under the tracker lock, so callers can read it without racing
// the event stream.
func (t *Tracker) ItemHistory(selector string, itemID int, since time.Time) (string, []OfferEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ledgers []*ItemLedger
	if selector == AccountWide {
		ledgers = t.mergedLocked()
	} else if book, ok := t.books[selector]; ok {
		ledgers = book.Ledgers()
	}
	for _, l := range ledgers {
		if l.ItemID == itemID {
			return l.ItemName, l.IntervalHistory(since), true
		}
	}
	return "", nil, false
}

// OpenOffers returns a copy of one account's live slot offers taken
// under the tracker lock. ok is false for an unknown account.
func (t *Tracker) OpenOffers(displayName string) ([]OfferEvent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	book, ok := t.books[displayName]
	if !ok {
		return nil, false
	}
	return book.OpenOffers(), true
}

// mergedLocked rebuilds the account-wide merge if dirty and returns the
// cached result.
func (t *Tracker) mergedLocked() []*ItemLedger {
	if !t.mergedDirty {
		return t.merged
	}

	byItem := make(map[int]*ItemLedger)
	for _, book := range t.books {
		for _, src := range book.Ledgers() {
			dst, ok := byItem[src.ItemID]
			if !ok {
				dst = NewItemLedger(src.ItemID, src.ItemName, src.GeLimit)
				dst.ValidForDisplay = true
				byItem[src.ItemID] = dst
			}
			if dst.ItemName == "" {
				dst.ItemName = src.ItemName
			}
			if dst.GeLimit == 0 {
				dst.GeLimit = src.GeLimit
			}
			dst.History = append(dst.History, src.History...)
			if src.LastActive.After(dst.LastActive) {
				dst.LastActive = src.LastActive
			}
		}
	}

	merged := make([]*ItemLedger, 0, len(byItem))
	for _, l := range byItem {
		// Order by time with deterministic tie-breaks so the merge is
		// independent of account iteration order.
		sort.SliceStable(l.History, func(i, j int) bool {
			a, b := l.History[i], l.History[j]
			if !a.Time.Equal(b.Time) {
				return a.Time.Before(b.Time)
			}
			if a.Tick != b.Tick {
				return a.Tick < b.Tick
			}
			if a.MadeBy != b.MadeBy {
				return a.MadeBy < b.MadeBy
			}
			return a.Slot < b.Slot
		})
		merged = append(merged, l)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].LastActive.After(merged[j].LastActive)
	})

	t.merged = merged
	t.mergedDirty = false
	return t.merged
}

// ProfitFor computes a ledger's interval profit under the tracker's
// merged-matching policy. For single-account views both policies agree;
// for the merged view the split policy never matches a buy on one
// account against a sell on another.
func (t *Tracker) ProfitFor(l *ItemLedger, since time.Time) int64 {
	if !t.splitMerged {
		return l.CurrentProfit(since)
	}
	return splitProfit(l.IntervalHistory(since))
}

// splitProfit partitions events by account before FIFO matching and sums
// the per-account results.
func splitProfit(events []OfferEvent) int64 {
	expense, revenue := splitCash(events)
	return revenue - expense
}

// splitCash is the per-account variant of cashOf: matched expense and
// revenue computed within each account's events, then summed.
func splitCash(events []OfferEvent) (expense, revenue int64) {
	byAccount := make(map[string][]OfferEvent)
	for _, ev := range events {
		byAccount[ev.MadeBy] = append(byAccount[ev.MadeBy], ev)
	}
	for _, evs := range byAccount {
		e, r := cashOf(evs)
		expense += e
		revenue += r
	}
	return expense, revenue
}

// ResetInterval truncates history at or before since for one account, or
// for every account with the AccountWide selector.
func (t *Tracker) ResetInterval(selector string, since time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if selector == AccountWide {
		for _, book := range t.books {
			book.ResetBefore(since)
		}
	} else if book, ok := t.books[selector]; ok {
		book.ResetBefore(since)
	}
	t.mergedDirty = true
}

// DeleteAccount removes one account and all its ledgers.
func (t *Tracker) DeleteAccount(displayName string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.books, displayName)
	if t.current == displayName {
		t.current = ""
	}
	t.mergedDirty = true
}

// TickSessionTime accrues flipping time for the logged-in account.
func (t *Tracker) TickSessionTime(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == "" {
		return
	}
	if book, ok := t.books[t.current]; ok {
		book.TickSessionTime(now)
	}
}

// SessionTime returns one account's accumulated flipping time.
func (t *Tracker) SessionTime(displayName string) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	book, ok := t.books[displayName]
	if !ok {
		return 0, false
	}
	return book.SessionTime(), true
}

// Snapshots captures every account's persistable state.
func (t *Tracker) Snapshots() []AccountSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snaps := make([]AccountSnapshot, 0, len(t.books))
	for _, book := range t.books {
		snaps = append(snaps, book.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].DisplayName < snaps[j].DisplayName
	})
	return snaps
}

// Restore rebuilds account books from persisted snapshots, replacing any
// existing state for the same accounts.
func (t *Tracker) Restore(snaps []AccountSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, snap := range snaps {
		if snap.DisplayName == "" {
			continue
		}
		t.books[snap.DisplayName] = RestoreAccountBook(snap, t.maxHistory, t.maxItems)
	}
	t.mergedDirty = true
}
