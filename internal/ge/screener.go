package ge

import (
	"fmt"

	"ge-flipper/internal/logger"
)

// slotState is the transient per-slot bookkeeping between trades.
type slotState struct {
	lastAccepted *OfferEvent
	startTick    int
	hasStart     bool
}

// SlotScreener consumes the raw, duplicated offer-event stream for one
// account's slots and emits at most one accepted, delta-standardized
// event per genuine trade progression. Not safe for concurrent use;
// the owning book serializes access.
type SlotScreener struct {
	slots [NumSlots]slotState
}

// NewSlotScreener returns a screener with all slots idle.
func NewSlotScreener() *SlotScreener {
	return &SlotScreener{}
}

// Screen applies the per-slot screening state machine to one raw event.
// It returns the standardized event and true when the event represents a
// genuine trade progression, and a zero event and false when the event is
// an empty-slot ping, a start-of-offer announcement, or a duplicate.
func (s *SlotScreener) Screen(ev OfferEvent) (OfferEvent, bool) {
	if ev.Slot < 0 || ev.Slot >= NumSlots {
		logger.Warn("Screen", fmt.Sprintf("event for invalid slot %d dropped (item %d)", ev.Slot, ev.ItemID))
		return OfferEvent{}, false
	}
	st := &s.slots[ev.Slot]

	// Empty-slot pings carry no trade information.
	if ev.CausedByEmptySlot() {
		return OfferEvent{}, false
	}

	if ev.IsStartOfOffer() {
		// The client re-announces an open offer's start after a relog.
		if st.lastAccepted != nil &&
			st.lastAccepted.CurrentQuantity == 0 &&
			st.lastAccepted.State == ev.State {
			return OfferEvent{}, false
		}
		start := ev.WithDelta(0, 0)
		st.lastAccepted = &start
		st.startTick = ev.Tick
		st.hasStart = true
		return OfferEvent{}, false
	}

	// A cancellation before anything filled: nothing to account for.
	if ev.CurrentQuantity == 0 && ev.IsComplete() {
		*st = slotState{}
		return OfferEvent{}, false
	}

	if ev.RedundantBeforeCompletion() {
		return OfferEvent{}, false
	}

	var accepted OfferEvent
	if st.lastAccepted == nil {
		// Trade began before we were watching: the full observed quantity
		// is the best available delta. The incoming ticks-since-first is
		// preserved since no start reference exists.
		accepted = ev.WithDelta(ev.CurrentQuantity, ev.TicksSinceFirst)
	} else {
		if st.lastAccepted.SameProgress(ev) {
			return OfferEvent{}, false
		}
		delta := ev.CurrentQuantity - st.lastAccepted.CurrentQuantity
		if delta < 0 {
			logger.Warn("Screen", fmt.Sprintf(
				"slot %d item %d: quantity went backwards (%d -> %d), delta clamped to 0",
				ev.Slot, ev.ItemID, st.lastAccepted.CurrentQuantity, ev.CurrentQuantity))
			delta = 0
		}
		ticksSince := ev.TicksSinceFirst
		if st.hasStart {
			ticksSince = ev.Tick - st.startTick
		}
		accepted = ev.WithDelta(delta, ticksSince)
	}

	st.lastAccepted = &accepted
	if accepted.IsComplete() {
		// The next start-of-offer on this slot begins a fresh trade.
		st.startTick = 0
		st.hasStart = false
	}
	return accepted, true
}

// LastAccepted returns the most recent accepted (or start-of-offer)
// event recorded for a slot.
func (s *SlotScreener) LastAccepted(slot int) (OfferEvent, bool) {
	if slot < 0 || slot >= NumSlots || s.slots[slot].lastAccepted == nil {
		return OfferEvent{}, false
	}
	return *s.slots[slot].lastAccepted, true
}

// SetLastAccepted restores a slot's baseline from a persisted snapshot so
// screening resumes where the previous session left off.
func (s *SlotScreener) SetLastAccepted(ev OfferEvent) {
	if ev.Slot < 0 || ev.Slot >= NumSlots {
		return
	}
	st := &s.slots[ev.Slot]
	st.lastAccepted = &ev
	if !ev.IsComplete() {
		st.startTick = ev.Tick - ev.TicksSinceFirst
		st.hasStart = true
	}
}

// Reset clears one slot's transient state.
func (s *SlotScreener) Reset(slot int) {
	if slot < 0 || slot >= NumSlots {
		return
	}
	s.slots[slot] = slotState{}
}

// OpenOffers returns the last accepted event for every slot currently
// holding a non-complete offer.
func (s *SlotScreener) OpenOffers() []OfferEvent {
	var open []OfferEvent
	for i := range s.slots {
		if la := s.slots[i].lastAccepted; la != nil && !la.IsComplete() {
			open = append(open, *la)
		}
	}
	return open
}

// LastOffers returns every slot's last accepted event, keyed by slot.
// This is the persisted lastOffers map.
func (s *SlotScreener) LastOffers() map[int]OfferEvent {
	out := make(map[int]OfferEvent)
	for i := range s.slots {
		if la := s.slots[i].lastAccepted; la != nil {
			out[i] = *la
		}
	}
	return out
}
