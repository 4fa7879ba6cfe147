package ge

import (
	"time"
)

// OfferState is the lifecycle state of a Grand Exchange slot as reported
// by the game client.
type OfferState string

const (
	StateEmpty         OfferState = "empty"
	StateBuying        OfferState = "buying"
	StateSelling       OfferState = "selling"
	StateBought        OfferState = "bought"
	StateSold          OfferState = "sold"
	StateCancelledBuy  OfferState = "cancelled_buy"
	StateCancelledSell OfferState = "cancelled_sell"
)

// NumSlots is the number of concurrent offer slots one account can have open.
const NumSlots = 8

// ImportedSlot marks events sourced from outside the live slot stream
// (e.g. GE history-tab imports) that carry no real slot.
const ImportedSlot = -1

// marginCheckMaxTicks is the completion deadline for an offer to count as
// a margin check: a 1-unit price probe fills almost instantly.
const marginCheckMaxTicks = 2

// OfferEvent is one observed state of one GE slot at one point in time.
// Values are never mutated after construction; the standardized copy with
// the computed delta is built with WithDelta.
type OfferEvent struct {
	Buy             bool       `json:"buy"`
	ItemID          int        `json:"item_id"`
	CurrentQuantity int        `json:"current_quantity"` // cumulative quantity filled so far in this order
	TotalQuantity   int        `json:"total_quantity"`   // quantity originally requested
	QuantityDelta   int        `json:"quantity_delta"`   // filled since the previous accepted event (computed)
	Price           int        `json:"price"`            // per unit, may be a running average mid-fill
	Time            time.Time  `json:"time"`
	Slot            int        `json:"slot"`
	State           OfferState `json:"state"`
	Tick            int        `json:"tick"`              // game tick when observed
	TicksSinceFirst int        `json:"ticks_since_first"` // ticks since this trade's first event
	MadeBy          string     `json:"made_by"`
	BeforeLogin     bool       `json:"before_login,omitempty"`
}

// IsComplete reports whether the offer has reached a terminal state.
func (e OfferEvent) IsComplete() bool {
	switch e.State {
	case StateBought, StateSold, StateCancelledBuy, StateCancelledSell:
		return true
	}
	return false
}

// CausedByEmptySlot reports whether the event is an empty-slot ping that
// carries no trade information.
func (e OfferEvent) CausedByEmptySlot() bool {
	return e.ItemID == 0 || e.State == StateEmpty
}

// IsStartOfOffer reports whether the event announces a freshly placed,
// not-yet-filled order.
func (e OfferEvent) IsStartOfOffer() bool {
	return e.CurrentQuantity == 0 && !e.IsComplete()
}

// RedundantBeforeCompletion detects the fully-filled BUYING/SELLING event
// the client emits immediately before the real BOUGHT/SOLD one.
func (e OfferEvent) RedundantBeforeCompletion() bool {
	return (e.State == StateBuying || e.State == StateSelling) &&
		e.CurrentQuantity == e.TotalQuantity
}

// IsMarginCheck reports whether the event completes a 1-unit price probe:
// a single-unit order that filled within a couple of ticks of placement.
func (e OfferEvent) IsMarginCheck() bool {
	return (e.State == StateBought || e.State == StateSold) &&
		e.TotalQuantity == 1 &&
		e.TicksSinceFirst <= marginCheckMaxTicks
}

// SameProgress reports whether two events for the same slot describe the
// identical trade progression. The client is known to re-emit such pairs
// around completion and after relogs. Deltas are not compared: a raw
// re-emit carries no delta while the stored baseline carries the
// computed one.
func (e OfferEvent) SameProgress(other OfferEvent) bool {
	return e.State == other.State &&
		e.CurrentQuantity == other.CurrentQuantity
}

// WithDelta returns a standardized copy carrying the computed
// quantity delta and ticks-since-first values.
func (e OfferEvent) WithDelta(delta, ticksSinceFirst int) OfferEvent {
	e.QuantityDelta = delta
	e.TicksSinceFirst = ticksSinceFirst
	return e
}
