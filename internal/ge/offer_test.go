package ge

import (
	"testing"
	"time"
)

func TestIsComplete(t *testing.T) {
	complete := []OfferState{StateBought, StateSold, StateCancelledBuy, StateCancelledSell}
	for _, st := range complete {
		if !(OfferEvent{State: st}).IsComplete() {
			t.Errorf("state %s should be complete", st)
		}
	}
	open := []OfferState{StateEmpty, StateBuying, StateSelling}
	for _, st := range open {
		if (OfferEvent{State: st}).IsComplete() {
			t.Errorf("state %s should not be complete", st)
		}
	}
}

func TestCausedByEmptySlot(t *testing.T) {
	if !(OfferEvent{ItemID: 0, State: StateBuying}).CausedByEmptySlot() {
		t.Error("item 0 should read as empty slot")
	}
	if !(OfferEvent{ItemID: 4151, State: StateEmpty}).CausedByEmptySlot() {
		t.Error("EMPTY state should read as empty slot")
	}
	if (OfferEvent{ItemID: 4151, State: StateBuying}).CausedByEmptySlot() {
		t.Error("real item in BUYING should not read as empty slot")
	}
}

func TestIsStartOfOffer(t *testing.T) {
	if !(OfferEvent{ItemID: 4151, State: StateBuying, CurrentQuantity: 0}).IsStartOfOffer() {
		t.Error("unfilled BUYING should be a start of offer")
	}
	if (OfferEvent{ItemID: 4151, State: StateBuying, CurrentQuantity: 5}).IsStartOfOffer() {
		t.Error("partially filled offer is not a start")
	}
	if (OfferEvent{ItemID: 4151, State: StateCancelledBuy, CurrentQuantity: 0}).IsStartOfOffer() {
		t.Error("complete event is not a start")
	}
}

func TestRedundantBeforeCompletion(t *testing.T) {
	ev := OfferEvent{ItemID: 4151, State: StateBuying, CurrentQuantity: 100, TotalQuantity: 100}
	if !ev.RedundantBeforeCompletion() {
		t.Error("fully filled BUYING should be redundant")
	}
	ev.State = StateBought
	if ev.RedundantBeforeCompletion() {
		t.Error("BOUGHT is the real completion, not redundant")
	}
	ev.State = StateBuying
	ev.CurrentQuantity = 99
	if ev.RedundantBeforeCompletion() {
		t.Error("partially filled BUYING is not redundant")
	}
}

func TestIsMarginCheck(t *testing.T) {
	ev := OfferEvent{State: StateBought, TotalQuantity: 1, TicksSinceFirst: 1}
	if !ev.IsMarginCheck() {
		t.Error("1-unit instant BOUGHT should be a margin check")
	}
	ev.TicksSinceFirst = 2
	if !ev.IsMarginCheck() {
		t.Error("2 ticks is still within the margin-check deadline")
	}
	ev.TicksSinceFirst = 3
	if ev.IsMarginCheck() {
		t.Error("3 ticks is too slow for a margin check")
	}
	ev = OfferEvent{State: StateSold, TotalQuantity: 2, TicksSinceFirst: 0}
	if ev.IsMarginCheck() {
		t.Error("multi-unit offers are never margin checks")
	}
	ev = OfferEvent{State: StateBuying, TotalQuantity: 1, TicksSinceFirst: 0}
	if ev.IsMarginCheck() {
		t.Error("incomplete offers are never margin checks")
	}
}

func TestSameProgress(t *testing.T) {
	a := OfferEvent{State: StateBuying, CurrentQuantity: 10, QuantityDelta: 5}
	b := a
	b.QuantityDelta = 0 // raw re-emits carry no delta
	if !a.SameProgress(b) {
		t.Error("identical progression should match regardless of delta")
	}
	b.CurrentQuantity = 11
	if a.SameProgress(b) {
		t.Error("different current quantity should not match")
	}
	b = a
	b.State = StateBought
	if a.SameProgress(b) {
		t.Error("different state should not match")
	}
}

func TestWithDelta(t *testing.T) {
	orig := OfferEvent{
		ItemID:          4151,
		CurrentQuantity: 30,
		Price:           100,
		Time:            time.Unix(1000, 0),
	}
	ev := orig.WithDelta(12, 4)
	if ev.QuantityDelta != 12 || ev.TicksSinceFirst != 4 {
		t.Errorf("WithDelta = (%d, %d), want (12, 4)", ev.QuantityDelta, ev.TicksSinceFirst)
	}
	if orig.QuantityDelta != 0 {
		t.Error("WithDelta must not mutate the receiver")
	}
	if ev.ItemID != orig.ItemID || ev.Price != orig.Price || !ev.Time.Equal(orig.Time) {
		t.Error("WithDelta must preserve the other fields")
	}
}
