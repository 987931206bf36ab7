package dedup

import "fmt"

// ChooseKeep decides which of two events survives a merge. The tie-break
// chain is evaluated top to bottom and always resolves: richer edition
// history, then LIVE status, then the older record, then the lower id.
func ChooseKeep(a, b EventSummary) KeepDecision {
	editionsA := len(a.Editions)
	editionsB := len(b.Editions)
	if editionsA != editionsB {
		keep, duplicate := a, b
		if editionsB > editionsA {
			keep, duplicate = b, a
		}
		return KeepDecision{
			Keep:      keep,
			Duplicate: duplicate,
			Reason:    fmt.Sprintf("more editions (%d vs %d)", len(keep.Editions), len(duplicate.Editions)),
		}
	}

	liveA := a.Status == StatusLive
	liveB := b.Status == StatusLive
	if liveA != liveB {
		keep, duplicate := a, b
		if liveB {
			keep, duplicate = b, a
		}
		return KeepDecision{Keep: keep, Duplicate: duplicate, Reason: "status LIVE"}
	}

	if a.CreatedAt != nil && b.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt) {
		keep, duplicate := a, b
		if b.CreatedAt.Before(*a.CreatedAt) {
			keep, duplicate = b, a
		}
		return KeepDecision{Keep: keep, Duplicate: duplicate, Reason: "older"}
	}

	keep, duplicate := a, b
	if b.ID < a.ID {
		keep, duplicate = b, a
	}
	return KeepDecision{Keep: keep, Duplicate: duplicate, Reason: "older id"}
}
