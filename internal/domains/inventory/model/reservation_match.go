package model

// MatchOutcome is the idempotency probe's decision for a Reserve call that
// found existing reservation rows for the order.
type MatchOutcome int

const (
	// MatchProceed: no existing rows, run the full protocol.
	MatchProceed MatchOutcome = iota
	// MatchIdempotent: the existing rows are exactly the requested lines;
	// return success without side effects.
	MatchIdempotent
	// MatchConflict: existing rows differ from the request (different
	// batches, quantities, extra or missing lines, or a cancelled/expired
	// row); fail with ORDER_ALREADY_RESERVED.
	MatchConflict
)

// ProbeReservations compares an order's existing reservations against the
// requested lines as an unordered multiset keyed by batch id. The unique
// (order_id, batch_id) constraint means the multiset degenerates to a map.
//
// A CANCELLED or EXPIRED row always conflicts: the original claim was given
// back, so replaying the same Reserve must not silently report success
// against stock it no longer holds.
func ProbeReservations(existing []Reservation, lines []ReserveLine) MatchOutcome {
	if len(existing) == 0 {
		return MatchProceed
	}

	byBatch := make(map[int64]Reservation, len(existing))
	for _, r := range existing {
		byBatch[r.BatchID] = r
	}

	if len(byBatch) != len(lines) {
		return MatchConflict
	}

	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if seen[line.BatchID] {
			// Duplicate batch in the request can never match one row per batch.
			return MatchConflict
		}
		seen[line.BatchID] = true

		r, ok := byBatch[line.BatchID]
		if !ok || r.Quantity != line.Quantity {
			return MatchConflict
		}
		if r.Status == ReservationCancelled || r.Status == ReservationExpired {
			return MatchConflict
		}
	}

	return MatchIdempotent
}

// SortedUniqueBatchIDs returns the distinct batch ids of lines in ascending
// order. Every writer locks batch rows in this order; it is the
// deadlock-avoidance invariant shared with Release and reconciliation.
func SortedUniqueBatchIDs(lines []ReserveLine) []int64 {
	set := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		set[line.BatchID] = struct{}{}
	}

	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	// Insertion sort; line counts are tiny.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}

	return ids
}

// ValidateLines enforces the input rules of Reserve: non-empty lines, every
// quantity strictly positive.
func ValidateLines(lines []ReserveLine) error {
	if len(lines) == 0 {
		return ErrInvalidQuantity
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}
