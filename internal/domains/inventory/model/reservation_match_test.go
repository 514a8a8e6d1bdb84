package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeReservations_NoExistingRows(t *testing.T) {
	outcome := ProbeReservations(nil, []ReserveLine{{BatchID: 1, Quantity: 5}})
	assert.Equal(t, MatchProceed, outcome)
}

func TestProbeReservations_ExactReplay(t *testing.T) {
	existing := []Reservation{
		{BatchID: 1, Quantity: 5, Status: ReservationPending},
		{BatchID: 2, Quantity: 3, Status: ReservationPending},
	}

	// Line order must not matter.
	outcome := ProbeReservations(existing, []ReserveLine{
		{BatchID: 2, Quantity: 3},
		{BatchID: 1, Quantity: 5},
	})
	assert.Equal(t, MatchIdempotent, outcome)
}

func TestProbeReservations_QuantityMismatch(t *testing.T) {
	existing := []Reservation{{BatchID: 1, Quantity: 5, Status: ReservationPending}}

	outcome := ProbeReservations(existing, []ReserveLine{{BatchID: 1, Quantity: 4}})
	assert.Equal(t, MatchConflict, outcome)
}

func TestProbeReservations_DifferentBatch(t *testing.T) {
	existing := []Reservation{{BatchID: 1, Quantity: 5, Status: ReservationPending}}

	outcome := ProbeReservations(existing, []ReserveLine{{BatchID: 2, Quantity: 5}})
	assert.Equal(t, MatchConflict, outcome)
}

func TestProbeReservations_ExtraLine(t *testing.T) {
	existing := []Reservation{{BatchID: 1, Quantity: 5, Status: ReservationPending}}

	outcome := ProbeReservations(existing, []ReserveLine{
		{BatchID: 1, Quantity: 5},
		{BatchID: 2, Quantity: 1},
	})
	assert.Equal(t, MatchConflict, outcome)
}

func TestProbeReservations_MissingLine(t *testing.T) {
	existing := []Reservation{
		{BatchID: 1, Quantity: 5, Status: ReservationPending},
		{BatchID: 2, Quantity: 1, Status: ReservationPending},
	}

	outcome := ProbeReservations(existing, []ReserveLine{{BatchID: 1, Quantity: 5}})
	assert.Equal(t, MatchConflict, outcome)
}

func TestProbeReservations_CancelledRowConflicts(t *testing.T) {
	// A released order must not silently ack a replayed Reserve.
	existing := []Reservation{{BatchID: 1, Quantity: 5, Status: ReservationCancelled}}

	outcome := ProbeReservations(existing, []ReserveLine{{BatchID: 1, Quantity: 5}})
	assert.Equal(t, MatchConflict, outcome)
}

func TestProbeReservations_ExpiredRowConflicts(t *testing.T) {
	existing := []Reservation{{BatchID: 1, Quantity: 5, Status: ReservationExpired}}

	outcome := ProbeReservations(existing, []ReserveLine{{BatchID: 1, Quantity: 5}})
	assert.Equal(t, MatchConflict, outcome)
}

func TestProbeReservations_DuplicateRequestLine(t *testing.T) {
	existing := []Reservation{
		{BatchID: 1, Quantity: 5, Status: ReservationPending},
		{BatchID: 2, Quantity: 3, Status: ReservationPending},
	}

	outcome := ProbeReservations(existing, []ReserveLine{
		{BatchID: 1, Quantity: 5},
		{BatchID: 1, Quantity: 5},
	})
	assert.Equal(t, MatchConflict, outcome)
}

func TestSortedUniqueBatchIDs(t *testing.T) {
	lines := []ReserveLine{
		{BatchID: 42, Quantity: 1},
		{BatchID: 7, Quantity: 2},
		{BatchID: 42, Quantity: 3},
		{BatchID: 1, Quantity: 4},
	}

	ids := SortedUniqueBatchIDs(lines)
	assert.Equal(t, []int64{1, 7, 42}, ids)
}

func TestSortedUniqueBatchIDs_Empty(t *testing.T) {
	assert.Empty(t, SortedUniqueBatchIDs(nil))
}

func TestValidateLines(t *testing.T) {
	require.NoError(t, ValidateLines([]ReserveLine{{BatchID: 1, Quantity: 1}}))

	err := ValidateLines(nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	err = ValidateLines([]ReserveLine{{BatchID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	err = ValidateLines([]ReserveLine{{BatchID: 1, Quantity: -3}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
