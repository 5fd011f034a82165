package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	counts := []int{0, 0, 3, 3, 0, 2}
	wantEdges := []bool{false, false, true, false, false, true}

	var state SeatState
	for i, count := range counts {
		var edge bool
		state, edge = Transition(state, count)
		require.Equal(t, wantEdges[i], edge, "count %d at index %d", count, i)
		require.Equal(t, count, state.Count)
		require.Equal(t, count > 0, state.Available)
	}
}

func TestTransitionStartsAvailable(t *testing.T) {
	// seats already open on the very first observation still count as an
	// edge, the previous state defaults to full
	_, edge := Transition(SeatState{}, 5)
	require.True(t, edge)

	// but resuming from a recorded available state does not
	_, edge = Transition(SeatState{Count: 5, Available: true}, 5)
	require.False(t, edge)
}
