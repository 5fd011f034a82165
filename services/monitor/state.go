package monitor

// SeatState is the last-observed seat situation for the target. It is
// a plain value threaded through the poll loop, the loop owns the only
// copy.
type SeatState struct {
	Count     int
	Available bool
}

// Transition folds one observed seat count into the state and reports
// whether this observation crossed the full-to-available edge. The
// edge, not the level, is what triggers a notification: repeated polls
// while seats stay open must not re-notify.
func Transition(prev SeatState, count int) (next SeatState, edge bool) {
	next = SeatState{Count: count, Available: count > 0}
	return next, next.Available && !prev.Available
}
