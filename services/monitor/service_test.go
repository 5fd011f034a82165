package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"seatwatch/lib/notify"
	"seatwatch/lib/scrapers/flexportal"
	"seatwatch/lib/seatstore"
	"seatwatch/lib/seatstore/db"
	"seatwatch/lib/sqliteutil"
	"seatwatch/lib/telemetry"
	"seatwatch/lib/timezone"

	"github.com/stretchr/testify/require"
)

type tickResult struct {
	count int
	err   error
}

type fakeSession struct {
	results   []tickResult
	fetches   int
	registers int
}

func (s *fakeSession) FetchSections(ctx context.Context, courseCode string) ([]flexportal.Section, error) {
	i := s.fetches
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.fetches++

	r := s.results[i]
	if r.err != nil {
		return nil, r.err
	}
	return []flexportal.Section{{
		Course: courseCode,
		Name:   "B",
		Seats:  r.count,
		Full:   r.count == 0,
	}}, nil
}

func (s *fakeSession) Register(ctx context.Context, target flexportal.RegisterTarget) (flexportal.RegistrationResult, error) {
	s.registers++
	return flexportal.RegistrationResult{
		Course:    target.CourseCode,
		Section:   target.Section,
		Confirmed: true,
	}, nil
}

type fakeSource struct {
	session     *fakeSession
	acquires    int
	invalidates int
}

func (s *fakeSource) Acquire(ctx context.Context) (Session, error) {
	s.acquires++
	return s.session, nil
}

func (s *fakeSource) Invalidate() {
	s.invalidates++
}

type fakeNotifier struct {
	calls int
	err   error
}

func (n *fakeNotifier) Notify(ctx context.Context, notification notify.Notification) error {
	n.calls++
	return n.err
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Interval == 0 {
		opts.Interval = time.Second
	}
	if opts.Target.CourseCode == "" {
		opts.Target = Target{CourseCode: "CSX05", Section: "B"}
	}
	service, err := NewService(opts)
	require.NoError(t, err)
	return service
}

func runTicks(ctx context.Context, s *Service, ticks int) SeatState {
	var state SeatState
	for i := 0; i < ticks; i++ {
		state = s.Tick(ctx, state)
	}
	return state
}

func TestNewServiceRejectsBadOptions(t *testing.T) {
	_, err := NewService(Options{Source: &fakeSource{}})
	require.Error(t, err)

	_, err = NewService(Options{Interval: time.Second})
	require.Error(t, err)
}

func TestNotifiesOnlyOnEdges(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:monitor")
	defer cleanup()

	session := &fakeSession{results: []tickResult{
		{count: 0}, {count: 0}, {count: 3}, {count: 3}, {count: 0}, {count: 2},
	}}
	notifier := &fakeNotifier{}
	service := newTestService(t, Options{
		Source:   &fakeSource{session: session},
		Notifier: notifier,
	})

	runTicks(context.Background(), service, 6)

	// full->available happened twice, the sustained availability in
	// between must not re-notify
	require.Equal(t, 2, notifier.calls)
	require.Equal(t, 0, session.registers)
}

func TestPollFailureKeepsLoopGoing(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:monitor")
	defer cleanup()

	session := &fakeSession{results: []tickResult{
		{count: 0},
		{err: &flexportal.ParseError{URL: "http://x", Selector: "tr"}},
		{count: 3},
	}}
	notifier := &fakeNotifier{}
	service := newTestService(t, Options{
		Source:   &fakeSource{session: session},
		Notifier: notifier,
	})

	ctx := context.Background()
	state := service.Tick(ctx, SeatState{})
	require.False(t, state.Available)

	// the failed tick keeps the previous state and defers to the next
	// interval
	after := service.Tick(ctx, state)
	require.Equal(t, state, after)

	final := service.Tick(ctx, after)
	require.True(t, final.Available)
	require.Equal(t, 1, notifier.calls)
}

func TestSessionExpiryReacquiresOnce(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:monitor")
	defer cleanup()

	session := &fakeSession{results: []tickResult{
		{err: flexportal.ErrSessionExpired},
		{count: 4},
	}}
	source := &fakeSource{session: session}
	notifier := &fakeNotifier{}
	service := newTestService(t, Options{Source: source, Notifier: notifier})

	state := service.Tick(context.Background(), SeatState{})

	// expired session is replaced within the same tick and the fetch is
	// retried, so the tick still lands an observation
	require.True(t, state.Available)
	require.Equal(t, 4, state.Count)
	require.Equal(t, 1, source.invalidates)
	require.Equal(t, 2, source.acquires)
	require.Equal(t, 1, notifier.calls)
}

func TestDeliveryFailureDoesNotStopPolling(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:monitor")
	defer cleanup()

	session := &fakeSession{results: []tickResult{
		{count: 3}, {count: 0}, {count: 2},
	}}
	notifier := &fakeNotifier{err: &notify.DeliveryError{
		Channel: "twilio",
		Err:     errors.New("message endpoint returned status 500"),
	}}
	service := newTestService(t, Options{
		Source:   &fakeSource{session: session},
		Notifier: notifier,
	})

	runTicks(context.Background(), service, 3)

	// both edges attempt delivery even though every attempt fails
	require.Equal(t, 2, notifier.calls)
	require.Equal(t, 3, session.fetches)
}

func TestAutoRegisterFiresOnEdgeOnly(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:monitor")
	defer cleanup()

	session := &fakeSession{results: []tickResult{
		{count: 3}, {count: 3}, {count: 3},
	}}
	service := newTestService(t, Options{
		Source:       &fakeSource{session: session},
		Notifier:     &fakeNotifier{},
		AutoRegister: true,
	})

	runTicks(context.Background(), service, 3)

	require.Equal(t, 1, session.registers)
}

func TestRestartResumesFromLastObservation(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:monitor")
	defer cleanup()

	sqlite, err := sqliteutil.OpenDB(db.Schema, ":memory:")
	require.NoError(t, err)
	store := seatstore.NewStore(sqlite)

	ctx := context.Background()
	err = store.RecordObservation(ctx, seatstore.Observation{
		Course:    "CSX05",
		Section:   "B",
		Time:      timezone.Now(),
		Seats:     4,
		Available: true,
	})
	require.NoError(t, err)

	session := &fakeSession{results: []tickResult{{count: 4}}}
	notifier := &fakeNotifier{}
	service := newTestService(t, Options{
		Source:   &fakeSource{session: session},
		Notifier: notifier,
		Store:    &store,
	})

	// a monitor bounced while seats are open picks up the available
	// state and stays quiet
	state := service.seedState(ctx)
	require.True(t, state.Available)

	service.Tick(ctx, state)
	require.Equal(t, 0, notifier.calls)
}

func TestRunStopsOnCancel(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:monitor")
	defer cleanup()

	session := &fakeSession{results: []tickResult{{count: 0}}}
	service := newTestService(t, Options{
		Source:   &fakeSource{session: session},
		Interval: time.Millisecond * 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()

	err := service.Run(ctx)
	require.NoError(t, err)
}
