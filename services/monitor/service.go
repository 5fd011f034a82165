package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"seatwatch/lib/notify"
	"seatwatch/lib/scrapers/flexportal"
	"seatwatch/lib/seatstore"
	"seatwatch/lib/timezone"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/monitor")

// Session is the slice of the portal client the poll loop needs.
type Session interface {
	FetchSections(ctx context.Context, courseCode string) ([]flexportal.Section, error)
	Register(ctx context.Context, target flexportal.RegisterTarget) (flexportal.RegistrationResult, error)
}

type SessionSource interface {
	Acquire(ctx context.Context) (Session, error)
	Invalidate()
}

// PortalSource adapts a flexportal source to the loop's Session
// interface.
type PortalSource struct {
	Source flexportal.SessionSource
}

func (s PortalSource) Acquire(ctx context.Context) (Session, error) {
	return s.Source.Acquire(ctx)
}

func (s PortalSource) Invalidate() {
	s.Source.Invalidate()
}

type Target struct {
	CourseCode string
	CourseName string
	// empty means any section of the course
	Section string
}

func (t Target) describe() string {
	name := t.CourseName
	if name == "" {
		name = t.CourseCode
	}
	out := fmt.Sprintf("%s (%s)", name, t.CourseCode)
	if t.Section != "" {
		out += " Section " + t.Section
	}
	return out
}

type Options struct {
	Target       Target
	Interval     time.Duration
	AutoRegister bool
	Source       SessionSource
	Notifier     notify.Notifier
	// nil disables observation history
	Store *seatstore.Store
}

// Service runs the availability poll loop: a single sequential loop on
// a fixed wall-clock interval, no parallelism.
type Service struct {
	target       Target
	interval     time.Duration
	autoRegister bool
	source       SessionSource
	notifier     notify.Notifier
	store        *seatstore.Store

	session Session
	runId   string
}

func NewService(opts Options) (*Service, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", opts.Interval)
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("a session source is required")
	}
	runId, err := random.String(8)
	if err != nil {
		return nil, err
	}
	return &Service{
		target:       opts.Target,
		interval:     opts.Interval,
		autoRegister: opts.AutoRegister,
		source:       opts.Source,
		notifier:     opts.Notifier,
		store:        opts.Store,
		runId:        runId,
	}, nil
}

// Run polls until ctx is cancelled. It returns an error only for
// unrecoverable startup failure (rejected credentials, CAPTCHA with no
// cookie fallback); once the loop is going, no single tick's failure
// terminates it.
func (s *Service) Run(ctx context.Context) error {
	err := s.ensureSession(ctx)
	if err != nil {
		return fmt.Errorf("acquire initial session: %w", err)
	}

	state := s.seedState(ctx)
	slog.InfoContext(
		ctx, "monitor started",
		"run_id", s.runId,
		"target", s.target.describe(),
		"interval", s.interval,
		"auto_register", s.autoRegister,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "monitor stopped", "run_id", s.runId)
			return nil
		case <-ticker.C:
			state = s.Tick(ctx, state)
		}
	}
}

func (s *Service) ensureSession(ctx context.Context) error {
	if s.session != nil {
		return nil
	}
	session, err := s.source.Acquire(ctx)
	if err != nil {
		return err
	}
	s.session = session
	return nil
}

// restart while the section is already open must not re-notify, so the
// loop picks up where the last run's observations left off
func (s *Service) seedState(ctx context.Context) SeatState {
	if s.store == nil {
		return SeatState{}
	}
	latest, found, err := s.store.Latest(ctx, s.target.CourseCode, s.target.Section)
	if err != nil {
		slog.WarnContext(ctx, "failed to load last observation", "err", err)
		return SeatState{}
	}
	if !found {
		return SeatState{}
	}
	slog.InfoContext(
		ctx, "resuming from last observation",
		"seats", latest.Seats,
		"available", latest.Available,
		"observed_at", latest.Time,
	)
	return SeatState{Count: latest.Seats, Available: latest.Available}
}

// Tick runs one poll cycle. Failures never escape: a failed cycle is
// logged and deferred to the next interval.
func (s *Service) Tick(ctx context.Context, prev SeatState) SeatState {
	ctx, span := tracer.Start(ctx, "Tick")
	defer span.End()

	count, err := s.pollOnce(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "poll failed")
		slog.ErrorContext(
			ctx, "poll failed",
			"course", s.target.CourseCode,
			"section", s.target.Section,
			"err", err,
		)
		return prev
	}

	next, edge := Transition(prev, count)
	s.recordObservation(ctx, next)

	status := "FULL"
	if next.Available {
		status = "AVAILABLE"
	}
	slog.InfoContext(
		ctx, "poll finished",
		"target", s.target.describe(),
		"status", status,
		"seats", next.Count,
	)

	if edge {
		s.onAvailable(ctx, next)
	}
	return next
}

// pollOnce fetches the seat count once, transparently reacquiring the
// session and retrying a single time when the failure looks like a dead
// session or a transient page-load problem.
func (s *Service) pollOnce(ctx context.Context) (int, error) {
	err := s.ensureSession(ctx)
	if err != nil {
		return 0, err
	}

	sections, err := s.session.FetchSections(ctx, s.target.CourseCode)
	if err != nil && recoverable(err) {
		slog.WarnContext(ctx, "reacquiring session", "cause", err)
		if errors.Is(err, flexportal.ErrSessionExpired) {
			s.source.Invalidate()
		}
		s.session = nil
		aerr := s.ensureSession(ctx)
		if aerr != nil {
			return 0, errors.Join(err, aerr)
		}
		sections, err = s.session.FetchSections(ctx, s.target.CourseCode)
	}
	if err != nil {
		return 0, err
	}

	return flexportal.OpenSeats(sections, s.target.Section), nil
}

func recoverable(err error) bool {
	var pageLoad *flexportal.PageLoadError
	return errors.Is(err, flexportal.ErrSessionExpired) || errors.As(err, &pageLoad)
}

func (s *Service) onAvailable(ctx context.Context, state SeatState) {
	ctx, span := tracer.Start(ctx, "onAvailable")
	defer span.End()

	message := fmt.Sprintf("%s is now open for registration!", s.target.describe())
	slog.InfoContext(ctx, "seats available", "target", s.target.describe(), "seats", state.Count)

	if s.notifier != nil {
		err := s.notifier.Notify(ctx, notify.Notification{
			Subject: "Seats available: " + s.target.describe(),
			Body:    fmt.Sprintf("%s %d open seat(s) detected.", message, state.Count),
		})
		if err != nil {
			// delivery failure must never stall polling
			span.RecordError(err)
			slog.ErrorContext(ctx, "notification delivery failed", "err", err)
		} else {
			s.recordNotification(ctx, message)
		}
	}

	if s.autoRegister {
		s.attemptRegistration(ctx)
	}
}

func (s *Service) attemptRegistration(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "attemptRegistration")
	defer span.End()

	result, err := s.session.Register(ctx, flexportal.RegisterTarget{
		CourseCode: s.target.CourseCode,
		Section:    s.target.Section,
	})
	if err != nil {
		// best effort, one attempt per edge: the seat may well be gone
		// already
		span.RecordError(err)
		slog.ErrorContext(ctx, "auto-registration failed", "err", err)
		return
	}
	slog.InfoContext(
		ctx, "auto-registration submitted",
		"course", result.Course,
		"section", result.Section,
		"confirmed", result.Confirmed,
	)
}

func (s *Service) recordObservation(ctx context.Context, state SeatState) {
	if s.store == nil {
		return
	}
	err := s.store.RecordObservation(ctx, seatstore.Observation{
		Course:    s.target.CourseCode,
		Section:   s.target.Section,
		Time:      timezone.Now(),
		Seats:     state.Count,
		Available: state.Available,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record observation", "err", err)
	}
}

func (s *Service) recordNotification(ctx context.Context, message string) {
	if s.store == nil {
		return
	}
	err := s.store.RecordNotification(ctx, seatstore.SentNotification{
		Course:  s.target.CourseCode,
		Section: s.target.Section,
		Time:    timezone.Now(),
		Message: message,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record notification", "err", err)
	}
}
