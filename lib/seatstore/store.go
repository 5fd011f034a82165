package seatstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// Store keeps the per-tick seat observations and the notifications that
// were actually sent. The latest observation seeds the poll loop on
// restart so a monitor bounced while a section is already open does not
// notify a second time.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type Observation struct {
	Course    string
	Section   string
	Time      time.Time
	Seats     int
	Available bool
}

func (s Store) RecordObservation(ctx context.Context, o Observation) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO observations (course, section, time, seats, available)
		 VALUES (?, ?, ?, ?, ?)`,
		o.Course, o.Section, o.Time.Unix(), o.Seats, o.Available,
	)
	return err
}

// Latest returns the most recent observation for the target, reporting
// found=false when the target has never been observed.
func (s Store) Latest(ctx context.Context, course, section string) (Observation, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT course, section, time, seats, available FROM observations
		 WHERE course = ? AND section = ?
		 ORDER BY time DESC, id DESC LIMIT 1`,
		course, section,
	)

	var o Observation
	var unix int64
	err := row.Scan(&o.Course, &o.Section, &unix, &o.Seats, &o.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return Observation{}, false, nil
	}
	if err != nil {
		return Observation{}, false, err
	}
	o.Time = time.Unix(unix, 0)
	return o, true, nil
}

// History returns up to limit observations for the target, newest
// first.
func (s Store) History(ctx context.Context, course, section string, limit int) ([]Observation, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT course, section, time, seats, available FROM observations
		 WHERE course = ? AND section = ?
		 ORDER BY time DESC, id DESC LIMIT ?`,
		course, section, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var unix int64
		err := rows.Scan(&o.Course, &o.Section, &unix, &o.Seats, &o.Available)
		if err != nil {
			return nil, err
		}
		o.Time = time.Unix(unix, 0)
		out = append(out, o)
	}
	return out, rows.Err()
}

type SentNotification struct {
	Course  string
	Section string
	Time    time.Time
	Message string
}

func (s Store) RecordNotification(ctx context.Context, n SentNotification) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO notifications (course, section, time, message)
		 VALUES (?, ?, ?, ?)`,
		n.Course, n.Section, n.Time.Unix(), n.Message,
	)
	return err
}

func (s Store) Notifications(ctx context.Context, course, section string) ([]SentNotification, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT course, section, time, message FROM notifications
		 WHERE course = ? AND section = ?
		 ORDER BY time DESC, id DESC`,
		course, section,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SentNotification
	for rows.Next() {
		var n SentNotification
		var unix int64
		err := rows.Scan(&n.Course, &n.Section, &unix, &n.Message)
		if err != nil {
			return nil, err
		}
		n.Time = time.Unix(unix, 0)
		out = append(out, n)
	}
	return out, rows.Err()
}
