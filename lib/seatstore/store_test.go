package seatstore

import (
	"context"
	"testing"
	"time"

	"seatwatch/lib/seatstore/db"
	"seatwatch/lib/sqliteutil"
	"seatwatch/lib/telemetry"
	"seatwatch/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:seatstore")
	defer cleanup()

	sqlite, err := sqliteutil.OpenDB(db.Schema, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(sqlite)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, found, err := store.Latest(ctx, "CSX05", "B")
		if err != nil {
			t.Fatal(err)
		}
		require.False(t, found)
	}
	{
		now := timezone.Now()
		observations := []Observation{
			{Course: "CSX05", Section: "B", Time: now.Add(-time.Minute * 2), Seats: 0, Available: false},
			{Course: "CSX05", Section: "B", Time: now.Add(-time.Minute), Seats: 3, Available: true},
			{Course: "AI4013", Section: "A", Time: now, Seats: 0, Available: false},
		}
		for _, o := range observations {
			err := store.RecordObservation(ctx, o)
			if err != nil {
				t.Fatal(err)
			}
		}

		latest, found, err := store.Latest(ctx, "CSX05", "B")
		if err != nil {
			t.Fatal(err)
		}
		require.True(t, found)
		require.Equal(t, 3, latest.Seats)
		require.True(t, latest.Available)

		history, err := store.History(ctx, "CSX05", "B", 10)
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, history, 2)
		require.Equal(t, 3, history[0].Seats)
		require.Equal(t, 0, history[1].Seats)
	}
	{
		err := store.RecordNotification(ctx, SentNotification{
			Course:  "CSX05",
			Section: "B",
			Time:    timezone.Now(),
			Message: "Seats available",
		})
		if err != nil {
			t.Fatal(err)
		}

		sent, err := store.Notifications(ctx, "CSX05", "B")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, sent, 1)
		require.Equal(t, "Seats available", sent[0].Message)
	}
}
