package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"seatwatch/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestTwilioNotify(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:notify")
	defer cleanup()

	var gotForm map[string]string
	var gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		r.ParseForm()
		gotForm = map[string]string{
			"To":   r.PostFormValue("To"),
			"From": r.PostFormValue("From"),
			"Body": r.PostFormValue("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer server.Close()

	notifier := NewTwilioNotifier(TwilioConfig{
		AccountSid: "AC123",
		AuthToken:  "secret",
		FromNumber: "+1555000",
		ToNumber:   "+1555111",
		BaseUrl:    server.URL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := notifier.Notify(ctx, Notification{
		Subject: "Seats available: CSX05 Section B",
		Body:    "3 open seats",
	})
	require.NoError(t, err)
	require.Equal(t, "AC123", gotUser)
	require.Equal(t, "secret", gotPass)
	require.Equal(t, "+1555111", gotForm["To"])
	require.Equal(t, "+1555000", gotForm["From"])
	require.Equal(t, "Seats available: CSX05 Section B\n3 open seats", gotForm["Body"])
}

func TestTwilioNotifyDeliveryError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:notify")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid number"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	notifier := NewTwilioNotifier(TwilioConfig{
		AccountSid: "AC123",
		AuthToken:  "secret",
		BaseUrl:    server.URL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := notifier.Notify(ctx, Notification{Subject: "x"})
	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	require.Equal(t, "twilio", deliveryErr.Channel)
}

type flakyNotifier struct {
	fail  bool
	calls int
}

func (n *flakyNotifier) Notify(ctx context.Context, notification Notification) error {
	n.calls++
	if n.fail {
		return &DeliveryError{Channel: "flaky", Err: context.DeadlineExceeded}
	}
	return nil
}

func TestMultiNotifierAllChannelsAttempted(t *testing.T) {
	broken := &flakyNotifier{fail: true}
	working := &flakyNotifier{}
	multi := MultiNotifier{broken, working}

	err := multi.Notify(context.Background(), Notification{Subject: "x"})
	require.Error(t, err)
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, working.calls)
}
