package notify

import (
	"context"
	"fmt"
	"time"

	"seatwatch/lib/restyutil"

	"github.com/go-resty/resty/v2"
)

type TwilioConfig struct {
	AccountSid string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
	// overridable for tests, defaults to the public api
	BaseUrl string `json:"base_url"`
}

// TwilioNotifier delivers over the carrier api's message endpoint.
type TwilioNotifier struct {
	config TwilioConfig
	client *resty.Client
}

func NewTwilioNotifier(config TwilioConfig) TwilioNotifier {
	if config.BaseUrl == "" {
		config.BaseUrl = "https://api.twilio.com"
	}

	client := resty.New()
	client.SetBaseURL(config.BaseUrl)
	client.SetTimeout(time.Second * 30)
	client.SetBasicAuth(config.AccountSid, config.AuthToken)
	restyutil.InstrumentClient(client, nil, nil)

	return TwilioNotifier{config: config, client: client}
}

func (n TwilioNotifier) Notify(ctx context.Context, notification Notification) error {
	body := notification.Subject
	if notification.Body != "" {
		body += "\n" + notification.Body
	}

	res, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   n.config.ToNumber,
			"From": n.config.FromNumber,
			"Body": body,
		}).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", n.config.AccountSid))
	if err != nil {
		return &DeliveryError{Channel: "twilio", Err: err}
	}
	if res.IsError() {
		return &DeliveryError{
			Channel: "twilio",
			Err:     fmt.Errorf("message endpoint returned status %d", res.StatusCode()),
		}
	}
	return nil
}
