package monitor

import (
	"fmt"
	"time"

	"seatwatch/lib/notify"
	"seatwatch/lib/scrapers/flexportal"
	"seatwatch/lib/seatstore"
	"seatwatch/lib/seatstore/db"
	"seatwatch/lib/sqliteutil"
)

const sessionTtl = time.Minute * 15

// NewPortalSource builds the session source the configuration asks for,
// cookie replay or credential login, behind a shared cache so every
// consumer in the process reuses one authenticated session.
func (c Config) NewPortalSource() (flexportal.SessionSource, error) {
	opts, err := c.clientOptions()
	if err != nil {
		return nil, err
	}

	var source flexportal.SessionSource
	if c.UseCookies {
		source = &flexportal.CookieSource{
			Options: opts,
			Path:    c.CookiesFile,
		}
	} else {
		source = &flexportal.CredentialSource{
			Options:  opts,
			Username: c.Username,
			Password: c.Password,
		}
	}
	return flexportal.NewCachedSource(source, sessionTtl), nil
}

// NewNotifier assembles the enabled delivery channels into one fan-out
// notifier. Returns nil when no channel is enabled.
func (c Config) NewNotifier() notify.Notifier {
	var channels notify.MultiNotifier

	email := c.Notifications.Email
	if email.Enabled {
		channels = append(channels, notify.NewEmailNotifier(notify.SmtpConfig{
			Server:   email.SmtpServer,
			Port:     email.SmtpPort,
			From:     email.From,
			To:       []string{email.To},
			Password: email.Password,
		}))
	}

	twilio := c.Notifications.Twilio
	if twilio.Enabled {
		channels = append(channels, notify.NewTwilioNotifier(notify.TwilioConfig{
			AccountSid: twilio.AccountSid,
			AuthToken:  twilio.AuthToken,
			FromNumber: twilio.FromNumber,
			ToNumber:   twilio.ToNumber,
		}))
	}

	if len(channels) == 0 {
		return nil
	}
	return channels
}

// OpenStore opens the observation database at the configured path.
func (c Config) OpenStore() (*seatstore.Store, error) {
	sqlite, err := sqliteutil.OpenDB(db.Schema, c.Database)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", c.Database, err)
	}
	store := seatstore.NewStore(sqlite)
	return &store, nil
}

// NewServiceFromConfig wires a validated configuration into a ready
// Service.
func NewServiceFromConfig(c Config) (*Service, error) {
	err := c.Validate()
	if err != nil {
		return nil, err
	}

	source, err := c.NewPortalSource()
	if err != nil {
		return nil, err
	}
	store, err := c.OpenStore()
	if err != nil {
		return nil, err
	}

	return NewService(Options{
		Target: Target{
			CourseCode: c.Course.Code,
			CourseName: c.Course.Name,
			Section:    c.Course.Section,
		},
		Interval:     time.Duration(c.CheckInterval) * time.Second,
		AutoRegister: c.Course.AutoRegister,
		Source:       PortalSource{Source: source},
		Notifier:     c.NewNotifier(),
		Store:        store,
	})
}
