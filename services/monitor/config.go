package monitor

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"seatwatch/lib/configutil"
	"seatwatch/lib/scrapers/flexportal"
)

type PortalConfig struct {
	LoginUrl        string `json:"login_url"`
	RegistrationUrl string `json:"registration_url"`
}

type CourseConfig struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Section      string `json:"section"`
	AutoRegister bool   `json:"auto_register"`
}

type EmailChannelConfig struct {
	Enabled    bool   `json:"enabled"`
	SmtpServer string `json:"smtp_server"`
	SmtpPort   int    `json:"smtp_port"`
	From       string `json:"from"`
	To         string `json:"to"`
	Password   string `json:"password"`
}

type TwilioChannelConfig struct {
	Enabled    bool   `json:"enabled"`
	AccountSid string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
}

type NotificationsConfig struct {
	Email  EmailChannelConfig  `json:"email"`
	Twilio TwilioChannelConfig `json:"twilio"`
}

type Config struct {
	Portal   PortalConfig `json:"portal"`
	Username string       `json:"username"`
	Password string       `json:"password"`
	Course   CourseConfig `json:"course"`
	// seconds between polls
	CheckInterval int    `json:"check_interval"`
	UseCookies    bool   `json:"use_cookies"`
	CookiesFile   string `json:"cookies_file"`
	Database      string `json:"database"`

	Notifications NotificationsConfig `json:"notifications"`
}

// LoadConfig reads the optional config.json5 (merged with local
// overrides), then applies environment variables on top. The env
// surface matches the original deployment docs, so a cloud deployment
// can run with no config file at all.
func LoadConfig() (Config, error) {
	cfg, err := configutil.ReadOptional[Config]("config.json5")
	if err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	err = cfg.applyEnv()
	return cfg, err
}

func (c *Config) applyDefaults() {
	if c.Portal.LoginUrl == "" {
		c.Portal.LoginUrl = "https://flexstudent.nu.edu.pk/Account/Login"
	}
	if c.Portal.RegistrationUrl == "" {
		c.Portal.RegistrationUrl = "https://flexstudent.nu.edu.pk/Student/CourseRegistrationBS"
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = 60
	}
	if c.CookiesFile == "" {
		c.CookiesFile = "cookies.json"
	}
	if c.Database == "" {
		c.Database = "seatwatch.db"
	}
	if c.Notifications.Email.SmtpServer == "" {
		c.Notifications.Email.SmtpServer = "smtp.gmail.com"
	}
	if c.Notifications.Email.SmtpPort == 0 {
		c.Notifications.Email.SmtpPort = 587
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.ToLower(v) == "true"
	}
}

func envInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func (c *Config) applyEnv() error {
	envString(&c.Username, "REGISTRATION_USERNAME")
	envString(&c.Password, "REGISTRATION_PASSWORD")
	envString(&c.Portal.LoginUrl, "LOGIN_URL")
	envString(&c.Portal.RegistrationUrl, "REGISTRATION_URL")
	envString(&c.Course.Code, "COURSE_CODE")
	envString(&c.Course.Name, "COURSE_NAME")
	envString(&c.Course.Section, "COURSE_SECTION")
	envBool(&c.Course.AutoRegister, "AUTO_REGISTER")
	envBool(&c.UseCookies, "USE_COOKIES")
	envString(&c.CookiesFile, "COOKIES_FILE")
	envString(&c.Database, "DATABASE_PATH")

	err := envInt(&c.CheckInterval, "CHECK_INTERVAL")
	if err != nil {
		return err
	}

	// a leftover from the browser-driven deployments, accepted so old
	// env files keep working
	if v, ok := os.LookupEnv("HEADLESS"); ok {
		slog.Debug("HEADLESS is set but has no effect", "value", v)
	}

	envBool(&c.Notifications.Email.Enabled, "EMAIL_ENABLED")
	envString(&c.Notifications.Email.SmtpServer, "EMAIL_SMTP_SERVER")
	err = envInt(&c.Notifications.Email.SmtpPort, "EMAIL_SMTP_PORT")
	if err != nil {
		return err
	}
	envString(&c.Notifications.Email.From, "EMAIL_FROM")
	envString(&c.Notifications.Email.To, "EMAIL_TO")
	envString(&c.Notifications.Email.Password, "EMAIL_PASSWORD")

	envBool(&c.Notifications.Twilio.Enabled, "TWILIO_ENABLED")
	envString(&c.Notifications.Twilio.AccountSid, "TWILIO_ACCOUNT_SID")
	envString(&c.Notifications.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	envString(&c.Notifications.Twilio.FromNumber, "TWILIO_FROM_NUMBER")
	envString(&c.Notifications.Twilio.ToNumber, "TWILIO_TO_NUMBER")

	return nil
}

// ValidatePortal checks everything needed to scrape, without requiring
// a notification channel. Used by the one-shot CLI commands.
func (c Config) ValidatePortal() error {
	if c.Course.Code == "" {
		return fmt.Errorf("COURSE_CODE is required")
	}
	if c.UseCookies {
		if c.CookiesFile == "" {
			return fmt.Errorf("USE_COOKIES is set but COOKIES_FILE is empty")
		}
	} else if c.Username == "" || c.Password == "" {
		return fmt.Errorf("REGISTRATION_USERNAME and REGISTRATION_PASSWORD are required (or set USE_COOKIES=true)")
	}
	_, err := c.clientOptions()
	return err
}

// Validate checks the full monitoring configuration. Startup fails on
// any violation here, there is no point polling with a broken setup.
func (c Config) Validate() error {
	err := c.ValidatePortal()
	if err != nil {
		return err
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL must be a positive number of seconds, got %d", c.CheckInterval)
	}

	email := c.Notifications.Email
	twilio := c.Notifications.Twilio
	if !email.Enabled && !twilio.Enabled {
		return fmt.Errorf("no notification channel enabled, set EMAIL_ENABLED=true or TWILIO_ENABLED=true")
	}
	if email.Enabled && (email.From == "" || email.To == "" || email.SmtpServer == "") {
		return fmt.Errorf("email notifications require EMAIL_FROM, EMAIL_TO and EMAIL_SMTP_SERVER")
	}
	if twilio.Enabled && (twilio.AccountSid == "" || twilio.AuthToken == "" || twilio.FromNumber == "" || twilio.ToNumber == "") {
		return fmt.Errorf("twilio notifications require TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER and TWILIO_TO_NUMBER")
	}
	return nil
}

func (c Config) clientOptions() (flexportal.ClientOptions, error) {
	login, err := url.Parse(c.Portal.LoginUrl)
	if err != nil {
		return flexportal.ClientOptions{}, fmt.Errorf("LOGIN_URL: %w", err)
	}
	registration, err := url.Parse(c.Portal.RegistrationUrl)
	if err != nil {
		return flexportal.ClientOptions{}, fmt.Errorf("REGISTRATION_URL: %w", err)
	}
	if login.Scheme == "" || login.Host == "" {
		return flexportal.ClientOptions{}, fmt.Errorf("LOGIN_URL must be absolute, got %q", c.Portal.LoginUrl)
	}

	base := url.URL{Scheme: login.Scheme, Host: login.Host}
	return flexportal.ClientOptions{
		BaseUrl:          base.String(),
		LoginPath:        login.Path,
		RegistrationPath: registration.Path,
	}, nil
}
