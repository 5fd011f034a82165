package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REGISTRATION_USERNAME", "F219999")
	t.Setenv("REGISTRATION_PASSWORD", "hunter2")
	t.Setenv("COURSE_CODE", "CSX05")
	t.Setenv("COURSE_SECTION", "B")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("EMAIL_FROM", "from@example.com")
	t.Setenv("EMAIL_TO", "to@example.com")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 60, cfg.CheckInterval)
	require.Equal(t, "https://flexstudent.nu.edu.pk/Account/Login", cfg.Portal.LoginUrl)
	require.Equal(t, "cookies.json", cfg.CookiesFile)
	require.Equal(t, "seatwatch.db", cfg.Database)
	require.Equal(t, 587, cfg.Notifications.Email.SmtpPort)

	opts, err := cfg.clientOptions()
	require.NoError(t, err)
	require.Equal(t, "https://flexstudent.nu.edu.pk", opts.BaseUrl)
	require.Equal(t, "/Account/Login", opts.LoginPath)
	require.Equal(t, "/Student/CourseRegistrationBS", opts.RegistrationPath)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHECK_INTERVAL", "5")
	t.Setenv("USE_COOKIES", "true")
	t.Setenv("COOKIES_FILE", "export.json")
	t.Setenv("TWILIO_ENABLED", "true")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_FROM_NUMBER", "+15550001111")
	t.Setenv("TWILIO_TO_NUMBER", "+15550002222")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 5, cfg.CheckInterval)
	require.True(t, cfg.UseCookies)
	require.Equal(t, "export.json", cfg.CookiesFile)
	require.True(t, cfg.Notifications.Twilio.Enabled)
}

func TestValidateRejectsNonPositiveInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHECK_INTERVAL", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "CHECK_INTERVAL")

	t.Setenv("CHECK_INTERVAL", "-30")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "CHECK_INTERVAL")
}

func TestValidateRejectsBadInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHECK_INTERVAL", "soon")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidateRequiresCredentialsOrCookies(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REGISTRATION_PASSWORD", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	// cookie replay does not need credentials at all
	t.Setenv("USE_COOKIES", "true")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresAChannel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "notification channel")

	// one-shot portal checks are still fine without a channel
	require.NoError(t, cfg.ValidatePortal())
}
