package flexportal

import (
	"fmt"
)

var (
	ErrBadCredentials = fmt.Errorf("The portal rejected your username or password.")
	ErrCaptchaBlocked = fmt.Errorf("The login form is guarded by a CAPTCHA challenge.")
	ErrSessionExpired = fmt.Errorf("The portal no longer recognizes this session.")
	ErrCookiesExpired = fmt.Errorf("Every cookie in the export file has expired.")
)

// PageLoadError reports that a protected page could not be fetched.
type PageLoadError struct {
	URL    string
	Status int
	Err    error
}

func (e *PageLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s", e.URL, e.Err.Error())
	}
	return fmt.Sprintf("load %s: status %d", e.URL, e.Status)
}

func (e *PageLoadError) Unwrap() error {
	return e.Err
}

// ParseError reports that an element the scraper depends on is missing,
// which almost always means the portal markup changed underneath us.
type ParseError struct {
	URL      string
	Selector string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: expected %s", e.URL, e.Selector)
}

// RegistrationError reports a failed registration attempt, including the
// race where the seat was claimed between detection and submission.
type RegistrationError struct {
	Course  string
	Section string
	Reason  string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s %s: %s", e.Course, e.Section, e.Reason)
}
