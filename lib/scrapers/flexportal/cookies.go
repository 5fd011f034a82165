package flexportal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"seatwatch/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Cookie mirrors one record of a browser cookie export
// (name/value/domain/path/expiry). The export file is produced outside
// this program by logging in manually, and is read-only to us.
type Cookie struct {
	Name   string  `json:"name"`
	Value  string  `json:"value"`
	Domain string  `json:"domain"`
	Path   string  `json:"path"`
	Expiry float64 `json:"expiry"`
}

func (c Cookie) expired(now time.Time) bool {
	return c.Expiry != 0 && int64(c.Expiry) < now.Unix()
}

func ReadCookieFile(path string) ([]Cookie, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cookies []Cookie
	err = json.Unmarshal(contents, &cookies)
	if err != nil {
		return nil, err
	}
	return cookies, nil
}

// LoginWithCookies injects a previously exported cookie set into the
// session, skipping the login form entirely. This is the chosen
// CAPTCHA-avoidance strategy. The session is verified against the
// registration page before being handed out.
func (c *Client) LoginWithCookies(ctx context.Context, cookies []Cookie) error {
	ctx, span := tracer.Start(ctx, "client:LoginWithCookies")
	defer span.End()

	now := timezone.Now()
	var live []*http.Cookie
	for _, cookie := range cookies {
		if cookie.expired(now) {
			continue
		}
		live = append(live, &http.Cookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: cookie.Domain,
			Path:   cookie.Path,
		})
	}
	span.SetAttributes(
		attribute.Int("cookies.total", len(cookies)),
		attribute.Int("cookies.live", len(live)),
	)
	if len(live) == 0 {
		span.SetStatus(codes.Error, ErrCookiesExpired.Error())
		return ErrCookiesExpired
	}

	c.Http.GetClient().Jar.SetCookies(c.BaseUrl, live)

	// verify the replayed session actually works; an invalid one gets
	// bounced back to the login form
	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.registrationPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch registration page")
		return &PageLoadError{URL: c.pageUrl(c.registrationPath), Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse registration page html")
		return err
	}
	if hasLoginForm(doc) {
		span.SetStatus(codes.Error, ErrSessionExpired.Error())
		return ErrSessionExpired
	}

	return nil
}
