package flexportal

import (
	"bytes"
	"context"
	"net/http/cookiejar"
	"net/url"
	"time"

	"seatwatch/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/flexportal")

var instrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables http exchange dumps for clients
// created after this call.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	loginPath        string
	registrationPath string
}

type ClientOptions struct {
	BaseUrl string
	// defaults to /Account/Login
	LoginPath string
	// defaults to /Student/CourseRegistrationBS
	RegistrationPath string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/Account/Login"
	}
	if opts.RegistrationPath == "" {
		opts.RegistrationPath = "/Student/CourseRegistrationBS"
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, instrumentOutput)

	c := &Client{
		BaseUrl:          baseUrl,
		Http:             client,
		loginPath:        opts.LoginPath,
		registrationPath: opts.RegistrationPath,
	}
	return c, nil
}

func (c *Client) pageUrl(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.BaseUrl.String()
	}
	return c.BaseUrl.ResolveReference(ref).String()
}

// the portal renders reCAPTCHA on the login form when it suspects
// automation; there is no point trying to solve it, callers fall back
// to cookie replay instead
func hasCaptcha(doc *goquery.Document) bool {
	return len(doc.Find("div.g-recaptcha, iframe[src*='recaptcha'], #captcha").Nodes) > 0
}

func hasLoginForm(doc *goquery.Document) bool {
	return len(doc.Find("form input[type='password'], form input[name='Password']").Nodes) > 0
}

func (c *Client) LoginUsernamePassword(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:LoginUsernamePassword")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.loginPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return &PageLoadError{URL: c.pageUrl(c.loginPath), Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return err
	}

	if hasCaptcha(doc) {
		span.SetStatus(codes.Error, ErrCaptchaBlocked.Error())
		return ErrCaptchaBlocked
	}

	form := map[string]string{
		"Username": username,
		"Password": password,
	}
	// asp.net anti-forgery token, present on every rendering of the form
	token := doc.Find("input[name='__RequestVerificationToken']").AttrOr("value", "")
	if token != "" {
		form["__RequestVerificationToken"] = token
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(c.loginPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return &PageLoadError{URL: c.pageUrl(c.loginPath), Err: err}
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse post-login html")
		return err
	}

	// a successful login redirects off the account pages; landing back
	// on the login form means the credentials were rejected (or a
	// challenge appeared mid-flight)
	if hasLoginForm(doc) {
		if hasCaptcha(doc) {
			span.SetStatus(codes.Error, ErrCaptchaBlocked.Error())
			return ErrCaptchaBlocked
		}
		span.SetStatus(codes.Error, ErrBadCredentials.Error())
		return ErrBadCredentials
	}

	return nil
}
