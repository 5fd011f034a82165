package flexportal

import (
	"bytes"
	"context"
	"strings"

	"seatwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type RegisterTarget struct {
	CourseCode string
	Section    string
}

type RegistrationResult struct {
	Course    string
	Section   string
	Confirmed bool
	// whatever the portal said about the attempt
	Message string
}

// Register submits the registration form for the target section.
// Best-effort, single attempt: between detecting an open seat and
// submitting, another student may have claimed it, that race is
// inherent to polling and surfaces as a RegistrationError.
func (c *Client) Register(ctx context.Context, target RegisterTarget) (RegistrationResult, error) {
	ctx, span := tracer.Start(ctx, "client:Register")
	defer span.End()
	span.SetAttributes(
		attribute.String("course", target.CourseCode),
		attribute.String("section", target.Section),
	)

	result := RegistrationResult{Course: target.CourseCode, Section: target.Section}
	pageUrl := c.pageUrl(c.registrationPath)

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.registrationPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch registration page")
		return result, &PageLoadError{URL: pageUrl, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse registration page html")
		return result, err
	}
	if hasLoginForm(doc) {
		span.SetStatus(codes.Error, ErrSessionExpired.Error())
		return result, ErrSessionExpired
	}

	row := findCourseRow(doc, target.CourseCode)
	if row == nil {
		span.SetStatus(codes.Error, "course row not found")
		return result, &ParseError{
			URL:      pageUrl,
			Selector: "tr containing " + target.CourseCode,
		}
	}

	action := findSectionAction(row, target.Section)
	if action == "" {
		// the control disappears the moment the section fills back up
		span.SetStatus(codes.Error, "section control not found")
		return result, &RegistrationError{
			Course:  target.CourseCode,
			Section: target.Section,
			Reason:  "no registration control for the section, the seat may already be gone",
		}
	}

	form := map[string]string{
		"courseCode": target.CourseCode,
		"section":    target.Section,
	}
	token := doc.Find("input[name='__RequestVerificationToken']").AttrOr("value", "")
	if token != "" {
		form["__RequestVerificationToken"] = token
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(c.pageUrl(action))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit registration form")
		return result, &PageLoadError{URL: c.pageUrl(action), Err: err}
	}

	body := htmlutil.CleanText(string(res.Body()))
	result.Message = body
	switch {
	case isFullText(body):
		span.SetStatus(codes.Error, "seat claimed before submission")
		return result, &RegistrationError{
			Course:  target.CourseCode,
			Section: target.Section,
			Reason:  "the seat was claimed before the submission went through",
		}
	case strings.Contains(strings.ToLower(body), "success"):
		result.Confirmed = true
		return result, nil
	default:
		span.SetStatus(codes.Error, "no confirmation marker in response")
		return result, &RegistrationError{
			Course:  target.CourseCode,
			Section: target.Section,
			Reason:  "the portal did not confirm the registration",
		}
	}
}

// the section control is either a link with an href or a button whose
// form posts somewhere; both cases reduce to "a url to hit"
func findSectionAction(row *goquery.Selection, section string) string {
	action := ""
	row.Find("button, a").EachWithBreak(func(_ int, elem *goquery.Selection) bool {
		text := htmlutil.CleanText(elem.Text())
		if !strings.Contains(text, "Section") {
			return true
		}
		if section != "" && !matchesSection(sectionName(text), section) {
			return true
		}
		if strings.Contains(text, "Full") {
			return true
		}
		if href, ok := elem.Attr("href"); ok && href != "" && href != "#" {
			action = href
			return false
		}
		if formaction, ok := elem.Attr("formaction"); ok && formaction != "" {
			action = formaction
			return false
		}
		if parentForm := elem.Closest("form"); len(parentForm.Nodes) > 0 {
			action = parentForm.AttrOr("action", "")
			return action == ""
		}
		return true
	})
	return action
}
