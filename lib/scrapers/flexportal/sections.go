package flexportal

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"seatwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Section is one offering row scraped off the registration page.
type Section struct {
	Course string
	// e.g. "Section B"; empty when the course row carries no
	// per-section controls
	Name  string
	Seats int
	Full  bool
}

// markers the portal renders on sold-out offerings
var fullMarkers = []string{"Section Full", "No Seat Available"}

var seatCountRegex = regexp.MustCompile(`(?i)(\d+)\s*seats?`)

var sectionNameRegex = regexp.MustCompile(`(?i)section\s+([A-Za-z0-9]+)`)

// pulls the canonical "Section X" name out of a control label like
// "Section B 3 seats" or "Section A Full"
func sectionName(text string) string {
	groups := sectionNameRegex.FindStringSubmatch(text)
	if len(groups) != 2 || strings.EqualFold(groups[1], "Full") {
		return ""
	}
	return "Section " + groups[1]
}

func isFullText(text string) bool {
	for _, m := range fullMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// some rows expose an exact remaining-seat count, most only expose a
// full/available marker. when only the marker exists an open section
// counts as a single seat.
func seatsFromText(text string, full bool) int {
	if groups := seatCountRegex.FindStringSubmatch(text); len(groups) == 2 {
		n, err := strconv.Atoi(groups[1])
		if err == nil {
			return n
		}
	}
	if full {
		return 0
	}
	return 1
}

// FetchSections reloads the registration page and extracts the seat
// situation of every section of the given course.
func (c *Client) FetchSections(ctx context.Context, courseCode string) ([]Section, error) {
	ctx, span := tracer.Start(ctx, "client:FetchSections")
	defer span.End()
	span.SetAttributes(attribute.String("course", courseCode))

	pageUrl := c.pageUrl(c.registrationPath)

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.registrationPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch registration page")
		return nil, &PageLoadError{URL: pageUrl, Err: err}
	}
	if res.StatusCode() >= 400 {
		span.SetStatus(codes.Error, "registration page returned an error status")
		return nil, &PageLoadError{URL: pageUrl, Status: res.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse registration page html")
		return nil, err
	}
	if hasLoginForm(doc) {
		span.SetStatus(codes.Error, ErrSessionExpired.Error())
		return nil, ErrSessionExpired
	}

	row := findCourseRow(doc, courseCode)
	if row == nil {
		span.SetStatus(codes.Error, "course row not found")
		return nil, &ParseError{
			URL:      pageUrl,
			Selector: fmt.Sprintf("tr containing %q", courseCode),
		}
	}

	sections := parseCourseRow(row, courseCode)
	span.SetAttributes(attribute.Int("sections", len(sections)))
	return sections, nil
}

func findCourseRow(doc *goquery.Document, courseCode string) *goquery.Selection {
	var row *goquery.Selection
	doc.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if strings.Contains(htmlutil.CleanText(tr.Text()), courseCode) {
			row = tr
			return false
		}
		return true
	})
	return row
}

func parseCourseRow(row *goquery.Selection, courseCode string) []Section {
	rowText := htmlutil.CleanText(row.Text())
	rowFull := isFullText(rowText)

	var sections []Section
	row.Find("button, a, option").Each(func(_ int, elem *goquery.Selection) {
		text := htmlutil.CleanText(elem.Text())
		if !strings.Contains(text, "Section") {
			return
		}
		full := rowFull || strings.Contains(text, "Full")
		sections = append(sections, Section{
			Course: courseCode,
			Name:   sectionName(text),
			Seats:  seatsFromText(text, full),
			Full:   full,
		})
	})

	// a row without per-section controls still carries a course-level
	// availability marker
	if len(sections) == 0 {
		sections = append(sections, Section{
			Course: courseCode,
			Seats:  seatsFromText(rowText, rowFull),
			Full:   rowFull,
		})
	}

	return sections
}

// OpenSeats reduces scraped sections to a single seat count for the
// configured target. An empty section name means "any section". A
// requested section that does not appear on the page counts as zero
// seats, the portal hides controls for offerings it will not accept.
func OpenSeats(sections []Section, section string) int {
	total := 0
	for _, s := range sections {
		if s.Full {
			continue
		}
		if section == "" || matchesSection(s.Name, section) {
			total += s.Seats
		}
	}
	return total
}

func matchesSection(name, section string) bool {
	name = strings.TrimSpace(name)
	return strings.EqualFold(name, section) ||
		strings.EqualFold(name, "Section "+section) ||
		strings.EqualFold(strings.TrimPrefix(name, "Section "), section)
}
