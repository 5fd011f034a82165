package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText collapses the whitespace soup that server-rendered
// registration tables contain into something comparable.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// CellTexts returns the cleaned text of every <td> in a table row.
func CellTexts(row *goquery.Selection) []string {
	var cells []string
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, CleanText(td.Text()))
	})
	return cells
}
