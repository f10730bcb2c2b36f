// Package normalize turns the HTML body of a parliamentary question into a
// clean question text, an optional government response and a set of cheap
// lexical features.
package normalize

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/lueurxax/assembly-questions-etl/internal/core/rules"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/htmlutils"
)

// Result is the output of Normalize. Question never contains Response.
type Result struct {
	Question string
	Response *string
	Analysis Analysis
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	places []string
}

func New(tables rules.Tables) *Normalizer {
	places := make([]string, len(tables.Subdivisions))
	copy(places, tables.Subdivisions)

	return &Normalizer{places: places}
}

// Normalize decodes and parses raw, extracts the response when answered is
// set and returns the cleaned question text truncated before any response
// marker. It never fails: malformed markup is read as plain text.
func (n *Normalizer) Normalize(raw string, answered bool) Result {
	root := parseTree(raw)

	var response *string

	if answered {
		if text, ok := ExtractResponse(root); ok {
			response = &text
		}
	}

	question := Clean(TruncateAtMarker(htmlutils.Flatten(root)))

	if response != nil && *response != "" {
		question = strings.TrimSpace(strings.ReplaceAll(question, *response, ""))
	}

	return Result{
		Question: question,
		Response: response,
		Analysis: n.Analyze(question),
	}
}

func parseTree(raw string) htmlutils.Element {
	decoded := norm.NFC.String(html.UnescapeString(raw))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decoded))
	if err != nil || len(doc.Nodes) == 0 {
		return htmlutils.NewElement("div", htmlutils.NewText(decoded))
	}

	doc.Find(imgSelector).Remove()

	return htmlutils.FromNode(doc.Nodes[0])
}

// TruncateAtMarker cuts text before the earliest response marker.
func TruncateAtMarker(text string) string {
	if loc := markerPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	return strings.TrimSpace(text)
}

// Clean strips journal and question-number boilerplate, replaces characters
// other than letters, digits, whitespace and basic punctuation with spaces,
// then collapses whitespace.
func Clean(text string) string {
	text = journalRef.ReplaceAllString(text, "")
	text = questionRef.ReplaceAllString(text, "")
	text = disallowedChars.ReplaceAllString(text, " ")

	return collapseSpaces(text)
}

func collapseSpaces(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
