package normalize

import (
	"strings"

	"github.com/lueurxax/assembly-questions-etl/internal/platform/htmlutils"
)

type responseStrategy func(root htmlutils.Element) string

// Tried in order; the first non-empty result wins.
var responseStrategies = []responseStrategy{
	responseAfterHeading,
	responseAfterParagraph,
	responseFromText,
}

// ExtractResponse looks for the government answer embedded in a question
// document.
func ExtractResponse(root htmlutils.Element) (string, bool) {
	for _, strategy := range responseStrategies {
		if text := strategy(root); text != "" {
			return text, true
		}
	}

	return "", false
}

// responseAfterHeading joins the paragraphs that follow a marker heading, up
// to the next heading.
func responseAfterHeading(root htmlutils.Element) string {
	for _, heading := range htmlutils.FindAll(root, htmlutils.IsHeading) {
		if !markerPattern.MatchString(heading.Text()) {
			continue
		}

		var parts []string

		for _, sib := range htmlutils.NextSiblingsUntil(heading, htmlutils.IsHeading) {
			if sib.Tag() != "p" {
				continue
			}

			if text := collapseSpaces(sib.Text()); text != "" {
				parts = append(parts, text)
			}
		}

		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	return ""
}

// responseAfterParagraph joins the paragraphs following a paragraph that
// contains a marker.
func responseAfterParagraph(root htmlutils.Element) string {
	isParagraph := htmlutils.HasTag("p")

	for _, p := range htmlutils.FindAll(root, isParagraph) {
		if !markerPattern.MatchString(p.Text()) {
			continue
		}

		var parts []string

		for _, sib := range htmlutils.NextSiblingsUntil(p, nil) {
			if !isParagraph(sib) {
				continue
			}

			if text := collapseSpaces(sib.Text()); text != "" {
				parts = append(parts, text)
			}
		}

		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	return ""
}

// responseFromText takes the text after a marker in the unflattened
// document, up to the first blank line.
func responseFromText(root htmlutils.Element) string {
	text := root.Text()

	loc := responseTail.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := text[loc[1]:]
	if cut := blankLine.FindStringIndex(rest); cut != nil {
		rest = rest[:cut[0]]
	}

	return collapseSpaces(rest)
}
