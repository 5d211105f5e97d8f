package domtext

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

var (
	reMDImage    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	reMDLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	reMDEmphasis = regexp.MustCompile(`(\*\*|__|\*|_)([^*_\n]+)(\*\*|__|\*|_)`)
	reBlankRun   = regexp.MustCompile(`\n{3,}`)
	reMDEscape   = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!|>])")
)

// Clean parses html and removes chrome elements and hidden nodes.
func Clean(html string, chrome []string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "domtext: parse html")
	}
	if len(chrome) > 0 {
		doc.Find(strings.Join(chrome, ", ")).Remove()
	}
	doc.Find(`[hidden], [aria-hidden="true"], template`).Remove()
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			s.Remove()
		}
	})
	return doc, nil
}

// Markdown converts the cleaned document body to markdown. Headings
// survive as "#" lines, which the line parser treats as category headers.
func Markdown(doc *goquery.Document) (string, error) {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	html, err := body.Html()
	if err != nil {
		return "", eris.Wrap(err, "domtext: serialize body")
	}

	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(html)
	if err != nil {
		return "", eris.Wrap(err, "domtext: convert to markdown")
	}
	return tidyMarkdown(out), nil
}

// tidyMarkdown drops images, unwraps links and emphasis, and collapses
// blank runs so the text budget is spent on content.
func tidyMarkdown(s string) string {
	s = reMDImage.ReplaceAllString(s, "")
	s = reMDLink.ReplaceAllString(s, "$1")
	s = reMDEmphasis.ReplaceAllString(s, "$2")
	s = reMDEscape.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, " ", " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = strings.Join(lines, "\n")
	s = reBlankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
