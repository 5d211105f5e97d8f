package discovery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-cli/internal/selectors"
)

// Link is a discovered anchor.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

var (
	rePageNumber = regexp.MustCompile(`^\d{1,3}$`)
	rePageParam  = regexp.MustCompile(`(?i)(?:^|[?&])(?:page|p|pg|sayfa|offset)=\d+`)
	rePagePath   = regexp.MustCompile(`(?i)/(?:page|sayfa)/\d+/?$`)
	nextLabels   = []string{"next", "sonraki", "ileri", "weiter", "suivant", "›", "»", ">"}
	pathSplitter = strings.NewReplacer("/", " ", "-", " ", "_", " ", ".", " ")
)

// LinkSet is the result of static link discovery.
type LinkSet struct {
	SubPages   []Link `json:"sub_pages"`
	Pagination []Link `json:"pagination"`
}

// URLs lists sub-page URLs followed by pagination URLs.
func (s *LinkSet) URLs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.SubPages)+len(s.Pagination))
	for _, l := range s.SubPages {
		out = append(out, l.URL)
	}
	for _, l := range s.Pagination {
		out = append(out, l.URL)
	}
	return out
}

// ParseLinks finds menu sub-page and pagination links in html. Links on
// another host, matching negative keywords or excluded paths, or pointing
// at the origin path with only a different query or fragment are dropped
// from sub-pages. Pagination links are capped at maxPagination.
func ParseLinks(html, pageURL string, reg selectors.Registry, exclude *PathMatcher, maxSubpages, maxPagination int) (*LinkSet, error) {
	origin, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: parse origin %s", pageURL)
	}
	if exclude == nil {
		exclude = NewPathMatcher(nil)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "discovery: parse html")
	}

	base := origin
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := origin.Parse(href); err == nil {
			base = b
		}
	}

	out := &LinkSet{}
	seen := map[string]bool{pathKey(origin): true}
	seenPage := map[string]bool{origin.String(): true}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		u, err := base.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !sameSite(origin, u) {
			return
		}
		u.Fragment = ""
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			text = strings.TrimSpace(s.AttrOr("aria-label", s.AttrOr("title", "")))
		}
		link := Link{URL: u.String(), Text: text}

		if isPagination(s, u, text, origin) {
			if len(out.Pagination) < maxPagination && !seenPage[link.URL] {
				seenPage[link.URL] = true
				out.Pagination = append(out.Pagination, link)
			}
			return
		}

		key := pathKey(u)
		if seen[key] || len(out.SubPages) >= maxSubpages {
			return
		}
		pathText := pathSplitter.Replace(u.Path)
		if reg.IsNegative(text) || reg.IsNegative(href) || reg.IsNegative(pathText) || exclude.IsExcluded(link.URL) {
			return
		}
		if !reg.IsMenuText(text) && !reg.IsMenuText(pathText) {
			return
		}
		seen[key] = true
		out.SubPages = append(out.SubPages, link)
	})
	return out, nil
}

// pathKey identifies a URL by host and path, ignoring query and fragment.
func pathKey(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.") + strings.TrimSuffix(u.EscapedPath(), "/")
}

// VisitKey identifies a page for crawl deduplication: host without "www.",
// path without a trailing slash, and the query.
func VisitKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	key := pathKey(u)
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

func sameSite(a, b *url.URL) bool {
	ha := strings.TrimPrefix(strings.ToLower(a.Hostname()), "www.")
	hb := strings.TrimPrefix(strings.ToLower(b.Hostname()), "www.")
	return ha == hb
}

func isPagination(s *goquery.Selection, u *url.URL, text string, origin *url.URL) bool {
	if rel := strings.ToLower(s.AttrOr("rel", "")); strings.Contains(rel, "next") || strings.Contains(rel, "prev") {
		return true
	}
	paged := rePageParam.MatchString("?"+u.RawQuery) || rePagePath.MatchString(u.Path)
	if !paged {
		return false
	}
	if pathKey(u) == pathKey(origin) || rePagePath.MatchString(u.Path) {
		return true
	}
	lower := strings.ToLower(text)
	if rePageNumber.MatchString(lower) {
		return true
	}
	for _, l := range nextLabels {
		if lower == l {
			return true
		}
	}
	return false
}

// IsPDF reports whether a link points at a PDF document.
func IsPDF(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}
