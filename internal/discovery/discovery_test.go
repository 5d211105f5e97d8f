package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-cli/internal/browser/browsertest"
	"github.com/sells-group/menu-cli/internal/selectors"
)

const homeHTML = `<html><head><base href="https://www.cafe.example/tr/"></head><body>
<nav>
  <a href="menu">Menü</a>
  <a href="/tr/menu?lang=en">Menu EN</a>
  <a href="/tr/icecekler">İçecekler</a>
  <a href="https://cafe.example/tr/tatlilar/">Tatlılar</a>
  <a href="/tr/iletisim">İletişim</a>
  <a href="/gizlilik-politikasi">Kahvaltı gizlilik</a>
  <a href="/blog/yeni-menu">Yeni menümüz</a>
  <a href="https://instagram.com/cafe">Instagram</a>
  <a href="#top">Menu top</a>
  <a href="/files/menu.pdf">PDF</a>
</nav>
<div class="pager">
  <a href="/tr/?page=2">2</a>
  <a href="/tr/?page=3">3</a>
  <a rel="next" href="/tr/?page=2">Sonraki</a>
</div>
</body></html>`

func TestParseLinks(t *testing.T) {
	set, err := ParseLinks(homeHTML, "https://www.cafe.example/tr/", selectors.Default(), NewPathMatcher(nil), 15, 35)
	require.NoError(t, err)

	var urls []string
	for _, l := range set.SubPages {
		urls = append(urls, l.URL)
	}
	assert.Equal(t, []string{
		"https://www.cafe.example/tr/menu",
		"https://www.cafe.example/tr/icecekler",
		"https://cafe.example/tr/tatlilar/",
		"https://www.cafe.example/files/menu.pdf",
	}, urls)

	require.Len(t, set.Pagination, 2)
	assert.Equal(t, "https://www.cafe.example/tr/?page=2", set.Pagination[0].URL)
	assert.Equal(t, "https://www.cafe.example/tr/?page=3", set.Pagination[1].URL)
}

func TestParseLinks_OriginQueryVariantsDropped(t *testing.T) {
	html := `<a href="/menu?cat=1">Menü</a><a href="/menu#drinks">Menü içecek</a><a href="/menu/">Menu</a>`
	set, err := ParseLinks(html, "https://cafe.example/menu", selectors.Default(), NewPathMatcher(nil), 15, 35)
	require.NoError(t, err)
	assert.Empty(t, set.SubPages)
}

func TestParseLinks_Caps(t *testing.T) {
	var sb strings.Builder
	for i := range 60 {
		fmt.Fprintf(&sb, `<a href="/menu?page=%d">%d</a>`, i+2, i+2)
	}
	for _, p := range []string{"kahvalti", "corbalar", "salatalar", "tatlilar"} {
		sb.WriteString(`<a href="/` + p + `">` + p + `</a>`)
	}
	set, err := ParseLinks(sb.String(), "https://cafe.example/menu", selectors.Default(), nil, 2, 35)
	require.NoError(t, err)
	assert.Len(t, set.SubPages, 2)
	assert.Len(t, set.Pagination, 35)
}

func TestVisitKey(t *testing.T) {
	assert.Equal(t, "cafe.example/menu", VisitKey("https://www.Cafe.example/menu/"))
	assert.Equal(t, "cafe.example/menu", VisitKey("https://cafe.example/menu#tatlilar"))
	assert.Equal(t, "cafe.example/menu?page=2", VisitKey("https://cafe.example/menu?page=2"))
	assert.NotEqual(t, VisitKey("https://cafe.example/menu?page=2"), VisitKey("https://cafe.example/menu?page=3"))
}

func TestDiscoverer_LinksFromLaterPage(t *testing.T) {
	d := New(selectors.Default(), Options{MaxPagination: 2})
	set, err := d.Links(`<html><body>
		<a rel="prev" href="/menu">previous</a>
		<a href="/menu?page=3">next</a>
		<a href="/menu/tatlilar">Tatlılar</a>
	</body></html>`, "https://cafe.example/menu?page=2")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://cafe.example/menu/tatlilar",
		"https://cafe.example/menu",
		"https://cafe.example/menu?page=3",
	}, set.URLs())
	assert.Equal(t, 2, d.Options().MaxPagination)
	assert.Equal(t, DefaultOptions().MaxSubpages, d.Options().MaxSubpages)
}

func TestPathMatcher(t *testing.T) {
	m := NewPathMatcher(nil)
	assert.True(t, m.IsExcluded("https://x.com/blog/2024/post"))
	assert.True(t, m.IsExcluded("https://x.com/img/gallery/photo.JPG"))
	assert.True(t, m.IsExcluded("https://x.com/cart"))
	assert.False(t, m.IsExcluded("https://x.com/menu"))
	assert.False(t, m.IsExcluded("https://x.com/files/menu.pdf"))
	assert.True(t, m.IsExcluded("://bad"))

	custom := NewPathMatcher([]string{"/en/*"})
	assert.Equal(t, []string{"/en/*"}, custom.Patterns())
	assert.True(t, custom.IsExcluded("https://x.com/en/menu"))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("https://x.com/Menu.PDF?v=2"))
	assert.False(t, IsPDF("https://x.com/menu"))
}

func evalFake(tabs, scroll string) func(string, []any) (json.RawMessage, error) {
	return func(script string, _ []any) (json.RawMessage, error) {
		switch {
		case strings.Contains(script, "data-menu-tab"):
			return json.RawMessage(tabs), nil
		case strings.Contains(script, "data-menu-scroll"):
			return json.RawMessage(scroll), nil
		}
		return json.RawMessage("null"), nil
	}
}

func TestDiscover(t *testing.T) {
	b := browsertest.New(map[string]*browsertest.Page{
		"https://www.cafe.example/tr/": {HTML: homeHTML},
	})
	b.EvalFunc = evalFake(
		`[{"label":"Kahvaltılar","target":"[data-menu-tab=\"0\"]","group":-1},
		  {"label":"İletişim","target":"[data-menu-tab=\"1\"]","group":-1},
		  {"label":"Çorbalar","target":"[data-menu-tab=\"2\"]","group":0},
		  {"label":"Izgaralar","target":"[data-menu-tab=\"3\"]","group":0},
		  {"label":"Ana Sayfa","target":"[data-menu-tab=\"4\"]","group":1},
		  {"label":"Galeri","target":"[data-menu-tab=\"5\"]","group":1},
		  {"label":"Kahvaltılar","target":"[data-menu-tab=\"6\"]","group":-1}]`,
		`{"selector":"[data-menu-scroll=\"1\"]","scroll_height":4000,"client_height":800,"viewport_height":900}`,
	)
	ctx := context.Background()
	require.NoError(t, b.Navigate(ctx, "https://www.cafe.example/tr/", 0))

	st, err := New(selectors.Default(), Options{}).Discover(ctx, b)
	require.NoError(t, err)

	assert.Len(t, st.Links.SubPages, 4)
	var labels []string
	for _, tab := range st.Tabs {
		labels = append(labels, tab.Label)
	}
	assert.Equal(t, []string{"Kahvaltılar", "Çorbalar", "Izgaralar"}, labels)
	require.NotNil(t, st.Scroll)
	assert.Equal(t, 3200.0, st.Scroll.Overflow())
	assert.False(t, st.SingleUnit())
}

func TestDiscover_EvalFailuresDegrade(t *testing.T) {
	b := browsertest.New(map[string]*browsertest.Page{"https://x.example/": {HTML: "<p>Çay 20</p>"}})
	b.EvalFunc = func(string, []any) (json.RawMessage, error) { return nil, errors.New("boom") }
	ctx := context.Background()
	require.NoError(t, b.Navigate(ctx, "https://x.example/", 0))

	st, err := New(selectors.Default(), DefaultOptions()).Discover(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, st.Tabs)
	assert.Nil(t, st.Scroll)
	assert.True(t, st.SingleUnit())
}

func TestScrollBy(t *testing.T) {
	moves := 0
	b := browsertest.New(nil)
	b.EvalFunc = func(script string, args []any) (json.RawMessage, error) {
		require.Len(t, args, 2)
		assert.Equal(t, "#menu", args[0])
		moves++
		if moves > 2 {
			return json.RawMessage(`{"moved":false,"top":1600}`), nil
		}
		return json.RawMessage(`{"moved":true,"top":800}`), nil
	}
	c := &ScrollContainer{Selector: "#menu"}
	ctx := context.Background()

	for range 2 {
		moved, err := ScrollBy(ctx, b, c, 720)
		require.NoError(t, err)
		assert.True(t, moved)
	}
	moved, err := ScrollBy(ctx, b, c, 720)
	require.NoError(t, err)
	assert.False(t, moved)
}
