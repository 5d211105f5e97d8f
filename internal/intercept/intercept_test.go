package intercept

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-cli/internal/browser"
)

func resp(url, body string) browser.Response {
	return browser.Response{URL: url, Method: "GET", Body: json.RawMessage(body)}
}

func TestExtract_NestedCategories(t *testing.T) {
	body := `{"data":{"name":"Cafe Moda","categories":[
		{"name":"Kahvaltılar","products":[
			{"name":"Serpme Kahvaltı","price":250,"description":"2 kişilik"},
			{"name":"Menemen","price":"120,00 ₺"}
		]},
		{"name":"İçecekler","products":[
			{"title":"Çay","price":{"amount":20,"currency":"TRY"}},
			{"title":"Kahve","salePrice":"50"}
		]}
	]}}`

	items := Extract([]browser.Response{resp("https://api.x.com/v1/menu", body)})
	require.Len(t, items, 4)

	assert.Equal(t, "Serpme Kahvaltı", items[0].Name)
	assert.Equal(t, 250.0, items[0].Price)
	assert.Equal(t, "Kahvaltılar", items[0].Category)
	assert.Equal(t, "2 kişilik", items[0].Description)
	assert.Equal(t, 120.0, items[1].Price)
	assert.Equal(t, "İçecekler", items[2].Category)
	assert.Equal(t, 20.0, items[2].Price)
	assert.Equal(t, 50.0, items[3].Price)
}

func TestExtract_CategoryIDsAcrossResponses(t *testing.T) {
	cats := `[{"id":7,"name":"Tatlılar"},{"id":"8","name":"Pizzalar"}]`
	products := `{"items":[
		{"name":"Künefe","price":90,"categoryId":7},
		{"name":"Margherita","price":180,"category_id":"8"},
		{"name":"Orphan","price":10,"categoryId":99}
	]}`

	items := Extract([]browser.Response{
		resp("https://x.com/api/products", products),
		resp("https://x.com/api/categories", cats),
	})
	require.Len(t, items, 3)
	assert.Equal(t, "Tatlılar", items[0].Category)
	assert.Equal(t, "Pizzalar", items[1].Category)
	assert.Equal(t, "", items[2].Category)
}

func TestExtract_ExplicitCategoryField(t *testing.T) {
	body := `[{"name":"Ayran","price":15,"category":{"id":1,"name":"Soğuk İçecekler"}},
		{"name":"Su","price":"10","categoryName":"İçecekler"}]`
	items := FromJSON([]byte(body))
	require.Len(t, items, 2)
	assert.Equal(t, "Soğuk İçecekler", items[0].Category)
	assert.Equal(t, "İçecekler", items[1].Category)
}

func TestExtract_LocalizedNames(t *testing.T) {
	body := `[{"name":{"en":"Lentil Soup","tr":"Mercimek Çorbası"},"price":60}]`
	items := FromJSON([]byte(body))
	require.Len(t, items, 1)
	assert.Equal(t, "Mercimek Çorbası", items[0].Name)
}

func TestExtract_IgnoresNonProducts(t *testing.T) {
	body := `{"restaurant":{"name":"X","priceRange":"$$","address":"Main St"},"user":{"name":"ali"}}`
	assert.Empty(t, FromJSON([]byte(body)))
	assert.Empty(t, Extract([]browser.Response{{URL: "x", Body: json.RawMessage(`not json`)}}))
}

func TestExtract_ProductsNotDescended(t *testing.T) {
	body := `[{"name":"Pizza","price":200,"variants":[{"name":"Large","price":260}]}]`
	items := FromJSON([]byte(body))
	require.Len(t, items, 1)
	assert.Equal(t, "Pizza", items[0].Name)
}

func TestFromHTML_JSONLDMenu(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{"@context":"https://schema.org","@type":"Menu","name":"Dinner",
	 "hasMenuSection":[{"@type":"MenuSection","name":"Starters","hasMenuItem":[
	   {"@type":"MenuItem","name":"Hummus","offers":{"@type":"Offer","price":"7.50","priceCurrency":"USD"}},
	   {"@type":"MenuItem","name":"Falafel","offers":[{"price":6}]}
	 ]}]}
	</script>
	<script type="application/ld+json">{"@type":"Organization","name":"Cafe"}</script>
	<script type="application/ld+json">{broken</script>
	</head><body></body></html>`

	items := FromHTML(html)
	require.Len(t, items, 2)
	assert.Equal(t, "Hummus", items[0].Name)
	assert.Equal(t, 7.5, items[0].Price)
	assert.Equal(t, "Starters", items[0].Category)
	assert.Equal(t, 6.0, items[1].Price)
}

func TestPickPrice(t *testing.T) {
	tests := []struct {
		name   string
		obj    string
		want   float64
		wantOK bool
	}{
		{"number", `{"price":12.5}`, 12.5, true},
		{"string thousands", `{"fiyat":"1.250 TL"}`, 1250, true},
		{"nested", `{"prices":{"currentPrice":33}}`, 33, true},
		{"no digits", `{"price":"Ask"}`, 0, false},
		{"absent", `{"name":"x"}`, 0, false},
		{"zero", `{"price":0}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var obj map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.obj), &obj))
			got, ok := pickPrice(obj)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
