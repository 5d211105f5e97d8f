package extract

import (
	"fmt"
	"strings"
)

const systemPrompt = `You extract restaurant menus into structured data.
Return ONLY a JSON array. Each element is an object:
{"name": string, "price": number, "category": string, "description": string}
Rules:
- Keep names exactly as written, including Turkish and other non-ASCII letters.
- price is a plain number without currency. Use 0 when no price is shown.
- category is the nearest section heading above the item. Use "" when none.
- description is the short text under the item name, or "".
- Do not invent items. Skip navigation, opening hours, addresses and footers.`

const textPrompt = `Extract every menu item from the page text below.%s

<page>
%s
</page>`

const imagePrompt = `Extract every menu item visible in the attached screenshots, top to bottom.%s
Screenshots are consecutive scroll positions of one page and may overlap.`

func contextHint(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}
	return fmt.Sprintf("\nThis section of the menu is %q; use it as the category when no heading is visible.", hint)
}

func buildTextPrompt(chunk, hint string) string {
	return fmt.Sprintf(textPrompt, contextHint(hint), chunk)
}

func buildImagePrompt(hint string) string {
	return fmt.Sprintf(imagePrompt, contextHint(hint))
}
