package model

// Image is an inline image sent to the extraction model.
type Image struct {
	Data      []byte `json:"-"`
	MediaType string `json:"media_type"`
}

// PageCaptureUnit is one discovered sub-page, tab, or scroll viewport. It is
// created during structure discovery, consumed during extraction and
// discarded after merge.
type PageCaptureUnit struct {
	URL      string `json:"url,omitempty"`
	TabLabel string `json:"tab_label,omitempty"`
	// Context is the anchor text of the link that led to a sub-page.
	Context    string   `json:"context,omitempty"`
	ParentMenu string   `json:"parent_menu,omitempty"`
	Text       string   `json:"-"`
	HTML       string   `json:"-"`
	Images     []Image  `json:"-"`
	Source     Strategy `json:"source,omitempty"`
	SubLinks   []string `json:"sub_links,omitempty"`
}

// Label returns a human-readable identifier: the tab label when present,
// otherwise the URL.
func (u PageCaptureUnit) Label() string {
	if u.TabLabel != "" {
		return u.TabLabel
	}
	return u.URL
}

// ContextCategory returns the category implied by the unit itself (a tab
// label or sub-page link text), or "" when the unit carries no explicit
// context.
func (u PageCaptureUnit) ContextCategory() string {
	if u.TabLabel != "" {
		return u.TabLabel
	}
	return u.Context
}
