package domtext

import "strings"

// BlockType describes the kind of anti-bot page detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// smallPage is the visible-text size below which captcha and shell
// markers are trusted. Real menus with a reCAPTCHA contact form are larger.
const smallPage = 3000

// DetectBlock checks rendered html and its visible text for challenge or
// captcha interstitials.
func DetectBlock(html, text string) (bool, BlockType) {
	lower := strings.ToLower(html)
	lowerText := strings.ToLower(text)

	if strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-chl-") ||
		strings.Contains(lowerText, "checking your browser") ||
		strings.Contains(lowerText, "cloudflare") && strings.Contains(lowerText, "challenge") {
		return true, BlockCloudflare
	}

	if len(text) >= smallPage {
		return false, BlockNone
	}

	if strings.Contains(lowerText, "captcha") ||
		strings.Contains(lowerText, "verify you are human") ||
		strings.Contains(lowerText, "robot olmadığınızı") {
		return true, BlockCaptcha
	}

	if strings.TrimSpace(text) == "" || len(text) < 200 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
