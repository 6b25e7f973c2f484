package scrape

import "strings"

// BlockType describes the kind of block a page visit ran into.
type BlockType string

const (
	BlockNone     BlockType = ""
	BlockAuthwall BlockType = "authwall"
	BlockCaptcha  BlockType = "captcha"
	BlockJSShell  BlockType = "js_shell"
)

// DetectBlock inspects rendered HTML for signs the page never loaded its
// content: the LinkedIn authwall, a captcha challenge, or a bare JS shell.
// Blocked pages must not be recorded as successful scrapes.
func DetectBlock(finalURL, html string) (bool, BlockType) {
	lower := strings.ToLower(html)

	if strings.Contains(strings.ToLower(finalURL), "/authwall") ||
		strings.Contains(lower, "authwall") ||
		(strings.Contains(lower, "join linkedin") && strings.Contains(lower, "sign in")) {
		return true, BlockAuthwall
	}

	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") {
		return true, BlockCaptcha
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(html) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
