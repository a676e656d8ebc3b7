package strategy

import (
	"net/http"
	"strings"
)

// blockType describes anti-bot protection detected on a response.
type blockType string

const (
	blockNone       blockType = ""
	blockCloudflare blockType = "cloudflare"
	blockCaptcha    blockType = "captcha"
)

// detectBlock checks a response for anti-bot interstitials. A blocked page
// is a fetch failure, not an empty price.
func detectBlock(resp *http.Response, body []byte) (bool, blockType) {
	if resp == nil {
		return false, blockNone
	}

	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare" {
			return true, blockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") {
		return true, blockCloudflare
	}

	if strings.Contains(lower, "recaptcha") || strings.Contains(lower, "hcaptcha") {
		return true, blockCaptcha
	}

	return false, blockNone
}
