package fetcher

import "strings"

const (
	minContentLen = 100
	// Challenge signatures only count on short pages; long articles may
	// mention cloudflare or cookies in passing.
	challengeMaxLen = 1000
)

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
}

// blocked reports whether content looks like an empty or challenge page
// rather than an article.
func blocked(content string) bool {
	content = strings.TrimSpace(content)
	if len(content) < minContentLen {
		return true
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < challengeMaxLen {
			return true
		}
	}
	return false
}
