package sanitize

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	scriptTagRe   = regexp.MustCompile(`(?i)</?script\b[^>]*>`)
	markupRe      = regexp.MustCompile(`<[^>]*>`)
)

// Clean removes script blocks first, then any remaining markup, then trims.
// Script removal must run before generic tag stripping so fragments cannot
// reassemble into an executable tag.
func Clean(content string) string {
	content = scriptBlockRe.ReplaceAllString(content, "")
	content = scriptTagRe.ReplaceAllString(content, "")
	content = markupRe.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
