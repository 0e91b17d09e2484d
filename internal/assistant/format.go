package assistant

import (
	"html"
	"regexp"
	"strings"
)

var (
	urlPattern  = regexp.MustCompile(`https?://[^\s<]+`)
	boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// FormatMessage renders bubble text as HTML: escaped, links made clickable,
// **bold** spans emphasized and line breaks kept.
func FormatMessage(text string) string {
	out := html.EscapeString(text)
	out = urlPattern.ReplaceAllString(out, `<a href="$0" target="_blank" rel="noopener">$0</a>`)
	out = boldPattern.ReplaceAllString(out, `<strong>$1</strong>`)
	return strings.ReplaceAll(out, "\n", "<br>")
}
