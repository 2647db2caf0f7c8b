package engine

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// excerptLength is how many runes of page 1 text a review keeps
const excerptLength = 280

// extractExcerpt returns the whitespace-collapsed text of page 1, trimmed to
// maxRunes. Anything unreadable yields "".
func extractExcerpt(data []byte, maxRunes int) (excerpt string) {
	defer func() {
		// the pdf reader panics on some malformed inputs
		if r := recover(); r != nil {
			logger().Warn("Text extraction panicked", "panic", r)
			excerpt = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger().Debug("Unable to read PDF for excerpt", "error", err)
		return ""
	}
	if reader.NumPage() < 1 {
		return ""
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		logger().Debug("Unable to extract text from page 1", "error", err)
		return ""
	}

	return truncateRunes(strings.Join(strings.Fields(text), " "), maxRunes)
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}
