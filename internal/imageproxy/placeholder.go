package imageproxy

import (
	"fmt"
	"html"
	"net/http"
	"unicode/utf8"
)

const (
	placeholderSize  = 400
	excerptMaxRunes  = 48
	placeholderTitle = "Image unavailable"
)

// excerpt shortens raw to at most excerptMaxRunes runes.
func excerpt(raw string) string {
	if utf8.RuneCountInString(raw) <= excerptMaxRunes {
		return raw
	}
	r := []rune(raw)
	return string(r[:excerptMaxRunes-1]) + "…"
}

func placeholderSVG(raw string) []byte {
	return []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">`+
		`<rect width="%[1]d" height="%[1]d" fill="#1f2937"/>`+
		`<text x="200" y="190" font-family="sans-serif" font-size="20" fill="#9ca3af" text-anchor="middle">%[2]s</text>`+
		`<text x="200" y="222" font-family="monospace" font-size="12" fill="#6b7280" text-anchor="middle">%[3]s</text>`+
		`</svg>`, placeholderSize, placeholderTitle, html.EscapeString(excerpt(raw))))
}

func writePlaceholder(w http.ResponseWriter, raw string) {
	body := placeholderSVG(raw)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
