package imageproxy

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
)

const sniffLen = 512

var magic = []struct {
	prefix []byte
	mime   string
}{
	{[]byte("\x89PNG\r\n\x1a\n"), "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("BM"), "image/bmp"},
	{[]byte{0x00, 0x00, 0x01, 0x00}, "image/x-icon"},
}

// contentType keeps an upstream image/* type and otherwise sniffs head.
// It returns "" when the bytes are not a recognizable image.
func contentType(upstream string, head []byte) string {
	if mt, _, err := mime.ParseMediaType(upstream); err == nil && strings.HasPrefix(mt, "image/") {
		return upstream
	}
	return sniff(head)
}

func sniff(head []byte) string {
	for _, m := range magic {
		if bytes.HasPrefix(head, m.prefix) {
			return m.mime
		}
	}
	if len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")) {
		return "image/webp"
	}
	if len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")) {
		switch string(head[8:12]) {
		case "avif", "avis":
			return "image/avif"
		}
	}
	if isSVG(head) {
		return "image/svg+xml"
	}
	if ct := http.DetectContentType(head); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return ""
}

func isSVG(head []byte) bool {
	text := bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))
	if !bytes.HasPrefix(text, []byte("<")) {
		return false
	}
	return bytes.Contains(bytes.ToLower(text), []byte("<svg"))
}
