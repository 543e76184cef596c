package storage

import (
	"mime"
	"net/http"
	"path/filepath"
)

const defaultContentType = "application/octet-stream"

// DetectContentType guesses the media type of an entry from its extension,
// falling back to sniffing head (at most the first 512 bytes of content).
func DetectContentType(filename string, head []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	if len(head) == 0 {
		return defaultContentType
	}
	return http.DetectContentType(head)
}
