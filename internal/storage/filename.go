package storage

import (
	"path"
	"strings"
)

// ResolveName normalizes an untrusted filename into the single path segment
// it denotes below the storage root.
//
// Both '/' and '\' count as separators regardless of the host OS, so the
// result does not depend on where the service runs. Dot segments are
// collapsed before the check: "bar/../foo.txt" resolves to "foo.txt", while
// "../x", "a/../../x", "/etc/passwd" and "\etc\passwd" are rejected with
// ErrOutsideRoot. Names that still contain a directory after cleaning are
// rejected too, since entries must be direct children of the root.
func ResolveName(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrEmptyFile
	}
	if strings.ContainsRune(filename, 0) {
		return "", ErrOutsideRoot
	}

	unified := strings.ReplaceAll(filename, `\`, "/")
	if strings.HasPrefix(unified, "/") || hasVolume(unified) {
		return "", ErrOutsideRoot
	}

	cleaned := path.Clean(unified)
	if cleaned == "." || cleaned == ".." || strings.Contains(cleaned, "/") {
		return "", ErrOutsideRoot
	}
	return cleaned, nil
}

// hasVolume reports a Windows drive prefix such as "C:".
func hasVolume(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
