// Package pathutil checks operator-supplied locations before they are
// displayed or probed.
package pathutil

import (
	"errors"
	"path"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// Canonical reports whether p is absolute and already in the form
// path.Clean would give it, so what the dashboard shows is exactly what the
// probe checks.
func Canonical(p string) bool {
	return strings.HasPrefix(p, "/") && path.Clean(p) == p
}

// ObjectKey normalizes an object-store key: leading slashes are dropped and
// dot segments, empty segments and a trailing slash are rejected.
func ObjectKey(key string) (string, error) {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case k == "":
		return "", errors.New("object key is empty")
	case strings.HasSuffix(k, "/"):
		return "", errors.New("object key names a prefix")
	case strings.Contains(k, "//"):
		return "", errors.New("object key has an empty segment")
	case HasDotSegments(k):
		return "", errors.New("object key has dot segments")
	}
	return k, nil
}
