package fwait

import (
	"strings"

	"github.com/karrick/godirwalk"
	"golang.org/x/text/unicode/norm"
)

// Wildcard is the placeholder character recognized in the final path
// segment of a target pattern.
const Wildcard = "*"

// hasWildcard reports whether target contains a wildcard marker.
func hasWildcard(target string) bool {
	return strings.Contains(target, Wildcard)
}

// splitPattern splits a wildcard pattern into its directory (including the
// trailing separator) and the name prefix and suffix around the marker. It
// reports false when the pattern has no directory separator or the marker
// sits outside the final segment. With more than one marker, the first one
// is the split point.
func splitPattern(pattern string) (dir, prefix, suffix string, ok bool) {
	slash := strings.LastIndex(pattern, "/")
	if slash < 0 {
		return "", "", "", false
	}
	dir, name := pattern[:slash+1], pattern[slash+1:]

	star := strings.Index(name, Wildcard)
	if star < 0 {
		return "", "", "", false
	}
	return dir, name[:star], name[star+1:], true
}

// resolveWildcard lists the pattern's directory and returns the first entry
// whose name matches the prefix and suffix around the marker. Names are
// NFC-normalized before comparison. Ordering under multiple matches is
// filesystem-dependent. A malformed pattern, an unreadable directory, or no
// matching entry resolves to nothing; the caller simply retries on its next
// poll.
func resolveWildcard(pattern string) (string, bool) {
	dir, prefix, suffix, ok := splitPattern(pattern)
	if !ok {
		return "", false
	}

	names, err := godirwalk.ReadDirnames(dir, nil)
	if err != nil {
		return "", false
	}

	prefix = norm.NFC.String(prefix)
	suffix = norm.NFC.String(suffix)

	// A matching name must be long enough to hold both parts without the
	// prefix and suffix overlapping.
	want := len(prefix) + len(suffix)

	for _, name := range names {
		n := norm.NFC.String(name)
		if len(n) < want {
			continue
		}
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, suffix) {
			return dir + name, true
		}
	}
	return "", false
}
