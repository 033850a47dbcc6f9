package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

const (
	filenameHostMaxLen   = 15
	filenameDigestHexLen = 16
)

// SafeFilename derives a filesystem-safe, collision-resistant name for a
// canonical URL: a sanitized host prefix plus a truncated SHA-256 digest of
// the full canonical URL. The same canonical URL always maps to the same
// name within and across runs.
func SafeFilename(canonicalURL string) string {
	host := canonicalURL
	if u, err := url.Parse(canonicalURL); err == nil && u.Hostname() != "" {
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}

	var b strings.Builder
	for _, r := range host {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	prefix := b.String()
	if len(prefix) > filenameHostMaxLen {
		prefix = prefix[:filenameHostMaxLen]
	}
	if prefix == "" {
		prefix = "site"
	}

	sum := sha256.Sum256([]byte(canonicalURL))
	return prefix + "_" + hex.EncodeToString(sum[:])[:filenameDigestHexLen]
}
