package urlnorm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidURL marks input values that cannot be turned into a fetchable
// URL. Callers match it with errors.Is.
var ErrInvalidURL = errors.New("invalid url")

// Resolver is the DNS lookup used for TLD probing. net.DefaultResolver
// satisfies it in production; tests inject a fake.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// placeholder values that show up in spreadsheet URL columns.
var placeholderValues = map[string]struct{}{
	"":     {},
	"none": {},
	"nan":  {},
	"n/a":  {},
	"#n/a": {},
	"-":    {},
}

// queryParamBlocklist lists query parameters dropped during page-URL
// canonicalization.
var queryParamBlocklist = map[string]struct{}{
	"fallback": {},
}

// indexFilenames are directory-default documents stripped from the path
// during page-URL canonicalization.
var indexFilenames = map[string]struct{}{
	"index.html":   {},
	"index.htm":    {},
	"index.php":    {},
	"default.asp":  {},
	"default.aspx": {},
	"default.htm":  {},
	"default.html": {},
}

// Normalize cleans a raw input URL into a fetchable absolute URL. It trims
// surrounding and interior whitespace, defaults the scheme to http, strips
// trailing junk punctuation and lowercases the host. Values that cannot
// yield a host with a dot are rejected with ErrInvalidURL.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if _, ok := placeholderValues[strings.ToLower(s)]; ok {
		return "", fmt.Errorf("%w: empty or placeholder value %q", ErrInvalidURL, raw)
	}

	// Spreadsheet copy/paste artifacts: interior spaces and trailing
	// punctuation that is never part of a URL.
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimRight(s, `,;'")]}`)

	if !strings.Contains(s, "://") {
		// A colon before the first slash is either a port or a scheme
		// prefix like "mailto:"; prepending http:// to the latter would
		// parse the scheme as userinfo.
		if i := strings.IndexByte(s, ':'); i >= 0 && !strings.ContainsRune(s[:i], '/') {
			rest := s[i+1:]
			if rest == "" || rest[0] < '0' || rest[0] > '9' {
				return "", fmt.Errorf("%w: unsupported scheme prefix in %q", ErrInvalidURL, raw)
			}
		}
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidURL, raw)
	}
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	return u.String(), nil
}

// ProbeTLD resolves hosts that lack a working TLD by appending entries from
// the probe list and returning the first variant whose host resolves. The
// input is returned unchanged when its own host already resolves, or when
// no probe variant does.
func ProbeTLD(ctx context.Context, normalized string, resolver Resolver, tlds []string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	host := u.Hostname()
	if host == "" {
		return normalized
	}

	if _, err := resolver.LookupHost(ctx, host); err == nil {
		return normalized
	}

	base := strings.TrimSuffix(host, ".")
	for _, tld := range tlds {
		candidate := base + "." + strings.TrimPrefix(tld, ".")
		if _, err := resolver.LookupHost(ctx, candidate); err == nil {
			if port := u.Port(); port != "" {
				u.Host = candidate + ":" + port
			} else {
				u.Host = candidate
			}
			return u.String()
		}
	}
	return normalized
}

// CanonicalBase reduces a URL to its site key: scheme plus lowercased host
// without a leading www. and without default ports.
func CanonicalBase(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidURL, rawURL)
	}
	host = strings.TrimPrefix(host, "www.")

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "http"
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	return scheme + "://" + host, nil
}

// InputCanonicalURL is the best-effort site key of a raw input value, used
// for duplicate pre-computation. The scheme is dropped so that "acme.de"
// and "https://acme.de" count as the same site. Returns "" when the value
// is hopeless.
func InputCanonicalURL(raw string) string {
	n, err := Normalize(raw)
	if err != nil {
		return ""
	}
	base, err := CanonicalBase(n)
	if err != nil {
		return ""
	}
	if i := strings.Index(base, "://"); i >= 0 {
		return base[i+3:]
	}
	return base
}

// CanonicalPageURL canonicalizes a full page URL for frontier and
// landed-URL dedup: fragment dropped, host lowercased without www.,
// directory-default filenames and trailing slashes removed from the path,
// blocklisted query parameters removed and the remainder sorted.
func CanonicalPageURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" &&
		!(u.Scheme == "http" && port == "80") &&
		!(u.Scheme == "https" && port == "443") {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	if idx := strings.LastIndex(u.Path, "/"); idx >= 0 {
		if _, ok := indexFilenames[strings.ToLower(u.Path[idx+1:])]; ok {
			u.Path = u.Path[:idx+1]
		}
	}
	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if _, blocked := queryParamBlocklist[strings.ToLower(name)]; blocked {
				q.Del(name)
			}
		}
		keys := make([]string, 0, len(q))
		for name := range q {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		var parts []string
		for _, name := range keys {
			vals := q[name]
			sort.Strings(vals)
			for _, v := range vals {
				parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(parts, "&")
	}

	return u.String()
}
