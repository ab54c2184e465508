package urlx

import (
	"html"
	"regexp"
	"strings"
)

// Pure URL transforms for archived tweet captures. Archive indexes return
// URL-encoded, frequently mangled originals: injected query fragments after
// /status/, nested capture paths, runs of slashes after the scheme, stray
// semicolons. Each function here handles one observed malformation.

var (
	// Three quoting conventions under which a second URL gets embedded
	// after /status/: literal double quotes, &quot; and &quot%3B.
	statusFragmentRe = regexp.MustCompile(`/status/((?:"(.*?)"|&quot;([^&]*)|&quot%3B([^&]*)))`)

	statusIDRe = regexp.MustCompile(`/status/(\d+)`)

	canonicalUserRe = regexp.MustCompile(`^https://twitter\.com/([^/]+)/status/\d+`)
	canonicalIDRe   = regexp.MustCompile(`https://twitter\.com/\w+/status/(\d+)`)

	schemeSlashesRe = regexp.MustCompile(`(http:|https:)(/{2,})`)
)

// ExtractStatusFragment returns the inner URL when the segment after
// /status/ is a quoted, encoded second URL (reply, link and twimg captures
// all surface this way). Anything else passes through unchanged.
func ExtractStatusFragment(rawURL string) string {
	m := statusFragmentRe.FindStringSubmatch(rawURL)
	if m == nil {
		return rawURL
	}
	inner := ""
	switch {
	case m[2] != "":
		inner = m[2]
	case m[3] != "":
		inner = m[3]
	case m[4] != "":
		inner = m[4]
	}
	return html.UnescapeString(inner)
}

// NormalizeToUsername rewrites a URL to the canonical
// https://twitter.com/<username>/status/<id> form when it carries a status
// ID and mentions the target username. The username match is
// case-insensitive; the ID is taken from the original-case string. When
// identity cannot be established the URL is returned as is.
func NormalizeToUsername(rawURL, username string) string {
	m := statusIDRe.FindStringSubmatch(rawURL)
	if m != nil && strings.Contains(strings.ToLower(rawURL), strings.ToLower(username)) {
		return "https://twitter.com/" + username + "/status/" + m[1]
	}
	return rawURL
}

// StripExtraPathSegments collapses a canonical-shaped URL down to exactly
// https://twitter.com/<user>/status/<id>, discarding trailing path noise
// (/photo/1, /retweets, injected query tails). Non-canonical URLs pass
// through unchanged.
func StripExtraPathSegments(rawURL string) string {
	mu := canonicalUserRe.FindStringSubmatch(rawURL)
	mi := canonicalIDRe.FindStringSubmatch(rawURL)
	if mu == nil || mi == nil {
		return rawURL
	}
	return "https://twitter.com/" + mu[1] + "/status/" + mi[1]
}

// DoubleStatus reports a nested-capture artifact: the archive's own URL
// contains /status/ twice while the extracted original has no twitter.com
// host. Such candidates must be re-rooted under https://twitter.com.
func DoubleStatus(archiveURL, originalURL string) bool {
	return strings.Count(archiveURL, "/status/") == 2 &&
		!strings.Contains(originalURL, "twitter.com")
}

// IsSingleStatusURL reports whether the URL contains exactly one /status/
// segment, the gate for treating it as embed-fetchable.
func IsSingleStatusURL(rawURL string) bool {
	return strings.Count(rawURL, "/status/") == 1
}

// EscapeSemicolons replaces every literal semicolon with %3B. Applied after
// all pattern matching so the matching steps see raw semicolons.
func EscapeSemicolons(s string) string {
	return strings.ReplaceAll(s, ";", "%3B")
}

// RepairScheme collapses runs of two or more slashes directly after http:
// or https: down to exactly two. Display-layer repair, applied last.
func RepairScheme(rawURL string) string {
	return schemeSlashesRe.ReplaceAllString(rawURL, "${1}//")
}

// Unescape decodes %XX sequences, leaving malformed escapes untouched.
// Archive originals routinely carry stray percent signs, so the strict
// net/url decoders are unusable here.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
