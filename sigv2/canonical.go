package sigv2

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

// CanonicalString serializes a request into the exact string the signature is
// computed over:
//
//	METHOD\n
//	content-md5 value\n
//	content-type value\n
//	date value (or the expiry override)\n
//	x-amz-* headers as "name:value\n", sorted with the lines above by name
//	canonical path (no trailing newline)
//
// Only Content-MD5, Content-Type, Date, and headers whose lowercased name
// starts with "x-amz-" participate. Content-MD5 and Content-Type are
// serialized as empty values when absent. A non-empty expiresOverride
// replaces the date value, which is how presigned URLs sign their expiration
// timestamp in place of the request date.
//
// An x-amz-date header supersedes Date: the date value is serialized empty
// (the x-amz-date header itself still appears in the sorted block) and no
// Date default is inserted.
//
// Missing Date and Host headers are inserted into req.Header: Date as the
// current HTTP date per the now clock, Host as DefaultHost. This is the one
// mutation this package performs on caller data.
func CanonicalString(req *Request, expiresOverride string, now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	h := req.header()

	if strings.TrimSpace(h.Get("Date")) == "" && strings.TrimSpace(h.Get("X-Amz-Date")) == "" {
		h.Set("Date", now().UTC().Format(http.TimeFormat))
	}
	if strings.TrimSpace(h.Get("Host")) == "" {
		h.Set("Host", DefaultHost)
	}

	selected := selectHeaders(h)
	if _, ok := selected["x-amz-date"]; ok {
		selected["date"] = ""
	}
	if expiresOverride != "" {
		selected["date"] = expiresOverride
	}

	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteString("\n")
	for _, name := range names {
		if strings.HasPrefix(name, AmzHeaderPrefix) {
			b.WriteString(name)
			b.WriteString(":")
		}
		b.WriteString(selected[name])
		b.WriteString("\n")
	}
	b.WriteString(canonicalPath(req))

	return b.String()
}

// selectHeaders picks the signed headers, keyed by lowercased name with
// whitespace-stripped values. Multi-valued headers are joined with commas.
func selectHeaders(h http.Header) map[string]string {
	selected := map[string]string{
		"content-md5":  "",
		"content-type": "",
	}

	for name, values := range h {
		lower := strings.ToLower(name)
		if !interestingHeaders[lower] && !strings.HasPrefix(lower, AmzHeaderPrefix) {
			continue
		}

		trimmed := make([]string, 0, len(values))
		for _, v := range values {
			trimmed = append(trimmed, strings.TrimSpace(v))
		}
		selected[lower] = strings.Join(trimmed, ",")
	}

	return selected
}

// canonicalPath derives the signed path line: the virtual-host bucket (the
// Host header with the default suffix and any trailing dot stripped) joined
// with the query-less request path, plus the significant sub-resource flag
// when one is present in the query.
func canonicalPath(req *Request) string {
	host := strings.ToLower(strings.TrimSpace(req.header().Get("Host")))
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimSuffix(host, DefaultHost)
	host = strings.TrimSuffix(host, ".")

	path, query, _ := strings.Cut(req.Path, "?")

	line := "/" + host + path
	if strings.HasPrefix(line, "//") {
		line = line[1:]
	}

	if sub := significantSubResource(query); sub != "" {
		line += "?" + sub
	}

	return line
}

// significantSubResource returns the first sub-resource parameter name found
// in the raw query, or "" when none is present. Values and all other
// parameters are insignificant to signing.
func significantSubResource(query string) string {
	if query == "" {
		return ""
	}
	for _, param := range strings.Split(query, "&") {
		name, _, _ := strings.Cut(param, "=")
		for _, sub := range significantParams {
			if name == sub {
				return sub
			}
		}
	}
	return ""
}
