package sigv2

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock pinned to the documented example date,
// Tue, 27 Mar 2007 19:36:42 +0000.
func fixedClock() func() time.Time {
	t := time.Date(2007, time.March, 27, 19, 36, 42, 0, time.UTC)
	return func() time.Time { return t }
}

func TestCanonicalStringDocumentedExample(t *testing.T) {
	req := NewRequest(http.MethodGet, "/johnsmith/photos/puppy.jpg")
	req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")

	got := CanonicalString(req, "", fixedClock())
	require.Equal(t, "GET\n\n\nTue, 27 Mar 2007 19:36:42 +0000\n/johnsmith/photos/puppy.jpg", got)
}

func TestCanonicalStringHeaderSelection(t *testing.T) {
	req := NewRequest(http.MethodGet, "/bucket/key")
	req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")
	req.Header.Set("X-Custom", "v")
	req.Header.Set("X-Amz-Meta-Foo", "v")

	got := CanonicalString(req, "", fixedClock())

	require.NotContains(t, got, "X-Custom")
	require.NotContains(t, got, "x-custom")
	require.Contains(t, got, "x-amz-meta-foo:v\n")
}

func TestCanonicalStringPlaceholders(t *testing.T) {
	// Content-MD5 and Content-Type always occupy a line, empty when absent.
	req := NewRequest(http.MethodGet, "/bucket/key")
	req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")

	got := CanonicalString(req, "", fixedClock())
	require.True(t, strings.HasPrefix(got, "GET\n\n\n"), "expected two empty placeholder lines, got %q", got)
}

func TestCanonicalStringHeaderValuesStripped(t *testing.T) {
	req := NewRequest(http.MethodPut, "/bucket/key")
	req.Header.Set("Date", "Tue, 27 Mar 2007 21:15:45 +0000")
	req.Header.Set("Content-Type", "  image/jpeg  ")

	got := CanonicalString(req, "", fixedClock())
	require.Equal(t, "PUT\n\nimage/jpeg\nTue, 27 Mar 2007 21:15:45 +0000\n/bucket/key", got)
}

func TestCanonicalStringInsertsDateWhenAbsent(t *testing.T) {
	req := NewRequest(http.MethodGet, "/bucket/key")

	got := CanonicalString(req, "", fixedClock())

	require.Equal(t, "Tue, 27 Mar 2007 19:36:42 GMT", req.Header.Get("Date"),
		"canonicalization must insert the clock's HTTP date into the descriptor")
	require.Contains(t, got, "Tue, 27 Mar 2007 19:36:42 GMT\n")
}

func TestCanonicalStringEmptyDateTreatedAsAbsent(t *testing.T) {
	req := NewRequest(http.MethodGet, "/bucket/key")
	req.Header.Set("Date", "   ")

	got := CanonicalString(req, "", fixedClock())
	require.Contains(t, got, "Tue, 27 Mar 2007 19:36:42 GMT\n")
}

func TestCanonicalStringAmzDateSupersedesDate(t *testing.T) {
	req := NewRequest(http.MethodPut, "/bucket/key")
	req.Header.Set("X-Amz-Date", "Tue, 27 Mar 2007 21:20:26 +0000")

	got := CanonicalString(req, "", fixedClock())

	require.Equal(t, "PUT\n\n\n\nx-amz-date:Tue, 27 Mar 2007 21:20:26 +0000\n/bucket/key", got)
	require.Empty(t, req.Header.Get("Date"),
		"no Date default may be inserted when x-amz-date is signed")
}

func TestCanonicalStringAmzDateBlanksDateLine(t *testing.T) {
	req := NewRequest(http.MethodPut, "/bucket/key")
	req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")
	req.Header.Set("X-Amz-Date", "Tue, 27 Mar 2007 21:20:26 +0000")

	got := CanonicalString(req, "", fixedClock())

	require.Equal(t, "PUT\n\n\n\nx-amz-date:Tue, 27 Mar 2007 21:20:26 +0000\n/bucket/key", got)
	require.NotContains(t, got, "19:36:42")
}

func TestCanonicalStringInsertsDefaultHost(t *testing.T) {
	req := NewRequest(http.MethodGet, "/bucket/key")
	req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")

	CanonicalString(req, "", fixedClock())
	require.Equal(t, DefaultHost, req.Header.Get("Host"))
}

func TestCanonicalStringVirtualHostPath(t *testing.T) {
	tests := []struct {
		name string
		host string
		path string
		want string
	}{
		{
			name: "default host collapses leading slash",
			host: "s3.amazonaws.com",
			path: "/johnsmith/photos/puppy.jpg",
			want: "/johnsmith/photos/puppy.jpg",
		},
		{
			name: "bucket virtual host prefixes path",
			host: "johnsmith.s3.amazonaws.com",
			path: "/photos/puppy.jpg",
			want: "/johnsmith/photos/puppy.jpg",
		},
		{
			name: "port is ignored",
			host: "johnsmith.s3.amazonaws.com:443",
			path: "/photos/puppy.jpg",
			want: "/johnsmith/photos/puppy.jpg",
		},
		{
			name: "host casing is ignored",
			host: "JohnSmith.S3.amazonaws.com",
			path: "/photos/puppy.jpg",
			want: "/johnsmith/photos/puppy.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(http.MethodGet, tt.path)
			req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")
			req.Header.Set("Host", tt.host)

			got := CanonicalString(req, "", fixedClock())
			lines := strings.Split(got, "\n")
			require.Equal(t, tt.want, lines[len(lines)-1])
		})
	}
}

func TestCanonicalStringSubResources(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "acl is significant", path: "/bucket/key?acl", want: "/bucket/key?acl"},
		{name: "torrent is significant", path: "/bucket/key?torrent", want: "/bucket/key?torrent"},
		{name: "logging is significant", path: "/bucket/key?logging", want: "/bucket/key?logging"},
		{name: "other parameters are dropped", path: "/bucket/key?versionId=1", want: "/bucket/key"},
		{name: "sub-resource value is dropped", path: "/bucket/key?acl=private", want: "/bucket/key?acl"},
		{name: "sub-resource survives mixed query", path: "/bucket/key?versionId=1&torrent=x", want: "/bucket/key?torrent"},
		{name: "prefix match is not enough", path: "/bucket/key?acl2=1", want: "/bucket/key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(http.MethodGet, tt.path)
			req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")

			got := CanonicalString(req, "", fixedClock())
			lines := strings.Split(got, "\n")
			require.Equal(t, tt.want, lines[len(lines)-1])
		})
	}
}

func TestCanonicalStringSortsAmzHeaders(t *testing.T) {
	req := NewRequest(http.MethodPut, "/bucket/key")
	req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")
	req.Header.Set("X-Amz-Meta-ReviewedBy", "joe@example.com")
	req.Header.Set("X-Amz-Acl", "public-read")

	got := CanonicalString(req, "", fixedClock())

	acl := strings.Index(got, "x-amz-acl:")
	meta := strings.Index(got, "x-amz-meta-reviewedby:")
	require.Greater(t, acl, -1)
	require.Greater(t, meta, -1)
	require.Less(t, acl, meta, "x-amz headers must be sorted lexicographically")
}

func TestCanonicalStringExpiryOverrideReplacesDate(t *testing.T) {
	req := NewRequest(http.MethodGet, "/bucket/key")
	req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")

	got := CanonicalString(req, "1175139620", fixedClock())

	require.Equal(t, "GET\n\n\n1175139620\n/bucket/key", got)
	require.NotContains(t, got, "Mar 2007")
}

func TestCanonicalStringNoTrailingNewline(t *testing.T) {
	req := NewRequest(http.MethodGet, "/bucket/key")
	req.Header.Set("Date", "Tue, 27 Mar 2007 19:36:42 +0000")

	got := CanonicalString(req, "", fixedClock())
	require.False(t, strings.HasSuffix(got, "\n"))
}
