package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// keySegment matches "name(key)" path segments, key optionally written as
// 'key' or id=key.
var keySegment = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\((?:[A-Za-z_]+=)?'?([^()/']*)'?\)`)

// RewriteKeySegments turns OData key segments into path segments, so
// "/odata/v2/users(5)/addresses" routes as "/odata/v2/users/5/addresses".
func RewriteKeySegments(path string) string {
	return keySegment.ReplaceAllString(path, "$1/$2")
}

// ODataKeys rewrites key segments of /odata requests before gin routes them.
func ODataKeys(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/odata") && strings.Contains(r.URL.Path, "(") {
			r2 := r.Clone(r.Context())
			r2.URL.Path = RewriteKeySegments(r.URL.Path)
			r2.URL.RawPath = ""
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}
