package remote

import (
	"net/url"
	"strings"
)

// PublicObjectURL builds "<base>/object/public/<bucket>/<path>" with each
// path segment escaped.
func PublicObjectURL(base, bucket, path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/object/public/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
