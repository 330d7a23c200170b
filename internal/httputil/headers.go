package httputil

import (
	"net/http"

	"github.com/samber/lo"
)

// MergeHeaders combines header maps left to right; later maps win. Names are
// canonicalized first so "referer" and "Referer" collapse into one entry.
func MergeHeaders(layers ...map[string]string) map[string]string {
	canonical := lo.Map(layers, func(layer map[string]string, _ int) map[string]string {
		return lo.MapKeys(layer, func(_ string, k string) string {
			return http.CanonicalHeaderKey(k)
		})
	})
	return lo.Assign(canonical...)
}
