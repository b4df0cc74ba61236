package matching

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// normalize lowercases and collapses interior whitespace so similarity
// comparisons ignore formatting noise.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// normalizeKey uppercases and strips separators from identifying keys
// (policy numbers, invoice numbers) before exact comparison.
func normalizeKey(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r == '-' || r == ' ' || r == '_' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// similarity returns a [0, 1] string similarity between the normalized
// forms of a and b.
func similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, metrics.NewJaroWinkler())
}
