package dedup

import "github.com/agext/levenshtein"

// Similarity is the normalized Levenshtein similarity in [0,1]; symmetric.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return levenshtein.Similarity(a, b, nil)
}
