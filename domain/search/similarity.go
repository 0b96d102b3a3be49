package search

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b,
// without assuming either is unit length. Mismatched or empty vectors
// score 0 (SPEC_FULL.md §7: EmbeddingFailure degrades to score 0, never
// an error).
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, magA, magB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(magA) * math.Sqrt(magB))
}

// TopKSimilar ranks vectors by cosine similarity to query and returns the
// top k Results. Ties break by descending score then ascending item ID
// (SPEC_FULL.md §8, invariant 10).
func TopKSimilar(query []float64, vectors []Embedding, k int) []Result {
	if len(vectors) == 0 || k <= 0 {
		return []Result{}
	}

	matches := make([]Result, 0, len(vectors))
	for _, v := range vectors {
		matches = append(matches, NewResult(v.ItemID(), CosineSimilarity(query, v.Vector())))
	}
	sortResults(matches)

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}

// TopKSimilarFiltered behaves like TopKSimilar but only considers vectors
// whose item ID is in allowedIDs (an empty set means no filtering).
func TopKSimilarFiltered(query []float64, vectors []Embedding, k int, allowedIDs map[string]struct{}) []Result {
	if len(allowedIDs) == 0 {
		return TopKSimilar(query, vectors, k)
	}

	filtered := make([]Embedding, 0, len(vectors))
	for _, v := range vectors {
		if _, ok := allowedIDs[v.ItemID()]; ok {
			filtered = append(filtered, v)
		}
	}
	return TopKSimilar(query, filtered, k)
}

func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].ItemID() < results[j].ItemID()
	})
}
