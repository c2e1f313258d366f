package ranking

import "math"

const (
	contentScaleBase = 10.0
	contentScaleSpan = 90.0
)

// ContentScale resolves the bounded similarity range from the user's
// dynamic-similarity strength: strength 0 gives ±10, strength 1 gives ±100.
func ContentScale(strength float64) float64 {
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	return contentScaleBase + strength*contentScaleSpan
}

// ContentScore compares a candidate embedding against the user's liked and
// disliked embedding sets. The boost is the mean cosine similarity to the
// liked set scaled by the strength range, the penalty likewise against the
// disliked set; when both sets exist the two are averaged by count. A nil
// candidate embedding contributes 0.
func ContentScore(candidate []float64, liked, disliked [][]float64, strength float64) float64 {
	if len(candidate) == 0 {
		return 0
	}

	scale := ContentScale(strength)
	likedCount := len(liked)
	dislikedCount := len(disliked)

	if likedCount == 0 && dislikedCount == 0 {
		return 0
	}

	var boost, penalty float64
	if likedCount > 0 {
		boost = meanCosine(candidate, liked) * scale
	}
	if dislikedCount > 0 {
		penalty = meanCosine(candidate, disliked) * scale
	}

	switch {
	case likedCount == 0:
		return round2(-penalty)
	case dislikedCount == 0:
		return round2(boost)
	default:
		total := float64(likedCount + dislikedCount)
		return round2((boost*float64(likedCount) - penalty*float64(dislikedCount)) / total)
	}
}

func meanCosine(candidate []float64, set [][]float64) float64 {
	if len(set) == 0 {
		return 0
	}
	var sum float64
	for _, vec := range set {
		sum += cosine(candidate, vec)
	}
	return sum / float64(len(set))
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
