package domain

// UserAlgorithmSettings holds the per-user ranking tunables. A user may keep
// several named profiles on the settings side; exactly one is active and that
// is what the ranking core receives.
type UserAlgorithmSettings struct {
	RecencyDecayHours           float64
	SourceDiversityMultiplier   float64
	IncludeMetadataInEmbeddings bool
	DynamicSimilarityStrength   float64
	ExplorationFactor           float64
}

// DefaultSettings returns the documented defaults used whenever no settings
// row exists for a user.
func DefaultSettings() UserAlgorithmSettings {
	return UserAlgorithmSettings{
		RecencyDecayHours:         24,
		SourceDiversityMultiplier: 0.5,
		DynamicSimilarityStrength: 0.5,
		ExplorationFactor:         0.1,
	}
}

// Clamped returns a copy with every field forced into its valid range.
// Upstream validates writes, but the engine never trusts that.
func (s UserAlgorithmSettings) Clamped() UserAlgorithmSettings {
	out := s
	if out.RecencyDecayHours <= 0 {
		out.RecencyDecayHours = DefaultSettings().RecencyDecayHours
	}
	out.SourceDiversityMultiplier = clampRange(out.SourceDiversityMultiplier, 0, 1)
	out.DynamicSimilarityStrength = clampRange(out.DynamicSimilarityStrength, 0, 1)
	out.ExplorationFactor = clampRange(out.ExplorationFactor, 0, 0.5)
	return out
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
