package domain

// DefaultWeight applies whenever a user has no stored weight for a key.
const DefaultWeight = 1.0

// WeightSet is a read-only snapshot of one user's interest weights.
type WeightSet struct {
	Categories map[string]float64
	Sources    map[string]float64
}

// NewWeightSet builds an empty snapshot with allocated maps.
func NewWeightSet() WeightSet {
	return WeightSet{
		Categories: map[string]float64{},
		Sources:    map[string]float64{},
	}
}

// WeightSetFrom folds stored rows into a snapshot.
func WeightSetFrom(rows []InterestWeight) WeightSet {
	set := NewWeightSet()
	for _, row := range rows {
		switch row.Dimension {
		case DimensionCategory:
			set.Categories[row.Key] = row.Weight
		case DimensionSource:
			set.Sources[row.Key] = row.Weight
		}
	}
	return set
}

// Category returns the category multiplier, defaulting to 1.0.
func (w WeightSet) Category(id string) float64 {
	if v, ok := w.Categories[id]; ok {
		return v
	}
	return DefaultWeight
}

// Source returns the source multiplier, defaulting to 1.0.
func (w WeightSet) Source(id string) float64 {
	if v, ok := w.Sources[id]; ok {
		return v
	}
	return DefaultWeight
}

// Clone copies the snapshot so updates never alias the original maps.
func (w WeightSet) Clone() WeightSet {
	out := WeightSet{
		Categories: make(map[string]float64, len(w.Categories)),
		Sources:    make(map[string]float64, len(w.Sources)),
	}
	for k, v := range w.Categories {
		out.Categories[k] = v
	}
	for k, v := range w.Sources {
		out.Sources[k] = v
	}
	return out
}
