// Package face implements nearest-neighbor matching over face embeddings.
// Embeddings are produced by an external extraction pipeline; this package
// only decides whether two of them belong to the same person.
package face

import "math"

// EncodingLength is the dimension every embedding must have.
const EncodingLength = 128

// Hand-tuned defaults carried over from the original deployment. Duplicate
// detection is deliberately stricter than login acceptance.
const (
	// DefaultDuplicateTolerance rejects enrollment of a face this close to
	// an already-enrolled one.
	DefaultDuplicateTolerance = 0.35
	// DefaultMatchTolerance accepts a login probe this close to the stored
	// encoding.
	DefaultMatchTolerance = 0.4
)

// ValidEncoding reports whether enc has exactly EncodingLength numbers.
func ValidEncoding(enc []float64) bool {
	return len(enc) == EncodingLength
}

// Distance returns the Euclidean distance between two embeddings.
// Smaller means more similar. Embeddings of unequal length are
// incomparable and yield +Inf, which no tolerance accepts.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// FindBestMatch returns the index and distance of the enrolled embedding
// closest to probe. Enrolled embeddings whose length differs from the
// probe's are skipped as incomparable. ok is false when nothing is
// comparable; that is a "no match", not an error.
func FindBestMatch(probe []float64, enrolled [][]float64) (index int, distance float64, ok bool) {
	for i, enc := range enrolled {
		d := Distance(probe, enc)
		if math.IsInf(d, 1) {
			continue
		}
		if !ok || d < distance {
			index, distance, ok = i, d, true
		}
	}
	return index, distance, ok
}

// IsMatch reports whether distance is acceptable under tolerance.
// A distance exactly equal to the tolerance is rejected.
func IsMatch(distance, tolerance float64) bool {
	return distance < tolerance
}

// Matcher bundles the two tolerances used in different contexts.
type Matcher struct {
	duplicateTolerance float64
	matchTolerance     float64
}

// NewMatcher creates a Matcher; non-positive tolerances fall back to the
// package defaults.
func NewMatcher(duplicateTolerance, matchTolerance float64) *Matcher {
	if duplicateTolerance <= 0 {
		duplicateTolerance = DefaultDuplicateTolerance
	}
	if matchTolerance <= 0 {
		matchTolerance = DefaultMatchTolerance
	}
	return &Matcher{duplicateTolerance: duplicateTolerance, matchTolerance: matchTolerance}
}

// IsDuplicate reports whether a candidate enrollment at this distance from
// an existing encoding must be rejected as already registered.
func (m *Matcher) IsDuplicate(distance float64) bool {
	return IsMatch(distance, m.duplicateTolerance)
}

// Accepts reports whether a login probe at this distance from the stored
// encoding authenticates.
func (m *Matcher) Accepts(distance float64) bool {
	return IsMatch(distance, m.matchTolerance)
}
