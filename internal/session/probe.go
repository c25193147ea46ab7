package session

import "errors"

// DefaultMaxCaptureAttempts bounds how many capture misses a probe-driven
// step tolerates before giving up.
const DefaultMaxCaptureAttempts = 3

// ErrNoFaceFound is returned by a ProbeSource when the frame contained no
// detectable face. It is retryable; any other capture error is not.
var ErrNoFaceFound = errors.New("no face found")

// ProbeSource produces probe embeddings on demand. The camera and
// embedding-extraction pipeline behind it lives outside this core; from
// here it is a synchronous call that yields a vector or ErrNoFaceFound.
type ProbeSource interface {
	CaptureProbeEmbedding() ([]float64, error)
}

// CheckFaceFrom captures a probe from src, retrying up to maxAttempts
// capture misses, and feeds the first embedding to CheckFace. A capture
// error other than ErrNoFaceFound is returned without consuming the
// attempt; exhausting every capture returns ErrNoFaceFound with the state
// unchanged, so the caller may start over.
func (a *Attempt) CheckFaceFrom(src ProbeSource, maxAttempts int) (State, error) {
	probe, err := capture(src, maxAttempts)
	if err != nil {
		return a.state, err
	}
	return a.CheckFace(probe)
}

// IdentifyFaceFrom is IdentifyFace driven by a ProbeSource, with the same
// retry behavior as CheckFaceFrom.
func (a *Attempt) IdentifyFaceFrom(src ProbeSource, maxAttempts int) (State, error) {
	probe, err := capture(src, maxAttempts)
	if err != nil {
		return a.state, err
	}
	return a.IdentifyFace(probe)
}

func capture(src ProbeSource, maxAttempts int) ([]float64, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxCaptureAttempts
	}
	for i := 0; i < maxAttempts; i++ {
		probe, err := src.CaptureProbeEmbedding()
		if err == nil {
			return probe, nil
		}
		if !errors.Is(err, ErrNoFaceFound) {
			return nil, err
		}
	}
	return nil, ErrNoFaceFound
}
