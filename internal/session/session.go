// Package session drives single authentication attempts through a small
// state machine combining password and face verification. An attempt is
// short-lived: a rejection is terminal and a retry is a brand-new attempt.
package session

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finnova/finnova/internal/face"
)

// State is the position of an attempt in its lifecycle.
type State string

const (
	// StateStart is the initial state of every attempt.
	StateStart State = "start"
	// StateCredentialsChecked means the password step succeeded.
	StateCredentialsChecked State = "credentials_checked"
	// StateBiometricChecked means a face comparison has been performed.
	StateBiometricChecked State = "biometric_checked"
	// StateAuthenticated is the terminal success state.
	StateAuthenticated State = "authenticated"
	// StateRejected is the terminal failure state.
	StateRejected State = "rejected"
)

// Reason explains a terminal rejection. Rejections are results the caller
// branches on, not errors.
type Reason string

const (
	// ReasonInvalidCredentials: username unknown or password mismatch.
	ReasonInvalidCredentials Reason = "invalid_credentials"
	// ReasonNoFaceEnrolled: a face step was requested for an account
	// without a stored encoding.
	ReasonNoFaceEnrolled Reason = "no_face_enrolled"
	// ReasonFaceMismatch: no enrolled face was close enough to the probe.
	ReasonFaceMismatch Reason = "face_mismatch"
	// ReasonDataInconsistency: the probe matched an orphaned template
	// whose username has no account record.
	ReasonDataInconsistency Reason = "data_inconsistency"
)

// ErrInvalidTransition is returned when a step is driven from a state that
// does not permit it, including any step after a terminal state.
var ErrInvalidTransition = errors.New("invalid authentication state transition")

// ErrInvalidProbe is returned when a biometric step receives an embedding
// that is not exactly 128 numbers. The attempt's state is unchanged: a
// malformed probe is a caller error, never a comparison result.
var ErrInvalidProbe = errors.New("probe embedding has invalid length")

// Accounts is the registry view an attempt needs.
type Accounts interface {
	// Exists reports whether an account with the given username exists.
	Exists(username string) bool
	// VerifyPassword reports whether password matches the stored digest.
	VerifyPassword(username, password string) bool
	// FaceEncodingOf returns the stored encoding for username, nil if none.
	FaceEncodingOf(username string) []float64
	// EnrolledTemplates returns every enrolled encoding with its username,
	// positionally matched.
	EnrolledTemplates() (encodings [][]float64, usernames []string)
}

// Attempt is one authentication attempt. It is not safe for concurrent use
// and not reusable after reaching a terminal state.
type Attempt struct {
	// ID correlates the attempt's log entries.
	ID string

	accounts Accounts
	matcher  *face.Matcher
	log      *zap.Logger

	state    State
	username string
	reason   Reason
}

// NewAttempt creates an attempt in StateStart.
func NewAttempt(accounts Accounts, matcher *face.Matcher, log *zap.Logger) *Attempt {
	return &Attempt{
		ID:       uuid.NewString(),
		accounts: accounts,
		matcher:  matcher,
		log:      log,
		state:    StateStart,
	}
}

// State returns the current state.
func (a *Attempt) State() State { return a.state }

// Username returns the resolved username. It is set once the password step
// succeeds, or once a face-only identification succeeds.
func (a *Attempt) Username() string { return a.username }

// Reason returns the rejection reason, empty unless StateRejected.
func (a *Attempt) Reason() Reason { return a.reason }

// CheckPassword performs the credential step. On mismatch the attempt is
// terminally rejected with ReasonInvalidCredentials.
func (a *Attempt) CheckPassword(username, password string) (State, error) {
	if a.state != StateStart {
		return a.state, ErrInvalidTransition
	}
	if !a.accounts.VerifyPassword(username, password) {
		return a.reject(ReasonInvalidCredentials), nil
	}
	a.username = username
	a.state = StateCredentialsChecked
	return a.state, nil
}

// CheckFace performs the biometric step after a successful password step.
// The probe is compared one-to-one against the stored encoding of the
// already-resolved username, under the authentication tolerance.
func (a *Attempt) CheckFace(probe []float64) (State, error) {
	if a.state != StateCredentialsChecked {
		return a.state, ErrInvalidTransition
	}
	if !face.ValidEncoding(probe) {
		return a.state, ErrInvalidProbe
	}
	stored := a.accounts.FaceEncodingOf(a.username)
	if stored == nil {
		return a.reject(ReasonNoFaceEnrolled), nil
	}
	a.state = StateBiometricChecked
	if !a.matcher.Accepts(face.Distance(probe, stored)) {
		return a.reject(ReasonFaceMismatch), nil
	}
	return a.authenticate(), nil
}

// IdentifyFace resolves a probe against every enrolled template without a
// prior username (pure biometric login). A best match under the
// authentication tolerance only authenticates when the matched username
// still has an account record; an orphaned template is rejected with
// ReasonDataInconsistency, never treated as an identity.
func (a *Attempt) IdentifyFace(probe []float64) (State, error) {
	if a.state != StateStart {
		return a.state, ErrInvalidTransition
	}
	if !face.ValidEncoding(probe) {
		return a.state, ErrInvalidProbe
	}
	encodings, usernames := a.accounts.EnrolledTemplates()
	idx, dist, ok := face.FindBestMatch(probe, encodings)
	if !ok || !a.matcher.Accepts(dist) {
		return a.reject(ReasonFaceMismatch), nil
	}
	a.state = StateBiometricChecked
	matched := usernames[idx]
	if !a.accounts.Exists(matched) {
		a.log.Warn("face matched a template with no account record",
			zap.String("attempt", a.ID),
			zap.String("username", matched))
		return a.reject(ReasonDataInconsistency), nil
	}
	a.username = matched
	return a.authenticate(), nil
}

// Complete finishes an attempt after a successful password step without a
// biometric step. Whether a second factor is required for face-enrolled
// accounts is the caller's policy, not the state machine's.
func (a *Attempt) Complete() (State, error) {
	if a.state != StateCredentialsChecked {
		return a.state, ErrInvalidTransition
	}
	return a.authenticate(), nil
}

func (a *Attempt) authenticate() State {
	a.state = StateAuthenticated
	a.log.Info("attempt authenticated",
		zap.String("attempt", a.ID),
		zap.String("username", a.username))
	return a.state
}

func (a *Attempt) reject(reason Reason) State {
	a.state = StateRejected
	a.reason = reason
	a.log.Info("attempt rejected",
		zap.String("attempt", a.ID),
		zap.String("reason", string(reason)))
	return a.state
}
