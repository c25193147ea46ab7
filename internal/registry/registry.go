// Package registry is the single source of truth for which accounts exist
// and with what authentication capabilities. It owns the in-memory copies
// of the account document and the face-template document for the lifetime
// of the process and is the sole writer of both.
package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finnova/finnova/internal/credential"
	"github.com/finnova/finnova/internal/face"
	"github.com/finnova/finnova/internal/models"
)

// DocumentPersister is the slice of the account store the registry uses.
type DocumentPersister interface {
	// Load reads the current account document, repairing structural damage.
	Load() *models.Document
	// Save atomically persists the document; false means the previous
	// on-disk state is intact.
	Save(doc *models.Document) bool
}

// TemplatePersister is the slice of the face store the registry uses.
type TemplatePersister interface {
	// Load reads the current face templates, resetting invalid structure.
	Load() *models.FaceTemplates
	// Save atomically persists the templates; false means the previous
	// on-disk state is intact.
	Save(templates *models.FaceTemplates) bool
}

// Registry orchestrates account creation, lookup, and authentication-method
// introspection. All mutations run under one mutex: the read-mutate-rewrite
// sequence against the stores is not safe under concurrent writers.
type Registry struct {
	data    DocumentPersister
	faces   TemplatePersister
	hasher  *credential.Hasher
	matcher *face.Matcher
	log     *zap.Logger

	mu        sync.Mutex
	doc       *models.Document
	templates *models.FaceTemplates
}

// New loads both documents and returns a registry owning the in-memory
// authoritative copies. Construct exactly one per process and pass it to
// every component that needs it.
func New(data DocumentPersister, faces TemplatePersister, hasher *credential.Hasher, matcher *face.Matcher, log *zap.Logger) *Registry {
	r := &Registry{
		data:    data,
		faces:   faces,
		hasher:  hasher,
		matcher: matcher,
		log:     log,
	}
	r.doc = data.Load()
	r.templates = faces.Load()
	log.Info("registry loaded",
		zap.Int("users", len(r.doc.Users)),
		zap.Int("face_templates", r.templates.Len()))
	if n := r.CheckIntegrity(); n > 0 {
		log.Warn("orphaned face templates present at startup", zap.Int("count", n))
	}
	return r
}

// Exists reports whether an account with the given username exists.
func (r *Registry) Exists(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userLocked(username) != nil
}

// Register creates a new account. password and encoding are each optional,
// but at least one must be supplied. When an encoding is supplied it is
// validated, checked against every enrolled face under the duplicate
// tolerance, and persisted to the face-template store in addition to the
// account document.
//
// The two stores cannot be written in one transaction, so Register commits
// them in two phases and undoes the committed side when the other fails:
// a failed registration is never visible to subsequent Exists or
// AuthMethods calls.
func (r *Registry) Register(username, password string, encoding []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validation happens before any persistence attempt.
	if username == "" {
		return ErrEmptyUsername
	}
	if password == "" && encoding == nil {
		return ErrNoAuthMethod
	}
	if encoding != nil && !face.ValidEncoding(encoding) {
		return ErrInvalidEmbedding
	}
	if r.userLocked(username) != nil {
		return ErrDuplicateUsername
	}
	if encoding != nil {
		if _, dist, ok := face.FindBestMatch(encoding, r.templates.Encodings); ok && r.matcher.IsDuplicate(dist) {
			return ErrDuplicateFace
		}
	}

	rec := models.UserRecord{
		Username:         username,
		RegistrationDate: time.Now(),
	}
	if password != "" {
		digest, err := r.hasher.Hash(password)
		if err != nil {
			return err
		}
		rec.PasswordHash = digest
	}
	if encoding != nil {
		rec.FaceEncoding = append([]float64(nil), encoding...)
	}
	rec.AuthMethods = rec.DeriveAuthMethods()

	r.doc.Users = append(r.doc.Users, rec)

	// Phase 1: the face-template store.
	if encoding != nil {
		r.templates.Append(username, rec.FaceEncoding)
		if !r.faces.Save(r.templates) {
			r.templates.Remove(username)
			r.doc.Users = r.doc.Users[:len(r.doc.Users)-1]
			r.log.Error("face template save failed, registration rolled back",
				zap.String("username", username))
			return ErrPersistence
		}
	}

	// Phase 2: the account document. On failure, compensate for phase 1.
	if !r.data.Save(r.doc) {
		if encoding != nil {
			r.templates.Remove(username)
			if !r.faces.Save(r.templates) {
				r.log.Error("compensating face template rollback failed",
					zap.String("username", username))
			}
		}
		r.doc.Users = r.doc.Users[:len(r.doc.Users)-1]
		r.log.Error("account save failed, registration rolled back",
			zap.String("username", username))
		return ErrPersistence
	}

	r.log.Info("user registered",
		zap.String("username", username),
		zap.Any("methods", rec.AuthMethods))
	return nil
}

// AuthMethods returns the authentication methods available to username,
// derived from the stored record. It is empty for unknown users.
func (r *Registry) AuthMethods(username string) []models.AuthMethod {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.userLocked(username)
	if u == nil {
		return nil
	}
	return u.DeriveAuthMethods()
}

// FaceEncodingOf returns a copy of the stored face encoding for username,
// or nil if the user does not exist or has no face enrolled.
func (r *Registry) FaceEncodingOf(username string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.userLocked(username)
	if u == nil || len(u.FaceEncoding) == 0 {
		return nil
	}
	return append([]float64(nil), u.FaceEncoding...)
}

// VerifyPassword reports whether password matches the digest stored for
// username. Unknown users and face-only accounts never verify.
func (r *Registry) VerifyPassword(username, password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.userLocked(username)
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return r.hasher.Compare(u.PasswordHash, password)
}

// UpdatePassword replaces the stored password digest for username. The
// registration date and face enrollment are untouched. On a failed save the
// previous digest is restored and ErrPersistence returned.
func (r *Registry) UpdatePassword(username, newPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.userLocked(username)
	if u == nil {
		return ErrUnknownUser
	}
	digest, err := r.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	previous := u.PasswordHash
	u.PasswordHash = digest
	u.AuthMethods = u.DeriveAuthMethods()
	if !r.data.Save(r.doc) {
		u.PasswordHash = previous
		u.AuthMethods = u.DeriveAuthMethods()
		return ErrPersistence
	}
	r.log.Info("password updated", zap.String("username", username))
	return nil
}

// EnrolledTemplates returns a snapshot of every enrolled face template.
// The two slices share an index: encodings[i] belongs to usernames[i].
func (r *Registry) EnrolledTemplates() (encodings [][]float64, usernames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	encodings = make([][]float64, len(r.templates.Encodings))
	for i, enc := range r.templates.Encodings {
		encodings[i] = append([]float64(nil), enc...)
	}
	usernames = append([]string(nil), r.templates.Usernames...)
	return encodings, usernames
}

// userLocked returns the record for username or nil. Callers hold r.mu.
func (r *Registry) userLocked(username string) *models.UserRecord {
	for i := range r.doc.Users {
		if r.doc.Users[i].Username == username {
			return &r.doc.Users[i]
		}
	}
	return nil
}
