package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/finnova/finnova/internal/models"
)

// FaceStore persists the face-template document as a single JSON file with
// the same atomic-replace guarantees as DocumentStore. Saves of this file
// do not notify observers; only account-document saves do.
type FaceStore struct {
	path string
	log  *zap.Logger

	mu sync.Mutex
}

// NewFaceStore creates a store backed by the file at path.
func NewFaceStore(path string, log *zap.Logger) *FaceStore {
	return &FaceStore{path: path, log: log}
}

// Load reads the stored templates. A missing file yields an empty
// collection which is persisted immediately. A file whose encodings and
// usernames sequences are missing, malformed, or of unequal length is
// reset to empty: the positional correspondence between the two sequences
// is the one invariant this store refuses to guess around.
func (s *FaceStore) Load() *models.FaceTemplates {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		templates := models.NewFaceTemplates()
		if !s.saveLocked(templates) {
			s.log.Warn("could not persist default face templates", zap.String("path", s.path))
		}
		return templates
	}
	if err != nil {
		s.log.Error("face template file unreadable, using defaults", zap.String("path", s.path), zap.Error(err))
		return models.NewFaceTemplates()
	}

	var templates models.FaceTemplates
	if err := json.Unmarshal(raw, &templates); err != nil {
		s.log.Warn("face template file malformed, resetting", zap.String("path", s.path), zap.Error(err))
		return models.NewFaceTemplates()
	}
	if templates.Encodings == nil || templates.Usernames == nil ||
		len(templates.Encodings) != len(templates.Usernames) {
		s.log.Warn("face template file has invalid structure, resetting",
			zap.Int("encodings", len(templates.Encodings)),
			zap.Int("usernames", len(templates.Usernames)))
		return models.NewFaceTemplates()
	}
	return &templates
}

// Save atomically writes the templates, returning false on any I/O failure
// and leaving the previous on-disk state intact.
func (s *FaceStore) Save(templates *models.FaceTemplates) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(templates)
}

func (s *FaceStore) saveLocked(templates *models.FaceTemplates) bool {
	buf, err := json.MarshalIndent(templates, "", "    ")
	if err != nil {
		s.log.Error("face templates marshal failed", zap.Error(err))
		return false
	}
	return writeFileAtomic(s.path, buf, s.log)
}
