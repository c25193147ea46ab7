// Package store provides durable, crash-safe storage for the account
// document and the face-template document. Every save writes a side file
// and atomically renames it over the primary file, so a concurrent load
// observes either the complete old state or the complete new state.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/finnova/finnova/internal/models"
)

// Observer is notified after every successful save of the account document.
// Observers are called on the saver's goroutine; any event-loop marshaling
// is the observer's own business. The callback runs outside the store's
// lock but the caller that triggered the save (the registry) still holds
// its own lock, so observers must not call back into the registry.
type Observer interface {
	DocumentSaved()
}

// DocumentStore persists the account document as a single JSON file.
// One instance per process; all load/save calls are serialized.
type DocumentStore struct {
	path string
	log  *zap.Logger

	mu        sync.Mutex
	observers []Observer
}

// NewDocumentStore creates a store backed by the file at path.
// Nothing is read until the first Load.
func NewDocumentStore(path string, log *zap.Logger) *DocumentStore {
	return &DocumentStore{path: path, log: log}
}

// Load reads the current on-disk document. A missing file yields a default
// document which is persisted immediately. Structurally invalid top-level
// fields are repaired by substituting empty defaults; valid fields,
// including the opaque finance payloads, are preserved as-is.
func (s *DocumentStore) Load() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := models.NewDocument()
		if !s.saveLocked(doc) {
			s.log.Warn("could not persist default account document", zap.String("path", s.path))
		}
		return doc
	}
	if err != nil {
		s.log.Error("account document unreadable, using defaults", zap.String("path", s.path), zap.Error(err))
		return models.NewDocument()
	}
	return s.repair(raw)
}

// Save atomically writes the document and notifies observers exactly once
// on success. It returns false on any I/O failure, in which case the
// previous on-disk state is intact and no observer is notified.
func (s *DocumentStore) Save(doc *models.Document) bool {
	s.mu.Lock()
	ok := s.saveLocked(doc)
	var notify []Observer
	if ok {
		notify = append(notify, s.observers...)
	}
	s.mu.Unlock()

	// Notify outside the lock: observers may call back into Load.
	for _, o := range notify {
		o.DocumentSaved()
	}
	return ok
}

func (s *DocumentStore) saveLocked(doc *models.Document) bool {
	buf, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		s.log.Error("account document marshal failed", zap.Error(err))
		return false
	}
	return writeFileAtomic(s.path, buf, s.log)
}

// RegisterObserver adds o to the notification list. Registering the same
// observer twice is a no-op.
func (s *DocumentStore) RegisterObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.observers {
		if existing == o {
			return
		}
	}
	s.observers = append(s.observers, o)
}

// UnregisterObserver removes o from the notification list.
func (s *DocumentStore) UnregisterObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.observers {
		if existing == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// repair validates the top-level structure of a stored document and resets
// any missing or wrongly-typed field to its empty default. This mirrors the
// self-healing policy of the original data file: never fail a load over a
// corrupt field, never touch the fields that are still valid.
func (s *DocumentStore) repair(raw []byte) *models.Document {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		s.log.Warn("account document is not a JSON object, resetting", zap.String("path", s.path), zap.Error(err))
		return models.NewDocument()
	}

	doc := models.NewDocument()
	doc.Income = s.arrayField(top, "income", doc.Income)
	doc.Expenses = s.arrayField(top, "expenses", doc.Expenses)
	doc.Categories = s.arrayField(top, "categories", doc.Categories)
	doc.Goals = s.arrayField(top, "goals", doc.Goals)
	doc.Budget = s.objectField(top, "budget", doc.Budget)

	if usersRaw, ok := top["users"]; ok {
		if err := json.Unmarshal(usersRaw, &doc.Users); err != nil {
			s.log.Warn("users field malformed, resetting", zap.Error(err))
			doc.Users = []models.UserRecord{}
		}
	} else {
		s.log.Warn("users field missing, resetting")
	}
	return doc
}

func (s *DocumentStore) arrayField(top map[string]json.RawMessage, key string, def json.RawMessage) json.RawMessage {
	raw, ok := top[key]
	if !ok {
		s.log.Warn("document field missing, resetting", zap.String("field", key))
		return def
	}
	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		s.log.Warn("document field has wrong type, resetting", zap.String("field", key))
		return def
	}
	return raw
}

func (s *DocumentStore) objectField(top map[string]json.RawMessage, key string, def json.RawMessage) json.RawMessage {
	raw, ok := top[key]
	if !ok {
		s.log.Warn("document field missing, resetting", zap.String("field", key))
		return def
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		s.log.Warn("document field has wrong type, resetting", zap.String("field", key))
		return def
	}
	return raw
}

// writeFileAtomic writes data to path via a temporary side file and an
// atomic rename. The side file is always cleaned up, whether or not the
// rename succeeds. Returns false instead of an error: persistence failures
// are a signal, never a crash.
func writeFileAtomic(path string, data []byte, log *zap.Logger) bool {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("cannot create data directory", zap.String("path", dir), zap.Error(err))
			return false
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		log.Error("cannot write temporary file", zap.String("path", tmp), zap.Error(err))
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Error("cannot replace data file", zap.String("path", path), zap.Error(err))
		if rmErr := os.Remove(tmp); rmErr != nil {
			log.Error("cannot clean up temporary file", zap.String("path", tmp), zap.Error(rmErr))
		}
		return false
	}
	return true
}
