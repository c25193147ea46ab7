// Package models defines the core data structures for accounts and face templates.
package models

import (
	"encoding/json"
	"time"
)

// AuthMethod identifies one way an account can authenticate.
type AuthMethod string

const (
	// AuthPassword is username/password authentication.
	AuthPassword AuthMethod = "password"
	// AuthFace is face-embedding authentication.
	AuthFace AuthMethod = "face"
)

// UserRecord represents a registered account.
type UserRecord struct {
	// Username is the unique, case-sensitive account name.
	Username string `json:"username"`
	// PasswordHash is the hex digest of the password; empty when password
	// authentication is disabled.
	PasswordHash string `json:"password_hash,omitempty"`
	// FaceEncoding is the enrolled face embedding; nil when face
	// authentication is disabled.
	FaceEncoding []float64 `json:"face_encoding,omitempty"`
	// RegistrationDate is set once at creation and never changes.
	RegistrationDate time.Time `json:"registration_date"`
	// AuthMethods is derived from the presence of PasswordHash and
	// FaceEncoding. It is persisted for the UI but recomputed on write.
	AuthMethods []AuthMethod `json:"auth_methods"`
}

// DeriveAuthMethods recomputes the method set from the credential fields.
// Every valid record has at least one method.
func (u *UserRecord) DeriveAuthMethods() []AuthMethod {
	var methods []AuthMethod
	if u.PasswordHash != "" {
		methods = append(methods, AuthPassword)
	}
	if len(u.FaceEncoding) > 0 {
		methods = append(methods, AuthFace)
	}
	return methods
}

// Document is the account document. The finance payloads (income, expenses,
// categories, budget, goals) are owned by other modules; this core only
// reasons about Users and must carry the rest through a load/save round
// trip byte-for-byte, hence json.RawMessage.
type Document struct {
	Income     json.RawMessage `json:"income"`
	Expenses   json.RawMessage `json:"expenses"`
	Categories json.RawMessage `json:"categories"`
	Budget     json.RawMessage `json:"budget"`
	Goals      json.RawMessage `json:"goals"`
	Users      []UserRecord    `json:"users"`
}

// NewDocument returns a document with every field at its empty default.
func NewDocument() *Document {
	return &Document{
		Income:     json.RawMessage("[]"),
		Expenses:   json.RawMessage("[]"),
		Categories: json.RawMessage("[]"),
		Budget:     json.RawMessage("{}"),
		Goals:      json.RawMessage("[]"),
		Users:      []UserRecord{},
	}
}

// FaceTemplates holds one enrolled encoding per face-enrolled user.
// Index i of Encodings corresponds to index i of Usernames; every mutation
// must go through Append/Remove to keep that correspondence.
type FaceTemplates struct {
	Encodings [][]float64 `json:"encodings"`
	Usernames []string    `json:"usernames"`
}

// NewFaceTemplates returns an empty template collection.
func NewFaceTemplates() *FaceTemplates {
	return &FaceTemplates{Encodings: [][]float64{}, Usernames: []string{}}
}

// Len returns the number of enrolled templates.
func (f *FaceTemplates) Len() int {
	return len(f.Usernames)
}

// IndexOf returns the position of the template enrolled for username,
// or -1 if the user has no template.
func (f *FaceTemplates) IndexOf(username string) int {
	for i, name := range f.Usernames {
		if name == username {
			return i
		}
	}
	return -1
}

// Append enrolls an encoding for username at the end of both sequences.
func (f *FaceTemplates) Append(username string, encoding []float64) {
	f.Encodings = append(f.Encodings, encoding)
	f.Usernames = append(f.Usernames, username)
}

// Remove deletes the template enrolled for username, preserving the order
// of the remaining entries. It reports whether a template was removed.
func (f *FaceTemplates) Remove(username string) bool {
	i := f.IndexOf(username)
	if i < 0 {
		return false
	}
	f.Encodings = append(f.Encodings[:i], f.Encodings[i+1:]...)
	f.Usernames = append(f.Usernames[:i], f.Usernames[i+1:]...)
	return true
}
