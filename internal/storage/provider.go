// Package storage defines the vault file-system abstraction consumed by the
// sync engine.
package storage

import "github.com/starford/gebo/internal/models"

// Provider is the interface for vault document operations. All paths are
// relative to the vault root.
type Provider interface {
	// List returns metadata for every .md document under dir.
	List(dir string) ([]models.DocumentRef, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the document at path.
	Write(path string, content []byte) error
	// Create writes a new document, failing with apperr.ErrAlreadyExists
	// when path is already present.
	Create(path string, initial []byte) (models.DocumentRef, error)
}
