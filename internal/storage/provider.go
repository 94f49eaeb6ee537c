// Package storage defines the photo-library file-system abstraction.
package storage

import "os"

// Provider is the interface for library file operations. Paths are absolute
// and must resolve inside the library root.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// WriteAtomic writes content to path via a hidden temporary sibling file
	// followed by an atomic rename.
	WriteAtomic(path string, content []byte) error
	// Stat returns file info for path.
	Stat(path string) (os.FileInfo, error)
	// Root returns the absolute library root directory.
	Root() string
}
