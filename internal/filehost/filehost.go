// Package filehost defines the static file host abstraction game bundles are
// published to, plus the factory all host backends register with.
//
// A host addresses files by slash-separated relative paths under a single
// root. Every stored file carries a content hash; updates and deletes must
// present the hash of the version they are replacing, which is how the GitHub
// contents API works and what the other backends emulate.
package filehost

import (
	"context"
	"fmt"

	"github.com/brainsta/game-admin/internal/config"
)

// RemoteFile describes one file on the host.
type RemoteFile struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
}

// UploadResult reports the outcome of a single file upload.
type UploadResult struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// Host is a hash-gated static file store.
type Host interface {
	// List returns the files under prefix. A missing prefix is an empty
	// listing, not an error.
	List(ctx context.Context, prefix string) ([]RemoteFile, error)

	// Upload creates or replaces the file at path. Replacement is detected
	// by probing for an existing file and passing its hash along.
	Upload(ctx context.Context, path string, content []byte) UploadResult

	// Delete removes the file at path; sha must be the hash of the stored
	// version. Returns false when the host refused the delete.
	Delete(ctx context.Context, path string, sha string) bool
}

// FactoryFunc constructs a Host from application configuration.
type FactoryFunc func(cfg *config.Config) (Host, error)

var factories = make(map[string]FactoryFunc)

// Register registers a file host backend under the given name.
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// NewHost creates the file host selected by configuration.
func NewHost(cfg *config.Config) (Host, error) {
	factory, ok := factories[cfg.FileHost.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported filehost backend: %s (must be 'github' or 'local')", cfg.FileHost.Backend)
	}

	return factory(cfg)
}
