// Package resource provides read-only access to the tree that holds package
// manifests and archives, whether it is embedded in the binary or on disk.
package resource

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
)

// Provider is a read-only file source.
// Paths are slash-separated and relative to the provider's top level.
type Provider interface {
	// List returns every regular file under root, recursively.
	List(root string) ([]string, error)

	// ListDir returns the regular files directly inside dir.
	ListDir(dir string) ([]string, error)

	// Exists reports whether path names a regular file.
	Exists(path string) bool

	// Open opens the file at path for reading.
	Open(path string) (io.ReadCloser, error)
}

// FSProvider implements Provider over an fs.FS.
type FSProvider struct {
	fsys fs.FS
}

// NewFSProvider wraps fsys, typically an embed.FS or os.DirFS.
func NewFSProvider(fsys fs.FS) *FSProvider {
	return &FSProvider{fsys: fsys}
}

// NewDirProvider serves files from a directory on disk.
func NewDirProvider(dir string) (*FSProvider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("resource directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resource path is not a directory: %s", dir)
	}
	return NewFSProvider(os.DirFS(dir)), nil
}

// List walks root in lexical order. A missing root yields no files.
func (p *FSProvider) List(root string) ([]string, error) {
	root = clean(root)

	var files []string
	err := fs.WalkDir(p.fsys, root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	return files, nil
}

// ListDir returns the regular files directly inside dir.
func (p *FSProvider) ListDir(dir string) ([]string, error) {
	dir = clean(dir)

	entries, err := fs.ReadDir(p.fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, path.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}

// Exists reports whether name is a regular file.
func (p *FSProvider) Exists(name string) bool {
	info, err := fs.Stat(p.fsys, clean(name))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Open opens name for reading.
func (p *FSProvider) Open(name string) (io.ReadCloser, error) {
	f, err := p.fsys.Open(clean(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open resource %s: %w", name, err)
	}
	return f, nil
}

// clean normalizes a provider path; fs.FS rejects leading slashes and "".
func clean(name string) string {
	name = path.Clean("/" + name)[1:]
	if name == "" {
		return "."
	}
	return name
}
