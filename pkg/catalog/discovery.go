package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/resource"
)

var (
	// ErrNoManifests is returned when no .list files exist in the resource tree.
	ErrNoManifests = errors.New("no package manifests found")
	// ErrNoPackages is returned when manifests exist but none describes a package.
	ErrNoPackages = errors.New("no valid packages found in manifests")
)

// Loader discovers manifests in a resource tree.
type Loader struct {
	provider resource.Provider
	root     string
	logger   *log.Logger
}

// NewLoader creates a loader that scans root inside provider.
func NewLoader(provider resource.Provider, root string, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{
		provider: provider,
		root:     root,
		logger:   logger,
	}
}

// Load scans the resource tree and builds a fresh catalog.
func Load(provider resource.Provider, root string) (*Catalog, error) {
	return NewLoader(provider, root, nil).Load()
}

// Load scans the resource tree and builds a fresh catalog.
func (l *Loader) Load() (*Catalog, error) {
	manifests, err := l.findManifests()
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, ErrNoManifests
	}

	catalog := New()
	for _, manifest := range manifests {
		entry, err := l.readManifest(manifest)
		if err != nil {
			// One broken manifest shouldn't hide the others
			l.logger.Warn("skipping manifest", "path", manifest, "err", err)
			continue
		}
		if entry == nil {
			l.logger.Debug("manifest has no packages", "path", manifest)
			continue
		}
		if prev := catalog.Get(entry.Name); prev != nil {
			l.logger.Warn("duplicate package name, later manifest wins",
				"name", entry.Name, "previous", prev.Manifest, "manifest", manifest)
		}
		catalog.Add(*entry)
	}

	if catalog.Len() == 0 {
		return nil, ErrNoPackages
	}

	l.logger.Info("catalog loaded", "packages", catalog.Len(), "manifests", len(manifests))
	return catalog, nil
}

// findManifests lists .list files under the root, falling back to the
// top level of the provider for flat layouts.
func (l *Loader) findManifests() ([]string, error) {
	files, err := l.provider.List(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", l.root, err)
	}
	manifests := filterManifests(files)
	if len(manifests) > 0 {
		return manifests, nil
	}

	l.logger.Debug("no manifests under root, trying top level", "root", l.root)
	files, err = l.provider.ListDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to scan top level: %w", err)
	}
	return filterManifests(files), nil
}

func filterManifests(files []string) []string {
	var manifests []string
	for _, f := range files {
		if strings.HasSuffix(f, ManifestExt) {
			manifests = append(manifests, f)
		}
	}
	return manifests
}

// readManifest parses one manifest into an entry.
// Returns (nil, nil) if the manifest has no name or no archives.
func (l *Loader) readManifest(manifest string) (*Entry, error) {
	rc, err := l.provider.Open(manifest)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dir := path.Dir(manifest)
	group := ""
	base := "."
	if dir != "." {
		group = path.Base(dir)
		base = path.Dir(dir)
	}

	name, archives, err := ParseManifest(rc, group)
	if err != nil {
		return nil, err
	}
	if name == "" || len(archives) == 0 {
		return nil, nil
	}

	return &Entry{
		Name:     name,
		Archives: archives,
		Manifest: manifest,
		Base:     base,
	}, nil
}

// ParseManifest reads a manifest: the first non-blank, non-comment line is
// the display name and every following one is an archive filename, which is
// returned prefixed with group.
func ParseManifest(r io.Reader, group string) (string, []string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("error reading manifest: %w", err)
	}

	if len(lines) == 0 {
		return "", nil, nil
	}

	archives := make([]string, 0, len(lines)-1)
	for _, archive := range lines[1:] {
		if group != "" {
			archive = group + "/" + archive
		}
		archives = append(archives, archive)
	}

	return lines[0], archives, nil
}
