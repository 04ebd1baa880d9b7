package install

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// archiveMode is owner read/write, group and others read.
const archiveMode os.FileMode = 0644

// ensureScratchDir returns the scratch directory, creating it on first use.
func (d *Driver) ensureScratchDir() (string, error) {
	if d.scratchDir != "" {
		return d.scratchDir, nil
	}

	if d.opts.ScratchDir != "" {
		if err := os.MkdirAll(d.opts.ScratchDir, 0700); err != nil {
			return "", fmt.Errorf("failed to create scratch directory: %w", err)
		}
		d.scratchDir = d.opts.ScratchDir
		return d.scratchDir, nil
	}

	dir, err := os.MkdirTemp("", "pkgwizard-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	d.scratchDir = dir
	d.ownsScratch = true
	d.logger.Debug("created scratch directory", "path", dir)

	return dir, nil
}

// extract copies every archive of the session into the scratch directory.
// The first failure aborts; files already copied are left in place.
func (d *Driver) extract(s *Session) error {
	dir, err := d.ensureScratchDir()
	if err != nil {
		return err
	}
	s.scratchDir = dir

	for _, ref := range s.Archives {
		if err := d.extractArchive(path.Join(s.base, ref), s.archivePath(ref)); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) extractArchive(src, dst string) error {
	if !d.provider.Exists(src) {
		return fmt.Errorf("archive not found: %s", src)
	}

	in, err := d.provider.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Replace anything left over from a previous run
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, archiveMode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	// OpenFile's mode is filtered by the umask
	if err := os.Chmod(dst, archiveMode); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dst, err)
	}

	d.logger.Debug("extracted archive", "src", src, "dst", dst)
	return nil
}

// archivePath is where ref is extracted to.
func (s *Session) archivePath(ref string) string {
	return filepath.Join(s.scratchDir, path.Base(ref))
}

// ArchivePaths returns the extracted archive paths in manifest order.
func (s *Session) ArchivePaths() []string {
	paths := make([]string, len(s.Archives))
	for i, ref := range s.Archives {
		paths[i] = s.archivePath(ref)
	}
	return paths
}
