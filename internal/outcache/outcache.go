// SPDX-License-Identifier: MPL-2.0

// Package outcache writes pass artifacts into an output directory and keeps a
// msgpack manifest of what it wrote, so unchanged files are left alone and
// files a later pass no longer produces are removed. Files the manifest does
// not list are never touched.
package outcache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/pkg/types"
)

const (
	// ManifestFile is the cache manifest kept in the output directory.
	ManifestFile = ".metagen-cache"

	// manifestVersion changes whenever the manifest layout does.
	manifestVersion uint16 = 1
)

var (
	// ErrUnsafeName is the sentinel error wrapped by UnsafeNameError.
	ErrUnsafeName = errors.New("artifact name escapes the output directory")
	// ErrCorruptManifest is returned by ReadManifest for an unreadable manifest.
	ErrCorruptManifest = errors.New("corrupt cache manifest")
)

type (
	// Manifest is the persisted record of the files written by the last pass.
	Manifest struct {
		Version uint16           `msgpack:"version"`
		Files   map[string]Entry `msgpack:"files"`
	}

	// Entry describes one written file.
	Entry struct {
		Fingerprint string `msgpack:"fingerprint"`
		Producer    string `msgpack:"producer"`
	}

	// Plan lists what Apply will do. Every list is sorted.
	Plan struct {
		Write     []artifact.Artifact
		Unchanged []string
		Remove    []string
	}

	// Cache is an output directory with its manifest.
	Cache struct {
		dir      types.FilesystemPath
		manifest Manifest
		logger   *slog.Logger
	}

	// Option configures a Cache.
	Option func(*Cache)

	// UnsafeNameError reports an artifact name that is absolute or leaves the
	// output directory.
	UnsafeNameError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *UnsafeNameError) Error() string {
	return fmt.Sprintf("artifact name %q escapes the output directory", e.Name)
}

// Unwrap returns ErrUnsafeName for errors.Is() compatibility.
func (e *UnsafeNameError) Unwrap() error { return ErrUnsafeName }

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// Open reads the manifest of dir. A missing manifest is an empty cache; a
// corrupt or outdated one is discarded with a warning log, which only costs
// a full rewrite.
func Open(dir types.FilesystemPath, opts ...Option) (*Cache, error) {
	if ok, errs := dir.IsValid(); !ok {
		return nil, errs[0]
	}
	c := &Cache{dir: dir, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(c)
	}

	m, err := ReadManifest(dir.Join(ManifestFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		m = emptyManifest()
	case errors.Is(err, ErrCorruptManifest):
		c.logger.Warn("discarding cache manifest", "dir", dir, "error", err)
		m = emptyManifest()
	case err != nil:
		return nil, err
	}
	c.manifest = m
	return c, nil
}

func emptyManifest() Manifest {
	return Manifest{Version: manifestVersion, Files: map[string]Entry{}}
}

// ReadManifest decodes the manifest at path.
func ReadManifest(path types.FilesystemPath) (Manifest, error) {
	data, err := os.ReadFile(path.String())
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrCorruptManifest, err)
	}
	if m.Version != manifestVersion {
		return Manifest{}, fmt.Errorf("%w: version %d, want %d", ErrCorruptManifest, m.Version, manifestVersion)
	}
	if m.Files == nil {
		m.Files = map[string]Entry{}
	}
	return m, nil
}

// Manifest returns a copy of the current manifest.
func (c *Cache) Manifest() Manifest {
	return Manifest{Version: c.manifest.Version, Files: maps.Clone(c.manifest.Files)}
}

// Plan compares arts with the manifest and the files on disk.
func (c *Cache) Plan(arts []artifact.Artifact) (Plan, error) {
	var p Plan
	produced := make(map[string]bool, len(arts))
	for _, a := range arts {
		if !filepath.IsLocal(filepath.FromSlash(a.Name)) {
			return Plan{}, &UnsafeNameError{Name: a.Name}
		}
		produced[a.Name] = true
		prev, ok := c.manifest.Files[a.Name]
		if ok && prev.Fingerprint == a.Fingerprint() && c.exists(a.Name) {
			p.Unchanged = append(p.Unchanged, a.Name)
			continue
		}
		p.Write = append(p.Write, a)
	}
	for _, name := range slices.Sorted(maps.Keys(c.manifest.Files)) {
		if !produced[name] {
			p.Remove = append(p.Remove, name)
		}
	}
	artifact.Sort(p.Write)
	slices.Sort(p.Unchanged)
	return p, nil
}

// Apply executes plan and persists the new manifest. Files are replaced
// atomically through a temporary file in the same directory.
func (c *Cache) Apply(plan Plan) error {
	next := emptyManifest()
	for _, name := range plan.Unchanged {
		next.Files[name] = c.manifest.Files[name]
	}
	for _, a := range plan.Write {
		if err := writeAtomic(c.dir.Join(a.Name).String(), []byte(a.Content)); err != nil {
			return fmt.Errorf("writing %s: %w", a.Name, err)
		}
		next.Files[a.Name] = Entry{Fingerprint: a.Fingerprint(), Producer: a.Producer}
		c.logger.Debug("artifact written", "name", a.Name, "producer", a.Producer)
	}
	for _, name := range plan.Remove {
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			continue
		}
		err := os.Remove(c.dir.Join(name).String())
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
		c.logger.Debug("stale artifact removed", "name", name)
	}

	data, err := msgpack.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encoding cache manifest: %w", err)
	}
	if err := writeAtomic(c.dir.Join(ManifestFile).String(), data); err != nil {
		return fmt.Errorf("writing cache manifest: %w", err)
	}
	c.manifest = next
	return nil
}

func (c *Cache) exists(name string) bool {
	info, err := os.Stat(c.dir.Join(name).String())
	return err == nil && !info.IsDir()
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".metagen-tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(f.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
