// Package file loads ontology snapshots from a directory of JSON or YAML
// documents and watches single documents for changes.
package file

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// Kind is the source kind used in cache keys.
const Kind = "file"

var extensions = []string{".json", ".yaml", ".yml"}

// Source reads snapshot documents below a root directory.
type Source struct {
	dir string
}

// New returns a source rooted at dir. An empty dir means the working
// directory.
func New(dir string) *Source {
	if dir == "" {
		dir = "."
	}
	return &Source{dir: dir}
}

// Dir returns the root directory.
func (s *Source) Dir() string { return s.dir }

// Kind implements source.Source.
func (s *Source) Kind() string { return Kind }

// Load reads the snapshot called name. A name with a snapshot extension is
// a file below the root; a bare name is tried with .json, .yaml and .yml in
// that order. Names may not leave the root.
func (s *Source) Load(ctx context.Context, name string) (*ontology.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return ontology.ReadFile(path)
}

// Resolve maps a snapshot name to an existing file path.
func (s *Source) Resolve(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || !filepath.IsLocal(name) {
		return "", errs.New(errs.ErrCodeInvalidPath, "invalid snapshot name %q", name)
	}
	if slices.Contains(extensions, strings.ToLower(filepath.Ext(name))) {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); err != nil {
			return "", errs.Wrap(errs.ErrCodeSnapshotNotFound, err, "snapshot %s", name)
		}
		return path, nil
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errs.New(errs.ErrCodeSnapshotNotFound, "snapshot %s not found in %s", name, s.dir)
}

// List returns the snapshot names in the root directory, sorted. A name
// present with several extensions is listed once.
func (s *Source) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "list %s", s.dir)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !slices.Contains(extensions, ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}
