// Package adapter contains UI and infrastructure adapters for the nessie CLI.
package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	m "nessie.dev/pkg/nessie/internal/model"
)

// ToyFSDir is the directory, inside the test directory, holding the toy
// filesystem whose paths are used as string arguments.
const ToyFSDir = "toy_fs_dir"

var toyDirs = []string{
	"a/b/test/directory",
	"a/b/test/dir",
}

var toyFiles = map[string]string{
	"a/b/test/directory/file.json": `{"name": "nessie", "values": [1, 2, 3]}` + "\n",
	"a/b/file":                     "toy file\n",
}

// TestFSAdapter abstracts the filesystem operations around generated tests.
// It hides direct `os` access so the workflow logic can be tested without
// touching the disk.
//
//nolint:interfacebloat // A richer interface keeps workflow logic decoupled from os/fs.
type TestFSAdapter interface {
	// EnsureDir creates dir and its parents if needed.
	EnsureDir(dir m.Path) error

	// WriteFile writes content to path, creating parent directories.
	WriteFile(path m.Path, content []byte) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// Remove deletes the file at path. A missing file is not an error.
	Remove(path m.Path) error

	// Exists reports whether path exists.
	Exists(path m.Path) bool

	// SetupToyFS (re)creates the toy filesystem under base and returns the
	// paths it contains, base included.
	SetupToyFS(base m.Path) ([]m.Path, error)

	// CanonicalPath returns the absolute, symlink-free form of an existing path.
	CanonicalPath(path m.Path) (m.Path, error)

	// ListTests returns the generated test files in dir, ordered by index.
	ListTests(dir m.Path, prefix string) ([]m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalTestFSAdapter is the os-backed TestFSAdapter.
type LocalTestFSAdapter struct{}

// NewLocalTestFSAdapter constructs a LocalTestFSAdapter instance ready to
// be wired into the workflow.
func NewLocalTestFSAdapter() *LocalTestFSAdapter {
	return &LocalTestFSAdapter{}
}

// EnsureDir creates dir and its parents.
func (a *LocalTestFSAdapter) EnsureDir(dir m.Path) error {
	return os.MkdirAll(string(dir), 0o750)
}

// WriteFile writes content to path.
func (a *LocalTestFSAdapter) WriteFile(path m.Path, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, 0o600)
}

// ReadFile loads file contents from disk.
func (a *LocalTestFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	// #nosec G304 - path is a generated test or report path
	return os.ReadFile(string(path))
}

// Remove deletes the file at path.
func (a *LocalTestFSAdapter) Remove(path m.Path) error {
	if err := os.Remove(string(path)); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// Exists reports whether path exists.
func (a *LocalTestFSAdapter) Exists(path m.Path) bool {
	_, err := os.Stat(string(path))

	return err == nil
}

// SetupToyFS recreates the toy filesystem under base.
func (a *LocalTestFSAdapter) SetupToyFS(base m.Path) ([]m.Path, error) {
	root := string(base)

	if err := os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("failed to reset toy filesystem: %w", err)
	}

	paths := []m.Path{base}

	for _, dir := range toyDirs {
		full := filepath.Join(root, dir)
		if err := os.MkdirAll(full, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", full, err)
		}

		paths = append(paths, m.Path(full))
	}

	files := make([]string, 0, len(toyFiles))
	for file := range toyFiles {
		files = append(files, file)
	}

	slices.Sort(files)

	for _, file := range files {
		full := filepath.Join(root, file)
		if err := a.WriteFile(m.Path(full), []byte(toyFiles[file])); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", full, err)
		}

		paths = append(paths, m.Path(full))
	}

	return paths, nil
}

// CanonicalPath returns the absolute, symlink-free form of path.
func (a *LocalTestFSAdapter) CanonicalPath(path m.Path) (m.Path, error) {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}

	return m.Path(resolved), nil
}

// ListTests returns `<prefix><N>.js` files in dir ordered by N.
func (a *LocalTestFSAdapter) ListTests(dir m.Path, prefix string) ([]m.Path, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		return nil, err
	}

	type indexed struct {
		index int
		path  m.Path
	}

	var tests []indexed

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		index, ok := TestIndex(entry.Name(), prefix)
		if !ok {
			continue
		}

		tests = append(tests, indexed{index: index, path: m.Path(filepath.Join(string(dir), entry.Name()))})
	}

	slices.SortFunc(tests, func(x, y indexed) int { return x.index - y.index })

	paths := make([]m.Path, len(tests))
	for i, test := range tests {
		paths[i] = test.path
	}

	return paths, nil
}

// TestIndex extracts N from a `<prefix><N>.js` file name.
func TestIndex(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".js") {
		return 0, false
	}

	digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".js")
	if digits == "" {
		return 0, false
	}

	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return 0, false
	}

	return index, true
}

// JoinPath joins path elements into a single path.
func (a *LocalTestFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
