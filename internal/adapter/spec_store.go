package adapter

import (
	"errors"
	"fmt"
	"log/slog"

	m "nessie.dev/pkg/nessie/internal/model"
)

var (
	// ErrSpecFile is returned when an API spec or registry dump cannot be loaded.
	ErrSpecFile = errors.New("invalid API spec")
	// ErrMinedData is returned when a mined corpus file cannot be loaded.
	ErrMinedData = errors.New("invalid mined data")
)

// SpecStore loads the inputs of a generation run and persists the registry.
type SpecStore interface {
	// LoadAPISpec reads the static API listing of a library.
	LoadAPISpec(path m.Path) (m.APISpec, error)
	// LoadRegistryDump reads a registry saved by a previous run.
	LoadRegistryDump(path m.Path) (m.RegistryDump, error)
	// SaveRegistryDump writes the registry at the end of a run.
	SaveRegistryDump(path m.Path, dump m.RegistryDump) error
	// LoadNestingPairs reads mined nesting pairs.
	LoadNestingPairs(path m.Path) ([]m.MinedNestingPair, error)
	// LoadAPICalls reads mined single-call signatures.
	LoadAPICalls(path m.Path) ([]m.MinedAPICall, error)
}

// LocalSpecStore reads and writes JSON or YAML files on disk.
type LocalSpecStore struct{}

// NewLocalSpecStore constructs a LocalSpecStore.
func NewLocalSpecStore() *LocalSpecStore {
	return &LocalSpecStore{}
}

// LoadAPISpec reads and validates an API spec.
func (s *LocalSpecStore) LoadAPISpec(path m.Path) (m.APISpec, error) {
	var spec m.APISpec
	if err := readDocument(path, &spec); err != nil {
		slog.Error("Failed to load API spec", "path", path, "error", err)
		return m.APISpec{}, fmt.Errorf("%w: %w", ErrSpecFile, err)
	}

	if spec.Lib == "" {
		return m.APISpec{}, fmt.Errorf("%w: %s has no lib name", ErrSpecFile, path)
	}

	for name, fn := range spec.Fns {
		if fn.Name == "" {
			fn.Name = name
			spec.Fns[name] = fn
		}

		if fn.NumArgs < 0 {
			return m.APISpec{}, fmt.Errorf("%w: %s: function %s has negative arity", ErrSpecFile, path, name)
		}
	}

	return spec, nil
}

// LoadRegistryDump reads a registry dump.
func (s *LocalSpecStore) LoadRegistryDump(path m.Path) (m.RegistryDump, error) {
	var dump m.RegistryDump
	if err := readDocument(path, &dump); err != nil {
		slog.Error("Failed to load registry dump", "path", path, "error", err)
		return m.RegistryDump{}, fmt.Errorf("%w: %w", ErrSpecFile, err)
	}

	if dump.Lib == "" {
		return m.RegistryDump{}, fmt.Errorf("%w: %s has no lib name", ErrSpecFile, path)
	}

	return dump, nil
}

// SaveRegistryDump writes a registry dump.
func (s *LocalSpecStore) SaveRegistryDump(path m.Path, dump m.RegistryDump) error {
	return writeDocument(path, dump)
}

// LoadNestingPairs reads mined nesting pairs and drops malformed ones.
func (s *LocalSpecStore) LoadNestingPairs(path m.Path) ([]m.MinedNestingPair, error) {
	var pairs []m.MinedNestingPair
	if err := readDocument(path, &pairs); err != nil {
		slog.Error("Failed to load mined nesting pairs", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrMinedData, err)
	}

	valid := pairs[:0]

	for _, pair := range pairs {
		if pair.OuterFct == "" || pair.InnerFct == "" || !paramsValid(pair.OuterParams) || !paramsValid(pair.InnerParams) {
			slog.Debug("Skipping malformed nesting pair", "outer", pair.OuterFct, "inner", pair.InnerFct)
			continue
		}

		valid = append(valid, pair)
	}

	return valid, nil
}

func paramsValid(params []m.MinedParam) bool {
	for _, param := range params {
		if !param.IsValid() {
			return false
		}
	}

	return true
}

// LoadAPICalls reads mined single-call signatures.
func (s *LocalSpecStore) LoadAPICalls(path m.Path) ([]m.MinedAPICall, error) {
	var calls []m.MinedAPICall
	if err := readDocument(path, &calls); err != nil {
		slog.Error("Failed to load mined API calls", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrMinedData, err)
	}

	return calls, nil
}
