package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	m "nessie.dev/pkg/nessie/internal/model"
)

// ReportStore persists run reports and execution traces.
type ReportStore interface {
	SaveRunReport(path m.Path, report m.RunReport) error
	LoadRunReport(path m.Path) (m.RunReport, error)
	SaveTrace(path m.Path, trace []byte) error
	LoadTrace(path m.Path) ([]byte, error)
}

// LocalReportStore stores reports as JSON or YAML files.
type LocalReportStore struct{}

// NewLocalReportStore constructs a LocalReportStore.
func NewLocalReportStore() *LocalReportStore {
	return &LocalReportStore{}
}

// SaveRunReport writes report to path.
func (s *LocalReportStore) SaveRunReport(path m.Path, report m.RunReport) error {
	return writeDocument(path, report)
}

// LoadRunReport reads a report written by SaveRunReport.
func (s *LocalReportStore) LoadRunReport(path m.Path) (m.RunReport, error) {
	var report m.RunReport
	if err := readDocument(path, &report); err != nil {
		return m.RunReport{}, err
	}

	return report, nil
}

// SaveTrace writes a raw execution trace.
func (s *LocalReportStore) SaveTrace(path m.Path, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}

	return os.WriteFile(string(path), trace, 0o600)
}

// LoadTrace reads a raw execution trace.
func (s *LocalReportStore) LoadTrace(path m.Path) ([]byte, error) {
	// #nosec G304 - path is a trace file chosen by the user
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", path, err)
	}

	return data, nil
}
