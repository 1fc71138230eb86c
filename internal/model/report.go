package model

import "time"

// NodeReport is the diagnosed outcome of one call of a test.
type NodeReport struct {
	ID             string      `json:"id" yaml:"id"`
	Function       string      `json:"function" yaml:"function"`
	AccPath        string      `json:"acc_path" yaml:"acc_path"`
	Outcome        CallOutcome `json:"outcome" yaml:"outcome"`
	CallbackArgPos int         `json:"callback_arg_pos,omitempty" yaml:"callback_arg_pos,omitempty"`
	Nested         bool        `json:"nested,omitempty" yaml:"nested,omitempty"`
}

// TestReport is the record kept for every executed test.
type TestReport struct {
	Index      int           `json:"index" yaml:"index"`
	File       Path          `json:"file" yaml:"file"`
	Extension  string        `json:"extension" yaml:"extension"`
	Nodes      []NodeReport  `json:"nodes" yaml:"nodes"`
	Discovered int           `json:"discovered" yaml:"discovered"`
	NewPoints  int           `json:"new_points" yaml:"new_points"`
	Attempts   int           `json:"attempts" yaml:"attempts"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// HasError reports whether any call of the test failed.
func (r TestReport) HasError() bool {
	for _, node := range r.Nodes {
		if node.Outcome == ExecutionError {
			return true
		}
	}

	return false
}

// RunReport summarises a whole generation run.
type RunReport struct {
	RunID          string         `json:"run_id" yaml:"run_id"`
	Lib            string         `json:"lib" yaml:"lib"`
	Seed           uint64         `json:"seed" yaml:"seed"`
	StartedAt      time.Time      `json:"started_at" yaml:"started_at"`
	Duration       time.Duration  `json:"duration" yaml:"duration"`
	TestsGenerated int            `json:"tests_generated" yaml:"tests_generated"`
	Discarded      int            `json:"discarded" yaml:"discarded"`
	Outcomes       map[string]int `json:"outcomes" yaml:"outcomes"`
	FunctionsKnown int            `json:"functions_known" yaml:"functions_known"`
	Discovered     []string       `json:"discovered,omitempty" yaml:"discovered,omitempty"`
	Tests          []TestReport   `json:"tests,omitempty" yaml:"tests,omitempty"`
}

// ReplayResult is the outcome of re-executing one generated test file.
type ReplayResult struct {
	File     Path          `json:"file" yaml:"file"`
	Passed   bool          `json:"passed" yaml:"passed"`
	Errors   []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
	Output   string        `json:"-" yaml:"-"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Err      error         `json:"-" yaml:"-"`
}
