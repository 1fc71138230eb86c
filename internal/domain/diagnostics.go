package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	m "nessie.dev/pkg/nessie/internal/model"
)

const (
	doneMarker     = "done_"
	errorMarker    = "error_"
	callbackMarker = "callback_exec_"

	defaultPathCacheSize = 1024
)

// Record is one entry of an execution trace.
type Record map[string]json.RawMessage

// DiscoveredFunctions are function names observed on a value reached
// through AccPath.
type DiscoveredFunctions struct {
	AccPath m.AccessPath
	Names   []string
}

// Diagnosis is the structured reading of one test's trace.
type Diagnosis struct {
	Results    map[m.NodeID]m.FunctionCallResult
	Discovered []DiscoveredFunctions
}

// HasError reports whether any call failed.
func (d Diagnosis) HasError() bool {
	for _, res := range d.Results {
		if res.Outcome == m.ExecutionError {
			return true
		}
	}

	return false
}

// Diagnostician turns execution traces into diagnoses. Decoded access path
// keys are cached since the same return paths recur in every test.
type Diagnostician struct {
	paths *lru.Cache[string, *m.AccessPath]
}

// NewDiagnostician creates a Diagnostician caching up to cacheSize decoded
// access paths.
func NewDiagnostician(cacheSize int) *Diagnostician {
	if cacheSize <= 0 {
		cacheSize = defaultPathCacheSize
	}

	cache, err := lru.New[string, *m.AccessPath](cacheSize)
	if err != nil {
		slog.Error("Failed to create access path cache", "size", cacheSize, "error", err)
	}

	return &Diagnostician{paths: cache}
}

// Diagnose classifies every call of test from the runtime output. An output
// that is JSON but not an array marks every call as failed. Functions are
// only discovered on tests without failed calls.
func (d *Diagnostician) Diagnose(test *Test, output []byte) (Diagnosis, error) {
	diag := Diagnosis{Results: make(map[m.NodeID]m.FunctionCallResult, test.Len())}

	records, err := ParseTrace(output)
	if err != nil {
		if !errors.Is(err, errNotArray) {
			return Diagnosis{}, err
		}

		slog.Warn("Trace is not an array", "test", test.Loc.Name())

		for i := range test.Len() {
			diag.Results[m.NodeID(i)] = m.FunctionCallResult{Outcome: m.ExecutionError}
		}

		return diag, nil
	}

	for i := range test.Len() {
		id := m.NodeID(i)
		diag.Results[id] = ClassifyCall(records, test.UniqID(id))
	}

	if diag.HasError() {
		return diag, nil
	}

	diag.Discovered = d.discover(records)

	return diag, nil
}

var errNotArray = fmt.Errorf("%w: not an array", ErrTraceParse)

// ParseTrace decodes runtime output into records. The whole output is tried
// first, then its last non-empty line, since a crashing runtime may print
// before the trace.
func ParseTrace(output []byte) ([]Record, error) {
	raw, err := traceJSON(output)
	if err != nil {
		return nil, err
	}

	if raw[0] != '[' {
		return nil, errNotArray
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTraceParse, err)
	}

	records := make([]Record, 0, len(entries))

	for _, entry := range entries {
		var rec Record
		if err := json.Unmarshal(entry, &rec); err != nil {
			// Non-object entries carry no markers.
			records = append(records, Record{})

			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

func traceJSON(output []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(output)
	if json.Valid(trimmed) && len(trimmed) > 0 {
		return trimmed, nil
	}

	lines := bytes.Split(trimmed, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 {
			continue
		}

		if json.Valid(line) {
			return line, nil
		}

		break
	}

	return nil, fmt.Errorf("%w: %d bytes of output", ErrTraceParse, len(output))
}

// ClassifyCall derives the outcome of the call with uniqID from the trace.
// When the callback fires more than once the last firing decides.
func ClassifyCall(records []Record, uniqID string) m.FunctionCallResult {
	donePos, cbPos := -1, -1
	argPos := 0

	for i, rec := range records {
		if rec.isMarker(errorMarker + uniqID) {
			return m.FunctionCallResult{Outcome: m.ExecutionError}
		}

		if donePos < 0 && rec.isMarker(doneMarker+uniqID) {
			donePos = i
		}

		if pos, ok := rec.callbackPosition(uniqID); ok {
			cbPos = i
			argPos = pos
		}
	}

	switch {
	case donePos < 0:
		return m.FunctionCallResult{Outcome: m.ExecutionError}
	case cbPos < 0:
		return m.FunctionCallResult{Outcome: m.NoCallbackCalled}
	case cbPos < donePos:
		return m.FunctionCallResult{Outcome: m.CallbackCalledSync, CallbackArgPos: argPos}
	default:
		return m.FunctionCallResult{Outcome: m.CallbackCalledAsync, CallbackArgPos: argPos}
	}
}

// isMarker reports whether the record is exactly {key: true}.
func (r Record) isMarker(key string) bool {
	if len(r) != 1 {
		return false
	}

	val, ok := r[key]

	return ok && string(bytes.TrimSpace(val)) == "true"
}

func (r Record) callbackPosition(uniqID string) (int, bool) {
	val, ok := r[callbackMarker+uniqID]
	if !ok {
		return 0, false
	}

	text := strings.TrimSpace(string(val))
	if text == "null" {
		return 0, false
	}

	pos, err := strconv.Atoi(text)
	if err != nil {
		return 0, true
	}

	return pos, true
}

// discover collects every key that decodes as an access path and maps to
// an array of strings, merging names seen for the same path.
func (d *Diagnostician) discover(records []Record) []DiscoveredFunctions {
	var found []DiscoveredFunctions

	index := make(map[string]int)

	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for key := range rec {
			keys = append(keys, key)
		}

		slices.Sort(keys)

		for _, key := range keys {
			if !strings.HasPrefix(strings.TrimSpace(key), "(") {
				continue
			}

			var names []string
			if err := json.Unmarshal(rec[key], &names); err != nil || names == nil {
				continue
			}

			path, ok := d.decode(key)
			if !ok {
				continue
			}

			idx, seen := index[key]
			if !seen {
				idx = len(found)
				index[key] = idx
				found = append(found, DiscoveredFunctions{AccPath: path})
			}

			for _, name := range names {
				if !slices.Contains(found[idx].Names, name) {
					found[idx].Names = append(found[idx].Names, name)
				}
			}
		}
	}

	return found
}

func (d *Diagnostician) decode(key string) (m.AccessPath, bool) {
	if d.paths != nil {
		if path, ok := d.paths.Get(key); ok {
			if path == nil {
				return m.AccessPath{}, false
			}

			return *path, true
		}
	}

	path, err := m.ParseAccessPath(key)
	if err != nil {
		slog.Debug("Ignoring trace key", "key", key, "error", err)

		if d.paths != nil {
			d.paths.Add(key, nil)
		}

		return m.AccessPath{}, false
	}

	if d.paths != nil {
		d.paths.Add(key, &path)
	}

	return path, true
}

// ApplyDiagnosis feeds what a test revealed back into the registry: newly
// discovered functions, and the signature of every call of lib that did not
// fail. It returns the access paths of the functions that were new.
func ApplyDiagnosis(reg *Registry, test *Test, diag Diagnosis) []string {
	var discovered []string

	for _, found := range diag.Discovered {
		for _, name := range found.Names {
			if reg.RegisterDiscovered(found.AccPath, name) {
				discovered = append(discovered, m.Field(found.AccPath, name).String())
			}
		}
	}

	for i := range test.Len() {
		id := m.NodeID(i)

		res, ok := diag.Results[id]
		if !ok || res.Outcome == m.ExecutionError {
			continue
		}

		call, _ := test.Call(id)

		receiver := call.ReceiverPath()
		if receiver.RootModule() != reg.Lib() {
			continue
		}

		sig := call.Sig.Clone()
		sig.CallResult = &res

		reg.RecordSignature(receiver, call.Name, sig)
	}

	return discovered
}
