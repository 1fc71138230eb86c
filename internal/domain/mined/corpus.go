// Package mined matches calls mined from real-world code against the calls of
// generated tests.
package mined

import (
	"log/slog"

	m "nessie.dev/pkg/nessie/internal/model"
)

// Corpus holds the mined nesting pairs and API call templates, grouped by
// the package of the outer or called function. It is read-only once built.
type Corpus struct {
	nesting map[string][]m.MinedNestingPair
	calls   map[string][]CallTemplate
}

// NewCorpus groups the mined data by package. API calls that cannot be
// parsed are skipped.
func NewCorpus(pairs []m.MinedNestingPair, calls []m.MinedAPICall) *Corpus {
	corpus := &Corpus{
		nesting: make(map[string][]m.MinedNestingPair),
		calls:   make(map[string][]CallTemplate),
	}

	for _, pair := range pairs {
		pkg := pair.OuterPackage()
		corpus.nesting[pkg] = append(corpus.nesting[pkg], pair)
	}

	for _, call := range calls {
		tmpl, err := ParseCallTemplate(call)
		if err != nil {
			slog.Debug("Skipping mined API call", "accPath", call.AccPath, "error", err)

			continue
		}

		corpus.calls[tmpl.Pkg] = append(corpus.calls[tmpl.Pkg], tmpl)
	}

	return corpus
}

// Empty reports whether the corpus holds no data at all.
func (c *Corpus) Empty() bool {
	return c == nil || (len(c.nesting) == 0 && len(c.calls) == 0)
}

// NumPairs returns the number of nesting pairs for pkg.
func (c *Corpus) NumPairs(pkg string) int {
	if c == nil {
		return 0
	}

	return len(c.nesting[pkg])
}

// CallTemplates returns the API call templates for pkg.
func (c *Corpus) CallTemplates(pkg string) []CallTemplate {
	if c == nil {
		return nil
	}

	return c.calls[pkg]
}
