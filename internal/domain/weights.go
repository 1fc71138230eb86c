package domain

import (
	"math/rand/v2"

	m "nessie.dev/pkg/nessie/internal/model"
)

// fctWeight is the selection weight of one function and of each abstract
// shape tried with it.
type fctWeight struct {
	fn       m.FunctionKey
	weight   float64
	sigs     map[m.ShapeKey]float64
	sigOrder []m.ShapeKey
}

func (w *fctWeight) addShape(shape m.ShapeKey) {
	if _, ok := w.sigs[shape]; ok {
		return
	}

	w.sigs[shape] = 1
	w.sigOrder = append(w.sigOrder, shape)
}

// weightTable biases selection toward functions and shapes that were picked
// less often: every pick multiplies the weight by a factor below one.
type weightTable struct {
	entries []*fctWeight
	index   map[m.FunctionKey]int
}

func newWeightTable() *weightTable {
	return &weightTable{index: make(map[m.FunctionKey]int)}
}

// sync adds functions and shapes the registry learned since the last call,
// each at weight one.
func (t *weightTable) sync(reg *Registry) {
	for _, fn := range reg.Functions() {
		key := fn.Key()

		idx, ok := t.index[key]
		if !ok {
			idx = len(t.entries)
			t.index[key] = idx
			t.entries = append(t.entries, &fctWeight{fn: key, weight: 1, sigs: make(map[m.ShapeKey]float64)})
		}

		for _, sig := range fn.Sigs {
			t.entries[idx].addShape(sig.Shape().Key())
		}
	}
}

func (t *weightTable) entry(key m.FunctionKey) (*fctWeight, bool) {
	idx, ok := t.index[key]
	if !ok {
		return nil, false
	}

	return t.entries[idx], true
}

// decayFunction lowers the weight of fn after it was picked.
func (t *weightTable) decayFunction(key m.FunctionKey, factor float64) {
	if entry, ok := t.entry(key); ok {
		entry.weight *= factor
	}
}

// decayShape lowers the weight of a shape of fn after it was picked,
// inserting it at weight one first if needed.
func (t *weightTable) decayShape(key m.FunctionKey, shape m.ShapeKey, factor float64) {
	entry, ok := t.entry(key)
	if !ok {
		return
	}

	entry.addShape(shape)
	entry.sigs[shape] *= factor
}

// pickShape samples one of fn's shapes by weight.
func (t *weightTable) pickShape(rnd *rand.Rand, key m.FunctionKey) (m.ShapeKey, bool) {
	entry, ok := t.entry(key)
	if !ok || len(entry.sigOrder) == 0 {
		return "", false
	}

	weights := make([]float64, len(entry.sigOrder))
	for i, shape := range entry.sigOrder {
		weights[i] = entry.sigs[shape]
	}

	idx, ok := pickWeighted(rnd, weights)
	if !ok {
		return "", false
	}

	return entry.sigOrder[idx], true
}

// pickWeighted samples an index with probability proportional to its weight.
// It reports false when every weight is zero.
func pickWeighted(rnd *rand.Rand, weights []float64) (int, bool) {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}

	if total <= 0 {
		return 0, false
	}

	target := rnd.Float64() * total
	last := -1

	for i, w := range weights {
		if w <= 0 {
			continue
		}

		last = i

		if target < w {
			return i, true
		}

		target -= w
	}

	return last, true
}
