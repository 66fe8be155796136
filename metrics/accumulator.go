package metrics

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoData indicates a declared metric key that was never updated during
// the loader pass, so no mean can be computed for it.
var ErrNoData = errors.New("metrics: no data for metric")

// Accumulator keeps a weighted running mean per declared metric key. It is
// scoped to one loader pass: created fresh at loader start, finalized at
// loader end, then discarded. Updates to undeclared keys are silently
// skipped, which lets a batch handler emit phase-conditional extra keys
// without the accumulator needing phase knowledge.
type Accumulator struct {
	sums    map[string]float64
	weights map[string]float64
}

// NewAccumulator creates an empty accumulator with no declared keys.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		sums:    make(map[string]float64),
		weights: make(map[string]float64),
	}
}

// Declare registers metric keys. Only declared keys accept updates.
func (a *Accumulator) Declare(keys ...string) {
	for _, key := range keys {
		if _, ok := a.sums[key]; ok {
			continue
		}
		a.sums[key] = 0
		a.weights[key] = 0
	}
}

// Declared reports whether key has been declared.
func (a *Accumulator) Declared(key string) bool {
	_, ok := a.sums[key]
	return ok
}

// Update folds one weighted observation into the running mean for key.
// Updating an undeclared key is a no-op.
func (a *Accumulator) Update(key string, value, weight float64) {
	if _, ok := a.sums[key]; !ok {
		return
	}
	a.sums[key] += value * weight
	a.weights[key] += weight
}

// Finalize returns the weighted mean for key. A declared key with no
// accumulated weight yields ErrNoData; an undeclared key is an error.
func (a *Accumulator) Finalize(key string) (float64, error) {
	sum, ok := a.sums[key]
	if !ok {
		return 0, fmt.Errorf("metrics: finalize of undeclared key %q", key)
	}
	weight := a.weights[key]
	if weight == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoData, key)
	}
	return sum / weight, nil
}

// Keys returns the declared keys in sorted order.
func (a *Accumulator) Keys() []string {
	keys := make([]string, 0, len(a.sums))
	for key := range a.sums {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
