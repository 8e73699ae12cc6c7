// Package registry resolves a model kind to its extractor and the
// dialect set that can emit it.
//
// A Registry is immutable once built. Default returns the process-wide
// registry of built-in kinds; callers needing more kinds build their own
// with New.
package registry

import (
	"sort"
	"sync"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/ir"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
)

// Entry pairs an extractor with the dialects for one model kind.
type Entry struct {
	Extract  ir.Extractor
	Dialects map[codegen.Backend]codegen.Dialect
}

// Registry maps model kinds to entries.
type Registry struct {
	entries map[model.Kind]Entry
}

// New builds a registry from entries. The map is copied.
func New(entries map[model.Kind]Entry) *Registry {
	r := &Registry{entries: make(map[model.Kind]Entry, len(entries))}
	for k, e := range entries {
		ds := make(map[codegen.Backend]codegen.Dialect, len(e.Dialects))
		for b, d := range e.Dialects {
			ds[b] = d
		}
		r.entries[k] = Entry{Extract: e.Extract, Dialects: ds}
	}
	return r
}

// Default returns the registry of built-in kinds: decision trees and
// random forests, each on every backend.
var Default = sync.OnceValue(func() *Registry {
	dialects := map[codegen.Backend]codegen.Dialect{
		codegen.Interpreted:     codegen.CUE{},
		codegen.ManagedNative:   codegen.Go{},
		codegen.UnmanagedNative: codegen.C{},
	}
	var extract ir.Extractor
	forest := func(m model.Model) (ir.Model, error) { return ir.ExtractForest(extract)(m) }
	entries := map[model.Kind]Entry{
		model.KindDecisionTree: {Extract: ir.ExtractTree, Dialects: dialects},
		model.KindRandomForest: {Extract: forest, Dialects: dialects},
	}
	r := New(entries)
	extract = r.Extract
	return r
})

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []model.Kind {
	out := make([]model.Kind, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Extract converts m with the extractor registered for its kind.
func (r *Registry) Extract(m model.Model) (ir.Model, error) {
	if m == nil {
		return nil, errs.UnsupportedModel("model is nil")
	}
	e, ok := r.entries[m.Kind()]
	if !ok {
		return nil, errs.UnsupportedModel("model kind %q is not registered", m.Kind())
	}
	return e.Extract(m)
}

// Resolve returns the extractor and dialect for kind on backend.
func (r *Registry) Resolve(kind model.Kind, backend codegen.Backend) (ir.Extractor, codegen.Dialect, error) {
	e, ok := r.entries[kind]
	if !ok {
		return nil, nil, errs.UnsupportedModel("model kind %q is not registered", kind)
	}
	d, ok := e.Dialects[backend]
	if !ok {
		known := make([]string, 0, len(e.Dialects))
		for b := range e.Dialects {
			known = append(known, string(b))
		}
		sort.Strings(known)
		return nil, nil, errs.UnknownBackend(string(backend), known)
	}
	return r.Extract, d, nil
}
