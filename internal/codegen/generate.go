package codegen

import (
	"strconv"
	"strings"

	"github.com/xsjk/Sklearn-Freezer/internal/ir"
)

// RawFunc is the name of the raw prediction function in every unit.
const RawFunc = ReservedPrefix + "predict"

// Header opens every generated file. The version is part of the source,
// so changing the generator invalidates persistent caches.
const Header = "// Code generated by treefreeze " + ir.GeneratorVersion + ". DO NOT EDIT.\n"

// Artifact is generated source plus what the build manager needs to turn
// it into a callable.
type Artifact struct {
	Backend    Backend
	Convention Convention
	Source     []byte

	// SourceExt is the file extension of Source, without the dot.
	SourceExt string

	// Entry is the symbol the host resolves after loading.
	Entry string

	// Raw is the raw prediction function wrapped by Entry.
	Raw string

	FeatureCount int
	FeatureNames []string

	// SourceHash is the content identity of Source for Backend.
	SourceHash string

	// ModelHash is the structural identity of the IR the source came from.
	ModelHash string
}

// Generate renders m for d under conv. names are the model's feature
// names, or nil for the default x0..xN parameters.
func Generate(d Dialect, m ir.Model, conv Convention, names []string) (*Artifact, error) {
	names, err := Identifiers(m.NumFeatures(), names)
	if err != nil {
		return nil, err
	}
	fns, err := Aggregate(d, Func{Name: RawFunc, Params: names, Exported: true}, m)
	if err != nil {
		return nil, err
	}
	wrapper, entry := Wrap(d, RawFunc, names, conv)

	var b strings.Builder
	b.WriteString(Header)
	b.WriteString(d.Prologue(conv))
	for _, fn := range fns {
		b.WriteByte('\n')
		b.WriteString(fn)
	}
	b.WriteByte('\n')
	b.WriteString(wrapper)

	src := []byte(b.String())
	return &Artifact{
		Backend:      d.Backend(),
		Convention:   conv,
		Source:       src,
		SourceExt:    d.SourceExt(),
		Entry:        entry,
		Raw:          RawFunc,
		FeatureCount: m.NumFeatures(),
		FeatureNames: append([]string(nil), names...),
		SourceHash:   ir.SourceHash(string(d.Backend()), src),
		ModelHash:    ir.ModelHash(m),
	}, nil
}

func itoa(i int) string { return strconv.Itoa(i) }
