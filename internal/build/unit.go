package build

import (
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/tensor"
)

// Persistence is the artifact lifetime of a unit.
type Persistence string

const (
	// Ephemeral artifacts are deleted once loaded.
	Ephemeral Persistence = "ephemeral"

	// Persistent artifacts stay under a stable module name.
	Persistent Persistence = "persistent"
)

// State is a build-manager state.
type State string

const (
	StateSourceGenerated State = "source_generated"
	StateCacheHit        State = "cache_hit"
	StateBuildInvoked    State = "build_invoked"
	StateBuildSucceeded  State = "build_succeeded"
	StateBuildFailed     State = "build_failed"
	StateLoaded          State = "loaded"
	StateArtifactPurged  State = "artifact_purged"
)

// Unit is a loaded, callable artifact.
//
// Scalar and Batch are safe for concurrent use unless the unit was loaded
// with ReuseOutputBuffer, in which case callers must serialize Batch.
type Unit struct {
	identity     string
	moduleName   string
	persistence  Persistence
	backend      codegen.Backend
	convention   codegen.Convention
	featureNames []string
	sourceHash   string
	artifactPath string
	states       []State

	call  *Callable
	reuse bool
	out   *tensor.Array
}

func newUnit(art *codegen.Artifact, opts LoadOptions) *Unit {
	u := &Unit{
		identity:     art.SourceHash,
		moduleName:   opts.ModuleName,
		persistence:  Ephemeral,
		backend:      art.Backend,
		convention:   art.Convention,
		featureNames: append([]string(nil), art.FeatureNames...),
		sourceHash:   art.SourceHash,
		reuse:        opts.ReuseOutputBuffer,
	}
	if opts.ModuleName != "" {
		u.identity = opts.ModuleName
		u.persistence = Persistent
	}
	return u
}

// Identity is the module name for persistent units and the source hash
// otherwise.
func (u *Unit) Identity() string { return u.identity }

// ModuleName returns the persistent module name, or "".
func (u *Unit) ModuleName() string { return u.moduleName }

// Persistence returns the artifact lifetime.
func (u *Unit) Persistence() Persistence { return u.persistence }

// Backend returns the backend the unit was built for.
func (u *Unit) Backend() codegen.Backend { return u.backend }

// Convention returns the calling convention of the entry point.
func (u *Unit) Convention() codegen.Convention { return u.convention }

// FeatureCount returns the number of inputs per sample.
func (u *Unit) FeatureCount() int { return len(u.featureNames) }

// FeatureNames returns the parameter identifiers in feature order.
func (u *Unit) FeatureNames() []string { return append([]string(nil), u.featureNames...) }

// SourceHash returns the content identity of the generated source.
func (u *Unit) SourceHash() string { return u.sourceHash }

// ArtifactPath returns the on-disk artifact of a persistent native unit,
// or "".
func (u *Unit) ArtifactPath() string { return u.artifactPath }

// States returns the state-machine path the unit took.
func (u *Unit) States() []State { return append([]State(nil), u.states...) }

// Scalar evaluates one sample.
func (u *Unit) Scalar(x ...float64) (float64, error) {
	if u.call == nil || u.call.Scalar == nil {
		return 0, errs.TypeMismatch("unit %s was compiled for the %s calling convention", u.identity, u.convention)
	}
	if len(x) != len(u.featureNames) {
		return 0, errs.TypeMismatch("expected %d features, got %d", len(u.featureNames), len(x))
	}
	return u.call.Scalar(x)
}

// Batch evaluates every row of b, a contiguous [N, FeatureCount] float64
// buffer, and returns an [N] array. b is validated before the compiled
// function runs.
func (u *Unit) Batch(b tensor.Buffer) (*tensor.Array, error) {
	if u.call == nil || u.call.Batch == nil {
		return nil, errs.TypeMismatch("unit %s was compiled for the %s calling convention", u.identity, u.convention)
	}
	cols := len(u.featureNames)
	data, rows, err := tensor.CheckMatrix(b, cols)
	if err != nil {
		return nil, err
	}

	out := u.out
	if !u.reuse || out == nil || out.Len() != rows {
		out = tensor.New(rows)
		if u.reuse {
			u.out = out
		}
	}
	if err := u.call.Batch(data, rows, cols, out.Float64s()); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases loader resources. The unit must not be called afterwards.
func (u *Unit) Close() error {
	if u.call == nil || u.call.Release == nil {
		return nil
	}
	err := u.call.Release()
	u.call = nil
	return err
}
