package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/config"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/ir"
	"github.com/xsjk/Sklearn-Freezer/internal/store"
)

// Recorder receives one record per terminal outcome. *store.Store
// implements it.
type Recorder interface {
	RecordBuild(ctx context.Context, r store.Record) (int64, error)
}

// Config configures a Manager. Zero fields take defaults.
type Config struct {
	// WorkDir holds persistent modules. Default ".".
	WorkDir string

	// TempDir holds ephemeral builds. Default os.TempDir().
	TempDir string

	// Drivers serve backends. Default DefaultDrivers of the default
	// toolchain.
	Drivers []Driver

	// Recorder, if set, receives the build manifest.
	Recorder Recorder

	// Logger receives state transitions. Default slog.Default().
	Logger *slog.Logger

	// Names generates ephemeral base names. Default UUIDv7Generator.
	Names NameGenerator
}

// LoadOptions selects the artifact lifetime and output handling.
type LoadOptions struct {
	// ModuleName makes the unit persistent under this name. Empty means
	// ephemeral.
	ModuleName string

	// ReuseOutputBuffer makes Batch return the same array across calls
	// with equal row counts. Callers must then serialize Batch calls.
	ReuseOutputBuffer bool
}

// Manager turns artifacts into units.
type Manager struct {
	workDir  string
	tempDir  string
	drivers  map[codegen.Backend]Driver
	recorder Recorder
	logger   *slog.Logger
	names    NameGenerator
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		workDir:  cfg.WorkDir,
		tempDir:  cfg.TempDir,
		drivers:  make(map[codegen.Backend]Driver),
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		names:    cfg.Names,
	}
	if m.workDir == "" {
		m.workDir = "."
	}
	if m.tempDir == "" {
		m.tempDir = os.TempDir()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.names == nil {
		m.names = UUIDv7Generator{}
	}
	drivers := cfg.Drivers
	if drivers == nil {
		drivers = DefaultDrivers(config.Default().Toolchain)
	}
	for _, d := range drivers {
		m.drivers[d.Backend()] = d
	}
	return m
}

// WorkDir returns the persistent module directory.
func (m *Manager) WorkDir() string { return m.workDir }

var moduleNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateModuleName reports whether name can be used as a persistent
// module name.
func ValidateModuleName(name string) error {
	if !moduleNamePattern.MatchString(name) {
		return fmt.Errorf("invalid module name %q: must match %s", name, moduleNamePattern)
	}
	return nil
}

// Load builds or reuses art and returns the loaded unit.
func (m *Manager) Load(ctx context.Context, art *codegen.Artifact, opts LoadOptions) (*Unit, error) {
	d, ok := m.drivers[art.Backend]
	if !ok {
		known := make([]string, 0, len(m.drivers))
		for _, b := range codegen.Backends() {
			if _, ok := m.drivers[b]; ok {
				known = append(known, string(b))
			}
		}
		return nil, errs.UnknownBackend(string(art.Backend), known)
	}
	if opts.ModuleName != "" {
		if err := ValidateModuleName(opts.ModuleName); err != nil {
			return nil, err
		}
	}

	r := &request{m: m, art: art, driver: d, unit: newUnit(art, opts)}
	r.transition(StateSourceGenerated)

	if d.ArtifactSuffix() == "" {
		return r.evaluate(ctx)
	}
	if err := d.Check(ctx); err != nil {
		m.logger.Error("toolchain unavailable",
			"backend", art.Backend,
			"error", err,
		)
		return nil, err
	}
	if opts.ModuleName == "" {
		return r.ephemeral(ctx)
	}
	return r.persistent(ctx)
}

// request is one pass through the state machine.
type request struct {
	m      *Manager
	art    *codegen.Artifact
	driver Driver
	unit   *Unit
}

func (r *request) transition(s State) {
	r.unit.states = append(r.unit.states, s)
	level := slog.LevelDebug
	switch s {
	case StateLoaded, StateBuildFailed:
		level = slog.LevelInfo
	}
	r.m.logger.Log(context.Background(), level, "build state",
		"state", s,
		"identity", r.unit.identity,
		"backend", r.art.Backend,
		"convention", r.art.Convention,
		"persistence", r.unit.persistence,
		"source_hash", r.art.SourceHash,
	)
}

func (r *request) evaluate(ctx context.Context) (*Unit, error) {
	call, err := r.driver.Load(ctx, "", r.art)
	if err != nil {
		err = asBuildError(r.art.Backend, err)
		r.transition(StateBuildFailed)
		r.record(ctx, store.OutcomeFailed, "", errs.Diagnostics(err))
		return nil, err
	}
	r.unit.call = call
	r.transition(StateLoaded)
	r.record(ctx, store.OutcomeEvaluated, "", "")
	return r.unit, nil
}

func (r *request) ephemeral(ctx context.Context) (*Unit, error) {
	if err := os.MkdirAll(r.m.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	base := r.m.names.Generate()
	src := filepath.Join(r.m.tempDir, base+"."+r.art.SourceExt)
	out := filepath.Join(r.m.tempDir, base+r.driver.ArtifactSuffix())
	defer r.purge(src, out)

	if err := r.build(ctx, src, out); err != nil {
		return nil, err
	}
	size := fileSize(out)
	if err := r.load(ctx, out); err != nil {
		return nil, err
	}
	r.record(ctx, store.OutcomeBuilt, out, "")
	r.m.logger.Debug("ephemeral artifact loaded", "artifact", out, "size", size)
	return r.unit, nil
}

func (r *request) persistent(ctx context.Context) (*Unit, error) {
	if err := os.MkdirAll(r.m.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	module := r.unit.moduleName
	suffix := r.driver.ArtifactSuffix()
	src := filepath.Join(r.m.workDir, module+"."+r.art.SourceExt)
	out := filepath.Join(r.m.workDir, artifactName(module, r.art.SourceHash, suffix))

	existing, err := os.ReadFile(src)
	if err == nil && bytes.Equal(existing, r.art.Source) {
		r.transition(StateCacheHit)
		call, err := r.driver.Load(ctx, out, r.art)
		if err == nil {
			r.unit.call = call
			r.unit.artifactPath = out
			r.transition(StateLoaded)
			r.record(ctx, store.OutcomeCacheHit, out, "")
			return r.unit, nil
		}
		r.m.logger.Warn("cached artifact failed to load, rebuilding",
			"identity", module,
			"artifact", out,
			"error", err,
		)
	}

	// Build under a unique name and rename into place, so a failed or
	// concurrent build never leaves a mismatched source/artifact pair.
	tmp := module + "." + r.m.names.Generate()
	tmpSrc := filepath.Join(r.m.workDir, tmp+"."+r.art.SourceExt)
	tmpOut := filepath.Join(r.m.workDir, tmp+suffix)
	defer r.purge(tmpSrc, tmpOut)

	if err := r.build(ctx, tmpSrc, tmpOut); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpOut, out); err != nil {
		return nil, fmt.Errorf("install artifact: %w", err)
	}
	if err := os.Rename(tmpSrc, src); err != nil {
		return nil, fmt.Errorf("install source: %w", err)
	}
	if err := r.load(ctx, out); err != nil {
		removeQuietly(src)
		removeQuietly(out)
		return nil, err
	}
	r.unit.artifactPath = out
	r.prune(module, out)
	r.record(ctx, store.OutcomeBuilt, out, "")
	return r.unit, nil
}

var artifactTagPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// artifactName names a persistent artifact after its module and source
// hash. Loaders cache handles by path; a path always holds one source.
func artifactName(module, sourceHash, suffix string) string {
	tag := sourceHash
	if len(tag) > 16 {
		tag = tag[:16]
	}
	return module + "." + tag + suffix
}

// prune removes the module's artifacts other than keep.
func (r *request) prune(module, keep string) {
	entries, err := os.ReadDir(r.m.workDir)
	if err != nil {
		return
	}
	suffix := r.driver.ArtifactSuffix()
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, module+".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		tag := strings.TrimSuffix(strings.TrimPrefix(name, module+"."), suffix)
		path := filepath.Join(r.m.workDir, name)
		if !artifactTagPattern.MatchString(tag) || path == keep {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.m.logger.Warn("failed to remove stale artifact", "path", path, "error", err)
		}
	}
}

// build writes the source to src and runs the driver into out.
func (r *request) build(ctx context.Context, src, out string) error {
	if err := os.WriteFile(src, r.art.Source, 0o644); err != nil {
		return fmt.Errorf("write source: %w", err)
	}
	r.transition(StateBuildInvoked)
	if err := r.driver.Build(ctx, src, out, r.art); err != nil {
		err = asBuildError(r.art.Backend, err)
		removeQuietly(out)
		r.transition(StateBuildFailed)
		r.record(ctx, store.OutcomeFailed, "", errs.Diagnostics(err))
		return err
	}
	r.transition(StateBuildSucceeded)
	return nil
}

func (r *request) load(ctx context.Context, out string) error {
	call, err := r.driver.Load(ctx, out, r.art)
	if err != nil {
		err = asBuildError(r.art.Backend, fmt.Errorf("load %s: %w", out, err))
		r.transition(StateBuildFailed)
		r.record(ctx, store.OutcomeFailed, "", errs.Diagnostics(err))
		return err
	}
	r.unit.call = call
	r.transition(StateLoaded)
	return nil
}

// purge removes ephemeral files. Removal failures are tolerated: a loaded
// library may still be locked on some platforms.
func (r *request) purge(paths ...string) {
	removed := false
	for _, p := range paths {
		if err := os.Remove(p); err == nil {
			removed = true
		} else if !errors.Is(err, os.ErrNotExist) {
			r.m.logger.Warn("failed to remove artifact", "path", p, "error", err)
		}
	}
	if removed && r.unit.persistence == Ephemeral && r.unit.call != nil {
		r.transition(StateArtifactPurged)
	}
}

func (r *request) record(ctx context.Context, outcome store.Outcome, artifact, diagnostics string) {
	if r.m.recorder == nil {
		return
	}
	rec := store.Record{
		Identity:     r.unit.identity,
		ModuleName:   r.unit.moduleName,
		Backend:      string(r.art.Backend),
		Convention:   string(r.art.Convention),
		Persistence:  string(r.unit.persistence),
		SourceHash:   r.art.SourceHash,
		Outcome:      outcome,
		ArtifactPath: artifact,
		ArtifactSize: fileSize(artifact),
		Diagnostics:  diagnostics,
		Generator:    ir.GeneratorVersion,
	}
	if _, err := r.m.recorder.RecordBuild(ctx, rec); err != nil {
		r.m.logger.Warn("failed to record build", "identity", rec.Identity, "error", err)
	}
}

func asBuildError(backend codegen.Backend, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Build(string(backend), "", err)
}

func fileSize(path string) int64 {
	if path == "" {
		return 0
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func removeQuietly(path string) {
	_ = os.Remove(path)
}
