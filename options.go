package treefreeze

import (
	"log/slog"

	"github.com/xsjk/Sklearn-Freezer/internal/build"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/config"
	"github.com/xsjk/Sklearn-Freezer/internal/registry"
)

// Options configures one compile. Zero values take defaults.
type Options struct {
	// Convention is Scalar unless WithBatch is given.
	Convention codegen.Convention

	// ModuleName makes the artifact persistent. Empty means ephemeral.
	ModuleName string

	// ReuseOutputBuffer makes Batch return one array across calls with
	// equal row counts. Concurrent Batch calls on the unit must then be
	// serialized by the caller.
	ReuseOutputBuffer bool

	// WorkDir holds persistent modules. TempDir holds ephemeral builds.
	WorkDir string
	TempDir string

	// Toolchain configures the native builders.
	Toolchain config.Toolchain

	Logger *slog.Logger

	// Recorder receives the build manifest, usually a *store.Store.
	Recorder build.Recorder

	// Registry resolves model kinds. Default registry.Default().
	Registry *registry.Registry

	// Manager overrides every build-related field above.
	Manager *build.Manager
}

// Option mutates Options.
type Option func(*Options)

// WithBatch selects the batch calling convention.
func WithBatch() Option {
	return func(o *Options) { o.Convention = codegen.Batch }
}

// WithConvention selects the calling convention.
func WithConvention(c codegen.Convention) Option {
	return func(o *Options) { o.Convention = c }
}

// WithModuleName builds a persistent module under name.
func WithModuleName(name string) Option {
	return func(o *Options) { o.ModuleName = name }
}

// WithReuseOutputBuffer toggles output buffer reuse for batch units.
func WithReuseOutputBuffer(reuse bool) Option {
	return func(o *Options) { o.ReuseOutputBuffer = reuse }
}

// WithWorkDir sets the persistent module directory.
func WithWorkDir(dir string) Option {
	return func(o *Options) { o.WorkDir = dir }
}

// WithTempDir sets the ephemeral build directory.
func WithTempDir(dir string) Option {
	return func(o *Options) { o.TempDir = dir }
}

// WithLogger sets the logger for build state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithStore records every build outcome to r.
func WithStore(r build.Recorder) Option {
	return func(o *Options) { o.Recorder = r }
}

// WithRegistry resolves model kinds through r.
func WithRegistry(r *registry.Registry) Option {
	return func(o *Options) { o.Registry = r }
}

// WithBuildConfig applies the directories and toolchain of a loaded
// treefreeze.yaml.
func WithBuildConfig(cfg config.Config) Option {
	return func(o *Options) {
		o.WorkDir = cfg.WorkDir
		o.TempDir = cfg.TempDir
		o.Toolchain = cfg.Toolchain
	}
}

// WithManager loads through m. Compiles sharing a manager share its
// directories, drivers and recorder.
func WithManager(m *build.Manager) Option {
	return func(o *Options) { o.Manager = m }
}

func newOptions(opts []Option) *Options {
	o := &Options{
		Convention: codegen.Scalar,
		Toolchain:  config.Default().Toolchain,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Registry == nil {
		o.Registry = registry.Default()
	}
	return o
}

func (o *Options) manager() *build.Manager {
	if o.Manager != nil {
		return o.Manager
	}
	return build.NewManager(build.Config{
		WorkDir:  o.WorkDir,
		TempDir:  o.TempDir,
		Drivers:  build.DefaultDrivers(o.Toolchain),
		Recorder: o.Recorder,
		Logger:   o.Logger,
	})
}
