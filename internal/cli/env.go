package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	treefreeze "github.com/xsjk/Sklearn-Freezer"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/config"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
	"github.com/xsjk/Sklearn-Freezer/internal/store"
)

// BuildFlags are the flags shared by commands that build a model.
type BuildFlags struct {
	Backend string
	Batch   bool
	Module  string
	WorkDir string
	TempDir string
}

func (b *BuildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&b.Backend, "backend", "b", string(codegen.Interpreted),
		"target backend (interpreted|managed-native|unmanaged-native)")
	cmd.Flags().StringVarP(&b.Module, "module", "m", "", "persistent module name (default: ephemeral)")
	cmd.Flags().StringVar(&b.WorkDir, "work-dir", "", "persistent module directory (overrides config)")
	cmd.Flags().StringVar(&b.TempDir, "temp-dir", "", "ephemeral build directory (overrides config)")
}

// session is the per-invocation state shared by commands.
type session struct {
	formatter *OutputFormatter
	cfg       config.Config
	logger    *slog.Logger
	manifest  *store.Store
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openSession loads the config and, if one is configured, the manifest.
// Callers must Close the session.
func openSession(opts *RootOptions, cmd *cobra.Command, withManifest bool) (*session, error) {
	s := &session{formatter: newFormatter(opts, cmd)}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, s.formatter.FailWith(ErrCodeConfig, "failed to load config", err)
	}
	s.cfg = cfg
	s.formatter.VerboseLog("Using work dir %s", cfg.WorkDir)

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	s.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if withManifest && cfg.Manifest != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Manifest), 0o755); err != nil {
			return nil, s.formatter.FailWith(ErrCodeWriteFailed, "failed to create manifest dir", err)
		}
		st, err := store.Open(cfg.Manifest)
		if err != nil {
			return nil, s.formatter.FailWith(ErrCodeConfig, "failed to open manifest", err)
		}
		s.manifest = st
	}
	return s, nil
}

func (s *session) Close() {
	if s.manifest == nil {
		return
	}
	if err := s.manifest.Close(); err != nil {
		s.logger.Error("error closing manifest", "error", err)
	}
}

// loadModel reads a model document, reporting missing files separately.
func (s *session) loadModel(path string) (model.Model, error) {
	m, err := model.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, s.formatter.FailWith(ErrCodeNotFound, "model not found", err)
	}
	if err != nil {
		return nil, s.formatter.FailWith(ErrCodeInvalidInput, "failed to load model", err)
	}
	return m, nil
}

// options converts flags and config into compile options. Flags win over
// config values.
func (s *session) options(b *BuildFlags) []treefreeze.Option {
	cfg := s.cfg
	if b.WorkDir != "" {
		cfg.WorkDir = b.WorkDir
	}
	if b.TempDir != "" {
		cfg.TempDir = b.TempDir
	}
	opts := []treefreeze.Option{
		treefreeze.WithBuildConfig(cfg),
		treefreeze.WithLogger(s.logger),
		treefreeze.WithModuleName(b.Module),
	}
	if b.Batch {
		opts = append(opts, treefreeze.WithBatch())
	}
	if s.manifest != nil {
		opts = append(opts, treefreeze.WithStore(s.manifest))
	}
	return opts
}
