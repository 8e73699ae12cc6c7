package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	treefreeze "github.com/xsjk/Sklearn-Freezer"
	"github.com/xsjk/Sklearn-Freezer/internal/build"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	BuildFlags
}

// CompileResult describes a loaded unit.
type CompileResult struct {
	Identity     string   `json:"identity"`
	Module       string   `json:"module,omitempty"`
	Backend      string   `json:"backend"`
	Convention   string   `json:"convention"`
	Persistence  string   `json:"persistence"`
	SourceHash   string   `json:"source_hash"`
	ArtifactPath string   `json:"artifact_path,omitempty"`
	ArtifactSize int64    `json:"artifact_size,omitempty"`
	Features     []string `json:"features"`
	States       []string `json:"states"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model>",
		Short: "Build and load a model",
		Long: `Generate, build and load a model, reporting the path the build took.

Without --module the artifact is ephemeral and deleted once loaded. With
--module the source and artifact stay in the work dir; compiling the same
model again loads the existing artifact.

Example:
  treefreeze compile model.yaml -b unmanaged-native -m churn
  treefreeze compile model.yaml -b managed-native --batch --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	opts.BuildFlags.register(cmd)
	cmd.Flags().BoolVar(&opts.Batch, "batch", false, "use the batch calling convention")

	return cmd
}

func runCompile(opts *CompileOptions, modelPath string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()
	f := s.formatter

	backend, err := codegen.ParseBackend(opts.Backend)
	if err != nil {
		return f.Fail(err)
	}
	m, err := s.loadModel(modelPath)
	if err != nil {
		return err
	}

	u, err := treefreeze.Compile(cmd.Context(), m, backend, s.options(&opts.BuildFlags)...)
	if err != nil {
		return f.Fail(err)
	}
	defer u.Close()

	result := unitResult(u)
	if f.Format == "json" {
		return f.Success(result)
	}

	fmt.Fprintf(f.Writer, "✓ Compiled %s (%s, %s, %s)\n",
		result.Identity, result.Backend, result.Convention, result.Persistence)
	fmt.Fprintf(f.Writer, "  features: %s\n", strings.Join(result.Features, ", "))
	fmt.Fprintf(f.Writer, "  states:   %s\n", strings.Join(result.States, " → "))
	if result.ArtifactPath != "" {
		fmt.Fprintf(f.Writer, "  artifact: %s (%s)\n",
			result.ArtifactPath, humanize.IBytes(uint64(result.ArtifactSize)))
	}
	return nil
}

func unitResult(u *build.Unit) CompileResult {
	states := u.States()
	names := make([]string, len(states))
	for i, st := range states {
		names[i] = string(st)
	}
	return CompileResult{
		Identity:     u.Identity(),
		Module:       u.ModuleName(),
		Backend:      string(u.Backend()),
		Convention:   string(u.Convention()),
		Persistence:  string(u.Persistence()),
		SourceHash:   u.SourceHash(),
		ArtifactPath: u.ArtifactPath(),
		ArtifactSize: fileSize(u.ArtifactPath()),
		Features:     u.FeatureNames(),
		States:       names,
	}
}
