package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	treefreeze "github.com/xsjk/Sklearn-Freezer"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	BuildFlags
	Output string
}

// GenerateResult is the JSON payload of generate.
type GenerateResult struct {
	Backend    string   `json:"backend"`
	Convention string   `json:"convention"`
	Entry      string   `json:"entry"`
	SourceHash string   `json:"source_hash"`
	Features   []string `json:"features"`
	Source     string   `json:"source,omitempty"`
	Output     string   `json:"output,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <model>",
		Short: "Print the source a model freezes to",
		Long: `Generate the source for a model without building it.

Example:
  treefreeze generate model.yaml --backend unmanaged-native --batch
  treefreeze generate model.yaml -b managed-native -o predict.go`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", string(codegen.Interpreted),
		"target backend (interpreted|managed-native|unmanaged-native)")
	cmd.Flags().BoolVar(&opts.Batch, "batch", false, "emit the batch entry point")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runGenerate(opts *GenerateOptions, modelPath string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd, false)
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

	conv := codegen.Scalar
	if opts.Batch {
		conv = codegen.Batch
	}
	art, err := treefreeze.Generate(m, backend, conv)
	if err != nil {
		return f.Fail(err)
	}
	f.VerboseLog("Generated %d bytes for %s (%s)", len(art.Source), backend, conv)

	result := GenerateResult{
		Backend:    string(art.Backend),
		Convention: string(art.Convention),
		Entry:      art.Entry,
		SourceHash: art.SourceHash,
		Features:   art.FeatureNames,
	}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, art.Source, 0o644); err != nil {
			return f.FailWith(ErrCodeWriteFailed, "writing output file", err)
		}
		result.Output = opts.Output
	} else {
		result.Source = string(art.Source)
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	if opts.Output == "" {
		_, err := f.Writer.Write(art.Source)
		return err
	}
	fmt.Fprintf(f.Writer, "✓ Wrote %s source to %s (entry %s)\n", art.Backend, opts.Output, art.Entry)
	return nil
}
