package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/xsjk/Sklearn-Freezer/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to treefreeze.yaml
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the treefreeze CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "treefreeze",
		Short: "Freeze fitted decision trees into compiled code",
		Long: `treefreeze turns a fitted binary decision tree or tree ensemble into
source code for one of three backends and loads the built artifact:

  interpreted       CUE evaluated in-process, no build step
  managed-native    Go plugin built with the go toolchain
  unmanaged-native  C shared library built with a C compiler`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", config.DefaultFile, "path to config file")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewPredictCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))

	return cmd
}
