package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xsjk/Sklearn-Freezer/internal/store"
)

// CacheListOptions holds flags for the cache ls command.
type CacheListOptions struct {
	*RootOptions
	Identity string
	Backend  string
	Outcome  string
	Limit    int
}

// CacheEntry is one manifest row as shown by cache ls.
type CacheEntry struct {
	Seq          int64  `json:"seq"`
	Identity     string `json:"identity"`
	Backend      string `json:"backend"`
	Convention   string `json:"convention"`
	Persistence  string `json:"persistence"`
	Outcome      string `json:"outcome"`
	SourceHash   string `json:"source_hash"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	ArtifactSize int64  `json:"artifact_size,omitempty"`
	Present      bool   `json:"present"`
	Generator    string `json:"generator"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the build manifest",
	}
	cmd.AddCommand(newCacheListCommand(rootOpts))
	return cmd
}

func newCacheListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List recorded builds",
		Long: `List the builds recorded in the manifest configured in treefreeze.yaml.

Example:
  treefreeze cache ls
  treefreeze cache ls --outcome failed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Identity, "identity", "", "only builds of this module name or source hash")
	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "", "only builds for this backend")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only builds with this outcome (built|cache_hit|evaluated|failed)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum number of builds (0 = all)")

	return cmd
}

func runCacheList(opts *CacheListOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()
	f := s.formatter

	if s.manifest == nil {
		return f.FailWith(ErrCodeConfig, fmt.Sprintf("no manifest configured in %s", opts.Config), nil)
	}

	records, err := s.manifest.ListBuilds(cmd.Context(), store.Filter{
		Identity: opts.Identity,
		Backend:  opts.Backend,
		Outcome:  store.Outcome(opts.Outcome),
		Limit:    opts.Limit,
	})
	if err != nil {
		return f.FailWith(ErrCodeGeneric, "failed to list builds", err)
	}

	entries := make([]CacheEntry, len(records))
	for i, r := range records {
		entries[i] = CacheEntry{
			Seq:          r.Seq,
			Identity:     r.Identity,
			Backend:      r.Backend,
			Convention:   r.Convention,
			Persistence:  r.Persistence,
			Outcome:      string(r.Outcome),
			SourceHash:   r.SourceHash,
			ArtifactPath: r.ArtifactPath,
			ArtifactSize: r.ArtifactSize,
			Present:      r.ArtifactPath != "" && fileSize(r.ArtifactPath) > 0,
			Generator:    r.Generator,
		}
	}

	if f.Format == "json" {
		return f.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "No builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tIDENTITY\tBACKEND\tCONVENTION\tOUTCOME\tSIZE\tARTIFACT")
	for _, e := range entries {
		size, artifact := "-", "-"
		if e.ArtifactPath != "" {
			artifact = e.ArtifactPath
			if !e.Present {
				artifact += " (missing)"
			}
		}
		if e.ArtifactSize > 0 {
			size = humanize.IBytes(uint64(e.ArtifactSize))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.Identity, e.Backend, e.Convention, e.Outcome, size, artifact)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts, err := s.manifest.CountOutcomes(cmd.Context())
	if err != nil {
		return f.FailWith(ErrCodeGeneric, "failed to count outcomes", err)
	}
	var total int
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(f.Writer, "\n%s build(s): %d built, %d cache hit(s), %d evaluated, %d failed\n",
		humanize.Comma(int64(total)),
		counts[store.OutcomeBuilt], counts[store.OutcomeCacheHit],
		counts[store.OutcomeEvaluated], counts[store.OutcomeFailed])
	return nil
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
