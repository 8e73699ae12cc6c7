package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	treefreeze "github.com/xsjk/Sklearn-Freezer"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/tensor"
)

// PredictOptions holds flags for the predict command.
type PredictOptions struct {
	*RootOptions
	BuildFlags
	Header bool
}

// PredictResult is the JSON payload of predict.
type PredictResult struct {
	Identity    string    `json:"identity"`
	Backend     string    `json:"backend"`
	Predictions []float64 `json:"predictions"`
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PredictOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "predict <model> <rows.csv|->",
		Short: "Predict positive-class probabilities for CSV rows",
		Long: `Compile a model with the batch calling convention and evaluate every
row of a CSV file. Each row holds one value per feature, in model order.
Use "-" to read rows from stdin.

Example:
  treefreeze predict model.yaml rows.csv -b unmanaged-native -m churn
  cat rows.csv | treefreeze predict model.yaml - --header`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(opts, args[0], args[1], cmd)
		},
	}

	opts.BuildFlags.register(cmd)
	cmd.Flags().BoolVar(&opts.Header, "header", false, "skip the first CSV row")

	return cmd
}

func runPredict(opts *PredictOptions, modelPath, rowsPath string, cmd *cobra.Command) error {
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

	in := cmd.InOrStdin()
	if rowsPath != "-" {
		file, err := os.Open(rowsPath)
		if errors.Is(err, os.ErrNotExist) {
			return f.FailWith(ErrCodeNotFound, "rows not found", err)
		}
		if err != nil {
			return f.FailWith(ErrCodeInvalidInput, "failed to open rows", err)
		}
		defer file.Close()
		in = file
	}
	batch, err := readRows(in, opts.Header)
	if err != nil {
		return f.FailWith(ErrCodeInvalidInput, "failed to read rows", err)
	}
	f.VerboseLog("Read %d row(s)", batch.Shape()[0])

	opts.Batch = true
	u, err := treefreeze.Compile(cmd.Context(), m, backend, s.options(&opts.BuildFlags)...)
	if err != nil {
		return f.Fail(err)
	}
	defer u.Close()

	out, err := u.Batch(batch)
	if err != nil {
		return f.Fail(err)
	}
	preds := append([]float64(nil), out.Float64s()...)

	if f.Format == "json" {
		return f.Success(PredictResult{
			Identity:    u.Identity(),
			Backend:     string(u.Backend()),
			Predictions: preds,
		})
	}
	for _, p := range preds {
		fmt.Fprintln(f.Writer, strconv.FormatFloat(p, 'g', -1, 64))
	}
	return nil
}

// readRows parses CSV rows of floats into a contiguous matrix. Rows must
// all have the same width; the width is checked against the model by
// Batch.
func readRows(r io.Reader, header bool) (*tensor.Array, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	var (
		data  []float64
		width = -1
		rows  int
	)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header && line == 1 {
			continue
		}
		if width >= 0 && len(rec) != width {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, width, len(rec))
		}
		width = len(rec)
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d field %d: %w", line, i+1, err)
			}
			data = append(data, v)
		}
		rows++
	}
	if width < 0 {
		width = 0
	}
	return tensor.FromSlice(data, rows, width)
}
