package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	treefreeze "github.com/xsjk/Sklearn-Freezer"
	"github.com/xsjk/Sklearn-Freezer/internal/build"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/config"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
	"github.com/xsjk/Sklearn-Freezer/internal/tensor"
)

// Config configures where a scenario builds. Zero fields take the build
// manager's defaults; a nil Logger discards logs.
type Config struct {
	WorkDir   string
	TempDir   string
	Toolchain config.Toolchain
	Recorder  build.Recorder
	Logger    *slog.Logger
}

// harness runs one scenario.
type harness struct {
	scenario *Scenario
	model    model.Model
	manager  *build.Manager
	logger   *slog.Logger
	rows     [][]float64
}

// Run freezes the scenario's model for every backend and convention,
// evaluates its cases and checks its assertions.
//
// Failed cases and assertions are reported in the Result. The error is
// non-nil only if the scenario itself cannot run.
func Run(ctx context.Context, scenario *Scenario, cfg Config) (*Result, error) {
	m, err := model.LoadFile(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tc := cfg.Toolchain
	if tc.CC == "" && tc.Go == "" {
		tc = config.Default().Toolchain
	}

	h := &harness{
		scenario: scenario,
		model:    m,
		logger:   logger,
		manager: build.NewManager(build.Config{
			WorkDir:  cfg.WorkDir,
			TempDir:  cfg.TempDir,
			Drivers:  build.DefaultDrivers(tc),
			Recorder: cfg.Recorder,
			Logger:   logger,
		}),
	}
	for _, c := range scenario.Cases {
		h.rows = append(h.rows, c.Row)
	}

	result := NewResult()
	for _, backend := range scenario.backends() {
		for _, conv := range scenario.conventions() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			h.runOne(ctx, backend, conv, result)
		}
	}
	evaluateAssertions(scenario, m, result)
	return result, nil
}

func (h *harness) runOne(ctx context.Context, backend codegen.Backend, conv codegen.Convention, result *Result) {
	opts := []treefreeze.Option{
		treefreeze.WithManager(h.manager),
		treefreeze.WithConvention(conv),
	}
	if h.scenario.Module != "" {
		opts = append(opts, treefreeze.WithModuleName(h.scenario.Module+"_"+string(conv)))
	}

	u, err := treefreeze.Compile(ctx, h.model, backend, opts...)
	if errs.IsToolchainUnavailable(err) {
		h.logger.Info("skipping backend", "backend", backend, "convention", conv, "error", err)
		result.Skipped = append(result.Skipped, string(backend)+"/"+string(conv))
		return
	}
	if err != nil {
		h.logger.Debug("compile failed", "backend", backend, "convention", conv, "error", err)
		result.addCompileError(string(backend), string(conv), errorCode(err))
		return
	}
	defer u.Close()

	states := u.States()
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	result.addCompile(string(backend), string(conv), names)

	preds, err := h.predict(u, conv)
	if err != nil {
		result.AddError(fmt.Sprintf("%s/%s: predict: %v", backend, conv, err))
		return
	}
	tol := h.scenario.tolerance()
	for i, c := range h.scenario.Cases {
		result.addPrediction(string(backend), string(conv), c.Row, preds[i])
		if c.Expect != nil && math.Abs(preds[i]-*c.Expect) > tol {
			result.AddError(fmt.Sprintf("%s/%s: cases[%d] %v: expected %v, got %v",
				backend, conv, i, c.Row, *c.Expect, preds[i]))
		}
	}
}

func (h *harness) predict(u *build.Unit, conv codegen.Convention) ([]float64, error) {
	if len(h.rows) == 0 {
		return nil, nil
	}
	if conv == codegen.Batch {
		in, err := tensor.FromRows(h.rows)
		if err != nil {
			return nil, err
		}
		out, err := u.Batch(in)
		if err != nil {
			return nil, err
		}
		return append([]float64(nil), out.Float64s()...), nil
	}
	preds := make([]float64, len(h.rows))
	for i, row := range h.rows {
		p, err := u.Scalar(row...)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}

func errorCode(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return "ERROR"
}
