package build

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
)

// CUEDriver evaluates interpreted artifacts in-process.
type CUEDriver struct{}

var _ Driver = CUEDriver{}

// NewCUEDriver returns the interpreted-backend driver.
func NewCUEDriver() CUEDriver { return CUEDriver{} }

func (CUEDriver) Backend() codegen.Backend    { return codegen.Interpreted }
func (CUEDriver) Check(context.Context) error { return nil }
func (CUEDriver) ArtifactSuffix() string      { return "" }

// Build is never called for the interpreted backend.
func (CUEDriver) Build(context.Context, string, string, *codegen.Artifact) error {
	return fmt.Errorf("interpreted backend has no build step")
}

// Load compiles art.Source and resolves its entry.
func (CUEDriver) Load(_ context.Context, _ string, art *codegen.Artifact) (*Callable, error) {
	return evalCUE(art.Source, art)
}

// evalCUE compiles src and binds art.Entry. A cue.Context is not safe for
// concurrent use, so every call on the result holds one mutex.
func evalCUE(src []byte, art *codegen.Artifact) (*Callable, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(art.Entry+".cue"))
	if err := v.Err(); err != nil {
		return nil, errs.Build(string(art.Backend), cueerrors.Details(err, nil), err)
	}
	entry := v.LookupPath(cue.ParsePath(art.Entry))
	if !entry.Exists() {
		return nil, errs.Build(string(art.Backend), "", fmt.Errorf("entry %q not found", art.Entry))
	}

	var mu sync.Mutex
	switch art.Convention {
	case codegen.Batch:
		rowsPath := cue.ParsePath(codegen.CUERowsField)
		outPath := cue.ParsePath(codegen.CUEOutField)
		return &Callable{Batch: func(data []float64, rows, cols int, out []float64) error {
			matrix := make([][]float64, rows)
			for i := range matrix {
				matrix[i] = data[i*cols : (i+1)*cols]
			}
			mu.Lock()
			defer mu.Unlock()
			res := entry.FillPath(rowsPath, matrix).LookupPath(outPath)
			var got []float64
			if err := res.Decode(&got); err != nil {
				return fmt.Errorf("evaluate %s: %w", art.Entry, err)
			}
			if len(got) != rows {
				return fmt.Errorf("evaluate %s: got %d results for %d rows", art.Entry, len(got), rows)
			}
			copy(out, got)
			return nil
		}}, nil
	default:
		params := make([]cue.Path, len(art.FeatureNames))
		for i, name := range art.FeatureNames {
			params[i] = cue.MakePath(cue.Str(name))
		}
		outPath := cue.ParsePath(codegen.OutField)
		return &Callable{Scalar: func(x []float64) (float64, error) {
			mu.Lock()
			defer mu.Unlock()
			filled := entry
			for i, p := range params {
				filled = filled.FillPath(p, x[i])
			}
			res, err := filled.LookupPath(outPath).Float64()
			if err != nil {
				return 0, fmt.Errorf("evaluate %s: %w", art.Entry, err)
			}
			return res, nil
		}}, nil
	}
}
