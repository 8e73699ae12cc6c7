package build

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
)

// CDriver builds unmanaged-native artifacts into shared libraries with a
// C compiler.
type CDriver struct {
	cc      *tool
	cflags  []string
	ldflags []string
	openmp  bool
}

var _ Driver = (*CDriver)(nil)

// NewCDriver returns the unmanaged-native driver. cflags replaces the
// default -O2 when set.
func NewCDriver(cc string, cflags, ldflags []string, openmp bool) *CDriver {
	if cc == "" {
		cc = "cc"
	}
	return &CDriver{
		cc:      &tool{backend: codegen.UnmanagedNative, name: cc},
		cflags:  cflags,
		ldflags: ldflags,
		openmp:  openmp,
	}
}

func (d *CDriver) Backend() codegen.Backend { return codegen.UnmanagedNative }
func (d *CDriver) ArtifactSuffix() string   { return "_c" + sharedLibExt }

// Check resolves the compiler.
func (d *CDriver) Check(context.Context) error {
	_, err := d.cc.resolve()
	return err
}

// Args returns the compiler arguments for building src into out.
func (d *CDriver) Args(src, out string) []string {
	args := append([]string(nil), d.cflags...)
	if len(args) == 0 {
		args = append(args, "-O2")
	}
	args = append(args, "-shared", "-fPIC")
	if d.openmp {
		args = append(args, "-fopenmp")
	}
	args = append(args, "-o", out, src)
	return append(args, d.ldflags...)
}

// Build runs the compiler.
func (d *CDriver) Build(ctx context.Context, src, out string, _ *codegen.Artifact) error {
	_, err := d.cc.run(ctx, filepath.Dir(src), nil, d.Args(src, out)...)
	return err
}

// Load opens the shared library and binds the entry symbol.
func (d *CDriver) Load(_ context.Context, path string, art *codegen.Artifact) (*Callable, error) {
	lib, err := openLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	switch art.Convention {
	case codegen.Batch:
		fn, err := lib.batch(art.Entry)
		if err != nil {
			lib.close()
			return nil, err
		}
		return &Callable{Batch: func(data []float64, rows, cols int, out []float64) error {
			if rows == 0 {
				return nil
			}
			if rc := fn(&data[0], int64(rows), int64(cols), &out[0]); rc != 0 {
				return fmt.Errorf("%s returned %d", art.Entry, rc)
			}
			return nil
		}, Release: lib.close}, nil
	default:
		fn, err := lib.scalar(art.Entry)
		if err != nil {
			lib.close()
			return nil, err
		}
		return &Callable{Scalar: func(x []float64) (float64, error) {
			return fn(&x[0]), nil
		}, Release: lib.close}, nil
	}
}
