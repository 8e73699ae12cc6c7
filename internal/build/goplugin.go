package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
)

// GoDriver builds managed-native artifacts as Go plugins. Plugins must be
// built by the same toolchain as the host binary, and are never unloaded.
type GoDriver struct {
	gotool *tool
	flags  []string
}

var _ Driver = (*GoDriver)(nil)

// NewGoDriver returns the managed-native driver.
func NewGoDriver(gobin string, flags []string) *GoDriver {
	if gobin == "" {
		gobin = "go"
	}
	return &GoDriver{
		gotool: &tool{backend: codegen.ManagedNative, name: gobin},
		flags:  flags,
	}
}

func (d *GoDriver) Backend() codegen.Backend { return codegen.ManagedNative }
func (d *GoDriver) ArtifactSuffix() string   { return "_go.so" }

// Check resolves the go binary.
func (d *GoDriver) Check(context.Context) error {
	_, err := d.gotool.resolve()
	return err
}

// Args returns the go command line run inside the plugin's build
// directory.
func (d *GoDriver) Args(out string) []string {
	args := []string{"build", "-buildmode=plugin", "-gcflags=-B"}
	args = append(args, d.flags...)
	return append(args, "-o", out, ".")
}

// PluginPath returns the import path of the plugin built into out. The
// runtime refuses to open two plugins with one path, so every build
// output gets its own.
func PluginPath(out string) string {
	base := strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
	return "treefreeze/" + strings.ReplaceAll(base, ".", "_")
}

// Build copies src into a scratch module named PluginPath(out) and runs
// go build there. Symbols are prefixed with the package path, which only
// matches the plugin path when the source is built as a named package.
func (d *GoDriver) Build(ctx context.Context, src, out string, _ *codegen.Artifact) error {
	source, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	out, err = filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output: %w", err)
	}
	dir, err := os.MkdirTemp(filepath.Dir(src), ".gobuild-")
	if err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}
	defer os.RemoveAll(dir)

	gomod := "module " + PluginPath(out) + "\n\ngo " + pluginGoVersion + "\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644); err != nil {
		return fmt.Errorf("write go.mod: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), source, 0o644); err != nil {
		return fmt.Errorf("write source: %w", err)
	}

	env := append(os.Environ(), "CGO_ENABLED=1", "GOWORK=off", "GOFLAGS=", "GOTOOLCHAIN=local")
	_, err = d.gotool.run(ctx, dir, env, d.Args(out)...)
	return err
}

// pluginGoVersion is the language version of generated plugin modules.
const pluginGoVersion = "1.21"

// Load opens the plugin and looks up the entry.
func (d *GoDriver) Load(_ context.Context, path string, art *codegen.Artifact) (*Callable, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin: %w", err)
	}
	sym, err := p.Lookup(art.Entry)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", art.Entry, err)
	}

	switch art.Convention {
	case codegen.Batch:
		fn, ok := sym.(func([]float64, int, int, []float64) int)
		if !ok {
			return nil, fmt.Errorf("symbol %s has type %T", art.Entry, sym)
		}
		return &Callable{Batch: func(data []float64, rows, cols int, out []float64) error {
			if rc := fn(data, rows, cols, out); rc != 0 {
				return fmt.Errorf("%s returned %d", art.Entry, rc)
			}
			return nil
		}}, nil
	default:
		fn, ok := sym.(func([]float64) float64)
		if !ok {
			return nil, fmt.Errorf("symbol %s has type %T", art.Entry, sym)
		}
		return &Callable{Scalar: func(x []float64) (float64, error) {
			return fn(x), nil
		}}, nil
	}
}
