package build

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
)

const fakeBackend codegen.Backend = "fake-native"

// fakeDriver "builds" by copying the CUE source to the artifact path and
// loads by evaluating the artifact file, so a stale or corrupt artifact
// behaves like a broken binary. With cacheByPath set, a path loads once and
// later loads return the first callable, as dlopen and plugin.Open do.
type fakeDriver struct {
	builds      atomic.Int32
	loads       atomic.Int32
	fail        bool
	checkErr    error
	cacheByPath bool

	mu     sync.Mutex
	loaded map[string]*Callable
}

func (d *fakeDriver) Backend() codegen.Backend { return fakeBackend }
func (d *fakeDriver) ArtifactSuffix() string   { return "_fake.so" }

func (d *fakeDriver) Check(context.Context) error { return d.checkErr }

func (d *fakeDriver) Build(_ context.Context, src, out string, _ *codegen.Artifact) error {
	d.builds.Add(1)
	if d.fail {
		return errs.Build(string(fakeBackend), src+":1:1: error: expected ';'", fmt.Errorf("exit status 1"))
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

func (d *fakeDriver) Load(_ context.Context, path string, art *codegen.Artifact) (*Callable, error) {
	d.loads.Add(1)
	if d.cacheByPath {
		d.mu.Lock()
		defer d.mu.Unlock()
		if call, ok := d.loaded[path]; ok {
			return call, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	call, err := evalCUE(data, art)
	if err != nil || !d.cacheByPath {
		return call, err
	}
	if d.loaded == nil {
		d.loaded = make(map[string]*Callable)
	}
	d.loaded[path] = call
	return call, nil
}

// fakeArtifact generates CUE source and relabels it for the fake backend.
func fakeArtifact(art *codegen.Artifact) *codegen.Artifact {
	cp := *art
	cp.Backend = fakeBackend
	return &cp
}
