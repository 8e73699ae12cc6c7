//go:build darwin || freebsd || linux

package build

import (
	"runtime"

	"github.com/ebitengine/purego"
)

var sharedLibExt = func() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}()

// library is a dlopen'ed shared object.
type library struct {
	handle uintptr
}

func openLibrary(path string) (*library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &library{handle: h}, nil
}

func (l *library) scalar(name string) (func(x *float64) float64, error) {
	sym, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return nil, err
	}
	var fn func(x *float64) float64
	purego.RegisterFunc(&fn, sym)
	return fn, nil
}

func (l *library) batch(name string) (func(data *float64, rows, cols int64, out *float64) int32, error) {
	sym, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return nil, err
	}
	var fn func(data *float64, rows, cols int64, out *float64) int32
	purego.RegisterFunc(&fn, sym)
	return fn, nil
}

func (l *library) close() error {
	return purego.Dlclose(l.handle)
}
