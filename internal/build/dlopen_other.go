//go:build !(darwin || freebsd || linux)

package build

import (
	"fmt"
	"runtime"
)

const sharedLibExt = ".dll"

type library struct{}

func openLibrary(string) (*library, error) {
	return nil, fmt.Errorf("loading shared libraries is not supported on %s", runtime.GOOS)
}

func (*library) scalar(string) (func(*float64) float64, error) {
	return nil, fmt.Errorf("unsupported")
}

func (*library) batch(string) (func(*float64, int64, int64, *float64) int32, error) {
	return nil, fmt.Errorf("unsupported")
}

func (*library) close() error { return nil }
