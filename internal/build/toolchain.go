package build

import (
	"context"
	"os/exec"
	"sync"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
)

// tool is an external binary resolved lazily on first use.
type tool struct {
	backend codegen.Backend
	name    string

	once sync.Once
	path string
	err  error
}

// resolve looks the binary up once and caches the result.
func (t *tool) resolve() (string, error) {
	t.once.Do(func() {
		t.path, t.err = exec.LookPath(t.name)
		if t.err != nil {
			t.err = errs.ToolchainUnavailable(string(t.backend), t.name, t.err)
		}
	})
	return t.path, t.err
}

// run executes the tool in dir and returns its combined output. A
// non-zero exit becomes errs.Build with the output as diagnostics. There is
// no timeout beyond ctx.
func (t *tool) run(ctx context.Context, dir string, env []string, args ...string) ([]byte, error) {
	path, err := t.resolve()
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, errs.Build(string(t.backend), string(out), err)
	}
	return out, nil
}
