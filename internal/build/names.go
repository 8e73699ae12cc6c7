package build

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// NameGenerator produces unique base names for ephemeral artifacts.
type NameGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable names from UUIDv7s. The names
// are unique across processes and machines, so a shared temp dir is safe.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns "tf_" followed by 32 hex digits. Hyphens are dropped so
// the name is a valid identifier in every backend.
func (UUIDv7Generator) Generate() string {
	return "tf_" + strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

// FixedGenerator returns predetermined names for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu    sync.Mutex
	names []string
	index int
}

// NewFixedGenerator creates a generator that returns names in order.
// Panics when exhausted.
func NewFixedGenerator(names ...string) *FixedGenerator {
	return &FixedGenerator{names: names}
}

// Generate returns the next name.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index >= len(g.names) {
		panic(fmt.Sprintf("FixedGenerator exhausted: requested name %d but only %d provided",
			g.index+1, len(g.names)))
	}
	name := g.names[g.index]
	g.index++
	return name
}
