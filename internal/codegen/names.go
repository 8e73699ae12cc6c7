package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/xsjk/Sklearn-Freezer/internal/errs"
)

// ReservedPrefix is reserved for generated symbols. Feature identifiers
// never start with it.
const ReservedPrefix = "tf_"

// keywords is the union of identifiers that are not usable as parameter
// names in at least one target language.
var keywords = map[string]bool{
	// shared with generated code
	"out": true,

	// CUE, including predeclared identifiers
	"package": true, "import": true, "for": true, "in": true, "if": true,
	"let": true, "true": true, "false": true, "null": true, "number": true,
	"string": true, "bytes": true, "len": true, "close": true, "and": true,
	"or": true, "div": true, "mod": true, "quo": true, "rem": true,

	// Go
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true,
	"float64": true, "func": true, "go": true, "goto": true, "interface": true, "map": true,
	"range": true, "return": true, "select": true, "struct": true,
	"switch": true, "type": true, "var": true,

	// C
	"auto": true, "char": true, "do": true, "double": true, "enum": true,
	"extern": true, "float": true, "inline": true, "int": true, "long": true,
	"register": true, "restrict": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true,
	"bool": true,
}

// DefaultNames returns x0..x{n-1}, zero-padded to the width of n-1.
func DefaultNames(n int) []string {
	width := len(strconv.Itoa(max(n-1, 0)))
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("x%0*d", width, i)
	}
	return out
}

// Identifiers returns one parameter identifier per feature. Without names
// it falls back to DefaultNames. Names are NFC-normalised, lowercased and
// rewritten into [a-z_][a-z0-9_]*; collisions get a numeric suffix.
func Identifiers(n int, names []string) ([]string, error) {
	if len(names) == 0 {
		return DefaultNames(n), nil
	}
	if len(names) != n {
		return nil, errs.UnsupportedModel("model has %d feature names for %d features", len(names), n)
	}
	out := make([]string, n)
	seen := make(map[string]bool, n)
	for i, name := range names {
		id := sanitize(name)
		base := id
		for k := 2; seen[id]; k++ {
			id = fmt.Sprintf("%s_%d", base, k)
		}
		seen[id] = true
		out[i] = id
	}
	return out, nil
}

func sanitize(name string) string {
	name = strings.ToLower(norm.NFC.String(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	id := b.String()
	switch {
	case id == "":
		id = "f"
	case id[0] >= '0' && id[0] <= '9', id[0] == '_':
		id = "f_" + id
	case strings.HasPrefix(id, ReservedPrefix):
		id = "f_" + id
	}
	if keywords[id] {
		id += "_"
	}
	return id
}
