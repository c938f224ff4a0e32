package arch

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownProfile is returned by Lookup for names with no built-in profile.
var ErrUnknownProfile = errors.New("unknown target profile")

var builtins = map[string]func() *Profile{
	"aarch64": AArch64,
	"x86_64":  X86_64,
	"riscv64": RISCV64,
}

var aliases = map[string]string{
	"arm64": "aarch64",
	"amd64": "x86_64",
	"x64":   "x86_64",
	"rv64":  "riscv64",
}

// Lookup returns a fresh copy of the built-in profile called name.
func Lookup(name string) (*Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	build, ok := builtins[key]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProfile, "%q (known: %s)", name, strings.Join(Builtins(), ", "))
	}
	return build(), nil
}

// Builtins returns the canonical names of the built-in profiles, sorted.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
