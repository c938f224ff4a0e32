package arch

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrInvalidProfile wraps every problem reported by Validate.
var ErrInvalidProfile = errors.New("invalid profile")

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Placeholders lists the names the generator substitutes into templates.
var Placeholders = []string{
	"base_reg", "condition", "dest", "dest_reg", "label", "name", "offset",
	"reg1", "reg2", "size", "soffset", "src", "src1", "src2", "src_reg", "value",
}

// Validate checks that p is usable by the native generator. Every problem is
// reported, not just the first.
func (p *Profile) Validate() error {
	var result *multierror.Error
	fail := func(format string, args ...interface{}) {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidProfile, format, args...))
	}

	if p.Name == "" {
		fail("name is empty")
	}

	r := &p.Registers
	if len(r.GeneralPurpose) == 0 {
		fail("no general purpose registers")
	}
	if len(r.Arguments) == 0 {
		fail("no argument registers")
	}
	if r.FramePointer == "" {
		fail("no frame pointer")
	}
	if r.Receiver == "" {
		fail("no receiver register")
	} else if !p.IsGeneralPurpose(r.Receiver) {
		fail("receiver %s is not a general purpose register", r.Receiver)
	}
	for _, s := range r.Scratch {
		if p.IsGeneralPurpose(s) {
			fail("scratch register %s is also allocatable", s)
		}
	}
	// Argument marshalling moves values out of allocatable registers.
	for _, a := range append(cloneStrings(r.Arguments), r.ReturnRegisters()...) {
		if p.IsGeneralPurpose(a) {
			fail("argument or return register %s is also allocatable", a)
			break
		}
	}
	if dup := duplicates(r.GeneralPurpose); len(dup) > 0 {
		fail("general purpose registers repeated: %s", strings.Join(dup, ", "))
	}
	if p.ImmediateBits < 0 || p.ImmediateBits > 64 {
		fail("immediate bits %d out of range", p.ImmediateBits)
	}
	if p.FrameBase < 0 || p.FrameBase%8 != 0 {
		fail("frame base %d is not a non-negative multiple of 8", p.FrameBase)
	}

	for _, op := range Mandatory {
		if !p.Has(op) {
			fail("missing mandatory pattern %s", op)
		}
	}
	for _, op := range []string{Prologue, Epilogue} {
		if !p.Has(op) {
			fail("missing pattern %s", op)
		}
	}

	ops := make([]string, 0, len(p.Patterns))
	for op := range p.Patterns {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		for _, name := range unknownPlaceholders(p.Patterns[op]...) {
			fail("pattern %s uses unknown placeholder {%s}", op, name)
		}
	}

	s := &p.Syntax
	required := []struct{ field, value string }{
		{"comment_marker", s.CommentMarker},
		{"text_section", s.TextSection},
		{"global_directive", s.GlobalDirective},
		{"label_directive", s.LabelDirective},
		{"local_label", s.LocalLabel},
	}
	for _, f := range required {
		if f.value == "" {
			fail("syntax %s is empty", f.field)
		}
	}
	if s.LocalLabel != "" && !strings.Contains(s.LocalLabel, "{index}") {
		fail("syntax local_label must contain {index}")
	}

	return result.ErrorOrNil()
}

func unknownPlaceholders(lines ...string) []string {
	var out []string
	for _, line := range lines {
		for _, m := range placeholderRe.FindAllStringSubmatch(line, -1) {
			if !contains(Placeholders, m[1]) && !contains(out, m[1]) {
				out = append(out, m[1])
			}
		}
	}
	return out
}

func duplicates(list []string) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, x := range list {
		if seen[x] && !contains(out, x) {
			out = append(out, x)
		}
		seen[x] = true
	}
	return out
}
