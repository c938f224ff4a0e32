package native

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/logger"
)

// ErrInvalidAssembly wraps the report of a failed validation.
var ErrInvalidAssembly = errors.New("assembly validation failed")

// ValidationError represents an assembly validation error
type ValidationError struct {
	Line    int
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s\n  %s", e.Line, e.Message, e.Code)
}

// Validator checks generated assembly against the profile that produced it.
type Validator struct {
	profile *arch.Profile
	errors  []ValidationError
	warns   []ValidationError

	labelDef    *regexp.Regexp
	localRef    *regexp.Regexp
	global      *regexp.Regexp
	placeholder *regexp.Regexp
	noopMoves   map[string]bool
	movePrefix  string
}

// NewValidator creates a validator for profile.
func NewValidator(profile *arch.Profile) *Validator {
	v := &Validator{
		profile:     profile,
		labelDef:    regexp.MustCompile(`^([A-Za-z0-9_.$]+):`),
		localRef:    templateRegexp(profile.Syntax.LocalLabel, `[A-Za-z0-9_]+`),
		global:      templateRegexp(strings.TrimSpace(profile.Syntax.GlobalDirective), `([A-Za-z0-9_]+)`),
		placeholder: regexp.MustCompile(`\{[a-z_0-9]+\}`),
		noopMoves:   make(map[string]bool),
	}
	for _, r := range profile.Registers.GeneralPurpose {
		if lines, err := profile.Render(arch.MoveReg, arch.Vars{"dest": r, "src": r}); err == nil && len(lines) == 1 {
			v.noopMoves[lines[0]] = true
		}
	}
	if t, ok := profile.Pattern(arch.MoveReg); ok && len(t) == 1 {
		if f := strings.Fields(t[0]); len(f) > 0 {
			v.movePrefix = f[0] + " "
		}
	}
	return v
}

// templateRegexp turns a syntax fragment into a pattern; {name} matches name
// and {index} matches digits.
func templateRegexp(fragment, name string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(fragment)
	quoted = strings.ReplaceAll(quoted, `\{name\}`, name)
	quoted = strings.ReplaceAll(quoted, `\{index\}`, `[0-9]+`)
	return regexp.MustCompile(quoted)
}

// localRefs returns the local label references in line. A match that
// continues a longer symbol on either side is not a reference.
func (v *Validator) localRefs(line string) []string {
	var refs []string
	for _, loc := range v.localRef.FindAllStringIndex(line, -1) {
		if loc[0] > 0 && isSymbolByte(line[loc[0]-1]) {
			continue
		}
		if loc[1] < len(line) && isSymbolByte(line[loc[1]]) {
			continue
		}
		refs = append(refs, line[loc[0]:loc[1]])
	}
	return refs
}

func isSymbolByte(c byte) bool {
	return c == '_' || c == '.' || c == '$' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Validate performs every check on assembly
func (v *Validator) Validate(assembly string) error {
	v.errors = v.errors[:0]
	v.warns = v.warns[:0]
	lines := strings.Split(assembly, "\n")

	defined := v.validateLabels(lines)
	v.validateBranchTargets(lines, defined)
	v.validateSymbol(lines, defined)
	v.validatePlaceholders(lines)
	v.validateCalleeSaves(lines)
	v.detectRedundantMoves(lines)

	if len(v.warns) > 0 {
		v.logWarnings()
	}
	if len(v.errors) > 0 {
		return v.formatErrors()
	}
	return nil
}

// Errors returns the errors found by the last Validate.
func (v *Validator) Errors() []ValidationError { return v.errors }

// Warnings returns the warnings found by the last Validate.
func (v *Validator) Warnings() []ValidationError { return v.warns }

func (v *Validator) isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), v.profile.Syntax.CommentMarker)
}

// validateLabels collects label definitions and reports duplicates.
func (v *Validator) validateLabels(lines []string) map[string]int {
	defined := make(map[string]int)
	for i, line := range lines {
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		m := v.labelDef.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if prev, dup := defined[m[1]]; dup {
			v.addError(i+1, fmt.Sprintf("label %s already defined on line %d", m[1], prev), line)
			continue
		}
		defined[m[1]] = i + 1
	}
	return defined
}

// validateBranchTargets checks that every local label used by an
// instruction is defined.
func (v *Validator) validateBranchTargets(lines []string, defined map[string]int) {
	if v.profile.Syntax.LocalLabel == "" {
		return
	}
	for i, line := range lines {
		if line == "" || (line[0] != ' ' && line[0] != '\t') || v.isComment(line) {
			continue
		}
		for _, ref := range v.localRefs(line) {
			if _, ok := defined[ref]; !ok {
				v.addError(i+1, fmt.Sprintf("undefined label %s", ref), line)
			}
		}
	}
}

// validateSymbol checks that a global directive is present and its symbol
// is defined.
func (v *Validator) validateSymbol(lines []string, defined map[string]int) {
	found := false
	for i, line := range lines {
		m := v.global.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		found = true
		if _, ok := defined[m[1]]; !ok {
			v.addError(i+1, fmt.Sprintf("global symbol %s has no label", m[1]), line)
		}
	}
	if !found {
		v.addError(0, "no global directive", "")
	}
}

func (v *Validator) validatePlaceholders(lines []string) {
	for i, line := range lines {
		if line == "" || (line[0] != ' ' && line[0] != '\t') || v.isComment(line) {
			continue
		}
		if p := v.placeholder.FindString(line); p != "" {
			v.addError(i+1, fmt.Sprintf("unsubstituted placeholder %s", p), line)
		}
	}
}

// validateCalleeSaves checks that the registers saved in the prologue are
// the ones restored before returning.
func (v *Validator) validateCalleeSaves(lines []string) {
	var saved, restored string
	savedLine := 0
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if s, ok := cutComment(t, v.profile.Syntax.CommentMarker, "Saving callee-saved registers: "); ok {
			saved, savedLine = s, i+1
		}
		if s, ok := cutComment(t, v.profile.Syntax.CommentMarker, "Restoring callee-saved registers: "); ok {
			restored = s
			if s != saved {
				v.addError(i+1, fmt.Sprintf("restores %s but line %d saves %s", s, savedLine, saved), line)
			}
		}
	}
	if saved != "" && restored == "" {
		v.addError(savedLine, "callee-saved registers are never restored", saved)
	}
}

func cutComment(line, marker, prefix string) (string, bool) {
	return strings.CutPrefix(line, marker+" "+prefix)
}

// detectRedundantMoves warns about moves of a register onto itself and
// about the same move emitted twice in a row
func (v *Validator) detectRedundantMoves(lines []string) {
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if v.noopMoves[t] {
			v.addWarn(i+1, "redundant move: source equals destination", t)
			continue
		}
		if v.movePrefix == "" || !strings.HasPrefix(t, v.movePrefix) || i+1 >= len(lines) {
			continue
		}
		if strings.TrimSpace(lines[i+1]) == t {
			v.addWarn(i+2, "duplicate move instruction", t)
		}
	}
}

func (v *Validator) addError(line int, msg, code string) {
	v.errors = append(v.errors, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) addWarn(line int, msg, code string) {
	v.warns = append(v.warns, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) formatErrors() error {
	var sb strings.Builder
	for _, err := range v.errors {
		sb.WriteString("\n  " + err.Error())
	}
	return fmt.Errorf("%w:%s", ErrInvalidAssembly, sb.String())
}

func (v *Validator) logWarnings() {
	for _, warn := range v.warns {
		logger.Warn("Assembly validation warning", "profile", v.profile.Name, "line", warn.Line, "msg", warn.Message)
	}
}
