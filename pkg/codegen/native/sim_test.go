package native

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// machine runs the subset of aarch64 the built-in profile emits. It exists
// to check generated code by executing it; frame pointer bookkeeping is
// ignored and memory is addressed by frame offset only.
type machine struct {
	regs    map[string]int64
	mem     map[int64]int64
	cmpA    int64
	cmpB    int64
	printed []int64
	calls   []string
	funcs   map[string]func(m *machine)
	steps   int
}

func newMachine() *machine {
	m := &machine{
		regs:  make(map[string]int64),
		mem:   make(map[int64]int64),
		funcs: make(map[string]func(m *machine)),
	}
	m.funcs["runtime_print"] = func(m *machine) { m.printed = append(m.printed, m.regs["x0"]) }
	m.funcs["runtime_int_to_string"] = func(m *machine) {}
	return m
}

var (
	memRe  = regexp.MustCompile(`^(str|ldr) (\w+), \[x29, #(-?\d+)\]$`)
	pairRe = regexp.MustCompile(`^(stp|ldp) (\w+), (\w+), \[x29, #(-?\d+)\]$`)
)

func (m *machine) val(op string) int64 {
	if strings.HasPrefix(op, "#") {
		n, err := strconv.ParseInt(op[1:], 10, 64)
		if err != nil {
			panic(err)
		}
		return n
	}
	return m.regs[op]
}

// run executes text from its function label until ret.
func (m *machine) run(text string) error {
	var code []string
	labels := map[string]int{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "", strings.HasPrefix(line, "//"), strings.HasPrefix(line, "."):
			continue
		case raw[0] != ' ' && strings.HasSuffix(line, ":"):
			labels[strings.TrimSuffix(line, ":")] = len(code)
			continue
		case raw[0] != ' ':
			continue // data
		}
		code = append(code, line)
	}

	for pc := 0; pc < len(code); pc++ {
		m.steps++
		if m.steps > 100000 {
			return fmt.Errorf("step limit")
		}
		line := code[pc]
		if strings.Contains(line, "sp") && !strings.Contains(line, "x29, #") {
			continue // frame setup
		}
		if mm := memRe.FindStringSubmatch(line); mm != nil {
			off, _ := strconv.ParseInt(mm[3], 10, 64)
			if mm[1] == "str" {
				m.mem[off] = m.regs[mm[2]]
			} else {
				m.regs[mm[2]] = m.mem[off]
			}
			continue
		}
		if mm := pairRe.FindStringSubmatch(line); mm != nil {
			off, _ := strconv.ParseInt(mm[4], 10, 64)
			if mm[1] == "stp" {
				m.mem[off], m.mem[off+8] = m.regs[mm[2]], m.regs[mm[3]]
			} else {
				m.regs[mm[2]], m.regs[mm[3]] = m.mem[off], m.mem[off+8]
			}
			continue
		}

		op, rest, _ := strings.Cut(line, " ")
		args := strings.Split(rest, ", ")
		switch op {
		case "ret":
			return nil
		case "mov":
			m.regs[args[0]] = m.val(args[1])
		case "add":
			if strings.HasPrefix(args[2], ":lo12:") {
				continue
			}
			m.regs[args[0]] = m.val(args[1]) + m.val(args[2])
		case "sub":
			m.regs[args[0]] = m.val(args[1]) - m.val(args[2])
		case "mul":
			m.regs[args[0]] = m.val(args[1]) * m.val(args[2])
		case "sdiv":
			m.regs[args[0]] = m.val(args[1]) / m.val(args[2])
		case "neg":
			m.regs[args[0]] = -m.val(args[1])
		case "adrp":
			m.regs[args[0]] = int64(len(args[1])) << 32
		case "cmp":
			m.cmpA, m.cmpB = m.val(args[0]), m.val(args[1])
		case "cset":
			m.regs[args[0]] = b2i(m.cond(args[1]))
		case "b":
			pc = labels[args[0]] - 1
		case "b.eq", "b.ne":
			if m.cond(strings.TrimPrefix(op, "b.")) {
				pc = labels[args[0]] - 1
			}
		case "bl":
			m.calls = append(m.calls, args[0])
			if f, ok := m.funcs[args[0]]; ok {
				f(m)
			}
			// clobber caller-saved registers the callee is free to use
			for i := 2; i <= 17; i++ {
				if i != 8 {
					m.regs["x"+strconv.Itoa(i)] = 0x5eed
				}
			}
		default:
			return fmt.Errorf("unknown instruction %q", line)
		}
	}
	return nil
}

func (m *machine) cond(c string) bool {
	a, b := m.cmpA, m.cmpB
	switch c {
	case "eq":
		return a == b
	case "ne":
		return a != b
	case "lt":
		return a < b
	case "le":
		return a <= b
	case "gt":
		return a > b
	case "ge":
		return a >= b
	}
	panic("condition " + c)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
