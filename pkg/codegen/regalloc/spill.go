package regalloc

import (
	"sort"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/asm"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/logger"
)

// Location is where a bytecode local currently lives.
type Location struct {
	Register string
	Offset   int
	Spilled  bool
}

// regState is what the spiller knows about one register's current value.
type regState struct {
	slot    int // frame offset of the value's spill slot
	hasSlot bool
	dirty   bool // written since last stored
	valid   bool // register holds the value
	depth   int  // loop depth of the last definition
}

// Spiller owns the spill area of one method's frame.
//
// Offsets are frame pointer relative and negative: the first slot sits just
// below the profile's FrameBase and every new slot is 8 bytes lower.
type Spiller struct {
	profile   *arch.Profile
	method    string
	regs      map[string]*regState
	slots     map[int]Location
	spillSize int
	written   map[string]bool
	lru       []string

	// OnEvict is called after a victim's value has been written to offset.
	OnEvict func(reg string, offset int)
}

// NewSpiller creates a spiller for profile.
func NewSpiller(profile *arch.Profile) *Spiller {
	s := &Spiller{profile: profile}
	s.Reset("")
	return s
}

// Reset discards all state and starts a new method.
func (s *Spiller) Reset(method string) {
	s.method = method
	s.regs = make(map[string]*regState)
	s.slots = make(map[int]Location)
	s.spillSize = 0
	s.written = make(map[string]bool)
	s.lru = nil
	s.OnEvict = nil
}

func (s *Spiller) state(reg string) *regState {
	st, ok := s.regs[reg]
	if !ok {
		st = &regState{valid: true}
		s.regs[reg] = st
	}
	return st
}

// newSlot grows the spill area by one 8-byte slot and returns its offset.
func (s *Spiller) newSlot() int {
	s.spillSize += 8
	return -(s.profile.FrameBase + s.spillSize)
}

// NewStackSlot reserves a spill slot that is not tied to a register.
func (s *Spiller) NewStackSlot() int {
	return s.newSlot()
}

// Fill reloads reg from its spill slot if the register no longer holds
// its value.
func (s *Spiller) Fill(out *asm.Buffer, reg string) error {
	st, ok := s.regs[reg]
	if !ok || st.valid || !st.hasSlot {
		return nil
	}
	if err := s.load(out, reg, st.slot); err != nil {
		return err
	}
	st.valid = true
	st.dirty = false
	return nil
}

// FillFromOffset loads the value stored at offset into reg, which from now on
// owns that slot.
func (s *Spiller) FillFromOffset(out *asm.Buffer, reg string, offset, depth int) error {
	if err := s.load(out, reg, offset); err != nil {
		return err
	}
	s.regs[reg] = &regState{slot: offset, hasSlot: true, valid: true, depth: depth}
	return nil
}

// MarkModified records that reg was written.
func (s *Spiller) MarkModified(reg string) {
	st := s.state(reg)
	st.valid = true
	st.dirty = true
	if s.profile.IsCalleeSaved(reg) {
		s.written[reg] = true
	}
	s.TrackUsage(reg)
}

// ForceSpill stores reg into its slot, assigning one if needed. The register
// is considered empty until the next Fill.
func (s *Spiller) ForceSpill(out *asm.Buffer, reg string) error {
	st := s.state(reg)
	if !st.hasSlot {
		st.slot = s.newSlot()
		st.hasSlot = true
	}
	if err := s.store(out, reg, st.slot); err != nil {
		return err
	}
	st.valid = false
	st.dirty = false
	logger.LogSpill(s.method, reg, st.slot, st.depth)
	return nil
}

// IsSpilled reports whether reg's value currently lives only in memory.
func (s *Spiller) IsSpilled(reg string) bool {
	st, ok := s.regs[reg]
	return ok && !st.valid && st.hasSlot
}

func (s *Spiller) UpdateDefinitionDepth(reg string, depth int) {
	s.state(reg).depth = depth
}

// DefinitionDepth returns the loop depth recorded for reg, 0 if none.
func (s *Spiller) DefinitionDepth(reg string) int {
	if st, ok := s.regs[reg]; ok {
		return st.depth
	}
	return 0
}

// TrackUsage moves reg to the most recently used end.
func (s *Spiller) TrackUsage(reg string) {
	s.UntrackUsage(reg)
	s.lru = append(s.lru, reg)
}

func (s *Spiller) UntrackUsage(reg string) {
	for i, r := range s.lru {
		if r == reg {
			s.lru = append(s.lru[:i], s.lru[i+1:]...)
			return
		}
	}
}

// Release forgets reg's value; the register is about to hold something new.
func (s *Spiller) Release(reg string) {
	delete(s.regs, reg)
	s.UntrackUsage(reg)
}

// MapSlotToRegister records that local slot lives in reg.
func (s *Spiller) MapSlotToRegister(slot int, reg string) {
	s.slots[slot] = Location{Register: reg}
}

// MapSlotToOffset records that local slot lives in the frame at offset.
func (s *Spiller) MapSlotToOffset(slot, offset int) {
	s.slots[slot] = Location{Offset: offset, Spilled: true}
}

// SlotLocation returns where slot currently lives.
func (s *Spiller) SlotLocation(slot int) (Location, bool) {
	loc, ok := s.slots[slot]
	if ok && !loc.Spilled && s.IsSpilled(loc.Register) {
		return Location{Offset: s.regs[loc.Register].slot, Spilled: true}, true
	}
	return loc, ok
}

// SpillOffsetForSlot returns the frame offset holding slot, if it is in memory.
func (s *Spiller) SpillOffsetForSlot(slot int) (int, bool) {
	loc, ok := s.SlotLocation(slot)
	if !ok || !loc.Spilled {
		return 0, false
	}
	return loc.Offset, true
}

// SpillAreaSize is the number of bytes of spill slots handed out so far.
func (s *Spiller) SpillAreaSize() int {
	return s.spillSize
}

// WrittenCalleeSaved returns the callee-saved registers written so far, in
// the profile's callee-saved order.
func (s *Spiller) WrittenCalleeSaved() []string {
	var out []string
	for _, r := range s.profile.Registers.CalleeSaved {
		if s.written[r] {
			out = append(out, r)
		}
	}
	return out
}

// ChooseVictim picks the register to evict from candidates: the lowest
// definition depth first, then the least recently used, then candidate order.
func (s *Spiller) ChooseVictim(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	rank := make(map[string]int, len(s.lru))
	for i, r := range s.lru {
		rank[r] = i
	}
	order := make([]string, len(candidates))
	copy(order, candidates)
	sort.SliceStable(order, func(i, j int) bool {
		di, dj := s.DefinitionDepth(order[i]), s.DefinitionDepth(order[j])
		if di != dj {
			return di < dj
		}
		ri, ok := rank[order[i]]
		if !ok {
			ri = -1
		}
		rj, ok := rank[order[j]]
		if !ok {
			rj = -1
		}
		return ri < rj
	})
	return order[0], true
}

// Evict moves reg's value into memory so the register can be reused. A value
// that is already safe in its slot is not stored again.
func (s *Spiller) Evict(out *asm.Buffer, reg string) (int, error) {
	st := s.state(reg)
	var offset int
	if st.hasSlot && (!st.valid || !st.dirty) {
		offset = st.slot
	} else {
		offset = s.newSlot()
		if err := s.store(out, reg, offset); err != nil {
			return 0, err
		}
	}
	logger.LogSpill(s.method, reg, offset, st.depth)

	for slot, loc := range s.slots {
		if !loc.Spilled && loc.Register == reg {
			s.slots[slot] = Location{Offset: offset, Spilled: true}
		}
	}
	s.Release(reg)
	if s.OnEvict != nil {
		s.OnEvict(reg, offset)
	}
	return offset, nil
}

func (s *Spiller) store(out *asm.Buffer, reg string, offset int) error {
	lines, err := s.profile.Render(arch.StoreToStack, arch.Offset(offset).Merge(arch.Vars{"src_reg": reg}))
	if err != nil {
		return err
	}
	out.Emit(lines...)
	return nil
}

func (s *Spiller) load(out *asm.Buffer, reg string, offset int) error {
	lines, err := s.profile.Render(arch.LoadFromStack, arch.Offset(offset).Merge(arch.Vars{"dest_reg": reg}))
	if err != nil {
		return err
	}
	out.Emit(lines...)
	return nil
}
