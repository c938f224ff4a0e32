// Package regalloc manages the physical register pool of one method.
//
// Design: registers are handed out on demand while the native generator walks
// the bytecode. When the pool runs dry the Spiller nominates a victim, writes
// its value to the frame and the register goes back into the pool.
package regalloc

import (
	"github.com/pkg/errors"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/asm"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/logger"
)

var (
	// ErrExhausted means no register was free even after an eviction.
	ErrExhausted = errors.New("register pool exhausted")

	// ErrNoVictim means every used register is pinned or must not be evicted.
	ErrNoVictim = errors.New("no register can be spilled")
)

// Allocator hands out general purpose registers.
type Allocator struct {
	profile   *arch.Profile
	spiller   *Spiller
	available []string // stack, top is the last element
	used      []string // allocation order
	pinned    map[string]bool
}

// NewAllocator creates an allocator over profile's general purpose registers.
func NewAllocator(profile *arch.Profile, spiller *Spiller) *Allocator {
	a := &Allocator{profile: profile, spiller: spiller}
	a.Reset()
	return a
}

// Reset returns every register to the pool. The stack is filled so that the
// first general purpose register is popped first.
func (a *Allocator) Reset() {
	gp := a.profile.Registers.GeneralPurpose
	a.available = make([]string, 0, len(gp))
	for i := len(gp) - 1; i >= 0; i-- {
		a.available = append(a.available, gp[i])
	}
	a.used = nil
	a.pinned = make(map[string]bool)
}

// Allocate returns a free register. When none is free one used register not
// in avoid is evicted through the spiller; out receives the spill code.
func (a *Allocator) Allocate(out *asm.Buffer, avoid ...string) (string, error) {
	if len(a.available) == 0 {
		if err := a.evict(out, avoid); err != nil {
			return "", err
		}
		if len(a.available) == 0 {
			return "", errors.Wrapf(ErrExhausted, "%d registers in use", len(a.used))
		}
	}

	reg := a.available[len(a.available)-1]
	a.available = a.available[:len(a.available)-1]
	a.used = append(a.used, reg)
	a.spiller.Release(reg)
	a.spiller.TrackUsage(reg)
	return reg, nil
}

func (a *Allocator) evict(out *asm.Buffer, avoid []string) error {
	var candidates []string
	for _, r := range a.used {
		if a.pinned[r] || contains(avoid, r) || !a.profile.IsGeneralPurpose(r) {
			continue
		}
		candidates = append(candidates, r)
	}
	victim, ok := a.spiller.ChooseVictim(candidates)
	if !ok {
		return errors.Wrapf(ErrNoVictim, "%d registers in use, %d pinned", len(a.used), len(a.pinned))
	}

	logger.With("method", a.spiller.method).Debug("Evicting register",
		"reg", victim,
		"depth", a.spiller.DefinitionDepth(victim))
	if _, err := a.spiller.Evict(out, victim); err != nil {
		return err
	}
	a.removeUsed(victim)
	a.available = append(a.available, victim)
	return nil
}

// Free releases reg. Only general purpose registers return to the pool;
// pinned registers are kept.
func (a *Allocator) Free(reg string) {
	if a.pinned[reg] || !a.removeUsed(reg) {
		return
	}
	a.spiller.Release(reg)
	if a.profile.IsGeneralPurpose(reg) {
		a.available = append(a.available, reg)
	}
}

// MarkUsed moves reg into the used set without going through Allocate.
func (a *Allocator) MarkUsed(reg string) {
	for i, r := range a.available {
		if r == reg {
			a.available = append(a.available[:i], a.available[i+1:]...)
			break
		}
	}
	if !contains(a.used, reg) {
		a.used = append(a.used, reg)
	}
	a.spiller.TrackUsage(reg)
}

// Pin marks reg used for the rest of the method. Pinned registers are never
// evicted or freed.
func (a *Allocator) Pin(reg string) {
	a.MarkUsed(reg)
	a.pinned[reg] = true
}

func (a *Allocator) IsPinned(reg string) bool { return a.pinned[reg] }

func (a *Allocator) IsUsed(reg string) bool { return contains(a.used, reg) }

// Used returns the used registers in allocation order.
func (a *Allocator) Used() []string {
	out := make([]string, len(a.used))
	copy(out, a.used)
	return out
}

// Available returns the free registers, next to be allocated first.
func (a *Allocator) Available() []string {
	out := make([]string, len(a.available))
	for i, r := range a.available {
		out[len(out)-1-i] = r
	}
	return out
}

func (a *Allocator) removeUsed(reg string) bool {
	for i, r := range a.used {
		if r == reg {
			a.used = append(a.used[:i], a.used[i+1:]...)
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
