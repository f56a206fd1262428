// Package regalloc rewrites an ILOC instruction list so that every register
// operand names one of a bounded set of physical registers. The pass is a
// bottom-up local allocator: it walks the list once, keeps a forward table
// from physical registers to the virtual registers they hold, evicts the
// resident with the furthest next use when the pool runs dry (Belady's
// heuristic), and moves evicted values through spill slots carved from the
// enclosing function's stack frame. Live registers are spilled across call
// instructions (caller-saves).
package regalloc

import (
	"fmt"
	"sync"

	"ilocc/src/ir/iloc"
	"ilocc/src/ir/iloc/forms"
	"ilocc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// allocator holds the state of one allocation scope: the physical register
// file contents, the spill slot assignments, and the splice points for new
// store and load instructions.
type allocator struct {
	numPhys int               // Number of physical registers available.
	name    []int             // name[p] is the virtual register held by physical p, or free.
	slot    []int             // slot[v] is the bp-relative offset of v's spill cell, or unspilled.
	frame   *iloc.Instruction // The addI instruction that reserves the current function's stack frame.
	prev    *iloc.Instruction // Most recently processed instruction; splice point for spills and reloads.
	stop    *iloc.Instruction // Exclusive end of this allocator's scope; <nil> means end of list.
}

// segment is a run of instructions allocated as one scope in parallel mode.
// head is the first instruction of a function; stop is the first instruction
// of the next function, or <nil> at the end of the program.
type segment struct {
	head *iloc.Instruction
	stop *iloc.Instruction
}

// ---------------------
// ----- Constants -----
// ---------------------

// freeReg marks a physical register that holds no virtual register.
const freeReg = -1

// unspilled marks a virtual register that has never been written to a spill slot.
const unspilled = -1

// infinity is the next-use distance sentinel for a virtual register that is
// never read again.
const infinity = iloc.MaxVirtualRegs

// ---------------------
// ----- Functions -----
// ---------------------

// AllocateRegisters rewrites every virtual register operand of the list to a
// physical register operand in range [0, opt.Registers), inserting storeAI and
// loadAI instructions where the live set exceeds the register budget. The list
// is mutated in place. An empty or <nil> list is a no-op.
//
// With opt.Threads > 1 the list is split at function prologues and every
// function is allocated concurrently with fresh allocator tables. The
// sequential path keeps one table pair for the whole list, which is equivalent
// because virtual registers are not live across function boundaries.
func AllocateRegisters(opt util.Options, l *iloc.List) error {
	if opt.Registers < 1 {
		return fmt.Errorf("no physical registers available for allocation: %d", opt.Registers)
	}
	if l == nil || l.First() == nil {
		return nil
	}

	if opt.Threads > 1 {
		// Parallel: one worker scope per function segment.
		segs := functions(l.First())
		t := opt.Threads
		if t > len(segs) {
			t = len(segs)
		}
		n := len(segs) / t
		res := len(segs) % t

		start := 0
		end := n

		// Create error listener.
		perr := util.NewPerror(t)
		defer perr.Stop()

		// Create wait group for main go routine to wait for worker go routines.
		wg := sync.WaitGroup{}
		wg.Add(t)

		// Spawn t worker go routines.
		for i1 := 0; i1 < t; i1++ {
			if i1 < res {
				end++
			}

			go func(segs []segment, wg *sync.WaitGroup) {
				defer wg.Done()
				for _, e1 := range segs {
					a := newAllocator(opt.Registers, e1.stop)
					perr.Append(a.run(e1.head))
				}
			}(segs[start:end], &wg)

			start = end
			end += n
		}

		// Wait for worker go routines to finish allocation.
		wg.Wait()

		// Check for errors from worker go routines.
		if perr.Len() > 0 {
			for e1 := range perr.Errors() {
				fmt.Println(e1)
			}
			return fmt.Errorf("%d error(s) during parallel register allocation", perr.Len())
		}
		return nil
	}

	// Sequential: a single scope covering the whole list.
	a := newAllocator(opt.Registers, nil)
	return a.run(l.First())
}

// newAllocator returns an allocator for numPhys physical registers with every
// physical register free and every virtual register unspilled.
func newAllocator(numPhys int, stop *iloc.Instruction) *allocator {
	a := allocator{
		numPhys: numPhys,
		name:    make([]int, numPhys),
		slot:    make([]int, iloc.MaxVirtualRegs),
		stop:    stop,
	}
	for i1 := range a.name {
		a.name[i1] = freeReg
	}
	for i1 := range a.slot {
		a.slot[i1] = unspilled
	}
	return &a
}

// run performs the single forward pass over the allocator's scope. For every
// instruction the read operands are ensured resident and rewritten first, then
// reads without a future use release their physical register, then the write
// operand is allocated and rewritten, and finally every live register is
// spilled if the instruction is a call.
func (a *allocator) run(head *iloc.Instruction) error {
	for in := head; in != a.stop; in = in.Next {
		// Latch the frame allocator on a push, i2i, addI prologue triple.
		if isPrologue(in) {
			a.frame = in.Next.Next
		}

		reads := in.ReadRegisters()
		for i1 := range reads {
			if reads[i1].Type != iloc.VirtualReg {
				continue
			}
			vr := reads[i1].Id

			// Make sure vr is resident, then rewrite the operand slots naming it.
			pr, err := a.ensure(vr, in)
			if err != nil {
				return err
			}
			replaceRegister(vr, pr, in)

			// A value with no future use releases its register before the write
			// operand is allocated.
			if a.dist(vr, in) == infinity {
				a.name[pr] = freeReg
			}
		}

		if w := in.WriteRegister(); w.Type == iloc.VirtualReg {
			pr, err := a.allocate(w.Id, in)
			if err != nil {
				return err
			}
			replaceRegister(w.Id, pr, in)
		}

		// Caller-saves: force every live value to its home slot before a call.
		// The stores splice in after prev, so they precede the call.
		if in.Form == forms.Call && a.prev != nil {
			for p := 0; p < a.numPhys; p++ {
				if a.name[p] != freeReg {
					if err := a.spill(p); err != nil {
						return err
					}
				}
			}
		}

		a.prev = in
	}
	return nil
}

// ensure returns the physical register holding vr. A resident vr costs
// nothing; otherwise a register is allocated and, if vr has a spill slot, a
// reload from that slot is spliced in after prev. A miss without a spill slot
// emits no reload: the value is about to be produced by a write this pass has
// already rewritten.
func (a *allocator) ensure(vr int, in *iloc.Instruction) (int, error) {
	for p := 0; p < a.numPhys; p++ {
		if a.name[p] == vr {
			return p, nil
		}
	}
	pr, err := a.allocate(vr, in)
	if err != nil {
		return 0, err
	}
	if a.slot[vr] != unspilled {
		a.insertLoad(a.slot[vr], pr)
	}
	return pr, nil
}

// allocate binds vr to a physical register and returns it. A free register is
// taken if one exists; otherwise the resident whose next use is furthest away
// is evicted to its spill slot. The strict greater-than comparison during the
// low-to-high scan resolves distance ties towards the lowest-numbered
// register, which keeps allocation deterministic.
func (a *allocator) allocate(vr int, in *iloc.Instruction) (int, error) {
	for p := 0; p < a.numPhys; p++ {
		if a.name[p] == freeReg {
			a.name[p] = vr
			return p, nil
		}
	}

	maxPr := -1
	maxDist := -1
	for p := 0; p < a.numPhys; p++ {
		if d := a.dist(a.name[p], in); d > maxDist {
			maxPr = p
			maxDist = d
		}
	}
	if err := a.spill(maxPr); err != nil {
		return 0, err
	}
	a.name[maxPr] = vr
	return maxPr, nil
}

// dist returns the number of instructions from in to the next read of vr, or
// infinity if vr is never read again within the allocator's scope. Writes to
// vr are deliberately ignored: the eviction policy only needs an ordering and
// an "ever used again" predicate, and over-estimating liveness is safe.
func (a *allocator) dist(vr int, in *iloc.Instruction) int {
	d := 1
	for s := in.Next; s != a.stop; s = s.Next {
		reads := s.ReadRegisters()
		for i1 := range reads {
			if reads[i1].Type == iloc.VirtualReg && reads[i1].Id == vr {
				return d
			}
		}
		d++
	}
	return infinity
}

// spill carves a new spill slot from the current stack frame, splices a store
// of physical register pr to that slot in after prev, records the slot for the
// held virtual register and frees pr. The store executes before the
// instruction currently being processed, while the pre-rewrite value is still
// live in pr.
func (a *allocator) spill(pr int) error {
	if a.frame == nil {
		return fmt.Errorf("cannot spill p%d: no stack frame allocator in scope", pr)
	}

	// Grow the frame by one word.
	off := a.frame.Op[1].Imm - iloc.WordSize
	a.frame.Op[1].Imm = off

	st := iloc.NewInstruction(forms.StoreAI,
		iloc.PhysicalRegister(pr), iloc.BaseRegister(), iloc.IntConstant(off))
	st.Next = a.prev.Next
	a.prev.Next = st

	a.slot[a.name[pr]] = off
	a.name[pr] = freeReg
	return nil
}

// insertLoad splices a reload of the spill cell at bp+off into physical
// register pr in after prev.
func (a *allocator) insertLoad(off, pr int) {
	ld := iloc.NewInstruction(forms.LoadAI,
		iloc.BaseRegister(), iloc.IntConstant(off), iloc.PhysicalRegister(pr))
	ld.Next = a.prev.Next
	a.prev.Next = ld
}

// replaceRegister rewrites every operand slot of in that names virtual
// register vr to physical register pr. Safe to call however many slots match.
func replaceRegister(vr, pr int, in *iloc.Instruction) {
	for i1 := range in.Op {
		if in.Op[i1].Type == iloc.VirtualReg && in.Op[i1].Id == vr {
			in.Op[i1] = iloc.PhysicalRegister(pr)
		}
	}
}

// isPrologue reports whether in starts the three-instruction function prologue
// push, i2i (sp to bp copy), addI (sp adjustment).
func isPrologue(in *iloc.Instruction) bool {
	return in.Form == forms.Push &&
		in.Next != nil && in.Next.Form == forms.I2I &&
		in.Next.Next != nil && in.Next.Next.Form == forms.AddI
}

// functions splits the list starting at head into one segment per function
// prologue. Instructions before the first prologue belong to the first
// segment.
func functions(head *iloc.Instruction) []segment {
	starts := []*iloc.Instruction{head}
	for in := head; in != nil; in = in.Next {
		if in != head && isPrologue(in) {
			starts = append(starts, in)
		}
	}
	segs := make([]segment, len(starts))
	for i1 := range starts {
		segs[i1].head = starts[i1]
		if i1+1 < len(starts) {
			segs[i1].stop = starts[i1+1]
		}
	}
	return segs
}
