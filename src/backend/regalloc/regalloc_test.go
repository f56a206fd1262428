// Tests the local register allocator by building small ILOC programs by hand
// and comparing the rewritten instruction stream against manually derived
// expected output.

package regalloc

import (
	"testing"

	"ilocc/src/ir/iloc"
	"ilocc/src/ir/iloc/forms"
	"ilocc/src/util"
)

// ----------------------------
// ----- Helper functions -----
// ----------------------------

// helperPrologue appends the push, i2i, addI function prologue to l and
// returns the frame allocator instruction.
func helperPrologue(l *iloc.List) *iloc.Instruction {
	frame := iloc.NewInstruction(forms.AddI,
		iloc.StackRegister(), iloc.IntConstant(0), iloc.StackRegister())
	l.Append(iloc.NewInstruction(forms.Push, iloc.BaseRegister()))
	l.Append(iloc.NewInstruction(forms.I2I, iloc.StackRegister(), iloc.BaseRegister()))
	l.Append(frame)
	return frame
}

// helperLoadI appends 'loadI v => r<vr>' to l.
func helperLoadI(l *iloc.List, v, vr int) {
	l.Append(iloc.NewInstruction(forms.LoadI, iloc.IntConstant(v), iloc.VirtualRegister(vr)))
}

// helperPrint appends 'print r<vr>' to l.
func helperPrint(l *iloc.List, vr int) {
	l.Append(iloc.NewInstruction(forms.Print, iloc.VirtualRegister(vr)))
}

// helperNoVirtuals fails the test if any operand of any instruction still has
// the virtual register variant.
func helperNoVirtuals(t *testing.T, l *iloc.List) {
	t.Helper()
	for in := l.First(); in != nil; in = in.Next {
		for i1 := range in.Op {
			if in.Op[i1].Type == iloc.VirtualReg {
				t.Errorf("instruction %q still holds virtual register operand r%d", in, in.Op[i1].Id)
			}
		}
	}
}

// helperPhysicalsInRange fails the test if any physical register operand names
// a register outside [0, n).
func helperPhysicalsInRange(t *testing.T, l *iloc.List, n int) {
	t.Helper()
	for in := l.First(); in != nil; in = in.Next {
		for i1 := range in.Op {
			if in.Op[i1].Type == iloc.PhysicalReg && (in.Op[i1].Id < 0 || in.Op[i1].Id >= n) {
				t.Errorf("instruction %q names physical register p%d outside budget %d", in, in.Op[i1].Id, n)
			}
		}
	}
}

// helperLoadsCoveredByStores fails the test if any loadAI inserted by the pass
// targets a base pointer offset that no storeAI wrote.
func helperLoadsCoveredByStores(t *testing.T, l *iloc.List) {
	t.Helper()
	written := map[int]bool{}
	for in := l.First(); in != nil; in = in.Next {
		switch in.Form {
		case forms.StoreAI:
			if in.Op[1].Type == iloc.BaseReg {
				written[in.Op[2].Imm] = true
			}
		case forms.LoadAI:
			if in.Op[0].Type == iloc.BaseReg && !written[in.Op[1].Imm] {
				t.Errorf("load %q targets offset %d which no store wrote", in, in.Op[1].Imm)
			}
		}
	}
}

// helperCount returns the number of instructions in l with form f.
func helperCount(l *iloc.List, f forms.Form) int {
	n := 0
	for in := l.First(); in != nil; in = in.Next {
		if in.Form == f {
			n++
		}
	}
	return n
}

// -----------------
// ----- Tests -----
// -----------------

// TestNilList verifies that an absent or empty instruction list is a no-op.
func TestNilList(t *testing.T) {
	opt := util.Options{Registers: 4, Threads: 1}
	if err := AllocateRegisters(opt, nil); err != nil {
		t.Errorf("expected no error for nil list, got: %s", err)
	}
	l := &iloc.List{}
	if err := AllocateRegisters(opt, l); err != nil {
		t.Errorf("expected no error for empty list, got: %s", err)
	}
	if l.Len() != 0 {
		t.Errorf("expected empty list to stay empty, got %d instruction(s)", l.Len())
	}
}

// TestNoPhysicalRegisters verifies that a register budget below one is
// reported as an error.
func TestNoPhysicalRegisters(t *testing.T) {
	l := &iloc.List{}
	helperPrologue(l)
	for _, e1 := range []int{0, -1} {
		if err := AllocateRegisters(util.Options{Registers: e1, Threads: 1}, l); err == nil {
			t.Errorf("expected error for register budget %d, got none", e1)
		}
	}
}

// TestFitsWithinBudget verifies that a working set no larger than the register
// budget is allocated in register order without spill code.
func TestFitsWithinBudget(t *testing.T) {
	l := &iloc.List{}
	helperPrologue(l)
	helperLoadI(l, 1, 1)
	helperLoadI(l, 2, 2)
	helperLoadI(l, 3, 3)
	l.Append(iloc.NewInstruction(forms.Add,
		iloc.VirtualRegister(1), iloc.VirtualRegister(2), iloc.VirtualRegister(4)))
	// Trailing uses keep all four virtuals live at the add.
	for _, e1 := range []int{1, 2, 3, 4} {
		l.Append(iloc.NewInstruction(forms.Push, iloc.VirtualRegister(e1)))
	}

	if err := AllocateRegisters(util.Options{Registers: 4, Threads: 1}, l); err != nil {
		t.Fatal(err)
	}

	exp := `push bp
i2i sp => bp
addI sp, 0 => sp
loadI 1 => p0
loadI 2 => p1
loadI 3 => p2
add p0, p1 => p3
push p0
push p1
push p2
push p3
`
	if got := l.String(); got != exp {
		t.Errorf("unexpected output:\n%sexpected:\n%s", got, exp)
	}
	helperNoVirtuals(t, l)
	helperPhysicalsInRange(t, l, 4)
}

// TestBeladyEviction verifies that exceeding the register budget evicts the
// resident with the furthest next use and reloads it from the slot the
// eviction wrote.
func TestBeladyEviction(t *testing.T) {
	l := &iloc.List{}
	frame := helperPrologue(l)
	helperLoadI(l, 1, 1)
	helperLoadI(l, 2, 2)
	helperLoadI(l, 3, 3)
	helperPrint(l, 1)
	helperPrint(l, 2)
	helperPrint(l, 3)
	helperPrint(l, 1)

	if err := AllocateRegisters(util.Options{Registers: 2, Threads: 1}, l); err != nil {
		t.Fatal(err)
	}

	// The third definition evicts r2, whose next use is furthest away. The
	// reload of r1 for the final print comes from the slot r1's later
	// eviction wrote.
	exp := `push bp
i2i sp => bp
addI sp, -16 => sp
loadI 1 => p0
loadI 2 => p1
storeAI p1 => [bp-8]
loadI 3 => p1
print p0
loadAI [bp-8] => p0
storeAI p0 => [bp-16]
print p0
print p1
loadAI [bp-16] => p0
print p0
`
	if got := l.String(); got != exp {
		t.Errorf("unexpected output:\n%sexpected:\n%s", got, exp)
	}
	if frame.Op[1].Imm != -16 {
		t.Errorf("expected frame allocator immediate -16, got %d", frame.Op[1].Imm)
	}
	helperNoVirtuals(t, l)
	helperPhysicalsInRange(t, l, 2)
	helperLoadsCoveredByStores(t, l)
}

// TestEvictionTieBreak verifies that eviction candidates with equal next-use
// distances resolve to the lowest numbered physical register.
func TestEvictionTieBreak(t *testing.T) {
	l := &iloc.List{}
	helperPrologue(l)
	helperLoadI(l, 1, 1)
	helperLoadI(l, 2, 2)
	helperLoadI(l, 3, 3) // r1 and r2 both have no further use.

	if err := AllocateRegisters(util.Options{Registers: 2, Threads: 1}, l); err != nil {
		t.Fatal(err)
	}

	exp := `push bp
i2i sp => bp
addI sp, -8 => sp
loadI 1 => p0
loadI 2 => p1
storeAI p0 => [bp-8]
loadI 3 => p0
`
	if got := l.String(); got != exp {
		t.Errorf("unexpected output:\n%sexpected:\n%s", got, exp)
	}
}

// TestCallerSaves verifies that every live register is spilled before a call
// and reloaded before its next use after the call.
func TestCallerSaves(t *testing.T) {
	l := &iloc.List{}
	frame := helperPrologue(l)
	helperLoadI(l, 1, 1)
	helperLoadI(l, 2, 2)
	l.Append(iloc.NewInstruction(forms.Call, iloc.NewCallLabel("foo")))
	helperPrint(l, 1)
	helperPrint(l, 2)

	if err := AllocateRegisters(util.Options{Registers: 2, Threads: 1}, l); err != nil {
		t.Fatal(err)
	}

	exp := `push bp
i2i sp => bp
addI sp, -16 => sp
loadI 1 => p0
loadI 2 => p1
storeAI p1 => [bp-16]
storeAI p0 => [bp-8]
call foo
loadAI [bp-8] => p0
print p0
loadAI [bp-16] => p0
print p0
`
	if got := l.String(); got != exp {
		t.Errorf("unexpected output:\n%sexpected:\n%s", got, exp)
	}
	if frame.Op[1].Imm != -16 {
		t.Errorf("expected frame allocator immediate -16, got %d", frame.Op[1].Imm)
	}
	if n := helperCount(l, forms.StoreAI); n != 2 {
		t.Errorf("expected 2 spill stores, got %d", n)
	}
	if n := helperCount(l, forms.LoadAI); n != 2 {
		t.Errorf("expected 2 reloads, got %d", n)
	}
	helperLoadsCoveredByStores(t, l)
}

// TestDeadAfterRead verifies that a value with no future use releases its
// register immediately, so a budget of one register never spills for a chain
// of short-lived values.
func TestDeadAfterRead(t *testing.T) {
	l := &iloc.List{}
	helperPrologue(l)
	helperLoadI(l, 5, 1)
	helperPrint(l, 1)
	helperLoadI(l, 6, 2)
	helperPrint(l, 2)
	helperLoadI(l, 7, 3)
	helperPrint(l, 3)

	before := l.Len()
	if err := AllocateRegisters(util.Options{Registers: 1, Threads: 1}, l); err != nil {
		t.Fatal(err)
	}
	if after := l.Len(); after != before {
		t.Errorf("expected no spill code, got %d inserted instruction(s)", after-before)
	}

	exp := `push bp
i2i sp => bp
addI sp, 0 => sp
loadI 5 => p0
print p0
loadI 6 => p0
print p0
loadI 7 => p0
print p0
`
	if got := l.String(); got != exp {
		t.Errorf("unexpected output:\n%sexpected:\n%s", got, exp)
	}
}

// TestIdempotence verifies that re-running the pass on already allocated code
// changes nothing.
func TestIdempotence(t *testing.T) {
	opt := util.Options{Registers: 2, Threads: 1}
	l := &iloc.List{}
	helperPrologue(l)
	helperLoadI(l, 1, 1)
	helperLoadI(l, 2, 2)
	l.Append(iloc.NewInstruction(forms.Call, iloc.NewCallLabel("foo")))
	helperPrint(l, 1)
	helperPrint(l, 2)

	if err := AllocateRegisters(opt, l); err != nil {
		t.Fatal(err)
	}
	first := l.String()

	if err := AllocateRegisters(opt, l); err != nil {
		t.Fatal(err)
	}
	if second := l.String(); second != first {
		t.Errorf("second run changed the program:\n%sfirst run produced:\n%s", second, first)
	}
}

// TestMultipleFunctions verifies that spills carve slots from the frame of the
// function they occur in, both sequentially and with per-function parallelism.
func TestMultipleFunctions(t *testing.T) {
	build := func() (*iloc.List, *iloc.Instruction, *iloc.Instruction) {
		l := &iloc.List{}
		// First function spills nothing: every value dies at its print.
		f1 := helperPrologue(l)
		helperLoadI(l, 1, 1)
		helperPrint(l, 1)
		helperLoadI(l, 2, 2)
		helperPrint(l, 2)
		l.Append(iloc.NewInstruction(forms.Return))
		// Second function forces one eviction.
		f2 := helperPrologue(l)
		helperLoadI(l, 4, 4)
		helperLoadI(l, 5, 5)
		helperLoadI(l, 6, 6)
		helperPrint(l, 4)
		helperPrint(l, 5)
		helperPrint(l, 6)
		l.Append(iloc.NewInstruction(forms.Return))
		return l, f1, f2
	}

	seq, sf1, sf2 := build()
	if err := AllocateRegisters(util.Options{Registers: 2, Threads: 1}, seq); err != nil {
		t.Fatal(err)
	}
	if sf1.Op[1].Imm != 0 {
		t.Errorf("first function spills nothing, expected frame immediate 0, got %d", sf1.Op[1].Imm)
	}
	if sf2.Op[1].Imm >= 0 {
		t.Errorf("second function must spill, expected negative frame immediate, got %d", sf2.Op[1].Imm)
	}

	par, pf1, pf2 := build()
	if err := AllocateRegisters(util.Options{Registers: 2, Threads: 3}, par); err != nil {
		t.Fatal(err)
	}
	if got, exp := par.String(), seq.String(); got != exp {
		t.Errorf("parallel allocation diverged from sequential:\n%sexpected:\n%s", got, exp)
	}
	if pf1.Op[1].Imm != sf1.Op[1].Imm || pf2.Op[1].Imm != sf2.Op[1].Imm {
		t.Errorf("parallel frame immediates (%d, %d) diverged from sequential (%d, %d)",
			pf1.Op[1].Imm, pf2.Op[1].Imm, sf1.Op[1].Imm, sf2.Op[1].Imm)
	}
}

// TestSpillWithoutFrame verifies that an eviction with no frame allocator in
// scope is reported instead of corrupting the list.
func TestSpillWithoutFrame(t *testing.T) {
	l := &iloc.List{}
	helperLoadI(l, 1, 1)
	helperLoadI(l, 2, 2)
	helperLoadI(l, 3, 3)
	if err := AllocateRegisters(util.Options{Registers: 2, Threads: 1}, l); err == nil {
		t.Error("expected error for spill without a frame allocator, got none")
	}
}

// TestDistIgnoresWrites verifies that the next-use distance counts only reads,
// so an intervening redefinition does not shorten a value's lifetime estimate.
func TestDistIgnoresWrites(t *testing.T) {
	l := &iloc.List{}
	helperLoadI(l, 1, 1) // write r1
	helperLoadI(l, 9, 1) // redefinition of r1, not a read
	helperPrint(l, 1)    // read r1

	a := newAllocator(2, nil)
	if d := a.dist(1, l.First()); d != 2 {
		t.Errorf("expected next-use distance 2, got %d", d)
	}
	if d := a.dist(7, l.First()); d != infinity {
		t.Errorf("expected infinite distance for unused register, got %d", d)
	}
}

// TestReplaceRegister verifies that every operand slot naming the virtual
// register is rewritten, however many match.
func TestReplaceRegister(t *testing.T) {
	in := iloc.NewInstruction(forms.Add,
		iloc.VirtualRegister(1), iloc.VirtualRegister(1), iloc.VirtualRegister(1))
	replaceRegister(1, 0, in)
	for i1 := range in.Op {
		if in.Op[i1].Type != iloc.PhysicalReg || in.Op[i1].Id != 0 {
			t.Errorf("operand %d not rewritten: %s", i1, in.Op[i1])
		}
	}

	// A second application must be a no-op.
	replaceRegister(1, 1, in)
	for i1 := range in.Op {
		if in.Op[i1].Id != 0 {
			t.Errorf("operand %d rewritten twice: %s", i1, in.Op[i1])
		}
	}
}
