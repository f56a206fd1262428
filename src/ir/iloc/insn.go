// Package iloc defines the linear ILOC intermediate representation consumed by
// the back end: three-operand instructions chained into a singly linked program
// order list, with observer methods reporting which operand slots each
// instruction form reads and writes.
package iloc

import "ilocc/src/ir/iloc/forms"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Instruction is a single ILOC instruction with up to three operand slots and
// a mutable link to its successor in program order.
type Instruction struct {
	Form forms.Form   // Operation performed by this instruction.
	Op   [3]Operand   // Operand slots; unused slots are Empty.
	Next *Instruction // Successor in program order, or <nil> at the end of the list.
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewInstruction returns a new instruction of the given form holding up to
// three operands. Surplus operands are ignored; missing slots stay Empty.
func NewInstruction(f forms.Form, ops ...Operand) *Instruction {
	in := &Instruction{Form: f}
	for i1 := 0; i1 < len(ops) && i1 < 3; i1++ {
		in.Op[i1] = ops[i1]
	}
	return in
}

// ReadRegisters returns the register operands read by the instruction. The
// returned array is freshly built on every call and owned by the caller;
// slots the form does not read are Empty.
func (in *Instruction) ReadRegisters() [3]Operand {
	var r [3]Operand
	switch in.Form {
	case forms.Add, forms.Sub, forms.Mult, forms.Div, forms.And, forms.Or,
		forms.LShift, forms.RShift,
		forms.CmpLT, forms.CmpLE, forms.CmpEQ, forms.CmpGE, forms.CmpGT, forms.CmpNE:
		// Binary operations read both sources and write the third slot.
		r[0] = in.Op[0]
		r[1] = in.Op[1]
	case forms.Not, forms.Neg, forms.I2I, forms.Load:
		r[0] = in.Op[0]
	case forms.AddI, forms.MultI:
		// Immediate forms read the register source only; the constant sits in slot 1.
		r[0] = in.Op[0]
	case forms.LoadAI:
		// loadAI [r1+c] => r2 reads the base address register.
		r[0] = in.Op[0]
	case forms.Store:
		// store r1 => r2 reads the value and the address; memory is written, no register is.
		r[0] = in.Op[0]
		r[1] = in.Op[1]
	case forms.StoreAI:
		// storeAI r1 => [r2+c] reads the value and the base address register.
		r[0] = in.Op[0]
		r[1] = in.Op[1]
	case forms.Push, forms.Cbr, forms.Print:
		r[0] = in.Op[0]
	}
	return r
}

// WriteRegister returns the register operand written by the instruction, or an
// Empty operand for forms that write no register.
func (in *Instruction) WriteRegister() Operand {
	switch in.Form {
	case forms.Add, forms.Sub, forms.Mult, forms.Div, forms.And, forms.Or,
		forms.LShift, forms.RShift,
		forms.CmpLT, forms.CmpLE, forms.CmpEQ, forms.CmpGE, forms.CmpGT, forms.CmpNE,
		forms.AddI, forms.MultI, forms.LoadAI:
		return in.Op[2]
	case forms.Not, forms.Neg, forms.I2I, forms.Load, forms.LoadI:
		return in.Op[1]
	case forms.Pop:
		return in.Op[0]
	}
	return Operand{}
}
