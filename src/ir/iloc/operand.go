package iloc

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// OperandType discriminates the variants of the Operand tagged union.
type OperandType uint

// Operand is one of the up to three operand slots of an Instruction. Only the
// Id, Imm or Name field identified by the Type is meaningful; the others are zero.
type Operand struct {
	Type OperandType // Variant tag.
	Id   int         // Register number for VirtualReg and PhysicalReg operands.
	Imm  int         // Constant value for IntConst operands.
	Name string      // Target name for CallLabel and JumpLabel operands.
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Empty       OperandType = iota // Empty marks an unused operand slot.
	VirtualReg                     // VirtualReg names one of the unbounded pre-allocation registers.
	PhysicalReg                    // PhysicalReg names one of the machine registers, zero indexed.
	StackReg                       // StackReg names the stack pointer register.
	BaseReg                        // BaseReg names the base (frame) pointer register.
	ReturnReg                      // ReturnReg names the procedure return value register.
	IntConst                       // IntConst holds a signed integer immediate.
	CallLabel                      // CallLabel names a procedure.
	JumpLabel                      // JumpLabel names a branch target.
)

// WordSize is the spill slot stride in bytes; every stack cell is one machine word.
const WordSize = 8

// MaxVirtualRegs is the upper bound on virtual register numbers. It doubles as
// the "infinite" sentinel for next-use distances.
const MaxVirtualRegs = 2048

// ---------------------
// ----- Functions -----
// ---------------------

// VirtualRegister returns a virtual register operand with the given number.
func VirtualRegister(id int) Operand {
	return Operand{Type: VirtualReg, Id: id}
}

// PhysicalRegister returns a physical register operand with the given number.
func PhysicalRegister(id int) Operand {
	return Operand{Type: PhysicalReg, Id: id}
}

// StackRegister returns the stack pointer operand.
func StackRegister() Operand {
	return Operand{Type: StackReg}
}

// BaseRegister returns the base pointer operand.
func BaseRegister() Operand {
	return Operand{Type: BaseReg}
}

// ReturnRegister returns the return value register operand.
func ReturnRegister() Operand {
	return Operand{Type: ReturnReg}
}

// IntConstant returns an integer immediate operand holding v.
func IntConstant(v int) Operand {
	return Operand{Type: IntConst, Imm: v}
}

// NewCallLabel returns a procedure name operand for call instructions.
func NewCallLabel(name string) Operand {
	return Operand{Type: CallLabel, Name: name}
}

// NewJumpLabel returns a branch target operand for jump, cbr and label instructions.
func NewJumpLabel(name string) Operand {
	return Operand{Type: JumpLabel, Name: name}
}

// IsRegister reports whether the operand is any of the register variants.
func (op Operand) IsRegister() bool {
	switch op.Type {
	case VirtualReg, PhysicalReg, StackReg, BaseReg, ReturnReg:
		return true
	}
	return false
}

// String returns the textual ILOC representation of the operand.
func (op Operand) String() string {
	switch op.Type {
	case VirtualReg:
		return fmt.Sprintf("r%d", op.Id)
	case PhysicalReg:
		return fmt.Sprintf("p%d", op.Id)
	case StackReg:
		return "sp"
	case BaseReg:
		return "bp"
	case ReturnReg:
		return "ret"
	case IntConst:
		return fmt.Sprintf("%d", op.Imm)
	case CallLabel, JumpLabel:
		return op.Name
	}
	return ""
}
