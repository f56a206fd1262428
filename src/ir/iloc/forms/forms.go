// Package forms defines ILOC instruction forms (opcodes) and their textual mnemonics.
package forms

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Form identifies the operation performed by an ILOC instruction.
type Form uint

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Nop     Form = iota // Nop performs no operation.
	Add                 // Add identifies the arithmetic operation r3 = r1 + r2.
	Sub                 // Sub identifies the arithmetic operation r3 = r1 - r2.
	Mult                // Mult identifies the arithmetic operation r3 = r1 * r2.
	Div                 // Div identifies the arithmetic operation r3 = r1 / r2.
	And                 // And identifies the arithmetic operation r3 = r1 & r2.
	Or                  // Or identifies the arithmetic operation r3 = r1 | r2.
	LShift              // LShift identifies the arithmetic operation r3 = r1 << r2.
	RShift              // RShift identifies the arithmetic operation r3 = r1 >> r2.
	Not                 // Not identifies the unary operation r2 = !r1.
	Neg                 // Neg identifies the unary operation r2 = -r1.
	AddI                // AddI identifies the arithmetic operation r2 = r1 + c.
	MultI               // MultI identifies the arithmetic operation r2 = r1 * c.
	LoadI               // LoadI loads the integer constant c into r1.
	Load                // Load reads the memory word addressed by r1 into r2.
	LoadAI              // LoadAI reads the memory word addressed by r1 + c into r2.
	Store               // Store writes r1 to the memory word addressed by r2.
	StoreAI             // StoreAI writes r1 to the memory word addressed by r2 + c.
	I2I                 // I2I copies register r1 into register r2.
	Push                // Push pushes r1 onto the system stack.
	Pop                 // Pop pops the top of the system stack into r1.
	CmpLT               // CmpLT sets r3 = 1 if r1 < r2, else 0.
	CmpLE               // CmpLE sets r3 = 1 if r1 <= r2, else 0.
	CmpEQ               // CmpEQ sets r3 = 1 if r1 == r2, else 0.
	CmpGE               // CmpGE sets r3 = 1 if r1 >= r2, else 0.
	CmpGT               // CmpGT sets r3 = 1 if r1 > r2, else 0.
	CmpNE               // CmpNE sets r3 = 1 if r1 != r2, else 0.
	Cbr                 // Cbr branches to l1 if r1 is non-zero, else to l2.
	Jump                // Jump branches unconditionally to l1.
	Label               // Label marks a branch target in the instruction stream.
	Call                // Call invokes the procedure named by l1.
	Return              // Return transfers control back to the caller.
	Print               // Print writes the value of r1 to standard output.
)

// -------------------
// ----- Globals -----
// -------------------

// mnemonics provides the textual ILOC mnemonic for every Form constant.
var mnemonics = [...]string{
	"nop",
	"add",
	"sub",
	"mult",
	"div",
	"and",
	"or",
	"lshift",
	"rshift",
	"not",
	"neg",
	"addI",
	"multI",
	"loadI",
	"load",
	"loadAI",
	"store",
	"storeAI",
	"i2i",
	"push",
	"pop",
	"cmp_LT",
	"cmp_LE",
	"cmp_EQ",
	"cmp_GE",
	"cmp_GT",
	"cmp_NE",
	"cbr",
	"jump",
	"label",
	"call",
	"return",
	"print",
}

// ---------------------
// ----- Functions -----
// ---------------------

// String returns the ILOC mnemonic of the Form.
func (f Form) String() string {
	if int(f) >= len(mnemonics) {
		return "unknown"
	}
	return mnemonics[f]
}
