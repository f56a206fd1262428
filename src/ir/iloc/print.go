package iloc

import (
	"fmt"
	"strings"

	"ilocc/src/ir/iloc/forms"
)

// ---------------------
// ----- Functions -----
// ---------------------

// String returns the textual ILOC representation of the instruction. The
// output parses back to an identical instruction with the frontend package.
func (in *Instruction) String() string {
	switch in.Form {
	case forms.Nop, forms.Return:
		return in.Form.String()
	case forms.Label:
		return fmt.Sprintf("%s:", in.Op[0].Name)
	case forms.Jump, forms.Call:
		return fmt.Sprintf("%s %s", in.Form, in.Op[0])
	case forms.Push, forms.Pop, forms.Print:
		return fmt.Sprintf("%s %s", in.Form, in.Op[0])
	case forms.Cbr:
		return fmt.Sprintf("%s %s => %s, %s", in.Form, in.Op[0], in.Op[1], in.Op[2])
	case forms.LoadI, forms.Load, forms.I2I, forms.Not, forms.Neg, forms.Store:
		return fmt.Sprintf("%s %s => %s", in.Form, in.Op[0], in.Op[1])
	case forms.AddI, forms.MultI:
		return fmt.Sprintf("%s %s, %s => %s", in.Form, in.Op[0], in.Op[1], in.Op[2])
	case forms.LoadAI:
		return fmt.Sprintf("%s [%s%s] => %s", in.Form, in.Op[0], offset(in.Op[1]), in.Op[2])
	case forms.StoreAI:
		return fmt.Sprintf("%s %s => [%s%s]", in.Form, in.Op[0], in.Op[1], offset(in.Op[2]))
	}
	// Three-operand arithmetic and comparisons.
	return fmt.Sprintf("%s %s, %s => %s", in.Form, in.Op[0], in.Op[1], in.Op[2])
}

// String returns the whole program as ILOC text, one instruction per line.
func (l *List) String() string {
	sb := strings.Builder{}
	for in := l.First(); in != nil; in = in.Next {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// offset formats an address displacement with an explicit sign, as in [bp-8].
func offset(op Operand) string {
	if op.Imm < 0 {
		return fmt.Sprintf("%d", op.Imm)
	}
	return fmt.Sprintf("+%d", op.Imm)
}
