// Package frontend parses textual ILOC into the linear in-memory
// representation consumed by the back end. The syntax is line oriented: one
// instruction per line, '//' comments, labels written as 'name:', registers
// written as rN (virtual), pN (physical), sp, bp and ret, and memory
// displacements written as [reg+off] or [reg-off].
package frontend

import (
	"fmt"
	"strconv"
	"strings"

	"ilocc/src/ir/iloc"
	"ilocc/src/ir/iloc/forms"
)

// -------------------
// ----- Globals -----
// -------------------

// formOf maps ILOC mnemonics to their instruction forms.
var formOf = map[string]forms.Form{
	"nop":     forms.Nop,
	"add":     forms.Add,
	"sub":     forms.Sub,
	"mult":    forms.Mult,
	"div":     forms.Div,
	"and":     forms.And,
	"or":      forms.Or,
	"lshift":  forms.LShift,
	"rshift":  forms.RShift,
	"not":     forms.Not,
	"neg":     forms.Neg,
	"addI":    forms.AddI,
	"multI":   forms.MultI,
	"loadI":   forms.LoadI,
	"load":    forms.Load,
	"loadAI":  forms.LoadAI,
	"store":   forms.Store,
	"storeAI": forms.StoreAI,
	"i2i":     forms.I2I,
	"push":    forms.Push,
	"pop":     forms.Pop,
	"cmp_LT":  forms.CmpLT,
	"cmp_LE":  forms.CmpLE,
	"cmp_EQ":  forms.CmpEQ,
	"cmp_GE":  forms.CmpGE,
	"cmp_GT":  forms.CmpGT,
	"cmp_NE":  forms.CmpNE,
	"cbr":     forms.Cbr,
	"jump":    forms.Jump,
	"call":    forms.Call,
	"return":  forms.Return,
	"print":   forms.Print,
}

// ---------------------
// ----- Functions -----
// ---------------------

// Parse parses ILOC source text into an instruction list. Errors report the
// one-indexed source line on which they occurred.
func Parse(src string) (*iloc.List, error) {
	l := &iloc.List{}
	for i1, e1 := range strings.Split(src, "\n") {
		line := e1
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		in, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s", i1+1, err)
		}
		l.Append(in)
	}
	return l, nil
}

// parseLine parses a single non-empty instruction or label line.
func parseLine(line string) (*iloc.Instruction, error) {
	// Labels are a bare identifier followed by a colon.
	if strings.HasSuffix(line, ":") && !strings.ContainsAny(line[:len(line)-1], " \t") {
		return iloc.NewInstruction(forms.Label, iloc.NewJumpLabel(line[:len(line)-1])), nil
	}

	fields := strings.Fields(line)
	f, ok := formOf[fields[0]]
	if !ok {
		return nil, fmt.Errorf("unknown instruction: %s", fields[0])
	}

	// Split the operand text on the assignment arrow, then on commas.
	var lhs, rhs []string
	parts := strings.SplitN(strings.Join(fields[1:], " "), "=>", 2)
	lhs = splitOperands(parts[0])
	if len(parts) > 1 {
		rhs = splitOperands(parts[1])
	}

	switch f {
	case forms.Nop, forms.Return:
		if len(lhs) != 0 || len(rhs) != 0 {
			return nil, fmt.Errorf("%s takes no operands", f)
		}
		return iloc.NewInstruction(f), nil
	case forms.Jump:
		if len(lhs) != 1 || len(rhs) != 0 {
			return nil, fmt.Errorf("expected 'jump l1'")
		}
		return iloc.NewInstruction(f, iloc.NewJumpLabel(lhs[0])), nil
	case forms.Call:
		if len(lhs) != 1 || len(rhs) != 0 {
			return nil, fmt.Errorf("expected 'call name'")
		}
		return iloc.NewInstruction(f, iloc.NewCallLabel(lhs[0])), nil
	case forms.Push, forms.Pop, forms.Print:
		if len(lhs) != 1 || len(rhs) != 0 {
			return nil, fmt.Errorf("expected '%s r1'", f)
		}
		r, err := parseRegister(lhs[0])
		if err != nil {
			return nil, err
		}
		return iloc.NewInstruction(f, r), nil
	case forms.Cbr:
		if len(lhs) != 1 || len(rhs) != 2 {
			return nil, fmt.Errorf("expected 'cbr r1 => l1, l2'")
		}
		r, err := parseRegister(lhs[0])
		if err != nil {
			return nil, err
		}
		return iloc.NewInstruction(f, r, iloc.NewJumpLabel(rhs[0]), iloc.NewJumpLabel(rhs[1])), nil
	case forms.LoadI:
		if len(lhs) != 1 || len(rhs) != 1 {
			return nil, fmt.Errorf("expected 'loadI c => r1'")
		}
		c, err := parseConstant(lhs[0])
		if err != nil {
			return nil, err
		}
		r, err := parseRegister(rhs[0])
		if err != nil {
			return nil, err
		}
		return iloc.NewInstruction(f, c, r), nil
	case forms.Load, forms.I2I, forms.Not, forms.Neg, forms.Store:
		if len(lhs) != 1 || len(rhs) != 1 {
			return nil, fmt.Errorf("expected '%s r1 => r2'", f)
		}
		r1, err := parseRegister(lhs[0])
		if err != nil {
			return nil, err
		}
		r2, err := parseRegister(rhs[0])
		if err != nil {
			return nil, err
		}
		return iloc.NewInstruction(f, r1, r2), nil
	case forms.AddI, forms.MultI:
		if len(lhs) != 2 || len(rhs) != 1 {
			return nil, fmt.Errorf("expected '%s r1, c => r2'", f)
		}
		r1, err := parseRegister(lhs[0])
		if err != nil {
			return nil, err
		}
		c, err := parseConstant(lhs[1])
		if err != nil {
			return nil, err
		}
		r2, err := parseRegister(rhs[0])
		if err != nil {
			return nil, err
		}
		return iloc.NewInstruction(f, r1, c, r2), nil
	case forms.LoadAI:
		if len(lhs) != 1 || len(rhs) != 1 {
			return nil, fmt.Errorf("expected 'loadAI [r1+c] => r2'")
		}
		base, off, err := parseAddress(lhs[0])
		if err != nil {
			return nil, err
		}
		r, err := parseRegister(rhs[0])
		if err != nil {
			return nil, err
		}
		return iloc.NewInstruction(f, base, off, r), nil
	case forms.StoreAI:
		if len(lhs) != 1 || len(rhs) != 1 {
			return nil, fmt.Errorf("expected 'storeAI r1 => [r2+c]'")
		}
		r, err := parseRegister(lhs[0])
		if err != nil {
			return nil, err
		}
		base, off, err := parseAddress(rhs[0])
		if err != nil {
			return nil, err
		}
		return iloc.NewInstruction(f, r, base, off), nil
	}

	// Three-operand arithmetic and comparisons.
	if len(lhs) != 2 || len(rhs) != 1 {
		return nil, fmt.Errorf("expected '%s r1, r2 => r3'", f)
	}
	r1, err := parseRegister(lhs[0])
	if err != nil {
		return nil, err
	}
	r2, err := parseRegister(lhs[1])
	if err != nil {
		return nil, err
	}
	r3, err := parseRegister(rhs[0])
	if err != nil {
		return nil, err
	}
	return iloc.NewInstruction(f, r1, r2, r3), nil
}

// splitOperands splits a comma separated operand list into trimmed tokens.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return nil
	}
	tokens := strings.Split(s, ",")
	for i1 := range tokens {
		tokens[i1] = strings.TrimSpace(tokens[i1])
	}
	return tokens
}

// parseRegister parses one of the register operand spellings sp, bp, ret, rN or pN.
func parseRegister(tok string) (iloc.Operand, error) {
	switch tok {
	case "sp":
		return iloc.StackRegister(), nil
	case "bp":
		return iloc.BaseRegister(), nil
	case "ret":
		return iloc.ReturnRegister(), nil
	}
	if len(tok) > 1 && (tok[0] == 'r' || tok[0] == 'p') {
		if id, err := strconv.Atoi(tok[1:]); err == nil && id >= 0 {
			if tok[0] == 'r' {
				if id >= iloc.MaxVirtualRegs {
					return iloc.Operand{}, fmt.Errorf("virtual register number out of range [0, %d): %s", iloc.MaxVirtualRegs, tok)
				}
				return iloc.VirtualRegister(id), nil
			}
			return iloc.PhysicalRegister(id), nil
		}
	}
	return iloc.Operand{}, fmt.Errorf("expected register, got: %s", tok)
}

// parseConstant parses a signed integer immediate.
func parseConstant(tok string) (iloc.Operand, error) {
	v, err := strconv.Atoi(tok)
	if err != nil {
		return iloc.Operand{}, fmt.Errorf("expected integer constant, got: %s", tok)
	}
	return iloc.IntConstant(v), nil
}

// parseAddress parses a bracketed base-plus-displacement operand, [reg+off] or
// [reg-off], returning the base register and the displacement constant.
func parseAddress(tok string) (iloc.Operand, iloc.Operand, error) {
	if len(tok) < 2 || tok[0] != '[' || tok[len(tok)-1] != ']' {
		return iloc.Operand{}, iloc.Operand{}, fmt.Errorf("expected address of the form [reg+off], got: %s", tok)
	}
	inner := tok[1 : len(tok)-1]

	// The displacement sign separates base and offset; skip index 0 so a
	// leading sign can never split an empty base.
	split := -1
	for i1 := 1; i1 < len(inner); i1++ {
		if inner[i1] == '+' || inner[i1] == '-' {
			split = i1
			break
		}
	}
	if split < 0 {
		return iloc.Operand{}, iloc.Operand{}, fmt.Errorf("expected displacement in address: %s", tok)
	}

	base, err := parseRegister(inner[:split])
	if err != nil {
		return iloc.Operand{}, iloc.Operand{}, err
	}
	offTok := inner[split:]
	if offTok[0] == '+' {
		offTok = offTok[1:]
	}
	off, err := parseConstant(offTok)
	if err != nil {
		return iloc.Operand{}, iloc.Operand{}, err
	}
	return base, off, nil
}
