package iloc

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// List is an ILOC program: instructions chained through their Next links in
// program order. The zero value is an empty list.
type List struct {
	head *Instruction // First instruction of the program.
	tail *Instruction // Last instruction of the program.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Append adds the instruction to the end of the list. <nil> instructions are ignored.
func (l *List) Append(in *Instruction) {
	if in == nil {
		return
	}
	if l.head == nil {
		l.head = in
		l.tail = in
		return
	}
	l.tail.Next = in
	l.tail = in
}

// First returns the first instruction of the list, or <nil> for an empty list.
func (l *List) First() *Instruction {
	if l == nil {
		return nil
	}
	return l.head
}

// Len returns the number of instructions in the list, following splices made
// after construction.
func (l *List) Len() int {
	n := 0
	for in := l.First(); in != nil; in = in.Next {
		n++
	}
	return n
}
