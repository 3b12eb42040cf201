package cpu

import (
	"iter"

	"github.com/ezrec/mc3/internal"
)

// SymbolKind is the type of a symbol.
//
//go:generate go tool stringer -linecomment -type=SymbolKind
type SymbolKind int

const (
	SYMBOL_LABEL    = SymbolKind(0) // label
	SYMBOL_VARIABLE = SymbolKind(1) // variable
)

// Symbol is a named address in the program image.
type Symbol struct {
	Name    string
	Address uint16
	Size    uint16 // Size in bytes of a variable.
	Kind    SymbolKind
}

// Pending is an operand expression that is re-evaluated during relaxation.
type Pending struct {
	Expr     *Expression
	MinCount int // Chain length floor reached by relaxation.
}

// Slot is a single instruction word in the program image.
//
// Adjacent slots with the same Pending form a chain, which together apply
// the pending value to a register.
type Slot struct {
	Op      Opcode   // Operation the slot's chain implements, or OP_DATA.
	Code    Code     // Current encoding.
	Pending *Pending // Unresolved operand, if any.
	LineNo  int      // Source line.
}

// Program is an assembled program image and its symbol table.
type Program struct {
	Slots  []Slot
	Symbol map[string]*Symbol
}

// Debug locates a slot and its position within its chain.
type Debug struct {
	*Slot
	Address uint16
	Index   int
}

// Debug returns the slot at a byte address.
func (prog *Program) Debug(address uint16) (dbg Debug) {
	n := int(address >> 1)
	if n >= len(prog.Slots) {
		return
	}

	dbg = Debug{
		Slot:    &prog.Slots[n],
		Address: address &^ 1,
	}

	pending := dbg.Slot.Pending
	for o := n - 1; pending != nil && o >= 0 && prog.Slots[o].Pending == pending; o-- {
		dbg.Index++
	}

	return
}

// Lookup returns the address of a symbol.
func (prog *Program) Lookup(name string) (address uint16, ok bool) {
	sym, ok := prog.Symbol[name]
	if ok {
		address = sym.Address
	}
	return
}

// Symbols returns the symbol table, sorted by name.
func (prog *Program) Symbols() (symbols []Symbol) {
	for _, sym := range internal.SortedMap(prog.Symbol) {
		symbols = append(symbols, *sym)
	}
	return
}

// Size returns the size of the program image in bytes.
func (prog *Program) Size() int {
	return len(prog.Slots) * 2
}

// Binary returns the program image, in address order.
func (prog *Program) Binary() (bin []byte) {
	bin = make([]byte, 0, prog.Size())
	for _, code := range prog.Codes() {
		bin = append(bin, code[0], code[1])
	}

	return
}

// Codes iterates over the address and encoding of every slot.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(address uint16, code Code) bool) {
		for n, slot := range prog.Slots {
			if !yield(uint16(n*2), slot.Code) {
				return
			}
		}
	}
}

// grow extends the image to hold size bytes.
func (prog *Program) grow(size int) {
	words := (size + 1) / 2
	for len(prog.Slots) < words {
		prog.Slots = append(prog.Slots, Slot{Op: OP_DATA})
	}
}

// place stores codes in consecutive slots from a byte address.
func (prog *Program) place(address uint16, op Opcode, pending *Pending, lineno int, codes ...Code) {
	n := int(address >> 1)
	prog.grow((n + len(codes)) * 2)
	for i, code := range codes {
		prog.Slots[n+i] = Slot{Op: op, Code: code, Pending: pending, LineNo: lineno}
	}
}

// poke stores a data byte.
func (prog *Program) poke(address uint16, value byte) {
	prog.grow(int(address) + 1)
	slot := &prog.Slots[address>>1]
	slot.Op = OP_DATA
	slot.Pending = nil
	slot.Code[address&1] = value
}
