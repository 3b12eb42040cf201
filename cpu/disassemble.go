package cpu

import (
	"fmt"
	"io"
	"iter"
	"slices"
)

// Disassemble iterates over the address and instruction of every word in a
// binary image. An odd trailing byte is padded with zero.
func Disassemble(bin []byte) iter.Seq2[uint16, Code] {
	return func(yield func(address uint16, code Code) bool) {
		for n := 0; n < len(bin); n += 2 {
			var code Code
			copy(code[:], bin[n:])
			if !yield(uint16(n), code) {
				return
			}
		}
	}
}

// Listing writes a disassembly of a sequence of instructions, one line per
// word, with the address, the instruction fields and the mnemonic.
//
// Symbols are written as labels before the address they name.
func Listing(w io.Writer, codes iter.Seq2[uint16, Code], symbols []Symbol) (err error) {
	labels := map[uint16][]string{}
	for _, sym := range symbols {
		labels[sym.Address] = append(labels[sym.Address], sym.Name)
	}

	for address, code := range codes {
		names := labels[address]
		slices.Sort(names)
		for _, name := range names {
			_, err = fmt.Fprintf(w, "%v:\n", name)
			if err != nil {
				return
			}
		}
		_, err = fmt.Fprintf(w, "%04x\t%v\t%v\n", address, code.Bits(), code)
		if err != nil {
			return
		}
	}

	return
}
