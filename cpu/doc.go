// Package cpu implements the assembler and disassembler for the MC3 16-bit CPU.
//
// Every MC3 instruction is a single two byte word. Immediates are at most
// 8 bits wide, so an operation against a 16-bit constant may expand into a
// chain of up to four primitive instructions. When that constant depends on
// a label, the length of the chain depends on the label's address and the
// label's address depends on the length of every chain before it.
//
// The assembler emits an optimistic encoding in a single pass, and then
// relaxes the program image: pending chains are re-evaluated, re-sized and
// re-encoded, and symbols after a resized chain are shifted, until a pass
// makes no change.
//
// The assembly language supports labels, data declarations with the var
// directive, cursor placement with the pos directive, block and line
// comments, and compile-time $(...) evaluations.
package cpu
