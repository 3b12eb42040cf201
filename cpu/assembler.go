// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
)

// Assembler is a relaxing assembler for the MC3 CPU.
type Assembler struct {
	Verbose       bool      // If set, verbosely logs the assembler actions.
	Strict        bool      // If set, undefined symbols are errors instead of warnings.
	AllowRedefine bool      // If set, redefining a symbol replaces it instead of failing.
	MaxPasses     int       // Relaxation pass limit. Zero selects MaxPasses.
	Warnings      []Warning // Warnings from the last assembly.
	Passes        int       // Relaxation passes used by the last assembly.

	predefine map[string]string // Predefines

	prog   *Program
	cursor uint16
	tokens []Token
	t      int
	lineno int
}

// Predefine defines a compile-time constant, or redefines an existing one.
//
// Integer predefines are available to $(...) expressions, and replace any
// word with the same name in the assembly text.
func (asm *Assembler) Predefine(name string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// Parse assembles an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	text, err := io.ReadAll(input)
	if err != nil {
		return
	}

	source, err := asm.Preprocess(string(text))
	if err != nil {
		return
	}

	tokens, err := Tokenize(source)
	if err != nil {
		return
	}

	return asm.AssembleTokens(tokens)
}

// AssembleTokens assembles a token stream into a Program.
func (asm *Assembler) AssembleTokens(tokens []Token) (prog *Program, err error) {
	asm.prog = &Program{Symbol: map[string]*Symbol{}}
	asm.cursor = 0
	asm.tokens = asm.substitute(tokens)
	asm.t = 0
	asm.lineno = 0
	asm.Warnings = nil
	asm.Passes = 0

	for asm.t < len(asm.tokens) {
		tok := asm.tokens[asm.t]
		err = asm.statement()
		if err != nil {
			var se *ErrSyntax
			if !errors.As(err, &se) {
				err = &ErrSyntax{LineNo: tok.LineNo, Token: tok.Text, Err: err}
			}
			return
		}
	}

	asm.Passes, err = asm.prog.Relax(asm.MaxPasses)
	if asm.Verbose {
		log.Print(f("relaxed in %d passes", asm.Passes))
	}
	if err != nil {
		return
	}

	err = asm.resolve()
	if err != nil {
		return
	}

	prog = asm.prog

	return
}

// substitute replaces predefined words with their integer values.
func (asm *Assembler) substitute(tokens []Token) (out []Token) {
	out = make([]Token, len(tokens))
	copy(out, tokens)

	for n, tok := range out {
		if tok.Kind != TOKEN_WORD {
			continue
		}
		str, ok := asm.predefine[tok.Text]
		if !ok {
			continue
		}
		value, err := strconv.ParseUint(str, 0, 64)
		if err != nil {
			continue
		}
		out[n] = Token{Kind: TOKEN_NUMBER, Text: str, Value: value, LineNo: tok.LineNo}
	}

	return
}

// resolve checks that every pending operand refers to known symbols, and
// fits the field it was encoded into.
func (asm *Assembler) resolve() (err error) {
	for n := 0; n < len(asm.prog.Slots); n += asm.prog.chainLength(n) {
		slot := &asm.prog.Slots[n]
		if slot.Pending == nil {
			continue
		}
		value, undefined := slot.Pending.Expr.Evaluate(asm.prog.Lookup)
		for _, name := range undefined {
			if asm.Strict {
				err = &ErrSyntax{LineNo: slot.LineNo, Token: name, Err: ErrSymbolUndefined(name)}
				return
			}
			asm.warn(slot.LineNo, ErrSymbolUndefined(name))
		}

		switch slot.Op.Family() {
		case FAMILY_REG3:
			if !fits(value, 4) {
				asm.warn(slot.LineNo, ErrValueTruncated)
			}
		case FAMILY_REG_VALUE:
			if !fitsSigned(value, 6) {
				asm.warn(slot.LineNo, ErrValueTruncated)
			}
		}
	}

	return
}

// warn records a non-fatal diagnostic.
func (asm *Assembler) warn(lineno int, err error) {
	w := Warning{LineNo: lineno, Err: err}
	if asm.Verbose {
		log.Print(w.Error())
	}
	asm.Warnings = append(asm.Warnings, w)
}

// peek returns the current token, if it is on the current line.
func (asm *Assembler) peek() (tok Token, ok bool) {
	if asm.t < len(asm.tokens) && asm.tokens[asm.t].LineNo == asm.lineno {
		tok = asm.tokens[asm.t]
		ok = true
	}
	return
}

// peekIs returns true if the token at offset from the current one is the
// punctuation or word in text, on the current line.
func (asm *Assembler) peekIs(offset int, text string) bool {
	n := asm.t + offset
	return n < len(asm.tokens) && asm.tokens[n].LineNo == asm.lineno && asm.tokens[n].Is(text)
}

// register consumes a register operand.
func (asm *Assembler) register() (reg Register, err error) {
	tok, ok := asm.peek()
	if !ok {
		err = ErrRegisterMissing
		return
	}
	if tok.Kind != TOKEN_REGISTER {
		err = &ErrSyntax{LineNo: tok.LineNo, Token: tok.Text, Err: ErrRegisterInvalid}
		return
	}
	asm.t++
	reg = tok.Register()
	return
}

// isLeaf returns true if the current token can start an expression.
func (asm *Assembler) isLeaf() bool {
	tok, ok := asm.peek()
	if !ok {
		return false
	}
	_, ok = exprLeaf(tok)
	return ok
}

// expression consumes a constant expression operand.
func (asm *Assembler) expression() (expr *Expression, err error) {
	if _, ok := asm.peek(); !ok {
		err = ErrExpressionMissing
		return
	}
	start := asm.tokens[asm.t]
	expr, asm.t, err = ParseExpression(asm.tokens, asm.t)
	if err != nil {
		err = &ErrSyntax{LineNo: start.LineNo, Token: start.Text, Err: err}
	}
	return
}

// signed consumes an optional '+' or '-' followed by an expression.
//
// If there is no operand, a zero constant is returned.
func (asm *Assembler) signed() (expr *Expression, err error) {
	negate := false
	switch {
	case asm.peekIs(0, "+"):
		asm.t++
	case asm.peekIs(0, "-"):
		asm.t++
		negate = true
	case !asm.isLeaf():
		expr = &Expression{Nodes: []ExprNode{{Kind: EXPR_CONSTANT, Left: -1, Right: -1}}}
		return
	}

	expr, err = asm.expression()
	if err != nil {
		return
	}
	if negate {
		expr.Negate()
	}

	return
}

// constant evaluates a directive operand against the current symbol table.
func (asm *Assembler) constant(expr *Expression) (value uint16, err error) {
	value, undefined := expr.Evaluate(asm.prog.Lookup)
	for _, name := range undefined {
		if asm.Strict {
			err = ErrSymbolUndefined(name)
			return
		}
		asm.warn(asm.lineno, fmt.Errorf("%w: %w", ErrForwardDirective, ErrSymbolUndefined(name)))
	}
	return
}

// noOperands fails if the current line has another operand.
func (asm *Assembler) noOperands() (err error) {
	if tok, ok := asm.peek(); ok && !tok.IsLabel() {
		err = &ErrSyntax{LineNo: tok.LineNo, Token: tok.Text, Err: ErrOperandUnexpected}
	}
	return
}

// define adds a symbol to the symbol table.
func (asm *Assembler) define(sym Symbol) (err error) {
	if _, ok := asm.prog.Symbol[sym.Name]; ok {
		if !asm.AllowRedefine {
			err = ErrSymbolDuplicate
			return
		}
		asm.warn(asm.lineno, ErrSymbolRedefined(sym.Name))
	}

	if asm.Verbose {
		log.Printf("%v: %v %v = 0x%04x", asm.lineno, sym.Kind, sym.Name, sym.Address)
	}

	asm.prog.Symbol[sym.Name] = &sym

	return
}

// setCursor moves the cursor, keeping it word aligned.
func (asm *Assembler) setCursor(address uint16) {
	if address&1 != 0 {
		asm.warn(asm.lineno, ErrCursorAligned)
		address++
	}
	asm.cursor = address
	asm.prog.grow(int(address))
}

// emit places codes at the cursor and advances it.
func (asm *Assembler) emit(op Opcode, pending *Pending, codes ...Code) {
	for n, code := range codes {
		if asm.Verbose {
			log.Printf("%v: %04x %v", asm.lineno, int(asm.cursor)+n*2, code)
		}
	}
	asm.prog.place(asm.cursor, op, pending, asm.lineno, codes...)
	asm.cursor += uint16(len(codes) * 2)
}

// pendingOf returns the slot operand for a non-trivial expression.
func pendingOf(expr *Expression) *Pending {
	if expr.IsTrivial() {
		return nil
	}
	return &Pending{Expr: expr}
}

// fits returns true if a value is representable by a field of width
// bits, either unsigned or sign extended.
func fits(value uint16, bits int) bool {
	return value < uint16(1)<<bits || fitsSigned(value, bits)
}

// fitsSigned returns true if a value is representable by a sign extended
// field of width bits.
func fitsSigned(value uint16, bits int) bool {
	half := uint16(1) << (bits - 1)
	return value < half || value >= -half
}

// emitValue emits an 8-bit immediate operation, expanding it into a chain
// if the value requires it.
func (asm *Assembler) emitValue(op Opcode, reg Register, expr *Expression) (err error) {
	value, _ := expr.Evaluate(asm.prog.Lookup)
	p := pendingOf(expr)

	var codes []Code
	switch {
	case p != nil:
		// Initial encoding, corrected by relaxation.
		codes, err = Materialize(op, reg, value, 0)
		if err != nil {
			codes = []Code{MakeCodeValue(op, reg, value)}
			err = nil
		}
	case op == OP_SET_VAL || op.IsJump():
		codes, err = Materialize(op, reg, value, 0)
		if err != nil {
			return
		}
	default:
		if !fits(value, 8) {
			asm.warn(asm.lineno, ErrValueTruncated)
		}
		codes = []Code{MakeCodeValue(op, reg, value)}
	}

	asm.emit(op, p, codes...)

	return
}

// emitReg3Imm emits a register operation with a 4-bit immediate.
func (asm *Assembler) emitReg3Imm(op Opcode, dst, lhs Register, expr *Expression) {
	value, _ := expr.Evaluate(asm.prog.Lookup)
	p := pendingOf(expr)
	if p == nil && !fits(value, 4) {
		asm.warn(asm.lineno, ErrValueTruncated)
	}
	asm.emit(op, p, MakeCodeReg3Imm(op, dst, lhs, value))
}

// emitRegValue emits a memory access with a 6-bit offset.
func (asm *Assembler) emitRegValue(op Opcode, reg, mem Register, expr *Expression) {
	value, _ := expr.Evaluate(asm.prog.Lookup)
	p := pendingOf(expr)
	if p == nil && !fitsSigned(value, 6) {
		asm.warn(asm.lineno, ErrValueTruncated)
	}
	asm.emit(op, p, MakeCodeRegValue(op, reg, mem, value))
}

var aluMap = map[string]struct {
	reg Opcode
	val Opcode
}{
	"or":   {OP_OR_REG, OP_OR_VAL},
	"and":  {OP_AND_REG, OP_AND_VAL},
	"xor":  {OP_XOR_REG, OP_XOR_VAL},
	"add":  {OP_ADD_REG, OP_ADD_VAL},
	"sub":  {OP_SUB_REG, OP_SUB_VAL},
	"lsh":  {OP_LSH_REG, OP_DATA},
	"rsh":  {OP_RSH_REG, OP_DATA},
	"lrot": {OP_LROT_REG, OP_DATA},
	"rrot": {OP_RROT_REG, OP_DATA},
}

var jumpMap = map[string]Opcode{
	"jz":  OP_JMP_Z,
	"jnz": OP_JMP_NZ,
	"jc":  OP_JMP_C,
	"jnc": OP_JMP_NC,
	"js":  OP_JMP_S,
	"jns": OP_JMP_NS,
	"jo":  OP_JMP_O,
	"jno": OP_JMP_NO,
}

// statement assembles the statement at the current token.
func (asm *Assembler) statement() (err error) {
	tok := asm.tokens[asm.t]
	asm.lineno = tok.LineNo
	asm.t++

	if tok.IsLabel() {
		name := tok.Text[:len(tok.Text)-1]
		return asm.define(Symbol{Name: name, Address: asm.cursor, Kind: SYMBOL_LABEL})
	}

	if tok.Kind != TOKEN_WORD {
		asm.warn(tok.LineNo, ErrTokenUnrecognized(tok.Text))
		return
	}

	if alu, ok := aluMap[tok.Text]; ok {
		return asm.aluBinary(alu.reg, alu.val)
	}

	if op, ok := jumpMap[tok.Text]; ok {
		var reg Register
		reg, err = asm.register()
		if err != nil {
			return
		}
		var expr *Expression
		expr, err = asm.signed()
		if err != nil {
			return
		}
		return asm.emitValue(op, reg, expr)
	}

	switch tok.Text {
	case "not":
		var reg Register
		reg, err = asm.register()
		if err != nil {
			return
		}
		err = asm.noOperands()
		if err != nil {
			return
		}
		asm.emit(OP_SINGLE, nil, MakeCodeSingle(reg, SINGLE_NOT))
	case "iret":
		err = asm.noOperands()
		if err != nil {
			return
		}
		asm.emit(OP_ONLY, nil, MakeCodeOnly(ONLY_IRET))
	case "inc", "dec":
		var reg Register
		reg, err = asm.register()
		if err != nil {
			return
		}
		op := OP_ADD_VAL
		if tok.Text == "dec" {
			op = OP_SUB_VAL
		}
		asm.emit(op, nil, MakeCodeValue(op, reg, 1))
	case "exit":
		asm.emit(OP_SET_VAL, nil, MakeCodeValue(OP_SET_VAL, REG_R0, 0))
		asm.emit(OP_JMP_Z, nil, MakeCodeValue(OP_JMP_Z, REG_R0, 0xfffe))
	case "set":
		err = asm.set()
	case "put":
		err = asm.put()
	case "pos":
		err = asm.pos()
	case "var":
		err = asm.variable()
	default:
		asm.warn(tok.LineNo, ErrTokenUnrecognized(tok.Text))
	}

	return
}

// aluBinary assembles a register operation, or its immediate form.
//
//	op dst src rhs   ; dst = src op rhs
//	op dst src imm   ; dst = src op imm, 4-bit immediate
//	op dst src       ; dst = dst op src
//	op dst imm       ; dst = dst op imm, 8-bit immediate if val is valid
func (asm *Assembler) aluBinary(reg, val Opcode) (err error) {
	dst, err := asm.register()
	if err != nil {
		return
	}

	tok, ok := asm.peek()
	if !ok {
		err = ErrOperandMissing
		return
	}

	if tok.Kind == TOKEN_REGISTER {
		asm.t++
		lhs := tok.Register()
		next, ok := asm.peek()
		switch {
		case ok && next.Kind == TOKEN_REGISTER:
			asm.t++
			asm.emit(reg, nil, MakeCodeReg3(reg, dst, lhs, next.Register()))
		case asm.isLeaf():
			var expr *Expression
			expr, err = asm.expression()
			if err != nil {
				return
			}
			asm.emitReg3Imm(reg, dst, lhs, expr)
		default:
			asm.emit(reg, nil, MakeCodeReg3(reg, dst, dst, lhs))
		}
		return
	}

	expr, err := asm.expression()
	if err != nil {
		return
	}

	if val == OP_DATA {
		asm.emitReg3Imm(reg, dst, dst, expr)
		return
	}

	return asm.emitValue(val, dst, expr)
}

// isMemory returns true if the current operand is a memory reference.
func (asm *Assembler) isMemory() bool {
	return asm.peekIs(0, "@") || asm.peekIs(1, "@")
}

// memory parses '[size]@mem[+-offset]' and emits the access.
func (asm *Assembler) memory(reg Register, byteOp, wordOp Opcode) (err error) {
	op := wordOp
	if !asm.peekIs(0, "@") {
		var expr *Expression
		expr, err = asm.expression()
		if err != nil {
			return
		}
		var size uint16
		size, err = asm.constant(expr)
		if err != nil {
			return
		}
		if size == 1 {
			op = byteOp
		}
	}

	if !asm.peekIs(0, "@") {
		err = ErrMemoryOperand
		return
	}
	asm.t++

	mem, err := asm.register()
	if err != nil {
		return
	}
	if mem > REG_M3 {
		err = ErrRegisterInvalid
		return
	}

	offset, err := asm.signed()
	if err != nil {
		return
	}

	asm.emitRegValue(op, reg, mem, offset)

	return
}

// set assembles the register load forms.
func (asm *Assembler) set() (err error) {
	dst, err := asm.register()
	if err != nil {
		return
	}

	tok, ok := asm.peek()
	switch {
	case !ok:
		err = ErrOperandMissing
	case tok.Kind == TOKEN_REGISTER:
		asm.t++
		asm.emit(OP_ADD_REG, nil, MakeCodeReg3Imm(OP_ADD_REG, dst, tok.Register(), 0))
	case tok.Is("FLAGS"):
		asm.t++
		asm.emit(OP_SINGLE, nil, MakeCodeSingle(dst, SINGLE_GET_F))
		err = asm.noOperands()
	case asm.isMemory():
		err = asm.memory(dst, OP_LOD_B, OP_LOD_W)
	default:
		var expr *Expression
		expr, err = asm.expression()
		if err != nil {
			return
		}
		err = asm.emitValue(OP_SET_VAL, dst, expr)
	}

	return
}

// put assembles the register store forms.
func (asm *Assembler) put() (err error) {
	src, err := asm.register()
	if err != nil {
		return
	}

	tok, ok := asm.peek()
	switch {
	case !ok:
		err = ErrOperandMissing
	case tok.Is("IVEC"):
		asm.t++
		asm.emit(OP_SINGLE, nil, MakeCodeSingle(src, SINGLE_PUT_I))
		err = asm.noOperands()
	case asm.isMemory():
		err = asm.memory(src, OP_STR_B, OP_STR_W)
	default:
		err = ErrMemoryOperand
	}

	return
}

// pos assembles 'pos <expr>'.
func (asm *Assembler) pos() (err error) {
	expr, err := asm.expression()
	if err != nil {
		return
	}

	address, err := asm.constant(expr)
	if err != nil {
		return
	}

	asm.setCursor(address)

	return
}

// initializer consumes the byte list of a var declaration.
//
// Each number contributes its bytes, least significant first.
func (asm *Assembler) initializer() (data []byte) {
	for tok, ok := asm.peek(); ok && tok.Kind == TOKEN_NUMBER; tok, ok = asm.peek() {
		value := tok.Value
		data = append(data, byte(value))
		for value >>= 8; value != 0; value >>= 8 {
			data = append(data, byte(value))
		}
		asm.t++
	}
	return
}

// variable assembles 'var <name> [ <size> ] @ <addr> = <bytes>...'.
func (asm *Assembler) variable() (err error) {
	tok, ok := asm.peek()
	if !ok || tok.Kind != TOKEN_WORD || !reIdentifier.MatchString(tok.Text) {
		err = ErrVarName
		return
	}
	asm.t++

	sym := Symbol{Name: tok.Text, Address: asm.cursor, Kind: SYMBOL_VARIABLE}
	sized := false

	if asm.peekIs(0, "[") {
		asm.t++
		var expr *Expression
		expr, err = asm.expression()
		if err != nil {
			return
		}
		sym.Size, err = asm.constant(expr)
		if err != nil {
			return
		}
		if !asm.peekIs(0, "]") {
			err = ErrVarSize
			return
		}
		asm.t++
		sized = true
	}

	if asm.peekIs(0, "@") {
		asm.t++
		var expr *Expression
		expr, err = asm.expression()
		if err != nil {
			return
		}
		sym.Address, err = asm.constant(expr)
		if err != nil {
			return
		}
	}

	var data []byte
	if asm.peekIs(0, "=") {
		asm.t++
		data = asm.initializer()
		if !sized {
			sym.Size = uint16(len(data))
		}
	}

	if len(data) > int(sym.Size) {
		asm.warn(asm.lineno, ErrValueTruncated)
		data = data[:sym.Size]
	}

	asm.prog.grow(int(sym.Address) + int(sym.Size))
	for n := range int(sym.Size) {
		var value byte
		if n < len(data) {
			value = data[n]
		}
		asm.prog.poke(sym.Address+uint16(n), value)
	}

	err = asm.define(sym)
	if err != nil {
		return
	}

	if sym.Address == asm.cursor {
		asm.setCursor(asm.cursor + sym.Size)
	}

	return
}
