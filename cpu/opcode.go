package cpu

import (
	"fmt"
	"strings"
)

// Opcode is the 5-bit primary opcode of an instruction.
type Opcode int

const (
	OP_OR_VAL   = Opcode(0)  // or
	OP_AND_VAL  = Opcode(1)  // and
	OP_XOR_VAL  = Opcode(2)  // xor
	OP_ADD_VAL  = Opcode(3)  // add
	OP_SUB_VAL  = Opcode(4)  // sub
	OP_SINGLE   = Opcode(5)  // single
	OP_OR_REG   = Opcode(6)  // or
	OP_AND_REG  = Opcode(7)  // and
	OP_XOR_REG  = Opcode(8)  // xor
	OP_LSH_REG  = Opcode(9)  // lsh
	OP_RSH_REG  = Opcode(10) // rsh
	OP_LROT_REG = Opcode(11) // lrot
	OP_RROT_REG = Opcode(12) // rrot
	OP_ADD_REG  = Opcode(13) // add
	OP_SUB_REG  = Opcode(14) // sub
	OP_SET_VAL  = Opcode(15) // set
	OP_LOD_B    = Opcode(16) // set
	OP_LOD_W    = Opcode(17) // set
	OP_STR_B    = Opcode(18) // put
	OP_STR_W    = Opcode(19) // put
	OP_JMP_Z    = Opcode(20) // jz
	OP_JMP_NZ   = Opcode(21) // jnz
	OP_JMP_C    = Opcode(22) // jc
	OP_JMP_NC   = Opcode(23) // jnc
	OP_JMP_S    = Opcode(24) // js
	OP_JMP_NS   = Opcode(25) // jns
	OP_JMP_O    = Opcode(26) // jo
	OP_JMP_NO   = Opcode(27) // jno
	OP_ONLY     = Opcode(28) // only
	OP_DATA     = Opcode(-1) // data
)

var opcodeNames = [...]string{
	"or", "and", "xor", "add", "sub", "single",
	"or", "and", "xor", "lsh", "rsh", "lrot", "rrot", "add", "sub",
	"set", "set", "set", "put", "put",
	"jz", "jnz", "jc", "jnc", "js", "jns", "jo", "jno",
	"only",
}

// String returns the assembler mnemonic of the opcode.
func (op Opcode) String() string {
	if op == OP_DATA {
		return "data"
	}
	if op < 0 || int(op) >= len(opcodeNames) {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return opcodeNames[op]
}

// IsJump returns true for the conditional relative jumps.
func (op Opcode) IsJump() bool {
	return op >= OP_JMP_Z && op <= OP_JMP_NO
}

// Family is the layout of an instruction's second byte.
//
//go:generate go tool stringer -linecomment -type=Family
type Family int

const (
	FAMILY_NO_OPERANDS   = Family(0) // none
	FAMILY_ONE_OPERAND   = Family(1) // one
	FAMILY_VALUE_OPERAND = Family(2) // value
	FAMILY_REG3          = Family(3) // reg3
	FAMILY_REG_VALUE     = Family(4) // regvalue
	FAMILY_INVALID       = Family(5) // invalid
)

// Family returns the second byte layout used by the opcode.
func (op Opcode) Family() Family {
	switch {
	case op == OP_ONLY:
		return FAMILY_NO_OPERANDS
	case op == OP_SINGLE:
		return FAMILY_ONE_OPERAND
	case op >= OP_OR_VAL && op <= OP_SUB_VAL:
		return FAMILY_VALUE_OPERAND
	case op >= OP_OR_REG && op <= OP_SUB_REG:
		return FAMILY_REG3
	case op == OP_SET_VAL:
		return FAMILY_VALUE_OPERAND
	case op >= OP_LOD_B && op <= OP_STR_W:
		return FAMILY_REG_VALUE
	case op.IsJump():
		return FAMILY_VALUE_OPERAND
	}
	return FAMILY_INVALID
}

// SingleOp is the sub-opcode of an OP_SINGLE instruction.
//
//go:generate go tool stringer -linecomment -type=SingleOp
type SingleOp int

const (
	SINGLE_NOT   = SingleOp(0) // not
	SINGLE_GET_F = SingleOp(1) // getf
	SINGLE_PUT_I = SingleOp(2) // puti
)

// OnlyOp is the 11-bit extended opcode of an OP_ONLY instruction.
//
//go:generate go tool stringer -linecomment -type=OnlyOp
type OnlyOp int

const (
	ONLY_IRET = OnlyOp(0) // iret
)

// Register is a CPU register index.
//
// The memory registers m0-m3 and the data registers d0-d3 alias
// the general registers r0-r3 and r4-r7.
type Register int

const (
	REG_R0 = Register(0)
	REG_R1 = Register(1)
	REG_R2 = Register(2)
	REG_R3 = Register(3)
	REG_R4 = Register(4)
	REG_R5 = Register(5)
	REG_R6 = Register(6)
	REG_R7 = Register(7)

	REG_M0 = REG_R0
	REG_M1 = REG_R1
	REG_M2 = REG_R2
	REG_M3 = REG_R3
	REG_D0 = REG_R4
	REG_D1 = REG_R5
	REG_D2 = REG_R6
	REG_D3 = REG_R7
)

func (reg Register) String() string {
	return fmt.Sprintf("r%d", int(reg))
}

// ParseRegister converts a register name into its index.
func ParseRegister(name string) (reg Register, ok bool) {
	if len(name) != 2 {
		return
	}
	n := Register(name[1] - '0')
	switch name[0] {
	case 'm':
		ok = n >= 0 && n <= 3
	case 'd':
		ok = n >= 0 && n <= 3
		n += 4
	case 'r':
		ok = n >= 0 && n <= 7
	}
	if ok {
		reg = n
	}
	return
}

// Code is a single two byte instruction word, in memory order.
type Code [2]byte

// MakeCodeOnly creates a no-operand instruction.
func MakeCodeOnly(only OnlyOp) Code {
	return Code{byte(OP_ONLY)<<3 | byte(only>>8)&0x7, byte(only)}
}

// MakeCodeSingle creates a one-operand instruction.
func MakeCodeSingle(reg Register, single SingleOp) Code {
	return Code{byte(OP_SINGLE)<<3 | byte(reg)&0x7, byte(single)}
}

// MakeCodeValue creates an instruction with an 8-bit immediate.
func MakeCodeValue(op Opcode, reg Register, value uint16) Code {
	return Code{byte(op)<<3 | byte(reg)&0x7, byte(value)}
}

// MakeCodeReg3 creates a three register instruction.
func MakeCodeReg3(op Opcode, dst, lhs, rhs Register) Code {
	return Code{byte(op)<<3 | byte(dst)&0x7, (byte(lhs)&0x7)<<5 | (byte(rhs)&0x7)<<2}
}

// MakeCodeReg3Imm creates a two register instruction with a 4-bit immediate.
func MakeCodeReg3Imm(op Opcode, dst, lhs Register, imm uint16) Code {
	return Code{byte(op)<<3 | byte(dst)&0x7, (byte(lhs)&0x7)<<5 | (byte(imm)&0xf)<<1 | 1}
}

// MakeCodeRegValue creates a memory access instruction.
func MakeCodeRegValue(op Opcode, reg, mem Register, offset uint16) Code {
	return Code{byte(op)<<3 | byte(reg)&0x7, (byte(mem)&0x3)<<6 | byte(offset)&0x3f}
}

// Opcode returns the primary opcode.
func (code Code) Opcode() Opcode {
	return Opcode(code[0] >> 3)
}

// Register returns the destination register.
func (code Code) Register() Register {
	return Register(code[0] & 0x7)
}

// Value returns the 8-bit immediate of a value operand instruction.
func (code Code) Value() uint8 {
	return code[1]
}

// Reg3Decode decodes the second byte of a Reg3 instruction.
func (code Code) Reg3Decode() (lhs, rhs Register, imm uint8, useImm bool) {
	lhs = Register(code[1] >> 5)
	useImm = code[1]&1 != 0
	if useImm {
		imm = (code[1] >> 1) & 0xf
	} else {
		rhs = Register((code[1] >> 2) & 0x7)
	}
	return
}

// RegValueDecode decodes the second byte of a memory access instruction.
func (code Code) RegValueDecode() (mem Register, offset int8, size int) {
	mem = Register(code[1] >> 6)
	offset = int8(code[1]<<2) >> 2
	size = 1 + int(code[0]>>3)&1
	return
}

// Only returns the extended opcode of a no-operand instruction.
func (code Code) Only() OnlyOp {
	return OnlyOp(uint16(code[0]&0x7)<<8 | uint16(code[1]))
}

// Word returns the little-endian instruction word.
func (code Code) Word() uint16 {
	return uint16(code[0]) | uint16(code[1])<<8
}

// Bits returns the field breakdown of the instruction, in binary.
func (code Code) Bits() (out string) {
	op := code.Opcode()
	first := fmt.Sprintf("%05b %03b", code[0]>>3, code[0]&0x7)

	switch op.Family() {
	case FAMILY_REG3:
		if code[1]&1 != 0 {
			out = fmt.Sprintf("%v %03b %04b %b", first, code[1]>>5, (code[1]>>1)&0xf, code[1]&1)
		} else {
			out = fmt.Sprintf("%v %03b %03b %02b", first, code[1]>>5, (code[1]>>2)&0x7, code[1]&0x3)
		}
	case FAMILY_REG_VALUE:
		out = fmt.Sprintf("%v %02b %06b", first, code[1]>>6, code[1]&0x3f)
	default:
		out = fmt.Sprintf("%v %08b", first, code[1])
	}

	return
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	op := code.Opcode()
	reg := code.Register()

	var words []string

	switch op.Family() {
	case FAMILY_NO_OPERANDS:
		switch code.Only() {
		case ONLY_IRET:
			words = []string{"iret"}
		default:
			words = []string{".word", fmt.Sprintf("%#04x", code.Word())}
		}
	case FAMILY_ONE_OPERAND:
		switch SingleOp(code[1]) {
		case SINGLE_NOT:
			words = []string{"not", reg.String()}
		case SINGLE_GET_F:
			words = []string{"set", reg.String(), "FLAGS"}
		case SINGLE_PUT_I:
			words = []string{"put", reg.String(), "IVEC"}
		default:
			words = []string{".word", fmt.Sprintf("%#04x", code.Word())}
		}
	case FAMILY_VALUE_OPERAND:
		words = []string{op.String(), reg.String()}
		if op.IsJump() {
			if code[1] != 0 {
				words = append(words, fmt.Sprintf("%+d", int8(code[1])))
			}
		} else {
			words = append(words, fmt.Sprintf("%d", code[1]))
		}
	case FAMILY_REG3:
		lhs, rhs, imm, useImm := code.Reg3Decode()
		switch {
		case op == OP_ADD_REG && useImm && imm == 0:
			words = []string{"set", reg.String(), lhs.String()}
		case useImm:
			words = []string{op.String(), reg.String(), lhs.String(), fmt.Sprintf("%d", imm)}
		default:
			words = []string{op.String(), reg.String(), lhs.String(), rhs.String()}
		}
	case FAMILY_REG_VALUE:
		mem, offset, size := code.RegValueDecode()
		operand := fmt.Sprintf("%d@m%d", size, int(mem))
		if offset != 0 {
			operand += fmt.Sprintf("%+d", offset)
		}
		words = []string{op.String(), reg.String(), operand}
	default:
		words = []string{".word", fmt.Sprintf("%#04x", code.Word())}
	}

	out = strings.Join(words, " ")

	return
}
