package cpu

// Materialize returns the sequence of primitive instructions that applies a
// 16-bit value to reg with the 8-bit immediate operation op.
//
// The sequence is padded with no-op instructions up to minCount entries.
// Operations that can not be split across several instructions return
// ErrUnsupportedEncoding for values that do not fit their 8-bit field.
func Materialize(op Opcode, reg Register, value uint16, minCount int) (codes []Code, err error) {
	lo := value & 0xff
	hi := value >> 8

	switch {
	case op.IsJump():
		// Relative jumps have a sign extended 8-bit offset.
		if value >= 0x80 && value < 0xff80 {
			err = &ErrEncoding{Opcode: op, Value: value}
			return
		}
		codes = append(codes, MakeCodeValue(op, reg, lo))
	case value == lo:
		codes = append(codes, MakeCodeValue(op, reg, value))
	case op == OP_OR_VAL || op == OP_AND_VAL || op == OP_XOR_VAL:
		codes = append(codes,
			MakeCodeReg3Imm(OP_LROT_REG, reg, reg, 8),
			MakeCodeValue(op, reg, hi),
			MakeCodeReg3Imm(OP_LROT_REG, reg, reg, 8),
		)
		if lo != 0 {
			codes = append(codes, MakeCodeValue(op, reg, lo))
		}
	case op == OP_ADD_VAL:
		if value > 0xff00 {
			codes = append(codes, MakeCodeValue(OP_SUB_VAL, reg, -value))
			break
		}
		for ; value > 0xff; value -= 0xff {
			codes = append(codes, MakeCodeValue(OP_ADD_VAL, reg, 0xff))
		}
		if value > 0 {
			codes = append(codes, MakeCodeValue(OP_ADD_VAL, reg, value))
		}
	case op == OP_SET_VAL:
		switch {
		case lo == 0:
			codes = append(codes,
				MakeCodeValue(OP_SET_VAL, reg, hi),
				MakeCodeReg3Imm(OP_LSH_REG, reg, reg, 8),
			)
		case value > 0xff00:
			codes = append(codes,
				MakeCodeValue(OP_SET_VAL, reg, 0),
				MakeCodeValue(OP_SUB_VAL, reg, -lo),
			)
		default:
			codes = append(codes,
				MakeCodeValue(OP_SET_VAL, reg, hi),
				MakeCodeReg3Imm(OP_LSH_REG, reg, reg, 8),
				MakeCodeValue(OP_ADD_VAL, reg, lo),
			)
		}
	default:
		err = &ErrEncoding{Opcode: op, Value: value}
		return
	}

	for len(codes) < minCount {
		codes = append(codes, MakeCodeValue(OP_OR_VAL, reg, 0))
	}

	return
}
