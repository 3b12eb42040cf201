package cpu

import (
	"slices"
)

// MaxPasses is the default relaxation pass limit.
const MaxPasses = 2000

// Passes between each increase of the minimum chain length.
const relaxFloorPasses = 200

// chainLength returns the number of adjacent slots from n sharing a pending operand.
func (prog *Program) chainLength(n int) (length int) {
	pending := prog.Slots[n].Pending
	for length = 1; n+length < len(prog.Slots) && prog.Slots[n+length].Pending == pending; length++ {
	}
	return
}

// resize changes the chain at slot n from length to size slots, and shifts
// every symbol after the chain start.
func (prog *Program) resize(n, length, size int) {
	delta := size - length
	switch {
	case delta > 0:
		prog.Slots = slices.Insert(prog.Slots, n+length, make([]Slot, delta)...)
	case delta < 0:
		prog.Slots = slices.Delete(prog.Slots, n+size, n+length)
	default:
		return
	}

	start := uint16(n * 2)
	for _, sym := range prog.Symbol {
		if sym.Address > start {
			sym.Address += uint16(delta * 2)
		}
	}
}

// relaxSlot re-encodes the chain at slot n, and returns its new length.
func (prog *Program) relaxSlot(n int, minCount int) (size int, changed bool, err error) {
	slot := prog.Slots[n]
	length := prog.chainLength(n)
	value, _ := slot.Pending.Expr.Evaluate(prog.Lookup)
	reg := slot.Code.Register()

	var codes []Code

	switch slot.Op.Family() {
	case FAMILY_VALUE_OPERAND:
		slot.Pending.MinCount = max(slot.Pending.MinCount, minCount)
		codes, err = Materialize(slot.Op, reg, value, slot.Pending.MinCount)
		if err != nil {
			err = &ErrSyntax{LineNo: slot.LineNo, Token: slot.Pending.Expr.String(), Err: err}
			return
		}
	case FAMILY_REG3:
		lhs, _, _, _ := slot.Code.Reg3Decode()
		codes = []Code{MakeCodeReg3Imm(slot.Op, reg, lhs, value)}
	case FAMILY_REG_VALUE:
		mem, _, _ := slot.Code.RegValueDecode()
		codes = []Code{MakeCodeRegValue(slot.Op, reg, mem, value)}
	default:
		err = &ErrSyntax{LineNo: slot.LineNo, Token: slot.Code.String(), Err: ErrOperandUnexpected}
		return
	}

	size = len(codes)
	if size != length {
		prog.resize(n, length, size)
		changed = true
	}

	for i, code := range codes {
		target := &prog.Slots[n+i]
		if target.Code != code {
			changed = true
		}
		*target = Slot{Op: slot.Op, Code: code, Pending: slot.Pending, LineNo: slot.LineNo}
	}

	return
}

// Relax re-evaluates every pending operand against the symbol table and
// re-encodes its chain, until a pass makes no change.
//
// Every relaxFloorPasses passes, the minimum length of each chain grows by
// one so that chains whose lengths oscillate eventually settle. The floor
// is kept on the chain's Pending, so relaxing a settled program again
// changes nothing. After maxPasses passes ErrRelaxationDiverged is returned.
func (prog *Program) Relax(maxPasses int) (passes int, err error) {
	if maxPasses <= 0 {
		maxPasses = MaxPasses
	}

	for changed := true; changed; passes++ {
		if passes == maxPasses {
			err = ErrRelaxationDiverged
			return
		}

		changed = false
		minCount := passes / relaxFloorPasses

		for n := 0; n < len(prog.Slots); {
			if prog.Slots[n].Pending == nil {
				n++
				continue
			}

			var size int
			var slotChanged bool
			size, slotChanged, err = prog.relaxSlot(n, minCount)
			if err != nil {
				return
			}
			changed = changed || slotChanged
			n += size
		}

		if prog.Size() > 0x10000 {
			err = ErrImageOverflow
			return
		}
	}

	return
}
