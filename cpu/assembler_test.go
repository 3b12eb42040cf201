package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, asm *Assembler, program ...string) (prog *Program) {
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, prog.Size())
	assert.Empty(prog.Symbols())
	assert.Empty(asm.Warnings)
	assert.Equal(1, asm.Passes)
}

func TestAssemblerOperations(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		line     string
		expected []byte
	}{
		{"or r0 5", []byte{0x00, 0x05}},
		{"and r1 0x0f", []byte{0x09, 0x0f}},
		{"xor r2 r3", []byte{0x42, 0x4c}},
		{"add r0 r1 r2", []byte{0x68, 0x28}},
		{"sub r4 r5 3", []byte{0x74, 0xa7}},
		{"lsh r2 4", []byte{0x4a, 0x49}},
		{"rsh r2 r3 1", []byte{0x52, 0x63}},
		{"lrot r0 8", []byte{0x58, 0x11}},
		{"rrot r0 r1", []byte{0x60, 0x04}},
		{"not r3", []byte{0x2b, 0x00}},
		{"set r1 FLAGS", []byte{0x29, 0x01}},
		{"put r1 IVEC", []byte{0x29, 0x02}},
		{"iret", []byte{0xe0, 0x00}},
		{"inc r2", []byte{0x1a, 0x01}},
		{"dec r2", []byte{0x22, 0x01}},
		{"exit", []byte{0x78, 0x00, 0xa0, 0xfe}},
		{"set r0 r1", []byte{0x68, 0x21}},
		{"set r0 5", []byte{0x78, 0x05}},
		{"set r0 300", []byte{0x78, 0x01, 0x48, 0x11, 0x18, 0x2c}},
		{"set r0 0xff00", []byte{0x78, 0xff, 0x48, 0x11}},
		{"set d0 1@m1", []byte{0x84, 0x40}},
		{"set r0 2@m1+4", []byte{0x88, 0x44}},
		{"set r0 @m2-1", []byte{0x88, 0xbf}},
		{"put r3 1@m0+31", []byte{0x93, 0x1f}},
		{"put r3 2@m3-32", []byte{0x9b, 0xe0}},
		{"jz r1 +8", []byte{0xa1, 0x08}},
		{"jnz r1 -2", []byte{0xa9, 0xfe}},
		{"jc r0", []byte{0xb0, 0x00}},
		{"jno r7 4 * 2", []byte{0xdf, 0x08}},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog, err := asm.Parse(strings.NewReader(entry.line))
		if !assert.NoError(err, entry.line) {
			continue
		}
		assert.Equal(entry.expected, prog.Binary(), entry.line)
		assert.Empty(asm.Warnings, entry.line)
	}
}

func TestAssemblerTruncation(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		line     string
		expected []byte
	}{
		{"add r0 300", []byte{0x18, 0x2c}},
		{"set r0 2@m1-40", []byte{0x88, 0x58}},
		{"or r0 r1 17", []byte{0x30, 0x23}},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog := assemble(t, asm, entry.line)
		assert.Equal(entry.expected, prog.Binary(), entry.line)
		if assert.Len(asm.Warnings, 1, entry.line) {
			assert.ErrorIs(asm.Warnings[0], ErrValueTruncated, entry.line)
			assert.Equal(1, asm.Warnings[0].LineNo)
		}
	}
}

func TestAssemblerVariables(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"var x [2] = 1 2 3",
		"var y = 0x1234 0 0",
		"var z [3] @ 0x20",
		"var w = 0x10000 0",
		"set r0 x",
	)

	if assert.Len(asm.Warnings, 1) {
		assert.ErrorIs(asm.Warnings[0], ErrValueTruncated)
		assert.Equal(1, asm.Warnings[0].LineNo)
	}

	assert.Equal([]Symbol{
		{Name: "w", Address: 0x06, Size: 4, Kind: SYMBOL_VARIABLE},
		{Name: "x", Address: 0x00, Size: 2, Kind: SYMBOL_VARIABLE},
		{Name: "y", Address: 0x02, Size: 4, Kind: SYMBOL_VARIABLE},
		{Name: "z", Address: 0x20, Size: 3, Kind: SYMBOL_VARIABLE},
	}, prog.Symbols())

	bin := prog.Binary()
	assert.Equal(0x24, len(bin))
	assert.Equal([]byte{1, 2, 0x34, 0x12, 0, 0, 0, 0, 1, 0}, bin[:10])
	assert.Equal([]byte{0x78, 0x00}, bin[10:12])
	assert.Equal([]byte{0, 0, 0, 0}, bin[0x20:])
}

func TestAssemblerCursor(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"var b = 7",
		"after:",
		"pos 0x11",
		"here:",
	)

	assert.Len(asm.Warnings, 2)
	for _, w := range asm.Warnings {
		assert.ErrorIs(w, ErrCursorAligned)
	}

	assert.Equal([]byte{7, 0}, prog.Binary()[:2])
	addr, _ := prog.Lookup("after")
	assert.Equal(uint16(2), addr)
	addr, _ = prog.Lookup("here")
	assert.Equal(uint16(0x12), addr)
	assert.Equal(0x12, prog.Size())
}

func TestAssemblerRelaxation(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"set r0 data",
		"jz r1 +end",
		"end:",
		"pos 0x300",
		"data:",
	)

	assert.Empty(asm.Warnings)
	// The set chain grows twice, and its second growth moves 'data' after
	// the chain was encoded, so its low byte settles one pass later.
	assert.Equal(4, asm.Passes)

	addr, _ := prog.Lookup("end")
	assert.Equal(uint16(8), addr)
	addr, _ = prog.Lookup("data")
	assert.Equal(uint16(0x304), addr)
	assert.Equal(0x304, prog.Size())

	bin := prog.Binary()
	assert.Equal([]byte{0x78, 0x03, 0x48, 0x11, 0x18, 0x04, 0xa1, 0x08}, bin[:8])

	// Relaxing a converged program changes nothing.
	passes, err := prog.Relax(0)
	assert.NoError(err)
	assert.Equal(1, passes)
	assert.Equal(bin, prog.Binary())
}

func TestAssemblerForwardReference(t *testing.T) {
	assert := assert.New(t)

	forward := assemble(t, &Assembler{},
		"jz r0 +skip",
		"set r1 0x1234",
		"skip:",
		"or r2 skip",
	)

	direct := assemble(t, &Assembler{},
		"jz r0 +8",
		"set r1 0x1234",
		"or r2 8",
	)

	assert.Equal(direct.Binary(), forward.Binary())

	backward := assemble(t, &Assembler{},
		"top:",
		"set r1 0x1234",
		"jnz r1 top - 6",
	)

	assert.Equal([]byte{0x79, 0x12, 0x49, 0x31, 0x19, 0x34, 0xa9, 0xfa}, backward.Binary())
}

func TestAssemblerShrink(t *testing.T) {
	assert := assert.New(t)

	// The chain shrinks once its label resolves, and the label moves down
	// with the rest of the image.
	asm := &Assembler{}
	prog := assemble(t, asm,
		"set r1 end - 0xfa",
		"pos 0xfc",
		"end:",
	)

	assert.Equal(3, asm.Passes)
	addr, _ := prog.Lookup("end")
	assert.Equal(uint16(0xfa), addr)
	assert.Equal(0xfa, prog.Size())
	assert.Equal([]byte{0x79, 0x00}, prog.Binary()[:2])
}

func TestAssemblerRelaxationFloor(t *testing.T) {
	assert := assert.New(t)

	// The chain length alternates between one and two words until the
	// length floor pads it to two.
	asm := &Assembler{}
	prog := assemble(t, asm,
		"set r0 0x180 - end * 0x40",
		"end:",
		"exit",
	)

	assert.Greater(asm.Passes, 2*relaxFloorPasses)
	addr, _ := prog.Lookup("end")
	assert.Equal(uint16(4), addr)

	bin := prog.Binary()
	assert.Equal([]byte{0x78, 0x80, 0x00, 0x00, 0x78, 0x00, 0xa0, 0xfe}, bin)

	// The floor is kept, so the settled program stays settled.
	passes, err := prog.Relax(0)
	assert.NoError(err)
	assert.Equal(1, passes)
	assert.Equal(bin, prog.Binary())
}

func TestAssemblerRelaxedTruncation(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		program  []string
		expected []byte
	}{
		{[]string{"set r0 2@m1+x", "pos 100", "x:"}, []byte{0x88, 0x64}},
		{[]string{"or r0 r1 y", "pos 40", "y:"}, []byte{0x30, 0x31}},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog := assemble(t, asm, entry.program...)
		assert.Equal(entry.expected, prog.Binary()[:2], entry.program[0])
		if assert.Len(asm.Warnings, 1, entry.program[0]) {
			assert.ErrorIs(asm.Warnings[0], ErrValueTruncated, entry.program[0])
			assert.Equal(1, asm.Warnings[0].LineNo)
		}
	}

	// In range offsets resolved by relaxation are not reported.
	asm := &Assembler{}
	prog := assemble(t, asm, "set r0 2@m1+x", "pos 30", "x:")
	assert.Equal([]byte{0x88, 0x5e}, prog.Binary()[:2])
	assert.Empty(asm.Warnings)
}

func TestAssemblerInitializerLine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"var x = 1 2",
		"3",
	)

	assert.Equal([]Symbol{{Name: "x", Address: 0, Size: 2, Kind: SYMBOL_VARIABLE}}, prog.Symbols())
	assert.Equal([]byte{1, 2}, prog.Binary())
	if assert.Len(asm.Warnings, 1) {
		assert.Equal(2, asm.Warnings[0].LineNo)
		assert.ErrorIs(asm.Warnings[0], ErrTokenUnrecognized("3"))
	}
}

func TestAssemblerDebug(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{},
		"exit",
		"set r0 later",
		"pos 0x300",
		"later:",
	)

	assert.Equal(0x304, prog.Size())

	dbg := prog.Debug(2)
	assert.Equal(uint16(2), dbg.Address)
	assert.Equal(0, dbg.Index)
	assert.Equal(1, dbg.LineNo)

	dbg = prog.Debug(9)
	assert.Equal(uint16(8), dbg.Address)
	assert.Equal(2, dbg.Index)
	assert.Equal(2, dbg.LineNo)
	assert.Equal(OP_SET_VAL, dbg.Op)

	dbg = prog.Debug(0x304)
	assert.Nil(dbg.Slot)
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("COUNT", "4")
	asm.Predefine("NAME", "text")

	prog := assemble(t, asm,
		"set r0 COUNT",
		"set r1 $(COUNT * 2 + LINENO)",
		"set r2 $(-COUNT)",
	)

	assert.Equal([]byte{0x78, 0x04, 0x79, 0x0a, 0x7a, 0x00, 0x22, 0x04}, prog.Binary())
}

func TestAssemblerComments(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"set r0 1 ~ set r0 2",
		"> set r1 3",
		"  set r1 4 < not r0",
		"bogus",
	)

	assert.Equal([]byte{0x78, 0x01, 0x28, 0x00}, prog.Binary())
	if assert.Len(asm.Warnings, 1) {
		assert.Equal(4, asm.Warnings[0].LineNo)
		assert.ErrorIs(asm.Warnings[0], ErrTokenUnrecognized("bogus"))
	}
}

func TestAssemblerUndefined(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm, "set r0 nowhere")
	assert.Equal([]byte{0x78, 0x00}, prog.Binary())
	if assert.Len(asm.Warnings, 1) {
		assert.ErrorIs(asm.Warnings[0], ErrSymbolUndefined(""))
	}

	asm = &Assembler{Strict: true}
	_, err := asm.Parse(strings.NewReader("nop:\nset r0 nowhere"))
	assert.ErrorIs(err, ErrSymbolUndefined(""))
	var se *ErrSyntax
	if assert.ErrorAs(err, &se) {
		assert.Equal(2, se.LineNo)
		assert.Equal("nowhere", se.Token)
	}

	asm = &Assembler{}
	prog = assemble(t, asm, "pos later", "later:")
	assert.Equal(0, prog.Size())
	if assert.Len(asm.Warnings, 1) {
		assert.ErrorIs(asm.Warnings[0], ErrForwardDirective)
		assert.ErrorIs(asm.Warnings[0], ErrSymbolUndefined(""))
	}
}

func TestAssemblerRedefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader("a:\nexit\na:"))
	assert.ErrorIs(err, ErrSymbolDuplicate)

	asm = &Assembler{AllowRedefine: true}
	prog := assemble(t, asm, "a:", "exit", "a:")
	addr, _ := prog.Lookup("a")
	assert.Equal(uint16(4), addr)
	if assert.Len(asm.Warnings, 1) {
		assert.ErrorIs(asm.Warnings[0], ErrSymbolRedefined("a"))
	}
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := map[string]error{
		"set r9 1":                        ErrRegisterInvalid,
		"set":                             ErrRegisterMissing,
		"not r0 r1":                       ErrOperandUnexpected,
		"iret 1":                          ErrOperandUnexpected,
		"add r0":                          ErrOperandMissing,
		"put r0 5":                        ErrMemoryOperand,
		"put r0 1@r4":                     ErrRegisterInvalid,
		"set r0 1@":                       ErrRegisterMissing,
		"var":                             ErrVarName,
		"var 5 = 1":                       ErrVarName,
		"var x [2 = 1":                    ErrVarSize,
		"var x [] = 1":                    ErrExpressionMissing,
		"pos":                             ErrExpressionMissing,
		"jz r0 0x200":                     ErrUnsupportedEncoding,
		"jz r0 +200":                      ErrUnsupportedEncoding,
		"jz r0 +target\npos 200\ntarget:": ErrUnsupportedEncoding,
		"sub r0 far\npos 0x200\nfar:":     ErrUnsupportedEncoding,
		"set r0 $(1/0)":                   ErrParseExpression("1/0"),
	}

	for text, expected := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(text))
		assert.ErrorIs(err, expected, text)
		var se *ErrSyntax
		assert.True(errors.As(err, &se), text)
	}
}

func TestAssemblerLimits(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{MaxPasses: 1}
	_, err := asm.Parse(strings.NewReader("set r0 data\npos 0x300\ndata:"))
	assert.ErrorIs(err, ErrRelaxationDiverged)

	asm = &Assembler{}
	_, err = asm.Parse(strings.NewReader("pos 0xfffe\nset r0 0x1234"))
	assert.ErrorIs(err, ErrImageOverflow)
}
