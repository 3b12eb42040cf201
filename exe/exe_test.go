package exe

import (
	"bytes"
	"debug/elf"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mc3/cpu"
)

func TestExecutable(t *testing.T) {
	assert := assert.New(t)

	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader("start:\nset r0 data\nexit\nvar data = 1 2 3"))
	if err != nil {
		t.Fatal(err)
	}

	image := &Executable{
		Binary:  prog.Binary(),
		Symbols: prog.Symbols(),
	}

	var buf bytes.Buffer
	err = image.Marshal(&buf)
	assert.NoError(err)

	ef, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(elf.ELFCLASS32, ef.Class)
	assert.Equal(elf.ELFDATA2LSB, ef.Data)
	assert.Equal(elf.ET_EXEC, ef.Type)
	assert.Equal(elf.EM_NONE, ef.Machine)
	assert.Equal(uint64(0), ef.Entry)
	if assert.Len(ef.Progs, 1) {
		assert.Equal(elf.PT_LOAD, ef.Progs[0].Type)
		assert.Equal(uint64(len(image.Binary)), ef.Progs[0].Filesz)
	}
	assert.NotNil(ef.Section(".symtab"))
	assert.NotNil(ef.Section(".strtab"))

	var loaded Executable
	err = loaded.Unmarshal(bytes.NewReader(buf.Bytes()))
	assert.NoError(err)
	assert.Equal(image.Binary, loaded.Binary)
	assert.Equal(image.Symbols, loaded.Symbols)
}

func TestExecutableEmpty(t *testing.T) {
	assert := assert.New(t)

	image := &Executable{}

	var buf bytes.Buffer
	err := image.Marshal(&buf)
	assert.NoError(err)

	var loaded Executable
	err = loaded.Unmarshal(&buf)
	assert.NoError(err)
	assert.Empty(loaded.Binary)
	assert.Empty(loaded.Symbols)
}

func TestExecutableRaw(t *testing.T) {
	assert := assert.New(t)

	raw := []byte{0x78, 0x00, 0xa0, 0xfe}

	var loaded Executable
	err := loaded.Unmarshal(bytes.NewReader(raw))
	assert.NoError(err)
	assert.Equal(raw, loaded.Binary)
	assert.Nil(loaded.Symbols)

	err = loaded.Unmarshal(bytes.NewReader([]byte("\x7fELF broken")))
	assert.Error(err)
}
