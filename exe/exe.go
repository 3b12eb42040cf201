// Package exe packages an assembled MC3 program image as an ELF32
// executable with a symbol table.
package exe

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"io"

	"github.com/ezrec/mc3/cpu"
)

const (
	ehdrSize = 52
	phdrSize = 32
	shdrSize = 40
	symSize  = 16

	// Section indexes.
	sectionNull   = 0
	sectionStrtab = 1
	sectionSymtab = 2
)

// Executable is a program image and its symbol table.
type Executable struct {
	Binary  []byte
	Symbols []cpu.Symbol
}

// strtab is an ELF string table.
type strtab struct {
	bytes.Buffer
}

// add appends a string and returns its index.
func (st *strtab) add(str string) uint32 {
	if st.Len() == 0 {
		st.WriteByte(0)
	}
	if len(str) == 0 {
		return 0
	}
	index := uint32(st.Len())
	st.WriteString(str)
	st.WriteByte(0)
	return index
}

// symbolType maps a symbol kind to its ELF symbol type.
func symbolType(kind cpu.SymbolKind) elf.SymType {
	if kind == cpu.SYMBOL_VARIABLE {
		return elf.STT_OBJECT
	}
	return elf.STT_FUNC
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// Marshal writes the executable as an ELF32 file, with the program image
// in a single loadable segment at address 0.
func (exe *Executable) Marshal(file io.Writer) (err error) {
	var names strtab
	strtabName := names.add(".strtab")
	symtabName := names.add(".symtab")

	syms := []elf.Sym32{{}}
	for _, sym := range exe.Symbols {
		syms = append(syms, elf.Sym32{
			Name:  names.add(sym.Name),
			Value: uint32(sym.Address),
			Size:  uint32(sym.Size),
			Info:  elf.ST_INFO(elf.STB_GLOBAL, symbolType(sym.Kind)),
			Other: uint8(elf.STV_DEFAULT),
			Shndx: uint16(elf.SHN_ABS),
		})
	}

	binOff := ehdrSize + phdrSize
	strOff := binOff + len(exe.Binary)
	symOff := align4(strOff + names.Len())
	shOff := symOff + len(syms)*symSize

	header := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_NONE),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     0,
		Phoff:     ehdrSize,
		Shoff:     uint32(shOff),
		Ehsize:    ehdrSize,
		Phentsize: phdrSize,
		Phnum:     1,
		Shentsize: shdrSize,
		Shnum:     3,
		Shstrndx:  sectionStrtab,
	}
	copy(header.Ident[:], elf.ELFMAG)
	header.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	header.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	header.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	header.Ident[elf.EI_OSABI] = byte(elf.ELFOSABI_NONE)

	prog := elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Off:    uint32(binOff),
		Vaddr:  0,
		Paddr:  0,
		Filesz: uint32(len(exe.Binary)),
		Memsz:  uint32(len(exe.Binary)),
		Flags:  uint32(elf.PF_R | elf.PF_W | elf.PF_X),
		Align:  1,
	}

	sections := []elf.Section32{
		sectionNull: {},
		sectionStrtab: {
			Name:      strtabName,
			Type:      uint32(elf.SHT_STRTAB),
			Off:       uint32(strOff),
			Size:      uint32(names.Len()),
			Addralign: 1,
		},
		sectionSymtab: {
			Name:      symtabName,
			Type:      uint32(elf.SHT_SYMTAB),
			Off:       uint32(symOff),
			Size:      uint32(len(syms) * symSize),
			Link:      sectionStrtab,
			Info:      1, // Index of the first global symbol.
			Addralign: 4,
			Entsize:   symSize,
		},
	}

	var out bytes.Buffer
	for _, data := range []any{&header, &prog} {
		err = binary.Write(&out, binary.LittleEndian, data)
		if err != nil {
			return
		}
	}
	out.Write(exe.Binary)
	out.Write(names.Bytes())
	out.Write(make([]byte, symOff-out.Len()))
	for _, data := range []any{syms, sections} {
		err = binary.Write(&out, binary.LittleEndian, data)
		if err != nil {
			return
		}
	}

	_, err = file.Write(out.Bytes())

	return
}

// Unmarshal loads an executable. Input that is not an ELF file is loaded
// as a raw program image with no symbols.
func (exe *Executable) Unmarshal(file io.Reader) (err error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return
	}

	exe.Binary = nil
	exe.Symbols = nil

	if !bytes.HasPrefix(data, []byte(elf.ELFMAG)) {
		exe.Binary = data
		return
	}

	ef, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return
	}
	defer ef.Close()

	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		var segment []byte
		segment, err = io.ReadAll(prog.Open())
		if err != nil {
			return
		}
		end := int(prog.Vaddr) + len(segment)
		if end > len(exe.Binary) {
			exe.Binary = append(exe.Binary, make([]byte, end-len(exe.Binary))...)
		}
		copy(exe.Binary[prog.Vaddr:], segment)
	}

	syms, err := ef.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		err = nil
		return
	}
	if err != nil {
		return
	}

	for _, sym := range syms {
		kind := cpu.SYMBOL_LABEL
		if elf.ST_TYPE(sym.Info) == elf.STT_OBJECT {
			kind = cpu.SYMBOL_VARIABLE
		}
		exe.Symbols = append(exe.Symbols, cpu.Symbol{
			Name:    sym.Name,
			Address: uint16(sym.Value),
			Size:    uint16(sym.Size),
			Kind:    kind,
		})
	}

	return
}
