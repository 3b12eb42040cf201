// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ezrec/mc3/cpu"
	"github.com/ezrec/mc3/exe"
	"github.com/ezrec/mc3/translate"
)

var f = translate.From

// exitCode maps an assembly error to the process exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, cpu.ErrRegisterInvalid):
		return -2
	case errors.Is(err, cpu.ErrVarSize):
		return -3
	case errors.Is(err, cpu.ErrSymbolUndefined("")):
		return -4
	case errors.Is(err, cpu.ErrOperandUnexpected):
		return -5
	default:
		return -1
	}
}

func main() {
	var output string
	var listing string
	var raw bool
	var strict bool
	var redefine bool
	var verbose bool
	var passes int

	asm := &cpu.Assembler{}

	flag.StringVar(&output, "o", "a.out", "Output file")
	flag.StringVar(&listing, "l", "", "Listing file")
	flag.BoolVar(&raw, "r", false, "Write a raw binary image instead of an ELF executable")
	flag.BoolVar(&strict, "s", false, "Undefined symbols are errors")
	flag.BoolVar(&redefine, "R", false, "Allow symbol redefinition")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.IntVar(&passes, "p", cpu.MaxPasses, "Maximum relaxation passes")
	flag.Func("D", "Predefine NAME=VALUE", func(arg string) error {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			value = "1"
		}
		asm.Predefine(name, value)
		return nil
	})

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one .mc3 source file", os.Args[0])
	}

	input := flag.Arg(0)

	asm.Verbose = verbose
	asm.Strict = strict
	asm.AllowRedefine = redefine
	asm.MaxPasses = passes

	inf, err := os.Open(input)
	if err != nil {
		log.Fatalf("%v: %v", input, err)
	}
	defer inf.Close()

	prog, err := asm.Parse(inf)
	for _, warning := range asm.Warnings {
		fmt.Fprintf(os.Stderr, "%v: %v\n", input, warning.Error())
	}
	if len(asm.Warnings) != 0 {
		fmt.Fprintf(os.Stderr, "%v: %v\n", input, f("%d warnings", len(asm.Warnings)))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", input, err)
		os.Exit(exitCode(err))
	}

	if verbose {
		log.Print(f("%d symbols", len(prog.Symbol)))
	}

	ouf, err := os.Create(output)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
	defer ouf.Close()

	if raw {
		_, err = ouf.Write(prog.Binary())
	} else {
		image := &exe.Executable{
			Binary:  prog.Binary(),
			Symbols: prog.Symbols(),
		}
		err = image.Marshal(ouf)
	}
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}

	if len(listing) != 0 {
		lsf, err := os.Create(listing)
		if err != nil {
			log.Fatalf("%v: %v", listing, err)
		}
		defer lsf.Close()

		err = cpu.Listing(lsf, prog.Codes(), prog.Symbols())
		if err != nil {
			log.Fatalf("%v: %v", listing, err)
		}
	}
}
