// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"log"
	"os"

	"github.com/ezrec/mc3/cpu"
	"github.com/ezrec/mc3/exe"
)

func main() {
	var output string

	flag.StringVar(&output, "o", "-", "Listing output")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one executable or raw image", os.Args[0])
	}

	input := flag.Arg(0)

	inf, err := os.Open(input)
	if err != nil {
		log.Fatalf("%v: %v", input, err)
	}
	defer inf.Close()

	var image exe.Executable
	err = image.Unmarshal(inf)
	if err != nil {
		log.Fatalf("%v: %v", input, err)
	}

	ouf := os.Stdout
	if output != "-" {
		ouf, err = os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
	}

	err = cpu.Listing(ouf, cpu.Disassemble(image.Binary), image.Symbols)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
}
