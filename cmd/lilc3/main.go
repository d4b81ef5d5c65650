package main

import (
	"flag"
	"log"
	"os"

	"github.com/monkslc/lilc3/cpu"
	"github.com/monkslc/lilc3/emulator"
	lilcio "github.com/monkslc/lilc3/io"
)

func main() {
	var compile string
	var output string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.StringVar(&output, "o", "", "object file to write instead of executing, with -c")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	var prog *cpu.Program

	// Assemble a new program image.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		if len(output) != 0 {
			err = os.WriteFile(output, prog.Binary(), 0644)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
			return
		}
	}

	term := lilcio.NewTerminal()
	emu := emulator.NewEmulator(term)
	emu.Verbose = verbose

	if prog != nil {
		if flag.NArg() != 0 {
			log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
		}
		emu.LoadProgram(prog)
	} else {
		if flag.NArg() != 1 {
			log.Fatalf("usage: %v [-v] [-c prog.asm [-o prog.obj]] [image.obj]", os.Args[0])
		}

		image, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			log.Fatalf("%v: %v", flag.Arg(0), err)
		}
		if err = emu.LoadImage(image); err != nil {
			log.Fatalf("%v: %v", flag.Arg(0), err)
		}
	}

	if err := term.Raw(); err != nil {
		log.Printf("terminal: %v", err)
	}
	defer term.Restore()

	if err := emu.Run(); err != nil {
		term.Restore()
		log.Fatal(err)
	}
}
