package main

import (
	"fmt"
	"os"

	"ilocc/src/backend/regalloc"
	"ilocc/src/frontend"
	"ilocc/src/util"
)

func main() {
	// Parse command line arguments.
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Command line argument error: %s\n", err)
		os.Exit(1)
	}

	if opt.Watch {
		// Watch mode: re-run the pipeline every time the source file changes.
		if len(opt.Src) == 0 {
			fmt.Fprintln(os.Stderr, "Watch mode requires a source file argument")
			os.Exit(1)
		}
		if err := run(opt); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fw, err := util.NewFileWatcher(func(path string) {
			if err := run(opt); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not start file watcher: %s\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = fw.Close()
		}()
		if err := fw.AddFile(opt.Src); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fw.Watch()
		return
	}

	if err := run(opt); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the pipeline once: read source, parse ILOC, allocate physical
// registers and print the rewritten program.
func run(opt util.Options) error {
	// Read source code.
	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source code: %s", err)
	}

	// Parse source code into the linear instruction list.
	l, err := frontend.Parse(src)
	if err != nil {
		return fmt.Errorf("parse error: %s", err)
	}

	// If the -p flag was passed the parsed program is printed unallocated.
	if !opt.Print {
		before := l.Len()

		// Rewrite virtual registers to physical registers.
		if err := regalloc.AllocateRegisters(opt, l); err != nil {
			return fmt.Errorf("register allocation error: %s", err)
		}

		if opt.Verbose {
			after := l.Len()
			fmt.Printf("register allocation: %d instruction(s) in, %d out, %d spill store(s) and reload(s) inserted\n",
				before, after, after-before)
		}
	}

	// Initiate output writer.
	var f *os.File
	if len(opt.Out) > 0 {
		// Attempt to open output file. Create new file if necessary.
		f, err = os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer func(f *os.File) {
			if err := f.Close(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}(f)
	}
	util.ListenWrite(opt.Threads, f)

	// Emit the rewritten program and stop the output writer.
	w := util.NewWriter()
	w.Write("%s", l)
	w.Close()
	util.Close()
	return nil
}
