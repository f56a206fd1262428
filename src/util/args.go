package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xyproto/env/v2"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

type Options struct {
	Src       string // Path to ILOC source file.
	Out       string // Path to output file.
	Registers int    // Number of physical registers available to the allocator.
	Threads   int    // Thread count for per-function parallel allocation.
	Verbose   bool   // Set true if the pass should log statistics to stdout.
	Print     bool   // Set true if the parsed program should be printed without allocation.
	Watch     bool   // Set true if the pass should re-run whenever the source file changes.
}

// ---------------------
// ----- Constants -----
// ---------------------

const maxThreads = 64 // Maximum threads allowed executing in parallel.
const appVersion = "ilocc register allocator 1.0"

// defaultRegisters is the physical register budget when neither the -r flag
// nor the ILOC_REGISTERS environment variable is given.
const defaultRegisters = 4

// ---------------------
// ----- Functions -----
// ---------------------

// ParseArgs parses command line arguments. Defaults for the register budget
// and the thread count are taken from the ILOC_REGISTERS and ILOC_THREADS
// environment variables when set.
func ParseArgs() (Options, error) {
	opt := Options{
		Registers: env.Int("ILOC_REGISTERS", defaultRegisters),
		Threads:   env.Int("ILOC_THREADS", 1),
	}
	if len(os.Args) < 2 {
		return opt, nil
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			// Help and usage.
			printHelp()
			os.Exit(0)
		case "-o", "-t", "-r":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected argument for flag %s, got new flag %s", args[i1], args[i1+1])
			}
			switch args[i1] {
			case "-o":
				// Output file.
				opt.Out = args[i1+1]
			case "-t":
				// Thread count.
				if t, err := strconv.Atoi(args[i1+1]); err == nil {
					if t > 0 && t <= maxThreads {
						opt.Threads = t
					} else {
						return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
					}
				} else {
					return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
				}
			case "-r":
				// Physical register budget.
				if r, err := strconv.Atoi(args[i1+1]); err == nil {
					opt.Registers = r
				} else {
					return opt, fmt.Errorf("expected integer register count, got: %s", args[i1+1])
				}
			}
			i1++
		case "-p":
			// Print the parsed program and exit without allocating.
			opt.Print = true
		case "-v", "--v", "-version", "--version":
			// Application version.
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			// Verbose mode.
			opt.Verbose = true
		case "-w":
			// Watch mode.
			opt.Watch = true
		default:
			if i1 == len(args)-1 && !strings.HasPrefix(args[i1], "-") {
				// Last argument is the source file.
				opt.Src = args[i1]
				break
			}
			return opt, fmt.Errorf("unexpected flag: %s", args[i1])
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file.")
	_, _ = fmt.Fprintf(w, "-r\tNumber of physical registers available to the allocator. Defaults to %d or ILOC_REGISTERS.\n", defaultRegisters)
	_, _ = fmt.Fprintf(w, "-t\tNumber of threads to run in parallel. Must be in range [1, %d]. Defaults to 1 or ILOC_THREADS.\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-p\tPrint the parsed ILOC program and exit without allocating registers.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print allocation statistics to stdout.")
	_, _ = fmt.Fprintln(w, "-w\tWatch the source file and re-run the pass when it changes.")
	_ = w.Flush()
}
