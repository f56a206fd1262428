package util

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Writer buffers output from threads in a strings.Builder.
// When the Flush or Close method is called the buffer is emptied and sent to
// the assigned output writer through channel c.
type Writer struct {
	sb strings.Builder
	c  chan string
}

// -------------------
// ----- Globals -----
// -------------------

var wc chan string   // Write channel used for receiving data from worker threads.
var cc chan error    // Close channel used by main thread to signal to end write operations.
var dc chan struct{} // Done channel, closed once the listener has drained and stopped.

// ---------------------
// ----- Functions -----
// ---------------------

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// Flush empties the Writer's buffer and sends the buffer data to the
// designated output writer over the Writer's channel.
func (w *Writer) Flush() {
	w.c <- w.sb.String()
	w.sb = strings.Builder{}
}

// Close flushes the Writer's buffer and then closes the Writer's channel.
func (w *Writer) Close() {
	w.Flush()
	w.c = nil
}

// NewWriter returns a new Writer to be used to write strings concurrently to
// the output buffer. Must not be called before the main thread has called
// ListenWrite.
func NewWriter() Writer {
	return Writer{
		sb: strings.Builder{},
		c:  wc,
	}
}

// ReadSource reads ILOC source code from file or stdin.
// If the Options structure holds a source path the file is opened and read.
// Else the function waits a short period for input on stdin. If no input
// arrives on stdin an error is returned.
func ReadSource(opt Options) (string, error) {
	if len(opt.Src) > 0 {
		// Read from file.
		b, err := os.ReadFile(opt.Src)
		return string(b), err
	}

	// Read stdin.
	c := make(chan string)
	cerr := make(chan error)

	// Concurrently wait for input on stdin.
	go func(c chan string, cerr chan error) {
		defer close(c)
		defer close(cerr)
		reader := bufio.NewReader(os.Stdin)
		text, err := reader.ReadString(0)
		if err == nil {
			c <- text
		} else {
			cerr <- err
		}
	}(c, cerr)

	// Select between input from stdin or timer expiry.
	select {
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("expected input from stdin, got none")
	case s := <-c:
		return s, nil
	}
}

// ListenWrite listens for worker thread outputs. The received data is written
// to file f, or stdout if f is <nil>. The function loops until a termination
// signal is sent using the Close function.
func ListenWrite(t int, f *os.File) {
	wc = make(chan string, t)
	cc = make(chan error, 1) // Make buffered to catch Close before listener is invoked.
	dc = make(chan struct{})
	var w *bufio.Writer
	if f != nil {
		// Write output to file.
		w = bufio.NewWriter(f)
	} else {
		// Write output to stdout.
		w = bufio.NewWriter(os.Stdout)
	}

	// Listen for input and termination signal.
	go func(wc chan string, cc chan error) {
		defer close(dc)
		defer close(wc)
		defer close(cc)
		write := func(s string) {
			if _, err := w.WriteString(s); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			if err := w.Flush(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		for {
			select {
			case s := <-wc:
				write(s)
			case <-cc:
				// Drain buffered output before stopping.
				for {
					select {
					case s := <-wc:
						write(s)
					default:
						return
					}
				}
			}
		}
	}(wc, cc)
}

// Close sends the termination signal to the writer listener and blocks until
// all buffered output has been written.
func Close() {
	cc <- nil
	<-dc
}
