package util

import "sync"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// perror collects errors reported by parallel worker threads and hands them
// back to the main thread once a parallel job has completed.
type perror struct {
	listen     chan error // Channel for receiving error messages from worker threads.
	stop       chan error // Messages sent on this channel cause the perror struct to stop listening for errors.
	errors     []error    // Buffer of error messages.
	sync.Mutex            // For synchronising writes and reads.
}

// ----------------------
// ----- Constants ------
// ----------------------

// defaultBufferSize defines the fallback buffer size of the error array.
const defaultBufferSize = 16

// ---------------------
// ----- Functions -----
// ---------------------

// NewPerror returns a pointer to a perror struct with n pre-allocated slots
// for errors in the buffer.
func NewPerror(n int) *perror {
	if n < 1 {
		n = defaultBufferSize
	}
	pe := perror{
		listen: make(chan error),
		stop:   make(chan error),
		errors: make([]error, 0, n),
	}
	go pe.run()
	return &pe
}

// run listens for errors on the listen channel until a message arrives on the
// stop channel.
func (pe *perror) run() {
	defer close(pe.listen)
	for {
		select {
		case err := <-pe.listen:
			pe.Lock()
			pe.errors = append(pe.errors, err)
			pe.Unlock()
		case <-pe.stop:
			return
		}
	}
}

// Len returns the number of buffered errors.
func (pe *perror) Len() int {
	pe.Lock()
	defer pe.Unlock()
	return len(pe.errors)
}

// Stop sends the stop signal to the error listener.
func (pe *perror) Stop() {
	defer close(pe.stop)
	pe.stop <- nil
}

// Append sends the error message err to the error listener. <nil> errors are ignored.
func (pe *perror) Append(err error) {
	if err != nil {
		pe.listen <- err
	}
}

// Errors returns a buffered channel holding all reported errors, effectively
// creating an iterator.
func (pe *perror) Errors() <-chan error {
	pe.Lock()
	defer pe.Unlock()
	c := make(chan error, len(pe.errors))
	for _, e1 := range pe.errors {
		c <- e1
	}
	close(c)
	return c
}
