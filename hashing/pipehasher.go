package hashing

import "io"

// pipeHasher adapts a push-based Update([]byte) API to a process function
// written against a blocking, pull-based io.Reader — the same "bridge a
// push API onto a pull API" idiom io.Pipe itself is documented for. It
// backs both DecompressedHash (process = run a decompressor, copy its
// output into an inner hash) and the image hashers in package image
// (process = parse a chunk/block format, selectively feed an inner hash).
//
// Every public method blocks until the goroutine has consumed what was
// handed to it, so from a caller's point of view a pipeHasher behaves
// synchronously: Update returns only once process has read (or rejected)
// the bytes just written, and Finalize returns only once process has
// observed end-of-input and completed. Memory use is bounded by io.Pipe's
// internal handoff, not by the size of the member being hashed.
type pipeHasher struct {
	pw   *io.PipeWriter
	done chan error
}

// newPipeHasher starts process in a goroutine fed by an io.Pipe and
// returns a handle for pushing bytes to it.
func newPipeHasher(process func(io.Reader) error) *pipeHasher {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := process(pr)
		pr.CloseWithError(err)
		done <- err
	}()
	return &pipeHasher{pw: pw, done: done}
}

// update writes p to the pipe. If process has already terminated (with or
// without error), the pipe reports that as the write error, which is
// exactly the decode error the caller wants surfaced here.
func (p *pipeHasher) update(b []byte) error {
	_, err := p.pw.Write(b)
	if err == io.ErrClosedPipe {
		// process returned nil despite more input arriving; treat as
		// "nothing more expected" rather than a write failure.
		return nil
	}
	return err
}

// finish closes the write side, signalling end-of-input to process, and
// waits for its result.
func (p *pipeHasher) finish() error {
	p.pw.Close()
	return <-p.done
}

// Bridge is the exported form of pipeHasher, for packages outside hashing
// (namely package image) that need the same push-to-pull adapter to
// implement a Hasher of their own over a chunk/block parser rather than a
// decompressor.
type Bridge struct{ ph *pipeHasher }

// NewBridge starts process in a goroutine fed by an io.Pipe.
func NewBridge(process func(io.Reader) error) *Bridge {
	return &Bridge{ph: newPipeHasher(process)}
}

// Update pushes bytes to process.
func (b *Bridge) Update(p []byte) error { return b.ph.update(p) }

// Finish signals end-of-input and waits for process to return.
func (b *Bridge) Finish() error { return b.ph.finish() }
