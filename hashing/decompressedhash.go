package hashing

import (
	"encoding/hex"
	"hash"
	"io"
)

// DecompressedHash is a composite Hasher: pushed bytes are fed through a
// stream decompressor, and the decompressor's output feeds an inner hash.
// Two different compressed encodings of the same content (e.g. different
// gzip levels) thus produce the same digest (spec §4.4).
type DecompressedHash struct {
	ph    *pipeHasher
	inner hash.Hash
}

// NewDecompressedHash builds a DecompressedHash. newDecoder wraps the raw
// bytes pushed via Update in a decompressing io.Reader; it's called once,
// in pipeHasher's goroutine as soon as the DecompressedHash is built. A
// decoder that reads its header up front blocks there until Update has
// pushed enough bytes.
func NewDecompressedHash(newDecoder func(io.Reader) (io.Reader, error), inner hash.Hash) *DecompressedHash {
	d := &DecompressedHash{inner: inner}
	d.ph = newPipeHasher(func(r io.Reader) error {
		dr, err := newDecoder(r)
		if err != nil {
			return err
		}
		_, err = io.Copy(inner, dr)
		return err
	})
	return d
}

// Update implements Hasher.
func (d *DecompressedHash) Update(p []byte) error {
	return d.ph.update(p)
}

// Finalize implements Hasher. It closes the decompressor's input, waits
// for any buffered decompressed output to be flushed into the inner hash,
// and returns the inner hash's hex digest.
func (d *DecompressedHash) Finalize() (string, error) {
	if err := d.ph.finish(); err != nil {
		return "", err
	}
	return hex.EncodeToString(d.inner.Sum(nil)), nil
}
