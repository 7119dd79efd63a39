package image

import (
	"encoding/hex"
	"errors"
	"hash"
	"io"

	"github.com/pombredanne/dedup/hashing"
)

// ErrNotGIF reports that the input did not begin with a GIF signature.
var ErrNotGIF = errors.New("image: not a GIF (bad signature)")

const (
	gifTrailer         = 0x3B
	gifExtensionIntro  = 0x21
	gifImageDescriptor = 0x2C
	gifCommentLabel    = 0xFE // used only by tests to build a comment extension fixture
)

// GIFHash is a Hasher canonicalizing a GIF byte stream over the blocks
// that affect how it renders: the logical screen descriptor, any global
// or local color table, and image descriptor/data blocks. Comment and
// application extensions (and the graphics control extension, which only
// affects animation timing/transparency hints) are skipped (spec §4.7).
type GIFHash struct {
	b     *hashing.Bridge
	inner hash.Hash
}

// NewGIFHash builds a GIFHash feeding selected block bytes into inner.
func NewGIFHash(inner hash.Hash) *GIFHash {
	h := &GIFHash{inner: inner}
	h.b = hashing.NewBridge(func(r io.Reader) error {
		return processGIF(r, inner)
	})
	return h
}

// Update implements hashing.Hasher.
func (h *GIFHash) Update(p []byte) error { return h.b.Update(p) }

// Finalize implements hashing.Hasher.
func (h *GIFHash) Finalize() (string, error) {
	if err := h.b.Finish(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.inner.Sum(nil)), nil
}

func processGIF(r io.Reader, inner hash.Hash) error {
	var sig [6]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return err
	}
	if string(sig[:3]) != "GIF" || (string(sig[3:]) != "87a" && string(sig[3:]) != "89a") {
		return ErrNotGIF
	}

	var lsd [7]byte
	if _, err := io.ReadFull(r, lsd[:]); err != nil {
		return err
	}
	inner.Write(lsd[:])

	hasGCT := lsd[4]&0x80 != 0
	if hasGCT {
		size := 3 * (1 << (uint(lsd[4]&0x07) + 1))
		table := make([]byte, size)
		if _, err := io.ReadFull(r, table); err != nil {
			return err
		}
		inner.Write(table)
	}

	for {
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		switch b[0] {
		case gifTrailer:
			return nil
		case gifExtensionIntro:
			if err := skipExtension(r); err != nil {
				return err
			}
		case gifImageDescriptor:
			if err := processImageBlock(r, inner); err != nil {
				return err
			}
		default:
			return errors.New("image: unrecognized GIF block introducer")
		}
	}
}

// skipExtension consumes a GIF extension block (the 0x21 introducer is
// already consumed by the caller, so the next byte is the label) and its
// chain of sub-blocks, none of which are hashed.
func skipExtension(r io.Reader) error {
	var label [1]byte
	if _, err := io.ReadFull(r, label[:]); err != nil {
		return err
	}
	return skipSubBlocks(r)
}

func skipSubBlocks(r io.Reader) error {
	for {
		var size [1]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			return err
		}
		if size[0] == 0 {
			return nil
		}
		if _, err := io.CopyN(io.Discard, r, int64(size[0])); err != nil {
			return err
		}
	}
}

// processImageBlock hashes the image descriptor, any local color table,
// and the LZW-coded image data sub-blocks (introducer byte already
// consumed by the caller).
func processImageBlock(r io.Reader, inner hash.Hash) error {
	var desc [9]byte
	if _, err := io.ReadFull(r, desc[:]); err != nil {
		return err
	}
	inner.Write(desc[:])

	hasLCT := desc[8]&0x80 != 0
	if hasLCT {
		size := 3 * (1 << (uint(desc[8]&0x07) + 1))
		table := make([]byte, size)
		if _, err := io.ReadFull(r, table); err != nil {
			return err
		}
		inner.Write(table)
	}

	var minCodeSize [1]byte
	if _, err := io.ReadFull(r, minCodeSize[:]); err != nil {
		return err
	}
	inner.Write(minCodeSize[:])

	for {
		var size [1]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			return err
		}
		if size[0] == 0 {
			return nil
		}
		block := make([]byte, size[0])
		if _, err := io.ReadFull(r, block); err != nil {
			return err
		}
		inner.Write(block)
	}
}
