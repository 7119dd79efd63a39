// Package image implements the two canonicalizing image hashers spec §4.7
// describes: PNGHash and GIFHash. Neither decodes pixels; each parses just
// enough of its container format to select the chunks/blocks that affect
// the rendered image and feed only those into an inner digest, so that
// byte-different files that render identically collide.
package image

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"io"

	"github.com/pombredanne/dedup/hashing"
)

// ErrNotPNG reports that the input did not begin with the PNG signature.
var ErrNotPNG = errors.New("image: not a PNG (bad signature)")

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// pixelRelevantPNG lists the chunk types that affect how a PNG renders.
// Ancillary metadata chunks (tEXt, tIME, zTXt, iTXt, pHYs, and so on) are
// deliberately absent: two PNGs differing only in those chunks must hash
// the same.
var pixelRelevantPNG = map[string]bool{
	"IHDR": true,
	"PLTE": true,
	"IDAT": true,
	"tRNS": true,
	"bKGD": true,
	"gAMA": true,
	"cHRM": true,
	"sRGB": true,
	"iCCP": true,
}

// PNGHash is a Hasher canonicalizing a PNG byte stream over its
// pixel-relevant chunks (spec §4.7).
type PNGHash struct {
	b     *hashing.Bridge
	inner hash.Hash
}

// NewPNGHash builds a PNGHash feeding selected chunk bytes into inner.
func NewPNGHash(inner hash.Hash) *PNGHash {
	h := &PNGHash{inner: inner}
	h.b = hashing.NewBridge(func(r io.Reader) error {
		return processPNG(r, inner)
	})
	return h
}

// Update implements hashing.Hasher.
func (h *PNGHash) Update(p []byte) error { return h.b.Update(p) }

// Finalize implements hashing.Hasher.
func (h *PNGHash) Finalize() (string, error) {
	if err := h.b.Finish(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.inner.Sum(nil)), nil
}

func processPNG(r io.Reader, inner hash.Hash) error {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return err
	}
	if !bytes.Equal(sig, pngSignature) {
		return ErrNotPNG
	}

	var lenBuf, typeBuf, crcBuf [4]byte
	inIDAT := false
	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		length := binary.BigEndian.Uint32(lenBuf[:])
		if _, err := io.ReadFull(r, typeBuf[:]); err != nil {
			return err
		}
		typ := string(typeBuf[:])

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
			return err
		}

		if typ == "IDAT" {
			if !inIDAT {
				inner.Write(typeBuf[:])
				inIDAT = true
			}
			inner.Write(data)
		} else {
			inIDAT = false
			if pixelRelevantPNG[typ] {
				inner.Write(typeBuf[:])
				inner.Write(data)
			}
		}

		if typ == "IEND" {
			return nil
		}
	}
}
