package dedup

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"runtime/trace"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/pombredanne/dedup/ar"
	"github.com/pombredanne/dedup/control"
	"github.com/pombredanne/dedup/hashing"
	"github.com/pombredanne/dedup/image"
	"github.com/pombredanne/dedup/internal/container"
)

// decoderState tracks the orchestrator's position in the Start ->
// ControlTar -> ControlParsed -> Done progression.
//
// See spec §4.9.
type decoderState int

const (
	stateStart decoderState = iota
	stateControlTar
	stateControlParsed
	stateDone
)

// Decoder walks a single .deb byte stream, producing exactly one
// PackageMetadata, zero or more FileRecord values (one per regular file in
// the data archive, in tar order), and finally the Commit sentinel.
//
// A Decoder must not be used concurrently, and must not be reused once Next
// has returned io.EOF or a non-nil *Error.
type Decoder struct {
	cfg Config

	rawReader   io.Reader
	passthrough *hashing.HashedPassthrough // non-nil iff cfg.ExpectedOuterSHA256 is set
	ar          *ar.Reader

	state decoderState

	pendingMeta PackageMetadata

	dataTar    *tar.Reader
	dataCloser io.Closer
	commitPaid bool
	closed     bool

	cfgErr error // set by NewDecoder if cfg fails validation, surfaced by the first Next call
}

// NewDecoder constructs a Decoder reading a .deb stream from r.
func NewDecoder(r io.Reader, cfg Config) *Decoder {
	d := &Decoder{cfg: cfg, rawReader: r}
	if cfg.ExpectedOuterSHA256 != "" {
		if !validHexDigest(cfg.ExpectedOuterSHA256, sha256.Size) {
			d.cfgErr = &Error{
				Op: "NewDecoder", Kind: ErrFormat,
				Message: fmt.Sprintf("ExpectedOuterSHA256 %q is not a 64-character lowercase hex sha256 digest", cfg.ExpectedOuterSHA256),
			}
		}
		d.passthrough = hashing.NewHashedPassthrough(r, sha256.New())
		d.rawReader = d.passthrough
	}
	d.ar = ar.NewReader(d.rawReader)
	return d
}

// Next advances the decoder by exactly one record and returns it. After
// the Commit record has been returned, Next returns io.EOF. Any non-nil
// *Error return means no further records (in particular, no Commit) will
// ever be produced for this Decoder.
func (d *Decoder) Next(ctx context.Context) (Record, error) {
	region := trace.StartRegion(ctx, "dedup.Decoder.Next")
	defer region.End()

	if d.closed {
		return nil, fmt.Errorf("dedup: Next called on closed Decoder")
	}
	if d.cfgErr != nil {
		return nil, d.cfgErr
	}

	for {
		switch d.state {
		case stateStart:
			if err := d.findControlTar(ctx); err != nil {
				return nil, err
			}
			d.state = stateControlTar
		case stateControlTar:
			meta := d.pendingMeta
			d.state = stateControlParsed
			slog.DebugContext(ctx, "emitting record", "kind", recordKind(&meta))
			return &meta, nil
		case stateControlParsed:
			rec, done, err := d.nextDataEntry(ctx)
			if err != nil {
				return nil, err
			}
			if done {
				d.state = stateDone
				continue
			}
			if rec == nil {
				continue // skipped entry (non-regular file, or non-UTF-8 name)
			}
			slog.DebugContext(ctx, "emitting record", "kind", recordKind(rec))
			return rec, nil
		case stateDone:
			if d.commitPaid {
				return nil, io.EOF
			}
			if err := d.verifyOuterHash(); err != nil {
				return nil, err
			}
			d.commitPaid = true
			slog.DebugContext(ctx, "emitting record", "kind", recordKind(Commit))
			return Commit, nil
		default:
			panic("dedup: unreachable decoder state")
		}
	}
}

// Close releases the Decoder's open decompressor, if any. It is safe to
// call more than once, and safe to call whether or not the stream was
// fully consumed (spec §5).
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.dataCloser != nil {
		return d.dataCloser.Close()
	}
	return nil
}

// findControlTar scans ar members from the start of the archive looking
// for control.tar[.ext]. Unknown members (including debian-binary) are
// skipped; a data.tar[.ext] member encountered first is a format error.
func (d *Decoder) findControlTar(ctx context.Context) error {
	for {
		name, err := d.ar.Next()
		switch {
		case errors.Is(err, io.EOF):
			return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "missing control file"}
		case err != nil:
			return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "reading ar header", Inner: err}
		}

		if kind, ok := d.controlKind(name); ok {
			return d.openControlTar(ctx, kind)
		}
		if _, ok := container.IsDataMember(name); ok {
			return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "missing control file"}
		}
		slog.DebugContext(ctx, "skipping unrecognized ar member", "name", name)
	}
}

// openControlTar decompresses and opens the control.tar member, locates
// its ./control entry, parses it, and stashes the resulting metadata for
// the ControlTar state to emit.
func (d *Decoder) openControlTar(ctx context.Context, kind container.Kind) error {
	cr, err := container.Reader(kind, d.ar)
	if err != nil {
		return &Error{Op: "Decoder.Next", Kind: ErrDecode, Message: "opening control.tar", Inner: err}
	}
	tr := tar.NewReader(cr)
	for {
		hdr, err := tr.Next()
		switch {
		case errors.Is(err, io.EOF):
			return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "control.tar missing ./control entry"}
		case err != nil:
			return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "reading control.tar", Inner: err}
		}
		if path.Clean(hdr.Name) != "control" {
			continue
		}
		stanza, err := control.Parse(tr)
		if err != nil {
			return &Error{Op: "Decoder.Next", Kind: ErrControlParse, Message: "parsing control stanza", Inner: err}
		}
		d.pendingMeta = PackageMetadata{
			Package:      stanza.Package,
			Source:       stanza.Source,
			Version:      stanza.Version,
			Architecture: stanza.Architecture,
			Depends:      stanza.Depends,
		}
		return nil
	}
}

// controlKind reports whether name is a control.tar[.ext] member this
// Decoder's Config accepts.
func (d *Decoder) controlKind(name string) (container.Kind, bool) {
	kind, ok := container.IsControlMember(name)
	if !ok {
		return kind, false
	}
	accept := d.cfg.AcceptControlCompression
	if len(accept) == 0 {
		accept = defaultControlCompression
	}
	for _, k := range accept {
		if strings.EqualFold(k, kind.String()) {
			return kind, true
		}
	}
	return kind, false
}

// defaultControlCompression is the accept-list spec §9's Open Question
// resolves to when Config.AcceptControlCompression is unset: gzip is the
// legacy mandatory case, xz and zstd are accepted because real dpkg-deb
// builds already emit them.
var defaultControlCompression = []string{"gzip", "xz", "zstd"}

// nextDataEntry drives one step of data.tar iteration: locating and
// opening the data member the first time it's called, then returning
// successive regular-file entries as FileRecords. done is true once the
// data tar stream is exhausted.
func (d *Decoder) nextDataEntry(ctx context.Context) (rec *FileRecord, done bool, err error) {
	if d.dataTar == nil {
		if err := d.openDataTar(ctx); err != nil {
			return nil, false, err
		}
	}

	hdr, terr := d.dataTar.Next()
	switch {
	case errors.Is(terr, io.EOF):
		return nil, true, nil
	case terr != nil:
		return nil, false, &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "reading data.tar", Inner: terr}
	}

	if hdr.Typeflag != tar.TypeReg {
		return nil, false, nil
	}
	if !utf8.ValidString(hdr.Name) {
		slog.WarnContext(ctx, "skipping file entry with non-UTF-8 name", "raw_name", fmt.Sprintf("%q", hdr.Name))
		return nil, false, nil
	}

	hashes, err := d.hashEntry(d.dataTar)
	if err != nil {
		return nil, false, err
	}
	return &FileRecord{Name: hdr.Name, Size: hdr.Size, Hashes: hashes}, false, nil
}

// openDataTar scans remaining ar members for data.tar[.ext]. A second
// control.tar member found along the way is a duplicate-control error;
// running out of members without finding a data member is a format error.
func (d *Decoder) openDataTar(ctx context.Context) error {
	for {
		name, err := d.ar.Next()
		switch {
		case errors.Is(err, io.EOF):
			return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "data.tar not found"}
		case err != nil:
			return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "reading ar header", Inner: err}
		}

		if kind, ok := container.IsDataMember(name); ok {
			cr, err := container.Reader(kind, d.ar)
			if err != nil {
				return &Error{Op: "Decoder.Next", Kind: ErrDecode, Message: "opening data.tar", Inner: err}
			}
			if closer, ok := cr.(io.Closer); ok {
				d.dataCloser = closer
			}
			d.dataTar = tar.NewReader(cr)
			return nil
		}
		if _, ok := container.IsControlMember(name); ok {
			return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "duplicate control file"}
		}
		slog.DebugContext(ctx, "skipping unrecognized ar member", "name", name)
	}
}

// hashEntry streams r (the current data.tar entry's body) through a fresh
// four-way MultiHash and returns whichever sub-digests survived (spec
// §4.8, §6).
func (d *Decoder) hashEntry(r io.Reader) (map[string]string, error) {
	mh := hashing.NewMultiHash(
		hashing.Pair{Name: "sha512", Hash: hashing.NewHashBlacklist(hashing.NewSHA512(), hashing.BoringSHA512)},
		hashing.Pair{Name: "gzip_sha512", Hash: hashing.NewHashBlacklist(
			hashing.NewSuppressingHash(hashing.NewDecompressedHash(newGzipDecoder, sha512.New()), anyError),
			hashing.BoringSHA512,
		)},
		hashing.Pair{Name: "png_sha512", Hash: hashing.NewSuppressingHash(image.NewPNGHash(sha512.New()), anyError)},
		hashing.Pair{Name: "gif_sha512", Hash: hashing.NewSuppressingHash(image.NewGIFHash(sha512.New()), anyError)},
	)

	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if uerr := mh.Update(buf[:n]); uerr != nil {
				mh.Finalize() // ends the sub-hashers' goroutines; the digests are discarded
				return nil, &Error{Op: "Decoder.Next", Kind: ErrDecode, Message: "hashing file entry", Inner: uerr}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			mh.Finalize() // ends the sub-hashers' goroutines; the digests are discarded
			return nil, &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "reading file entry", Inner: err}
		}
	}
	return mh.Finalize()
}

// verifyOuterHash compares the full input stream's SHA-256 against
// cfg.ExpectedOuterSHA256, if set. It first drains whatever bytes remain
// unread so the digest covers the entire stream, not just what the ar/tar
// readers happened to consume (spec §4.3, §6).
func (d *Decoder) verifyOuterHash() error {
	if d.passthrough == nil {
		return nil
	}
	if _, err := io.Copy(io.Discard, d.passthrough); err != nil {
		return &Error{Op: "Decoder.Next", Kind: ErrFormat, Message: "draining trailing bytes", Inner: err}
	}
	got := d.passthrough.HexDigest()
	if !strings.EqualFold(got, d.cfg.ExpectedOuterSHA256) {
		return &Error{
			Op: "Decoder.Next", Kind: ErrHashMismatch,
			Message: fmt.Sprintf("outer sha256 mismatch: got %s, want %s", got, d.cfg.ExpectedOuterSHA256),
		}
	}
	return nil
}

func newGzipDecoder(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }

func anyError(error) bool { return true }
