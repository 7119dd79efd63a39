package hashing

import (
	"bytes"
	"compress/gzip"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"testing"
)

func sha512Hex(b []byte) string {
	sum := sha512.Sum512(b)
	return hex.EncodeToString(sum[:])
}

func TestRawHash(t *testing.T) {
	h := NewSHA512()
	if err := h.Update([]byte("hello\n")); err != nil {
		t.Fatal(err)
	}
	got, err := h.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if want := sha512Hex([]byte("hello\n")); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestHashedPassthrough(t *testing.T) {
	data := []byte("the quick brown fox")
	hp := NewHashedPassthrough(bytes.NewReader(data), sha512.New())
	got, err := io.ReadAll(hp)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("read mismatch")
	}
	if want := sha512Hex(data); hp.HexDigest() != want {
		t.Errorf("got %s, want %s", hp.HexDigest(), want)
	}
}

func TestHashBlacklist(t *testing.T) {
	tt := []struct {
		name  string
		input []byte
		want  string
	}{
		{"empty", nil, ""},
		{"newline", []byte("\n"), ""},
		{"other", []byte("hello\n"), sha512Hex([]byte("hello\n"))},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHashBlacklist(NewSHA512(), BoringSHA512)
			if err := h.Update(tc.input); err != nil {
				t.Fatal(err)
			}
			got, err := h.Finalize()
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

var errBoom = errors.New("boom")

type failingHasher struct {
	failOn int // fail on this Update call, or on Finalize if < 0
	calls  int
}

func (f *failingHasher) Update(p []byte) error {
	f.calls++
	if f.calls == f.failOn {
		return errBoom
	}
	return nil
}

func (f *failingHasher) Finalize() (string, error) {
	if f.failOn < 0 {
		return "", errBoom
	}
	return "deadbeef", nil
}

func TestSuppressingHashAbsorbsExpected(t *testing.T) {
	s := NewSuppressingHash(&failingHasher{failOn: 1}, func(err error) bool {
		return errors.Is(err, errBoom)
	})
	if err := s.Update([]byte("x")); err != nil {
		t.Fatalf("expected absorbed error, got %v", err)
	}
	got, err := s.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q, want empty digest", got)
	}
}

func TestSuppressingHashPropagatesUnexpected(t *testing.T) {
	s := NewSuppressingHash(&failingHasher{failOn: 1}, func(error) bool { return false })
	if err := s.Update([]byte("x")); !errors.Is(err, errBoom) {
		t.Errorf("got %v, want errBoom", err)
	}
}

func TestMultiHashDropsEmptyDigests(t *testing.T) {
	m := NewMultiHash(
		Pair{Name: "raw", Hash: NewHashBlacklist(NewSHA512(), BoringSHA512)},
		Pair{Name: "always_fails", Hash: NewSuppressingHash(&failingHasher{failOn: 1}, func(error) bool { return true })},
	)
	if err := m.Update([]byte("\n")); err != nil {
		t.Fatal(err)
	}
	got, err := m.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty map (raw blacklisted, always_fails suppressed)", got)
	}
}

func gzipBytes(t *testing.T, level int, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newGzipDecoder(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

func TestDecompressedHashLevelInvariant(t *testing.T) {
	payload := bytes.Repeat([]byte("claircore dedup hashing "), 64)
	var digests []string
	for _, level := range []int{gzip.BestSpeed, gzip.DefaultCompression, gzip.BestCompression} {
		raw := gzipBytes(t, level, payload)
		dh := NewDecompressedHash(newGzipDecoder, sha512.New())
		if err := dh.Update(raw); err != nil {
			t.Fatalf("level %d: update: %v", level, err)
		}
		d, err := dh.Finalize()
		if err != nil {
			t.Fatalf("level %d: finalize: %v", level, err)
		}
		digests = append(digests, d)
	}
	for i := 1; i < len(digests); i++ {
		if digests[i] != digests[0] {
			t.Errorf("digest %d (%s) differs from digest 0 (%s)", i, digests[i], digests[0])
		}
	}
	if digests[0] != sha512Hex(payload) {
		t.Errorf("canonicalized digest %s does not match raw payload digest", digests[0])
	}
}

func TestDecompressedHashSuppressesBadGzip(t *testing.T) {
	dh := NewDecompressedHash(newGzipDecoder, sha512.New())
	s := NewSuppressingHash(dh, func(err error) bool {
		return err != nil // any decode failure here is "expected" for this test
	})
	if err := s.Update([]byte("not gzip data at all")); err != nil {
		t.Fatalf("expected absorbed error from Update, got %v", err)
	}
	got, err := s.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q, want empty digest", got)
	}
}
