package ar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"
)

// writeMember appends one ar member (header + body + pad) to buf, mimicking
// what ar(1)/dpkg-deb would produce.
func writeMember(buf *bytes.Buffer, name string, body []byte) {
	hdr := make([]byte, headerSize)
	copy(hdr, fmt.Sprintf("%-16s", name))
	copy(hdr[16:28], fmt.Sprintf("%-12d", 0))  // mtime
	copy(hdr[28:34], fmt.Sprintf("%-6d", 0))   // uid
	copy(hdr[34:40], fmt.Sprintf("%-6d", 0))   // gid
	copy(hdr[40:48], fmt.Sprintf("%-8d", 100)) // mode
	copy(hdr[48:58], fmt.Sprintf("%-10d", len(body)))
	copy(hdr[58:60], "`\n")
	buf.Write(hdr)
	buf.Write(body)
	if len(body)%2 != 0 {
		buf.WriteByte('\n')
	}
}

func newArchive(members map[string][]byte, order []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	for _, n := range order {
		writeMember(&buf, n, members[n])
	}
	return buf.Bytes()
}

func TestReaderBasic(t *testing.T) {
	data := newArchive(map[string][]byte{
		"debian-binary": []byte("2.0\n"),
		"control.tar.gz": []byte("ctrl-body"),
		"data.tar.gz":    []byte("data-body!"),
	}, []string{"debian-binary", "control.tar.gz", "data.tar.gz"})

	r := NewReader(bytes.NewReader(data))
	var got []string
	for {
		name, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, name)
		body, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("reading body of %q: %v", name, err)
		}
		t.Logf("%s: %q", name, body)
	}
	want := []string{"debian-binary", "control.tar.gz", "data.tar.gz"}
	if len(got) != len(want) {
		t.Fatalf("got %v members, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("member %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReaderSkipsUnreadBody(t *testing.T) {
	data := newArchive(map[string][]byte{
		"a": []byte("odd"), // odd length forces a pad byte
		"b": []byte("second"),
	}, []string{"a", "b"})

	r := NewReader(bytes.NewReader(data))
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	// Deliberately don't read "a"'s body; Next must skip body + pad.
	name, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if name != "b" {
		t.Fatalf("got %q, want %q", name, "b")
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("got %q", got)
	}
}

func TestReaderTrailingSlashStripped(t *testing.T) {
	data := newArchive(map[string][]byte{"name/": []byte("x")}, []string{"name/"})
	r := NewReader(bytes.NewReader(data))
	name, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if name != "name" {
		t.Errorf("got %q, want %q", name, "name")
	}
}

func TestReaderBadMagic(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("not an archive header")))
	_, err := r.Next()
	if !errors.Is(err, ErrFormat) {
		t.Errorf("got %v, want ErrFormat", err)
	}
}

func TestReaderTruncatedHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteString("short")
	r := NewReader(&buf)
	_, err := r.Next()
	if !errors.Is(err, ErrFormat) {
		t.Errorf("got %v, want ErrFormat", err)
	}
}

func TestReaderBadSize(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	hdr := make([]byte, headerSize)
	copy(hdr, fmt.Sprintf("%-16s", "bogus"))
	copy(hdr[48:58], "not-a-size")
	copy(hdr[58:60], "`\n")
	buf.Write(hdr)
	r := NewReader(&buf)
	_, err := r.Next()
	if !errors.Is(err, ErrFormat) {
		t.Errorf("got %v, want ErrFormat", err)
	}
}

func TestReaderEmptyArchive(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	r := NewReader(&buf)
	_, err := r.Next()
	if !errors.Is(err, io.EOF) {
		t.Errorf("got %v, want io.EOF", err)
	}
}
