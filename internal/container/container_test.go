package container

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"
)

func TestKindByMemberName(t *testing.T) {
	tt := []struct {
		name string
		base string
		want Kind
		ok   bool
	}{
		{"data.tar", "data.tar", Identity, true},
		{"data.tar.gz", "data.tar", Gzip, true},
		{"data.tar.bz2", "data.tar", Bzip2, true},
		{"data.tar.xz", "data.tar", XZ, true},
		{"data.tar.zst", "data.tar", Zstd, true},
		{"control.tar.zst", "control.tar", Zstd, true},
		{"data.tar.foo", "data.tar", Identity, false},
		{"control.tar.gz", "data.tar", Identity, false},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := KindByMemberName(tc.base, tc.name)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("kind = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReaderGzipRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	want := []byte("hello\n")
	if _, err := gw.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Reader(Gzip, &buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReaderIdentity(t *testing.T) {
	r, err := Reader(Identity, bytes.NewBufferString("abc"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Errorf("got %q", got)
	}
}
