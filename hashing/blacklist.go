package hashing

// BoringSHA512 holds the SHA-512 hex digests of content too common to be
// worth recording in a cross-package index: the empty byte sequence and a
// single newline. Reporting these would flood the index with matches that
// carry no information about shared content (spec §4.6, §9).
var BoringSHA512 = map[string]struct{}{
	// SHA-512("")
	"cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e": {},
	// SHA-512("\n")
	"be688838ca8686e5c90689bf2ab585cef1137c999b48c70b92f67a5c34dc15697b5d11c982ed6d71be1e1e7f7b4e0733884aa97c3f7a339a8ed03577cf74be09": {},
}

// HashBlacklist wraps a Hasher, delegating Update unchanged; at Finalize
// time, if the computed digest is a member of blacklist, it reports ("",
// nil) instead (spec §4.6).
type HashBlacklist struct {
	inner     Hasher
	blacklist map[string]struct{}
}

// NewHashBlacklist wraps inner against blacklist.
func NewHashBlacklist(inner Hasher, blacklist map[string]struct{}) *HashBlacklist {
	return &HashBlacklist{inner: inner, blacklist: blacklist}
}

// Update implements Hasher.
func (b *HashBlacklist) Update(p []byte) error { return b.inner.Update(p) }

// Finalize implements Hasher.
func (b *HashBlacklist) Finalize() (string, error) {
	d, err := b.inner.Finalize()
	if err != nil || d == "" {
		return d, err
	}
	if _, boring := b.blacklist[d]; boring {
		return "", nil
	}
	return d, nil
}
