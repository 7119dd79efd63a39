package dedup

// Config carries the runtime configuration a caller may supply to a
// [Decoder]. The zero value is ready to use and verifies nothing.
//
// See spec §6.
type Config struct {
	// ExpectedOuterSHA256, if non-empty, must be the lowercase hex SHA-256
	// digest of the entire input stream. When set, the commit record is
	// withheld until the whole stream has been consumed and the digests
	// match; a mismatch surfaces as an *Error with Kind [ErrHashMismatch]
	// and no commit record is ever produced.
	ExpectedOuterSHA256 string

	// AcceptControlCompression overrides the set of compression kinds
	// accepted for the control.tar member. The zero value accepts
	// gzip, xz, and zstd (see spec §9's Open Question).
	AcceptControlCompression []string
}
