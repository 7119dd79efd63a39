package dedup

import "encoding/hex"

// validHexDigest reports whether s is a well-formed lowercase hexadecimal
// digest of the given byte length (0 to accept any even-length hex string).
//
// This module never persists a Digest value the way claircore's root
// package does (no database, no [database/sql/driver.Valuer]); an expected
// outer hash arrives as a bare hex string and is compared against one
// computed locally, so a predicate is all §6 needs.
func validHexDigest(s string, size int) bool {
	if size > 0 && len(s) != hex.EncodedLen(size) {
		return false
	}
	if len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return len(s) > 0
}
