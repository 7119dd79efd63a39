package hashing

// SuppressingHash wraps a Hasher so that an expected error disables it
// instead of aborting the whole MultiHash: once Update or Finalize
// observes an error matched by expected, the wrapper is permanently
// poisoned — further Update calls are no-ops and Finalize returns ("",
// nil). Any other error propagates unchanged (spec §4.5).
type SuppressingHash struct {
	inner    Hasher
	expected func(error) bool
	poisoned bool
}

// NewSuppressingHash wraps inner. expected reports whether an error is one
// this wrapper should absorb rather than propagate.
func NewSuppressingHash(inner Hasher, expected func(error) bool) *SuppressingHash {
	return &SuppressingHash{inner: inner, expected: expected}
}

// Update implements Hasher.
func (s *SuppressingHash) Update(p []byte) error {
	if s.poisoned {
		return nil
	}
	if err := s.inner.Update(p); err != nil {
		if s.expected(err) {
			s.poisoned = true
			return nil
		}
		return err
	}
	return nil
}

// Finalize implements Hasher.
func (s *SuppressingHash) Finalize() (string, error) {
	if s.poisoned {
		return "", nil
	}
	d, err := s.inner.Finalize()
	if err != nil {
		if s.expected(err) {
			s.poisoned = true
			return "", nil
		}
		return "", err
	}
	return d, nil
}
