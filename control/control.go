// Package control parses the single RFC822/MIME-header-shaped stanza
// found in a Debian binary package's ./control file.
//
// This reuses the same grammar and the same stdlib idiom this codebase
// already uses for the structurally identical dpkg status database:
// bufio.Reader feeding a net/textproto.Reader's ReadMIMEHeader.
//
// This package is deliberately leaf-level: it knows nothing about the
// root dedup package's record or error types, so that dedup (which calls
// Parse) and control never import each other.
package control

import (
	"bufio"
	"fmt"
	"io"
	"net/textproto"
	"sort"
	"strings"
	"unicode"
)

// Stanza holds the fields Parse extracts from a control file. The caller
// is responsible for turning it into whatever record type it exposes.
type Stanza struct {
	Package      string
	Source       string
	Version      string
	Architecture string
	Depends      []string
}

// ParseError reports why a control stanza failed to parse. Callers that
// want to fold this into a richer error domain can match on it with
// errors.As.
type ParseError struct {
	Message string
	Inner   error
}

func (e *ParseError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("control: %s: %v", e.Message, e.Inner)
	}
	return fmt.Sprintf("control: %s", e.Message)
}

func (e *ParseError) Unwrap() error { return e.Inner }

// Parse reads a single control stanza from r.
func Parse(r io.Reader) (Stanza, error) {
	tp := textproto.NewReader(bufio.NewReader(r))
	hdr, err := tp.ReadMIMEHeader()
	if err != nil && len(hdr) == 0 {
		return Stanza{}, &ParseError{Message: "reading control stanza", Inner: err}
	}

	name := hdr.Get("Package")
	version := hdr.Get("Version")
	arch := hdr.Get("Architecture")
	for field, v := range map[string]string{"Package": name, "Version": version, "Architecture": arch} {
		if v == "" {
			return Stanza{}, &ParseError{Message: fmt.Sprintf("missing required field %q", field)}
		}
		if !isASCII(v) {
			return Stanza{}, &ParseError{Message: fmt.Sprintf("field %q contains non-ASCII bytes", field)}
		}
	}

	source := name
	if s := hdr.Get("Source"); s != "" {
		fields := strings.Fields(s)
		source = fields[0]
	}

	return Stanza{
		Package:      name,
		Source:       source,
		Version:      version,
		Architecture: arch,
		Depends:      parseDepends(hdr.Get("Depends")),
	}, nil
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// parseDepends splits a Depends field on top-level commas, then each
// clause on "|". Only clauses with a single alternative contribute,
// version constraints in parens stripped; alternations are dropped
// entirely, since no single package name can represent the clause.
// Results are sorted and de-duplicated.
func parseDepends(field string) []string {
	if field == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, clause := range strings.Split(field, ",") {
		alts := strings.Split(clause, "|")
		if len(alts) != 1 {
			continue
		}
		name := stripConstraint(alts[0])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// stripConstraint trims a "name (constraint)" clause down to name.
func stripConstraint(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i != -1 {
		s = strings.TrimSpace(s[:i])
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
