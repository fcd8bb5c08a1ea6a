package kdftls

import (
	"fmt"
	"strings"

	"acvp-tlskdf/registry"
)

// Family is the registry slot used for TLS PRF backends.
const Family registry.Family = "KDF-TLS"

// Flags is an opaque bit set handed from the flag parser to the backend. The
// dispatcher passes it through untouched.
type Flags uint64

const (
	// VariantHelloRandoms derives the master secret from the hello randoms
	// instead of ClientRandom and ServerRandom. ACVP kdf-components/tls
	// vectors use this layout.
	VariantHelloRandoms Flags = 1 << iota
)

var flagNames = map[string]Flags{
	"hello-randoms": VariantHelloRandoms,
}

// ParseFlags converts flag names to a Flags value.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		bit, ok := flagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", name)
		}
		f |= bit
	}
	return f, nil
}

// Has reports whether all bits of v are set in f.
func (f Flags) Has(v Flags) bool { return f&v == v }

// Backend computes the TLS PRF for one test case.
//
// DeriveTLS reads the input fields of tc and fills tc.MasterSecret and
// tc.KeyBlock, which arrive already sized. On error the outputs must not be
// mistaken for a result; the dispatcher clears them regardless.
type Backend interface {
	DeriveTLS(tc *TestCase, flags Flags) error
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(tc *TestCase, flags Flags) error

func (f BackendFunc) DeriveTLS(tc *TestCase, flags Flags) error { return f(tc, flags) }

// Register installs b as the active TLS PRF backend in r. A later call
// replaces it.
func Register(r *registry.Registry, b Backend) {
	r.Set(Family, b)
}
