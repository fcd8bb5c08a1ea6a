// Package kdftls defines the record exchanged with TLS PRF backends, the
// backend contract, and the dispatcher that routes test cases to whichever
// backend is registered for the KDF-TLS family.
//
// The package performs no cryptography itself.
package kdftls

import (
	"crypto"
	"fmt"
)

// Labels fixed by RFC 2246 and RFC 5246
const (
	MasterSecretLabel = "master secret"
	KeyBlockLabel     = "key expansion"
)

// TestCase carries the inputs and outputs of one TLS PRF test vector.
//
// Hash selects the PRF: crypto.SHA1 means the TLS 1.0/1.1 PRF that combines
// MD5 and SHA-1, any SHA-2 hash means the TLS 1.2 PRF built on that hash.
//
// MasterSecret and KeyBlock are outputs. The dispatcher sizes them before the
// backend runs; the backend writes into them and keeps no reference to any
// field once it returns.
type TestCase struct {
	ID   uint64
	Hash crypto.Hash

	// PreMasterSecretBits is informational; the authoritative length is
	// len(PreMasterSecret). Validate rejects a mismatch.
	PreMasterSecretBits uint32
	KeyBlockBits        uint32

	ClientHelloRandom []byte
	ServerHelloRandom []byte
	ClientRandom      []byte
	ServerRandom      []byte
	PreMasterSecret   []byte

	MasterSecret []byte
	KeyBlock     []byte
}

// MaxKeyBlockBits bounds KeyBlockBits. ACVP asks for at most 1024 bits.
const MaxKeyBlockBits = 1 << 16

// MasterSecretLen is the required length of MasterSecret in bytes.
func (tc *TestCase) MasterSecretLen() int { return len(tc.PreMasterSecret) }

// KeyBlockLen is the required length of KeyBlock in bytes.
func (tc *TestCase) KeyBlockLen() int { return int(tc.KeyBlockBits / 8) }

// Validate checks the record before it is handed to a backend. It never
// modifies the record.
func (tc *TestCase) Validate() error {
	if len(tc.PreMasterSecret) == 0 {
		return &ValidationError{Field: "preMasterSecret", Reason: "empty"}
	}
	if uint64(tc.PreMasterSecretBits) != 8*uint64(len(tc.PreMasterSecret)) {
		return &ValidationError{
			Field:  "preMasterSecretLength",
			Reason: fmt.Sprintf("%d bits declared, %d bytes supplied", tc.PreMasterSecretBits, len(tc.PreMasterSecret)),
		}
	}
	if tc.KeyBlockBits > MaxKeyBlockBits {
		return &ValidationError{
			Field:  "keyBlockLength",
			Reason: fmt.Sprintf("%d bits exceeds the %d bit limit", tc.KeyBlockBits, MaxKeyBlockBits),
		}
	}
	if tc.KeyBlockBits%8 != 0 {
		return &ValidationError{
			Field:  "keyBlockLength",
			Reason: fmt.Sprintf("%d bits is not a whole number of bytes", tc.KeyBlockBits),
		}
	}
	if len(tc.ClientRandom) == 0 {
		return &ValidationError{Field: "clientRandom", Reason: "empty"}
	}
	if len(tc.ServerRandom) == 0 {
		return &ValidationError{Field: "serverRandom", Reason: "empty"}
	}
	return nil
}

// ClearOutputs zeroes and drops both output buffers.
func (tc *TestCase) ClearOutputs() {
	clear(tc.MasterSecret)
	clear(tc.KeyBlock)
	tc.MasterSecret = nil
	tc.KeyBlock = nil
}

var hashNames = []struct {
	hash crypto.Hash
	name string
}{
	{crypto.SHA1, "SHA-1"},
	{crypto.SHA224, "SHA2-224"},
	{crypto.SHA256, "SHA2-256"},
	{crypto.SHA384, "SHA2-384"},
	{crypto.SHA512, "SHA2-512"},
}

// ParseHash maps an ACVP hash name such as "SHA2-256" to a crypto.Hash. Names
// produced by HashName for hashes outside ACVP are accepted too.
func ParseHash(name string) (crypto.Hash, error) {
	for _, h := range hashNames {
		if h.name == name {
			return h.hash, nil
		}
	}
	for h := crypto.MD4; h <= crypto.BLAKE2b_512; h++ {
		if h.String() == name {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedHash, name)
}

// HashName returns the ACVP name of h, or h.String() for hashes ACVP does not
// name.
func HashName(h crypto.Hash) string {
	for _, n := range hashNames {
		if n.hash == h {
			return n.name
		}
	}
	return h.String()
}

// IsLegacy reports whether h selects the TLS 1.0/1.1 PRF.
func IsLegacy(h crypto.Hash) bool { return h == crypto.SHA1 }
