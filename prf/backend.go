package prf

import (
	"crypto"
	_ "crypto/sha256" // register SHA-224 and SHA-256
	_ "crypto/sha512" // register the SHA-384 and SHA-512 variants
	"fmt"

	"acvp-tlskdf/kdftls"
)

// Backend computes TLS PRF test cases in process. The zero value is ready to
// use and safe for concurrent calls.
type Backend struct{}

var _ kdftls.Backend = (*Backend)(nil)

// New returns a Backend.
func New() *Backend { return &Backend{} }

// Hashes lists the hash selectors this backend serves, legacy first.
func Hashes() []crypto.Hash {
	return []crypto.Hash{
		crypto.SHA1,
		crypto.SHA224, crypto.SHA256, crypto.SHA384, crypto.SHA512,
		crypto.SHA512_224, crypto.SHA512_256,
	}
}

func prfFor(h crypto.Hash) (func(result, secret, label, seed []byte), error) {
	switch h {
	case crypto.SHA1:
		return PRF10, nil
	case crypto.SHA224, crypto.SHA256, crypto.SHA384, crypto.SHA512,
		crypto.SHA512_224, crypto.SHA512_256:
		if !h.Available() {
			return nil, fmt.Errorf("%w: %s not linked", kdftls.ErrUnsupportedHash, kdftls.HashName(h))
		}
		return func(result, secret, label, seed []byte) {
			PRF12(h.New, result, secret, label, seed)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", kdftls.ErrUnsupportedHash, kdftls.HashName(h))
	}
}

// DeriveTLS fills tc.MasterSecret and tc.KeyBlock.
//
//	master_secret = PRF(pre_master_secret, "master secret", client_random + server_random)
//	key_block     = PRF(master_secret, "key expansion", server_random + client_random)
//
// With kdftls.VariantHelloRandoms the master secret seed uses the hello
// randoms instead.
func (b *Backend) DeriveTLS(tc *kdftls.TestCase, flags kdftls.Flags) error {
	prf, err := prfFor(tc.Hash)
	if err != nil {
		return err
	}

	if len(tc.MasterSecret) != tc.MasterSecretLen() {
		return &kdftls.ValidationError{Field: "masterSecret", Reason: "output buffer not sized to the pre-master secret"}
	}
	if len(tc.KeyBlock) != tc.KeyBlockLen() {
		return &kdftls.ValidationError{Field: "keyBlock", Reason: "output buffer not sized to the key block length"}
	}

	clientRandom, serverRandom := tc.ClientRandom, tc.ServerRandom
	if flags.Has(kdftls.VariantHelloRandoms) {
		if len(tc.ClientHelloRandom) == 0 || len(tc.ServerHelloRandom) == 0 {
			return &kdftls.ValidationError{Field: "helloRandom", Reason: "required by the hello-randoms variant"}
		}
		clientRandom, serverRandom = tc.ClientHelloRandom, tc.ServerHelloRandom
	}

	seed := make([]byte, 0, len(clientRandom)+len(serverRandom))
	seed = append(seed, clientRandom...)
	seed = append(seed, serverRandom...)
	prf(tc.MasterSecret, tc.PreMasterSecret, []byte(kdftls.MasterSecretLabel), seed)

	// Note: for key derivation, we use server_random + client_random (opposite order from master secret)
	seed = append(seed[:0], tc.ServerRandom...)
	seed = append(seed, tc.ClientRandom...)
	prf(tc.KeyBlock, tc.MasterSecret, []byte(kdftls.KeyBlockLabel), seed)

	return nil
}
