// Package prf implements the TLS 1.0/1.1 and TLS 1.2 pseudo-random functions
// and a kdftls backend built on them.
package prf

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"hash"
)

// TLS PRF Implementation
// Based on RFC 2246 and RFC 5246 Section 5 - HMAC and the Pseudorandom Function

// pHash implements the P_hash function and fills result with its output.
// P_hash(secret, seed) = HMAC_hash(secret, A(1) + seed) +
//
//	HMAC_hash(secret, A(2) + seed) +
//	HMAC_hash(secret, A(3) + seed) + ...
//
// where A(0) = seed
//
//	A(i) = HMAC_hash(secret, A(i-1))
func pHash(hashFunc func() hash.Hash, result, secret, seed []byte) {
	h := hmac.New(hashFunc, secret)
	h.Write(seed)
	a := h.Sum(nil) // A(1)

	for j := 0; j < len(result); {
		h.Reset()
		h.Write(a)
		h.Write(seed)
		b := h.Sum(nil)
		j += copy(result[j:], b)

		// Calculate A(i+1)
		h.Reset()
		h.Write(a)
		a = h.Sum(a[:0])
	}
}

// splitSecret splits a secret in two overlapping halves as specified in
// RFC 2246, section 5. For odd lengths the middle byte is shared.
func splitSecret(secret []byte) (s1, s2 []byte) {
	s1 = secret[0 : (len(secret)+1)/2]
	s2 = secret[len(secret)/2:]
	return
}

func labelSeed(label, seed []byte) []byte {
	ls := make([]byte, len(label)+len(seed))
	copy(ls, label)
	copy(ls[len(label):], seed)
	return ls
}

// PRF10 implements the TLS 1.0/1.1 PRF and fills result:
// PRF(secret, label, seed) = P_MD5(S1, label + seed) XOR P_SHA-1(S2, label + seed)
func PRF10(result, secret, label, seed []byte) {
	ls := labelSeed(label, seed)
	s1, s2 := splitSecret(secret)

	pHash(md5.New, result, s1, ls)
	result2 := make([]byte, len(result))
	pHash(sha1.New, result2, s2, ls)

	for i, b := range result2 {
		result[i] ^= b
	}
}

// PRF12 implements the TLS 1.2 PRF with the given hash and fills result:
// PRF(secret, label, seed) = P_<hash>(secret, label + seed)
func PRF12(hashFunc func() hash.Hash, result, secret, label, seed []byte) {
	pHash(hashFunc, result, secret, labelSeed(label, seed))
}
