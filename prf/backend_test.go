package prf

import (
	"crypto"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acvp-tlskdf/kdftls"
)

// newCase returns a record with outputs sized the way the dispatcher sizes them.
func newCase(h crypto.Hash, pms, clientRandom, serverRandom []byte, keyBlockBits uint32) *kdftls.TestCase {
	tc := &kdftls.TestCase{
		Hash:                h,
		PreMasterSecretBits: uint32(8 * len(pms)),
		KeyBlockBits:        keyBlockBits,
		ClientRandom:        clientRandom,
		ServerRandom:        serverRandom,
		PreMasterSecret:     pms,
	}
	tc.MasterSecret = make([]byte, tc.MasterSecretLen())
	tc.KeyBlock = make([]byte, tc.KeyBlockLen())
	return tc
}

func TestDeriveTLSZeroInputs(t *testing.T) {
	testCases := []struct {
		hash         crypto.Hash
		masterSecret string
		keyBlock     string
	}{
		{
			hash:         crypto.SHA256,
			masterSecret: "49cfaee55b8692d3bb6dd6ee6b536f2f17afbc8418094763bcb5bed6b005adf888d060e48c5eb2266c73cb1a3d2d4b68",
			keyBlock:     "3a236afda31f99fa44661746887e0ab61f1f783f51c4932f140d1d80b41a23f5957b91f119fec17c",
		},
		{
			hash:         crypto.SHA384,
			masterSecret: "564743f649871bb6db081be216c970f4fe8670a595f3ded1ca706da437fc22c1cf819a87b14cb2a2b888de103081b39c",
			keyBlock:     "c067e783108e9a594b7c3514ba7d053b09f0bb98b377a12f9ec807b43075d4d762317dc3ba5d3b0b",
		},
		{
			hash:         crypto.SHA512,
			masterSecret: "655dd63d78ce0d439e8da1414120abdca17a919b42051c2839a95c5f44b7157a4cd7b2e8f80ddb85f2428e44d6d3339a",
			keyBlock:     "89103f951152b3269cf272dcc0f0f2323ae2be1a20a8016103b1b30a3c5aba5a089fe3f41eaf913a",
		},
		{
			hash:         crypto.SHA1,
			masterSecret: "1c2881baf424f1f84932b93afb9f0ef76ef68dc6c10a2f05b3a81898415164228b97d04dece80cc2897bc02e45db9fb6",
			keyBlock:     "44fffdc458a265af7442b4ee8579497f1a7b4009d0c8e426d9f8715a5eb8b27bf5e57a11feb69af1",
		},
	}

	for _, tc := range testCases {
		t.Run(kdftls.HashName(tc.hash), func(t *testing.T) {
			rec := newCase(tc.hash, make([]byte, 48), make([]byte, 32), make([]byte, 32), 320)

			require.NoError(t, New().DeriveTLS(rec, 0))
			assert.Len(t, rec.MasterSecret, 48)
			assert.Len(t, rec.KeyBlock, 40)
			assert.Equal(t, tc.masterSecret, hex.EncodeToString(rec.MasterSecret))
			assert.Equal(t, tc.keyBlock, hex.EncodeToString(rec.KeyBlock))
		})
	}
}

func TestDeriveTLSHashSelectsPRF(t *testing.T) {
	pms := make([]byte, 48)
	for i := range pms {
		pms[i] = byte(i)
	}
	cr, sr := make([]byte, 32), make([]byte, 32)
	cr[0], sr[0] = 1, 2

	a := newCase(crypto.SHA256, pms, cr, sr, 256)
	b := newCase(crypto.SHA384, pms, cr, sr, 256)
	require.NoError(t, New().DeriveTLS(a, 0))
	require.NoError(t, New().DeriveTLS(b, 0))

	assert.NotEqual(t, a.MasterSecret, b.MasterSecret)
	assert.NotEqual(t, a.KeyBlock, b.KeyBlock)
}

func TestDeriveTLSRandomOrder(t *testing.T) {
	pms := make([]byte, 48)
	cr, sr := make([]byte, 32), make([]byte, 32)
	cr[31], sr[0] = 0xaa, 0x55

	a := newCase(crypto.SHA256, pms, cr, sr, 128)
	b := newCase(crypto.SHA256, pms, sr, cr, 128)
	require.NoError(t, New().DeriveTLS(a, 0))
	require.NoError(t, New().DeriveTLS(b, 0))

	assert.NotEqual(t, a.MasterSecret, b.MasterSecret)
}

func TestDeriveTLSLegacyDeterministic(t *testing.T) {
	pms := []byte("an odd length pre-master secret")
	cr, sr := []byte("client random"), []byte("server random")

	a := newCase(crypto.SHA1, pms, cr, sr, 104)
	b := newCase(crypto.SHA1, pms, cr, sr, 104)
	require.NoError(t, New().DeriveTLS(a, 0))
	require.NoError(t, New().DeriveTLS(b, 0))

	assert.Len(t, a.MasterSecret, len(pms))
	assert.Len(t, a.KeyBlock, 13)
	assert.Equal(t, a.MasterSecret, b.MasterSecret)
	assert.Equal(t, a.KeyBlock, b.KeyBlock)
}

func TestDeriveTLSHelloRandoms(t *testing.T) {
	pms := make([]byte, 48)
	cr, sr := make([]byte, 32), make([]byte, 32)
	chr, shr := make([]byte, 32), make([]byte, 32)
	chr[0] = 9

	plain := newCase(crypto.SHA256, pms, cr, sr, 128)
	require.NoError(t, New().DeriveTLS(plain, 0))

	hello := newCase(crypto.SHA256, pms, cr, sr, 128)
	hello.ClientHelloRandom, hello.ServerHelloRandom = chr, shr
	require.NoError(t, New().DeriveTLS(hello, kdftls.VariantHelloRandoms))
	assert.NotEqual(t, plain.MasterSecret, hello.MasterSecret)

	missing := newCase(crypto.SHA256, pms, cr, sr, 128)
	err := New().DeriveTLS(missing, kdftls.VariantHelloRandoms)
	assert.ErrorIs(t, err, kdftls.ErrInvalidInput)
}

func TestDeriveTLSErrors(t *testing.T) {
	rec := newCase(crypto.MD5, make([]byte, 48), make([]byte, 32), make([]byte, 32), 128)
	assert.ErrorIs(t, New().DeriveTLS(rec, 0), kdftls.ErrUnsupportedHash)

	rec = newCase(crypto.SHA256, make([]byte, 48), make([]byte, 32), make([]byte, 32), 128)
	rec.KeyBlock = rec.KeyBlock[:3]
	assert.ErrorIs(t, New().DeriveTLS(rec, 0), kdftls.ErrInvalidInput)
}
