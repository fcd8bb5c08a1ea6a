package kdftls

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHash(t *testing.T) {
	for _, name := range []string{"SHA-1", "SHA2-256", "SHA2-384", "SHA2-512"} {
		h, err := ParseHash(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, HashName(h))
	}

	h, err := ParseHash(HashName(crypto.SHA512_224))
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA512_224, h)

	_, err = ParseHash("SHA2-999")
	assert.ErrorIs(t, err, ErrUnsupportedHash)

	assert.True(t, IsLegacy(crypto.SHA1))
	assert.False(t, IsLegacy(crypto.SHA256))
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{" Hello-Randoms "})
	require.NoError(t, err)
	assert.True(t, f.Has(VariantHelloRandoms))

	f, err = ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, Flags(0), f)

	_, err = ParseFlags([]string{"ems"})
	assert.Error(t, err)
}

func TestClearOutputsZeroesBuffers(t *testing.T) {
	ms := []byte{1, 2, 3}
	tc := &TestCase{MasterSecret: ms, KeyBlock: []byte{4}}
	tc.ClearOutputs()

	assert.Equal(t, []byte{0, 0, 0}, ms)
	assert.Nil(t, tc.MasterSecret)
	assert.Nil(t, tc.KeyBlock)
}

func TestValidateAcceptsEmptyKeyBlock(t *testing.T) {
	tc := &TestCase{
		PreMasterSecretBits: 8,
		PreMasterSecret:     []byte{1},
		ClientRandom:        []byte{2},
		ServerRandom:        []byte{3},
	}
	assert.NoError(t, tc.Validate())
}

func TestValidateKeyBlockLimit(t *testing.T) {
	tc := &TestCase{
		PreMasterSecretBits: 8,
		KeyBlockBits:        MaxKeyBlockBits,
		PreMasterSecret:     []byte{1},
		ClientRandom:        []byte{2},
		ServerRandom:        []byte{3},
	}
	require.NoError(t, tc.Validate())

	tc.KeyBlockBits = MaxKeyBlockBits + 8
	var verr *ValidationError
	require.ErrorAs(t, tc.Validate(), &verr)
	assert.Equal(t, "keyBlockLength", verr.Field)
}
