package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type namer interface{ Name() string }

type named string

func (n named) Name() string { return string(n) }

func TestLookupUnregistered(t *testing.T) {
	r := New(nil)

	_, err := Lookup[namer](r, "KDF-TLS")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBackend))
	assert.Contains(t, err.Error(), "no backend available")
	assert.Empty(t, r.Families())
}

func TestSetLastWriterWins(t *testing.T) {
	r := New(zaptest.NewLogger(t))

	r.Set("KDF-TLS", named("first"))
	r.Set("KDF-TLS", named("second"))

	b, err := Lookup[namer](r, "KDF-TLS")
	require.NoError(t, err)
	assert.Equal(t, "second", b.Name())
	assert.Equal(t, []Family{"KDF-TLS"}, r.Families())
}

func TestLookupWrongType(t *testing.T) {
	r := New(nil)
	r.Set("KDF-TLS", 42)

	_, err := Lookup[namer](r, "KDF-TLS")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackendType))
}

func TestFamiliesAreIndependent(t *testing.T) {
	r := New(nil)
	r.Set("SHA", named("sha"))
	r.Set("KDF-TLS", named("tls"))

	assert.Equal(t, []Family{"KDF-TLS", "SHA"}, r.Families())

	b, err := Lookup[namer](r, "SHA")
	require.NoError(t, err)
	assert.Equal(t, "sha", b.Name())
}

func TestConcurrentLookup(t *testing.T) {
	r := New(nil)
	r.Set("KDF-TLS", named("tls"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := Lookup[namer](r, "KDF-TLS")
			if err != nil || b.Name() != "tls" {
				t.Errorf("lookup: %v %v", b, err)
			}
		}()
	}
	wg.Wait()
}
