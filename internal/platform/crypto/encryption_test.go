package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewRejectsShortKeys(t *testing.T) {
	_, err := New("too-short")
	assert.Error(t, err)

	svc, err := New("")
	require.NoError(t, err)
	assert.False(t, svc.Configured())
}

func TestSealAndOpenString(t *testing.T) {
	svc, err := New(testKey)
	require.NoError(t, err)
	require.True(t, svc.Configured())

	sealed, err := svc.SealString("Great work on the roadmap.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "roadmap")

	again, err := svc.SealString("Great work on the roadmap.")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")

	plain, err := svc.OpenString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "Great work on the roadmap.", plain)
}

func TestOpenStringPassesPlainValuesThrough(t *testing.T) {
	svc, err := New(testKey)
	require.NoError(t, err)
	plain, err := svc.OpenString("written before encryption")
	require.NoError(t, err)
	assert.Equal(t, "written before encryption", plain)
}

func TestOpenStringFailures(t *testing.T) {
	keyed, err := New(testKey)
	require.NoError(t, err)
	sealed, err := keyed.SealString("secret")
	require.NoError(t, err)

	unkeyed, err := New("")
	require.NoError(t, err)
	_, err = unkeyed.OpenString(sealed)
	assert.Error(t, err)

	other, err := New(strings.Repeat("ab", 32))
	require.NoError(t, err)
	_, err = other.OpenString(sealed)
	assert.Error(t, err)

	_, err = keyed.OpenString(sealedPrefix + "AAAA")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestUnkeyedServiceLeavesValuesPlain(t *testing.T) {
	svc, err := New("")
	require.NoError(t, err)
	sealed, err := svc.SealString("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", sealed)
}
