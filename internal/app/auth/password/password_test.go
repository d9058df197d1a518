package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewFastHasher("pepper")

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	require.NotContains(t, hash, "secret1")

	require.True(t, h.Verify("secret1", hash))
	require.False(t, h.Verify("secret2", hash))
}

func TestHasher_SaltedPerRecord(t *testing.T) {
	h := NewFastHasher("")

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHasher_PepperMatters(t *testing.T) {
	hash, err := NewFastHasher("one").Hash("secret1")
	require.NoError(t, err)

	require.False(t, NewFastHasher("two").Verify("secret1", hash))
}

func TestHasher_MalformedHash(t *testing.T) {
	h := NewFastHasher("pepper")
	require.False(t, h.Verify("secret1", ""))
	require.False(t, h.Verify("secret1", "not-a-hash"))
}

func TestHasher_DefaultParams(t *testing.T) {
	h := NewHasher("pepper")
	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	require.Contains(t, hash, "m=65536,t=2,p=4")
	require.True(t, h.Verify("secret1", hash))
}
