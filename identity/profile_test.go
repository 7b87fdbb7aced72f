package identity

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProfileFromHex(t *testing.T) {
	p := NewProfile()

	restored, err := NewProfileFromHex(p.SecretKeyHex())
	require.NoError(t, err)

	a, err := p.PublicKeyHash()
	require.NoError(t, err)
	b, err := restored.PublicKeyHash()
	require.NoError(t, err)
	require.Zero(t, a.Cmp(b))
}

func TestNewProfileFromHex_Invalid(t *testing.T) {
	_, err := NewProfileFromHex("zz")
	require.Error(t, err)

	_, err = NewProfileFromHex("abcd")
	require.Error(t, err)
	require.Contains(t, err.Error(), "32 bytes")
}

func TestPublicKeyHashHex(t *testing.T) {
	p := NewProfile()

	h, err := p.PublicKeyHashHex()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(h, "0x"))
	require.Len(t, h, 66)
}

func TestEventNullifier(t *testing.T) {
	p := NewProfile()
	eventID := big.NewInt(100500)

	a, err := p.EventNullifier(eventID)
	require.NoError(t, err)

	b, err := p.EventNullifier(eventID)
	require.NoError(t, err)
	require.Zero(t, a.Cmp(b))

	// A different event yields a different pseudonym.
	c, err := p.EventNullifier(big.NewInt(100501))
	require.NoError(t, err)
	require.NotZero(t, a.Cmp(c))

	// And so does a different profile.
	other, err := NewProfile().EventNullifier(eventID)
	require.NoError(t, err)
	require.NotZero(t, a.Cmp(other))
}
