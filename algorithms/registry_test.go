package algorithms

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAlgorithmFromOID(t *testing.T) {
	testCases := []struct {
		oid  string
		want HashAlgorithm
	}{
		{"1.3.14.3.2.26", SHA1},
		{"2.16.840.1.101.3.4.2.1", SHA256},
		{"2.16.840.1.101.3.4.2.2", SHA384},
		{"2.16.840.1.101.3.4.2.3", SHA512},
		{"2.16.840.1.101.3.4.2.4", SHA224},
		{"1.2.840.113549.1.1.11", SHA256},
		{"1.2.840.10045.4.3.2", SHA256},
		{"1.2.840.10045.4.1", SHA1},
	}

	for _, tc := range testCases {
		t.Run(tc.oid, func(t *testing.T) {
			h, err := HashAlgorithmFromOID(tc.oid)
			require.NoError(t, err)
			require.Equal(t, tc.want, h)
		})
	}
}

func TestHashAlgorithmFromOID_Unsupported(t *testing.T) {
	_, err := HashAlgorithmFromOID("1.2.3.4.5")
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	require.Contains(t, err.Error(), "1.2.3.4.5")
}

func TestSignatureAlgorithmFromOID(t *testing.T) {
	testCases := []struct {
		oid  string
		want SignatureAlgorithm
	}{
		{"1.2.840.113549.1.1.1", RSA},
		{"1.2.840.113549.1.1.11", RSA},
		{"1.2.840.113549.1.1.10", RSAPSS},
		{"1.2.840.10045.2.1", ECDSA},
		{"1.2.840.10045.4.3.3", ECDSA},
	}

	for _, tc := range testCases {
		t.Run(tc.oid, func(t *testing.T) {
			s, err := SignatureAlgorithmFromOID(tc.oid)
			require.NoError(t, err)
			require.Equal(t, tc.want, s)
		})
	}

	_, err := SignatureAlgorithmFromOID("2.5.4.3")
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

// Every supported algorithm must produce exactly 32 bytes regardless of the
// native digest size.
func TestDigest32_FixedWidth(t *testing.T) {
	data := []byte("test vector")

	for _, h := range []HashAlgorithm{SHA1, SHA224, SHA256, SHA384, SHA512} {
		d := h.Digest32(data)
		require.Len(t, d[:], DigestSize, h.String())
	}

	// SHA-1 native output is 20 bytes: the first 12 bytes must be zero.
	d := SHA1.Digest32(data)
	for i := 0; i < 12; i++ {
		require.Zero(t, d[i])
	}

	// SHA-224 native output is 28 bytes: the first 4 bytes must be zero.
	d = SHA224.Digest32(data)
	for i := 0; i < 4; i++ {
		require.Zero(t, d[i])
	}
}

func TestAlgorithmNames(t *testing.T) {
	require.Equal(t, "SHA256", SHA256.String())
	require.Equal(t, "SHA1", SHA1.String())
	require.Equal(t, "RSA", RSA.String())
	require.Equal(t, "RSA-PSS", RSAPSS.String())
	require.Equal(t, "ECDSA", ECDSA.String())
}
