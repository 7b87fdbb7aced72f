package identity

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkident/go-passport-processor/algorithms"
	"github.com/zkident/go-passport-processor/document"
	tst "github.com/zkident/go-passport-processor/testing"
)

func randomModulus(t *testing.T, bits int) *big.Int {
	t.Helper()

	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	n, err := rand.Int(rand.Reader, max)
	require.NoError(t, err)

	// Force the exact bit length.
	n.SetBit(n, bits-1, 1)
	return n
}

func TestKeyFromRSAModulus_Deterministic(t *testing.T) {
	n := randomModulus(t, 2048)

	a, err := KeyFromRSAModulus(n)
	require.NoError(t, err)

	b, err := KeyFromRSAModulus(n)
	require.NoError(t, err)

	require.Zero(t, a.Cmp(b))
}

func TestKeyFromRSAModulus_TooShort(t *testing.T) {
	_, err := KeyFromRSAModulus(randomModulus(t, 512))
	require.Error(t, err)
	require.Contains(t, err.Error(), "512 bits")
}

// Reconstructing the window from the emitted chunks must reproduce the
// truncated modulus exactly.
func TestRSAChunkRoundTrip(t *testing.T) {
	n := randomModulus(t, 2048)

	window := new(big.Int).Rsh(n, uint(n.BitLen()-rsaKeyWindow))

	rest := new(big.Int).Set(window)
	chunks := make([]*big.Int, len(rsaChunkBits))
	for i, bits := range rsaChunkBits {
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
		chunks[i] = new(big.Int).And(rest, mask)
		rest.Rsh(rest, bits)
	}

	// Weighted sum, least-significant chunk first.
	sum := new(big.Int)
	shift := uint(0)
	for i, c := range chunks {
		sum.Add(sum, new(big.Int).Lsh(c, shift))
		shift += rsaChunkBits[i]
	}

	require.Zero(t, sum.Cmp(window))
}

func TestKeyFromECPoint(t *testing.T) {
	point := make([]byte, 65)
	point[0] = 0x04
	_, err := rand.Read(point[1:])
	require.NoError(t, err)

	a, err := KeyFromECPoint(point)
	require.NoError(t, err)

	b, err := KeyFromECPoint(point)
	require.NoError(t, err)
	require.Zero(t, a.Cmp(b))
}

func TestKeyFromECPoint_Malformed(t *testing.T) {
	_, err := KeyFromECPoint(make([]byte, 64))
	require.Error(t, err)

	bad := make([]byte, 65)
	bad[0] = 0x02 // compressed marker
	_, err = KeyFromECPoint(bad)
	require.Error(t, err)
}

func TestKeyFromSignedAttributes(t *testing.T) {
	attrs := []byte("signed attributes set")

	a, err := KeyFromSignedAttributes(attrs, algorithms.SHA256)
	require.NoError(t, err)

	b, err := KeyFromSignedAttributes(attrs, algorithms.SHA256)
	require.NoError(t, err)
	require.Zero(t, a.Cmp(b))

	// A different digest algorithm produces a different key.
	c, err := KeyFromSignedAttributes(attrs, algorithms.SHA1)
	require.NoError(t, err)
	require.NotZero(t, a.Cmp(c))
}

func testDocument(t *testing.T) *document.Document {
	t.Helper()

	sodBytes := tst.SODBytes("2.16.840.1.101.3.4.2.1", "1.2.840.113549.1.1.11",
		[]byte{0x11}, []byte{0x22}, []byte{0x33})
	doc, err := document.New(
		tst.DG1TD3("UKR", "FA123456", "UKR", "900101", "F", "330101"),
		sodBytes,
	)
	require.NoError(t, err)
	return doc
}

// A document with DG15 derives from the embedded key; without it, from the
// signed attributes. The two paths never mix.
func TestPassportKey_BranchExclusivity(t *testing.T) {
	doc := testDocument(t)

	fallbackKey, err := PassportKey(doc)
	require.NoError(t, err)

	hash, err := PassportHash(doc)
	require.NoError(t, err)
	require.Zero(t, fallbackKey.Cmp(hash), "no-DG15 document must use the signed attributes path")

	modulus := randomModulus(t, 1024)
	aaDoc := doc.WithActiveAuth(tst.DG15RSA(modulus, 65537), nil)

	aaKey, err := PassportKey(aaDoc)
	require.NoError(t, err)

	rsaKey, err := KeyFromRSAModulus(modulus)
	require.NoError(t, err)
	require.Zero(t, aaKey.Cmp(rsaKey), "DG15 document must use the active auth path")

	require.NotZero(t, aaKey.Cmp(fallbackKey))
}

func TestPassportKey_Deterministic(t *testing.T) {
	doc := testDocument(t)

	a, err := PassportKey(doc)
	require.NoError(t, err)

	b, err := PassportKey(doc)
	require.NoError(t, err)
	require.Zero(t, a.Cmp(b))
}
