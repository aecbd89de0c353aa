package anchor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blake2b-256 of the empty input.
const emptyHash = "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"

func TestHash(t *testing.T) {
	assert.Equal(t, emptyHash, Hash(nil))
	assert.Len(t, Hash([]byte("governance")), Size*2)
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}

func TestVerify(t *testing.T) {
	data := []byte(`{"hashAlgorithm": "blake2b-256"}`)
	h := Hash(data)

	require.NoError(t, Verify(data, h))
	require.NoError(t, Verify(data, strings.ToUpper(h)), "hex case is irrelevant")
	require.NoError(t, Anchor{URL: "https://x.test/doc.jsonld", DataHash: h}.Verify(data))

	err := Verify([]byte("tampered"), h)
	assert.ErrorIs(t, err, ErrHashMismatch)

	assert.ErrorIs(t, Verify(data, "zz"), ErrInvalidHash)
	assert.ErrorIs(t, Verify(data, "abcd"), ErrInvalidHash)
}
