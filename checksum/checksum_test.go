package checksum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeAndVerifySHA256(t *testing.T) {
	payload := []byte("tightbeam integrity payload")
	digest, err := Compute(SHA256, payload)
	require.NoError(t, err)
	require.Len(t, digest, 64) // hex-encoded 32-byte digest

	ok, err := Verify(SHA256, payload, digest)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(SHA256, []byte("tampered payload"), digest)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestComputeDefaultsToSHA256(t *testing.T) {
	payload := []byte("default algorithm")
	withDefault, err := Compute("", payload)
	require.NoError(t, err)
	withExplicit, err := Compute(SHA256, payload)
	require.NoError(t, err)
	require.Equal(t, withExplicit, withDefault)
}

func TestComputeAndVerifyCRC32(t *testing.T) {
	payload := []byte("crc32 is the low-overhead alternate")
	digest, err := Compute(CRC32, payload)
	require.NoError(t, err)
	require.Len(t, digest, 8) // hex-encoded 4-byte digest

	ok, err := Verify(CRC32, payload, digest)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestComputeUnknownAlgorithm(t *testing.T) {
	_, err := Compute("md5", []byte("x"))
	require.Error(t, err)
}
