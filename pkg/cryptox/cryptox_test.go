package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("produces unique url-safe tokens", func(t *testing.T) {
		a, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		b, err := GenerateToken(TokenSize128)
		require.NoError(t, err)

		require.NotEqual(t, a, b)
		require.NotContains(t, a, "=")
		require.NotContains(t, a, "/")
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := GenerateToken(0)
		require.Error(t, err)
		_, err = GenerateToken(-1)
		require.Error(t, err)
	})
}

func TestSealOpenRoundTrip(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("GATEWAY_MASTER_KEY", "unit-test-master-key")
	t.Cleanup(ResetMasterKeyForTesting)

	plaintext := []byte(`{"username":"alice","password":"pw1"}`)

	sealed, err := Seal(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := Open(sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)

	// Nonces are random, so sealing twice never repeats ciphertext.
	sealed2, err := Seal(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, sealed, sealed2)
}

func TestOpenRejectsTamperedData(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("GATEWAY_MASTER_KEY", "unit-test-master-key")
	t.Cleanup(ResetMasterKeyForTesting)

	sealed, err := Seal([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = Open(sealed)
	require.Error(t, err)

	_, err = Open([]byte("short"))
	require.Error(t, err)
}
