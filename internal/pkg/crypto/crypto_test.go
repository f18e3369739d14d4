package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	secret := "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"
	ciphertext, err := enc.EncryptString(secret)
	require.NoError(t, err)
	require.NotEqual(t, secret, ciphertext)

	plaintext, err := enc.DecryptString(ciphertext)
	require.NoError(t, err)
	require.Equal(t, secret, plaintext)
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	a, err := enc.EncryptString("same plaintext")
	require.NoError(t, err)
	b, err := enc.EncryptString("same plaintext")
	require.NoError(t, err)

	// Random nonces mean identical plaintexts never share ciphertext.
	require.NotEqual(t, a, b)
}

func TestNewEncryptorBadKeySize(t *testing.T) {
	_, err := NewEncryptor([]byte("short"))
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDecryptWrongKey(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	ciphertext, err := enc.EncryptString("secret")
	require.NoError(t, err)

	other, err := NewEncryptor([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	_, err = other.DecryptString(ciphertext)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptMalformed(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	_, err = enc.Decrypt("not base64!!")
	require.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	require.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestGenerateAccessKeyPair(t *testing.T) {
	accessKeyID, secretKey, err := GenerateAccessKeyPair()
	require.NoError(t, err)

	require.Len(t, accessKeyID, AccessKeyIDLength)
	require.Equal(t, strings.ToUpper(accessKeyID), accessKeyID)
	require.Len(t, secretKey, SecretKeyLength)

	for _, c := range accessKeyID {
		require.Contains(t, accessKeyChars, string(c))
	}
	for _, c := range secretKey {
		require.Contains(t, secretKeyChars, string(c))
	}
}

func TestGenerateMasterKeyRoundTrip(t *testing.T) {
	hexKey, err := GenerateMasterKey()
	require.NoError(t, err)
	require.Len(t, hexKey, KeySize*2)

	key, err := ParseHexKey(hexKey)
	require.NoError(t, err)
	require.Len(t, key, KeySize)

	_, err = NewEncryptorFromHex(hexKey)
	require.NoError(t, err)
}

func TestParseHexKeyInvalid(t *testing.T) {
	_, err := ParseHexKey("abc")
	require.ErrorIs(t, err, ErrInvalidHexKey)

	_, err = ParseHexKey(strings.Repeat("zz", KeySize))
	require.ErrorIs(t, err, ErrInvalidHexKey)
}

func TestContentMD5(t *testing.T) {
	// RFC 1864 example digest for an empty body.
	require.Equal(t, "1B2M2Y8AsgTpgAmY7PhCfg==", ContentMD5(nil))
}
