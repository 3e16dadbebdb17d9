package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestNewEncryptor_KeyValidation(t *testing.T) {
	_, err := NewEncryptor("")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewEncryptor("deadbeef")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewEncryptor(strings.Repeat("zz", 32))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewEncryptor(testKey)
	assert.NoError(t, err)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	plaintext := []byte(`{"client_id":"abc","client_secret":"s3cret"}`)

	envelope, err := enc.EncryptToString(plaintext)
	require.NoError(t, err)

	parts := strings.Split(envelope, ":")
	require.Len(t, parts, 3)

	decrypted, err := enc.DecryptFromString(envelope)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncrypt_DistinctIVs(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	first, err := enc.EncryptToString([]byte("same plaintext"))
	require.NoError(t, err)
	second, err := enc.EncryptToString([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	envelope, err := enc.EncryptToString([]byte("payload"))
	require.NoError(t, err)

	// Flip a character inside the ciphertext segment.
	parts := strings.Split(envelope, ":")
	ct := []byte(parts[2])
	if ct[0] == 'A' {
		ct[0] = 'B'
	} else {
		ct[0] = 'A'
	}
	tampered := parts[0] + ":" + parts[1] + ":" + string(ct)

	_, err = enc.DecryptFromString(tampered)
	assert.ErrorIs(t, err, ErrDecryptionAuthFailed)
}

func TestDecrypt_MalformedEnvelope(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	cases := []string{
		"",
		"onlyonesegment",
		"a:b",
		"a:b:c:d",
		"!!!:YWJjZGVmZ2hpamtsbW5vcA==:YQ==",
	}

	for _, c := range cases {
		_, err := enc.DecryptFromString(c)
		assert.ErrorIs(t, err, ErrInvalidEnvelope, "envelope %q", c)
	}
}
