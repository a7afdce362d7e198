package keycrypt

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultadmin/models"
)

func TestSymmetricRoundTrip(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	for _, plaintext := range [][]byte{
		[]byte("Engineering"),
		[]byte(""),
		[]byte("exactly sixteen!"), // full block forces an extra padding block
		bytes.Repeat([]byte{0xAB}, 1000),
	} {
		cs, err := EncryptSymmetric(plaintext, key)
		require.NoError(t, err)
		assert.Equal(t, AesCbc256HmacSha256, cs.Type)

		// Through the wire representation and back.
		parsed, err := ParseCipherString(cs.String())
		require.NoError(t, err)

		got, err := DecryptSymmetric(parsed, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestDecryptRejectsTamperedMac(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)
	cs, err := EncryptSymmetric([]byte("secret"), key)
	require.NoError(t, err)

	cs.CT[0] ^= 0xFF
	_, err = DecryptSymmetric(cs, key)
	assert.ErrorIs(t, err, ErrMacMismatch)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)
	other, err := GenerateSymmetricKey()
	require.NoError(t, err)

	cs, err := EncryptSymmetric([]byte("secret"), key)
	require.NoError(t, err)
	_, err = DecryptSymmetric(cs, other)
	assert.ErrorIs(t, err, ErrMacMismatch)
}

func TestMasterKeyPBKDF2(t *testing.T) {
	key1, err := MasterKey("password", "user@example.com", models.KdfPBKDF2, 5000, 0, 0)
	require.NoError(t, err)
	assert.Len(t, key1, 32)

	// Deterministic, email case-insensitive.
	key2, err := MasterKey("password", "USER@example.COM", models.KdfPBKDF2, 5000, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	// Different password, different key.
	key3, err := MasterKey("Password", "user@example.com", models.KdfPBKDF2, 5000, 0, 0)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3)

	_, err = MasterKey("password", "user@example.com", models.KdfPBKDF2, 0, 0, 0)
	assert.ErrorIs(t, err, ErrKdfParameters)
}

func TestMasterKeyArgon2id(t *testing.T) {
	key, err := MasterKey("password", "user@example.com", models.KdfArgon2id, 3, 16, 2)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	again, err := MasterKey("password", "user@example.com", models.KdfArgon2id, 3, 16, 2)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	_, err = MasterKey("password", "user@example.com", models.KdfArgon2id, 3, 0, 2)
	assert.ErrorIs(t, err, ErrKdfParameters)
}

func TestStretchKey(t *testing.T) {
	master, err := MasterKey("password", "user@example.com", models.KdfPBKDF2, 5000, 0, 0)
	require.NoError(t, err)

	stretched, err := StretchKey(master)
	require.NoError(t, err)
	assert.Len(t, stretched.Enc, 32)
	assert.Len(t, stretched.Mac, 32)
	assert.NotEqual(t, stretched.Enc, stretched.Mac)

	again, err := StretchKey(master)
	require.NoError(t, err)
	assert.Equal(t, stretched, again)
}

// Exercises the same unwrap chain the session manager performs at login:
// master key opens the user key, the user key opens the RSA private key,
// the private key opens an organization key.
func TestKeyHierarchyUnwrap(t *testing.T) {
	master, err := MasterKey("password", "user@example.com", models.KdfPBKDF2, 5000, 0, 0)
	require.NoError(t, err)
	stretched, err := StretchKey(master)
	require.NoError(t, err)

	userKey, err := GenerateSymmetricKey()
	require.NoError(t, err)
	wrappedUserKey, err := EncryptSymmetric(userKey.Bytes(), stretched)
	require.NoError(t, err)

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(rsaKey)
	require.NoError(t, err)
	wrappedPrivateKey, err := EncryptSymmetric(der, userKey)
	require.NoError(t, err)

	orgKey, err := GenerateSymmetricKey()
	require.NoError(t, err)
	wrappedOrgKey, err := EncryptWithPublicKey(orgKey.Bytes(), &rsaKey.PublicKey)
	require.NoError(t, err)

	// Unwrap.
	rawUser, err := DecryptSymmetric(wrappedUserKey, stretched)
	require.NoError(t, err)
	gotUserKey, err := NewSymmetricKey(rawUser)
	require.NoError(t, err)
	assert.Equal(t, userKey, gotUserKey)

	rawDER, err := DecryptSymmetric(wrappedPrivateKey, gotUserKey)
	require.NoError(t, err)
	gotPriv, err := ParsePrivateKey(rawDER)
	require.NoError(t, err)

	rawOrg, err := DecryptWithPrivateKey(wrappedOrgKey, gotPriv)
	require.NoError(t, err)
	gotOrgKey, err := NewSymmetricKey(rawOrg)
	require.NoError(t, err)
	assert.Equal(t, orgKey, gotOrgKey)
}

func TestParseCipherStringErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"no-dot",
		"2.only|two",
		"4.a|b",
		"x.a|b|c",
		"9.a|b|c",
		"2.!!!|b|c",
	} {
		if _, err := ParseCipherString(s); err == nil {
			t.Errorf("ParseCipherString(%q) succeeded, want error", s)
		}
	}
}

func TestNewSymmetricKeyLengths(t *testing.T) {
	_, err := NewSymmetricKey(make([]byte, 33))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)

	encOnly, err := NewSymmetricKey(make([]byte, 32))
	require.NoError(t, err)
	assert.Nil(t, encOnly.Mac)

	full, err := NewSymmetricKey(make([]byte, 64))
	require.NoError(t, err)
	assert.Len(t, full.Mac, 32)
}

func TestEncryptRequiresMacKey(t *testing.T) {
	encOnly, err := NewSymmetricKey(make([]byte, 32))
	require.NoError(t, err)
	_, err = EncryptSymmetric([]byte("x"), encOnly)
	assert.ErrorIs(t, err, ErrMacKeyRequired)

	cs := &CipherString{Type: AesCbc256HmacSha256, IV: make([]byte, 16), CT: make([]byte, 16), MAC: make([]byte, 32)}
	_, err = DecryptSymmetric(cs, encOnly)
	assert.ErrorIs(t, err, ErrMacKeyRequired)
}

func TestUnsupportedSymmetricType(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)
	cs := &CipherString{Type: Rsa2048OaepSha1, CT: []byte("x")}
	_, err = DecryptSymmetric(cs, key)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("err = %v, want ErrUnsupportedType", err)
	}
}
