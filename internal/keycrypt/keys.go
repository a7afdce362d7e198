package keycrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	"vaultadmin/models"
)

var (
	ErrInvalidKeyLength = errors.New("keycrypt: symmetric key must be 32 or 64 bytes")
	ErrMacMismatch      = errors.New("keycrypt: MAC verification failed")
	ErrMacKeyRequired   = errors.New("keycrypt: cipher string requires a MAC key")
	ErrInvalidPadding   = errors.New("keycrypt: invalid PKCS#7 padding")
	ErrNotRSAKey        = errors.New("keycrypt: private key is not RSA")
	ErrKdfParameters    = errors.New("keycrypt: invalid KDF parameters")
)

// SymmetricKey is an AES-256 encryption key with an optional HMAC-SHA256
// authentication key.
type SymmetricKey struct {
	Enc []byte
	Mac []byte
}

// NewSymmetricKey builds a key from raw bytes: 32 bytes yield an
// encryption-only key, 64 bytes an encryption+MAC pair.
func NewSymmetricKey(raw []byte) (*SymmetricKey, error) {
	switch len(raw) {
	case 32:
		return &SymmetricKey{Enc: raw}, nil
	case 64:
		return &SymmetricKey{Enc: raw[:32], Mac: raw[32:]}, nil
	}
	return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(raw))
}

// GenerateSymmetricKey returns a fresh random encryption+MAC key pair.
func GenerateSymmetricKey() (*SymmetricKey, error) {
	raw := make([]byte, 64)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("keycrypt: generate key: %w", err)
	}
	return NewSymmetricKey(raw)
}

// Bytes returns the raw key material (enc followed by mac when present).
func (k *SymmetricKey) Bytes() []byte {
	return append(append([]byte{}, k.Enc...), k.Mac...)
}

// MasterKey derives the 32-byte master key from the account password with
// the email (lowercased) as salt, using the KDF announced by the token
// endpoint. The master key never leaves the process; it only unwraps the
// stored user key.
func MasterKey(password, email string, kdf models.KdfType, iterations, memoryMB, parallelism int) ([]byte, error) {
	salt := []byte(strings.ToLower(strings.TrimSpace(email)))
	switch kdf {
	case models.KdfPBKDF2:
		if iterations <= 0 {
			return nil, fmt.Errorf("%w: pbkdf2 iterations %d", ErrKdfParameters, iterations)
		}
		return pbkdf2.Key([]byte(password), salt, iterations, 32, sha256.New), nil
	case models.KdfArgon2id:
		if iterations <= 0 || memoryMB <= 0 || parallelism <= 0 {
			return nil, fmt.Errorf("%w: argon2id t=%d m=%d p=%d", ErrKdfParameters, iterations, memoryMB, parallelism)
		}
		// Argon2id salts on the SHA-256 of the lowercased email.
		hashed := sha256.Sum256(salt)
		return argon2.IDKey([]byte(password), hashed[:], uint32(iterations), uint32(memoryMB)*1024, uint8(parallelism), 32), nil
	}
	return nil, fmt.Errorf("%w: unknown kdf %d", ErrKdfParameters, kdf)
}

// StretchKey expands a 32-byte master key into an encryption+MAC pair via
// HKDF-SHA256 expansion with the "enc" and "mac" info strings.
func StretchKey(master []byte) (*SymmetricKey, error) {
	enc := make([]byte, 32)
	if _, err := hkdf.Expand(sha256.New, master, []byte("enc")).Read(enc); err != nil {
		return nil, fmt.Errorf("keycrypt: stretch enc: %w", err)
	}
	mac := make([]byte, 32)
	if _, err := hkdf.Expand(sha256.New, master, []byte("mac")).Read(mac); err != nil {
		return nil, fmt.Errorf("keycrypt: stretch mac: %w", err)
	}
	return &SymmetricKey{Enc: enc, Mac: mac}, nil
}

// DecryptSymmetric opens an AES-CBC cipher string with the given key,
// verifying the HMAC (over iv||ct) first for authenticated types.
func DecryptSymmetric(cs *CipherString, key *SymmetricKey) ([]byte, error) {
	switch cs.Type {
	case AesCbc256:
		// Legacy unauthenticated payloads.
	case AesCbc256HmacSha256:
		if key.Mac == nil {
			return nil, ErrMacKeyRequired
		}
		mac := hmac.New(sha256.New, key.Mac)
		mac.Write(cs.IV)
		mac.Write(cs.CT)
		if !hmac.Equal(mac.Sum(nil), cs.MAC) {
			return nil, ErrMacMismatch
		}
	default:
		return nil, fmt.Errorf("%w: %d for symmetric decrypt", ErrUnsupportedType, cs.Type)
	}

	block, err := aes.NewCipher(key.Enc)
	if err != nil {
		return nil, fmt.Errorf("keycrypt: %w", err)
	}
	if len(cs.IV) != aes.BlockSize || len(cs.CT) == 0 || len(cs.CT)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad block sizes", ErrMalformedCipherString)
	}
	plain := make([]byte, len(cs.CT))
	cipher.NewCBCDecrypter(block, cs.IV).CryptBlocks(plain, cs.CT)
	return pkcs7Unpad(plain)
}

// EncryptSymmetric seals plaintext as an authenticated type-2 cipher string.
func EncryptSymmetric(plaintext []byte, key *SymmetricKey) (*CipherString, error) {
	if key.Mac == nil {
		return nil, ErrMacKeyRequired
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("keycrypt: generate iv: %w", err)
	}
	block, err := aes.NewCipher(key.Enc)
	if err != nil {
		return nil, fmt.Errorf("keycrypt: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	mac := hmac.New(sha256.New, key.Mac)
	mac.Write(iv)
	mac.Write(ct)

	return &CipherString{
		Type: AesCbc256HmacSha256,
		IV:   iv,
		CT:   ct,
		MAC:  mac.Sum(nil),
	}, nil
}

// DecryptWithPrivateKey opens an RSA-OAEP cipher string, typically the
// organization symmetric key wrapped with the user's public key.
func DecryptWithPrivateKey(cs *CipherString, priv *rsa.PrivateKey) ([]byte, error) {
	switch cs.Type {
	case Rsa2048OaepSha1:
		return rsa.DecryptOAEP(sha1.New(), nil, priv, cs.CT, nil)
	case Rsa2048OaepSha256:
		return rsa.DecryptOAEP(sha256.New(), nil, priv, cs.CT, nil)
	}
	return nil, fmt.Errorf("%w: %d for RSA decrypt", ErrUnsupportedType, cs.Type)
}

// EncryptWithPublicKey wraps data with RSA-OAEP-SHA1 (the type used by the
// server for organization keys).
func EncryptWithPublicKey(data []byte, pub *rsa.PublicKey) (*CipherString, error) {
	ct, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, data, nil)
	if err != nil {
		return nil, fmt.Errorf("keycrypt: rsa encrypt: %w", err)
	}
	return &CipherString{Type: Rsa2048OaepSha1, CT: ct}, nil
}

// ParsePrivateKey parses a PKCS#8 DER blob into an RSA private key.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("keycrypt: parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return rsaKey, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > len(data) || n > aes.BlockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
