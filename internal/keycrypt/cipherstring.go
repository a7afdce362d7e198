// Package keycrypt implements the Bitwarden key hierarchy primitives used by
// the vault client: password-based master key derivation, key stretching,
// and the cipher-string format that wraps every encrypted field on the wire.
package keycrypt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EncryptionType is the leading discriminator of a cipher string.
type EncryptionType int

const (
	AesCbc256          EncryptionType = 0
	AesCbc128HmacSha256 EncryptionType = 1
	AesCbc256HmacSha256 EncryptionType = 2
	Rsa2048OaepSha256  EncryptionType = 3
	Rsa2048OaepSha1    EncryptionType = 4
)

var (
	ErrMalformedCipherString = errors.New("keycrypt: malformed cipher string")
	ErrUnsupportedType       = errors.New("keycrypt: unsupported encryption type")
)

// CipherString is a parsed "type.iv|ct|mac" (symmetric) or "type.ct" (RSA)
// encrypted payload.
type CipherString struct {
	Type EncryptionType
	IV   []byte
	CT   []byte
	MAC  []byte
}

// ParseCipherString decodes the textual cipher-string representation,
// enforcing the part count expected for the encryption type.
func ParseCipherString(s string) (*CipherString, error) {
	head, rest, ok := strings.Cut(s, ".")
	if !ok || head == "" || rest == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedCipherString, s)
	}
	typ, err := strconv.Atoi(head)
	if err != nil {
		return nil, fmt.Errorf("%w: bad type prefix %q", ErrMalformedCipherString, head)
	}

	parts := strings.Split(rest, "|")
	cs := &CipherString{Type: EncryptionType(typ)}

	switch cs.Type {
	case AesCbc256:
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: type %d wants 2 parts, got %d", ErrMalformedCipherString, typ, len(parts))
		}
		if cs.IV, err = b64decode(parts[0]); err != nil {
			return nil, err
		}
		if cs.CT, err = b64decode(parts[1]); err != nil {
			return nil, err
		}
	case AesCbc128HmacSha256, AesCbc256HmacSha256:
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: type %d wants 3 parts, got %d", ErrMalformedCipherString, typ, len(parts))
		}
		if cs.IV, err = b64decode(parts[0]); err != nil {
			return nil, err
		}
		if cs.CT, err = b64decode(parts[1]); err != nil {
			return nil, err
		}
		if cs.MAC, err = b64decode(parts[2]); err != nil {
			return nil, err
		}
	case Rsa2048OaepSha256, Rsa2048OaepSha1:
		if len(parts) != 1 {
			return nil, fmt.Errorf("%w: type %d wants 1 part, got %d", ErrMalformedCipherString, typ, len(parts))
		}
		if cs.CT, err = b64decode(parts[0]); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, typ)
	}

	return cs, nil
}

// String renders the cipher string back to its wire form.
func (cs *CipherString) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(cs.Type)))
	sb.WriteByte('.')
	switch cs.Type {
	case Rsa2048OaepSha256, Rsa2048OaepSha1:
		sb.WriteString(b64encode(cs.CT))
	case AesCbc256:
		sb.WriteString(b64encode(cs.IV))
		sb.WriteByte('|')
		sb.WriteString(b64encode(cs.CT))
	default:
		sb.WriteString(b64encode(cs.IV))
		sb.WriteByte('|')
		sb.WriteString(b64encode(cs.CT))
		sb.WriteByte('|')
		sb.WriteString(b64encode(cs.MAC))
	}
	return sb.String()
}

func b64decode(s string) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCipherString, err)
	}
	return out, nil
}

func b64encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
