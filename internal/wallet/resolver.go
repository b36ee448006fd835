// Package wallet resolves user-supplied secret keys into a canonical
// signing identity.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-volume-bot/internal/domain"
)

// KeyFormat labels the textual encoding that matched during resolution.
type KeyFormat string

// Supported key encodings, in resolution order.
const (
	FormatBase58   KeyFormat = "base58"
	FormatBase64   KeyFormat = "base64"
	FormatHex      KeyFormat = "hex"
	FormatByteList KeyFormat = "byte-list"
)

// Identity is an exclusively-owned signing keypair, derived once at startup
// and immutable for the process lifetime.
type Identity struct {
	PrivateKey      ed25519.PrivateKey
	PublicKey       string    // base58-encoded public key
	CanonicalSecret string    // base58 re-encoding of the full 64-byte secret
	Format          KeyFormat // encoding that matched, for diagnostics only
}

type decodeStrategy struct {
	format KeyFormat
	decode func(string) ([]byte, error)
}

// Fixed resolution order: the first strategy that decodes to exactly 64
// bytes forming a consistent ed25519 keypair wins.
var strategies = []decodeStrategy{
	{FormatBase58, base58.Decode},
	{FormatBase64, decodeBase64},
	{FormatHex, decodeHex},
	{FormatByteList, decodeByteList},
}

// Resolve normalizes an arbitrary-format secret key string into an Identity.
// Errors never include the raw or decoded secret material.
func Resolve(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty key string", domain.ErrInvalidKey)
	}

	for _, s := range strategies {
		secret, err := s.decode(raw)
		if err != nil || len(secret) != ed25519.PrivateKeySize {
			continue
		}
		id, err := buildIdentity(secret, s.format)
		if err != nil {
			continue
		}
		return id, nil
	}

	return nil, fmt.Errorf("%w: no known encoding matched (tried base58, base64, hex, byte list)", domain.ErrInvalidKey)
}

// buildIdentity validates that the 64 bytes form a consistent keypair: the
// public half must equal the key derived from the seed half, and must be a
// valid curve point.
func buildIdentity(secret []byte, format KeyFormat) (*Identity, error) {
	priv := ed25519.PrivateKey(append([]byte(nil), secret...))
	pub := priv.Public().(ed25519.PublicKey)

	derived := ed25519.NewKeyFromSeed(priv.Seed())
	if !bytes.Equal(derived.Public().(ed25519.PublicKey), pub) {
		return nil, fmt.Errorf("public half does not match seed")
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, fmt.Errorf("public key not on curve")
	}

	return &Identity{
		PrivateKey:      priv,
		PublicKey:       base58.Encode(pub),
		CanonicalSecret: base58.Encode(secret),
		Format:          format,
	}, nil
}

func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func decodeHex(s string) ([]byte, error) {
	if len(s) != 2*ed25519.PrivateKeySize {
		return nil, fmt.Errorf("hex key must be %d characters", 2*ed25519.PrivateKeySize)
	}
	return hex.DecodeString(s)
}

// decodeByteList parses a comma-separated list of decimal integers, the
// format produced by JSON keypair files.
func decodeByteList(s string) ([]byte, error) {
	s = strings.Trim(s, "[] ")
	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("byte value out of range")
		}
		out = append(out, byte(n))
	}
	return out, nil
}
