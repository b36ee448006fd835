package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-volume-bot/internal/domain"
)

// testSecret returns a deterministic valid 64-byte ed25519 secret.
func testSecret(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return []byte(ed25519.NewKeyFromSeed(seed))
}

func asByteList(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, ",")
}

func TestResolve_AllEncodingsYieldSameIdentity(t *testing.T) {
	secret := testSecret(t)

	encodings := map[KeyFormat]string{
		FormatBase58:   base58.Encode(secret),
		FormatBase64:   base64.StdEncoding.EncodeToString(secret),
		FormatHex:      hex.EncodeToString(secret),
		FormatByteList: asByteList(secret),
	}

	var pubkey, canonical string
	for format, raw := range encodings {
		id, err := Resolve(raw)
		require.NoError(t, err, "format %s", format)
		assert.Equal(t, format, id.Format)

		if pubkey == "" {
			pubkey = id.PublicKey
			canonical = id.CanonicalSecret
			continue
		}
		// Round-trip equivalence: every encoding resolves to the same
		// canonical identity.
		assert.Equal(t, pubkey, id.PublicKey, "format %s", format)
		assert.Equal(t, canonical, id.CanonicalSecret, "format %s", format)
	}

	assert.Equal(t, base58.Encode(secret), canonical)
}

func TestResolve_ByteListWithBrackets(t *testing.T) {
	secret := testSecret(t)
	id, err := Resolve("[" + asByteList(secret) + "]")
	require.NoError(t, err)
	assert.Equal(t, FormatByteList, id.Format)
}

func TestResolve_WrongLengthFails(t *testing.T) {
	for _, n := range []int{0, 32, 63, 65, 128} {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(i)
		}
		for _, raw := range []string{
			base58.Encode(b),
			base64.StdEncoding.EncodeToString(b),
			hex.EncodeToString(b),
			asByteList(b),
		} {
			if raw == "" {
				continue
			}
			_, err := Resolve(raw)
			assert.ErrorIs(t, err, domain.ErrInvalidKey, "len %d raw %q", n, raw)
		}
	}
}

func TestResolve_InconsistentKeypairFails(t *testing.T) {
	// 64 bytes whose public half does not match the seed half.
	secret := testSecret(t)
	bad := append([]byte(nil), secret...)
	bad[40] ^= 0xff

	_, err := Resolve(base58.Encode(bad))
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestResolve_GarbageFails(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-key", "12,34,notanumber"} {
		_, err := Resolve(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidKey, "raw %q", raw)
	}
}

func TestResolve_ErrorNeverContainsSecret(t *testing.T) {
	secret := testSecret(t)
	bad := append([]byte(nil), secret...)
	bad[40] ^= 0xff
	raw := base58.Encode(bad)

	_, err := Resolve(raw)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), raw)
}
