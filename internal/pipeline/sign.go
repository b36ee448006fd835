package pipeline

import (
	"crypto/ed25519"
	"fmt"

	"solana-volume-bot/internal/domain"
)

// signTransaction signs the wire-format transaction in place: the payload is
// a compact-u16 count of signature slots followed by 64-byte signatures and
// the message. The fee payer's signature goes into the first slot.
func signTransaction(tx []byte, priv ed25519.PrivateKey) ([]byte, error) {
	numSigs, prefixLen, err := decodeCompactU16(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: signature count: %v", domain.ErrSigning, err)
	}
	if numSigs == 0 {
		return nil, fmt.Errorf("%w: transaction has no signature slots", domain.ErrSigning)
	}

	msgStart := prefixLen + ed25519.SignatureSize*numSigs
	if len(tx) <= msgStart {
		return nil, fmt.Errorf("%w: truncated transaction (%d bytes, %d signature slots)", domain.ErrSigning, len(tx), numSigs)
	}

	sig := ed25519.Sign(priv, tx[msgStart:])
	copy(tx[prefixLen:prefixLen+ed25519.SignatureSize], sig)
	return tx, nil
}

// decodeCompactU16 decodes the short-vec length prefix used by the
// transaction wire format. Returns the value and the prefix width.
func decodeCompactU16(b []byte) (int, int, error) {
	var value, shift uint
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("truncated compact-u16")
		}
		elem := uint(b[i])
		value |= (elem & 0x7f) << shift
		if elem&0x80 == 0 {
			if value > 0xffff {
				return 0, 0, fmt.Errorf("compact-u16 out of range")
			}
			return int(value), i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
