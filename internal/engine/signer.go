package engine

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
)

// WalletKeyEnv holds the base64-encoded 64-byte ed25519 private key of
// the trading wallet. Loaded once at startup, never persisted.
const WalletKeyEnv = "NX_WALLET_PRIVATE_KEY"

// Signer signs serialized Solana transactions with the wallet key.
type Signer struct {
	key ed25519.PrivateKey
}

// NewSignerFromEnv reads the wallet key from WalletKeyEnv.
func NewSignerFromEnv() (*Signer, error) {
	raw := os.Getenv(WalletKeyEnv)
	if raw == "" {
		return nil, fmt.Errorf("signer: %s is not set", WalletKeyEnv)
	}
	return NewSigner(raw)
}

// NewSigner builds a signer from a base64-encoded 64-byte private key.
func NewSigner(keyBase64 string) (*Signer, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("signer: decode key: %w", err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signer: key must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	return &Signer{key: ed25519.PrivateKey(key)}, nil
}

// PublicKey returns the wallet public key bytes.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// SignTransaction takes a base64 serialized unsigned transaction, signs
// the message with the wallet key as fee payer, and returns the signed
// transaction re-encoded as base64.
//
// The wire layout is a compact-u16 signature count followed by the
// 64-byte signatures and the message. The fee payer signature is the
// first slot.
func (s *Signer) SignTransaction(txBase64 string) (string, error) {
	if s == nil || len(s.key) == 0 {
		return "", fmt.Errorf("signer not configured")
	}
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("signer: decode transaction: %w", err)
	}
	numSigs, offset, err := decodeCompactU16(raw)
	if err != nil {
		return "", fmt.Errorf("signer: malformed transaction: %w", err)
	}
	if numSigs == 0 {
		return "", fmt.Errorf("signer: transaction requires no signatures")
	}
	sigBytes := numSigs * ed25519.SignatureSize
	if len(raw) < offset+sigBytes {
		return "", fmt.Errorf("signer: transaction truncated")
	}
	message := raw[offset+sigBytes:]
	sig := ed25519.Sign(s.key, message)
	copy(raw[offset:offset+ed25519.SignatureSize], sig)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeCompactU16 reads Solana's compact-u16 length prefix and returns
// the value and the number of bytes consumed.
func decodeCompactU16(buf []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(buf) {
			return 0, 0, fmt.Errorf("short buffer")
		}
		b := int(buf[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("length prefix too long")
}
