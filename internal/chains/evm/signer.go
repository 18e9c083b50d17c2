package evm

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSigningKey is returned when a signing key is not a 32-byte hex
// secp256k1 private key. The key itself never appears in the error.
var ErrInvalidSigningKey = errors.New("invalid signing key: want 64 hex characters")

// DeployerAddress derives the checksummed sender address for a hex private key.
func DeployerAddress(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "0x")
	priv, err := crypto.HexToECDSA(key)
	if err != nil {
		return "", ErrInvalidSigningKey
	}
	return crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}
