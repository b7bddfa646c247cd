package signing

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// LocalSigner signs hashes with an in-memory secp256k1 key using
// go-ethereum's deterministic ECDSA. It is the default signing capability;
// callers with keys held elsewhere (HSM, remote signer) supply their own
// Signer instead.
type LocalSigner struct{}

// Sign produces the (r, s) pair for a 32-byte hash. The same hash and key
// always yield the same signature.
func (LocalSigner) Sign(hash []byte, key PrivateKey) (Signature, error) {
	if len(hash) != 32 {
		return Signature{}, fmt.Errorf("%w: hash must be 32 bytes, got %d", ErrSigningFailed, len(hash))
	}

	priv, err := crypto.HexToECDSA(strings.TrimPrefix(string(key), "0x"))
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	sig, err := crypto.Sign(hash, priv)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	// sig is 65 bytes: r || s || v. The recovery byte is not part of the
	// wire signature.
	return Signature{
		R: hex.EncodeToString(sig[:32]),
		S: hex.EncodeToString(sig[32:64]),
	}, nil
}
