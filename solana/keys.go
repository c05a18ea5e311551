package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKey is a 32-byte ed25519 public key or program-derived address.
type PublicKey [32]byte

// PublicKeyFromBase58 parses a base58-encoded 32-byte public key.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	var key PublicKey
	raw, err := base58.Decode(s)
	if err != nil {
		return key, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("public key must be %d bytes, got %d", len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// MustPublicKey parses a base58 public key and panics on failure.
// Reserved for well-known program addresses baked into the binary.
func MustPublicKey(s string) PublicKey {
	key, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return key
}

func (p PublicKey) String() string { return base58.Encode(p[:]) }

// IsZero reports whether the key is the all-zero address.
func (p PublicKey) IsZero() bool { return p == PublicKey{} }

// Hash is a 32-byte blockhash used as a transaction recency token.
type Hash [32]byte

// HashFromBase58 parses a base58-encoded 32-byte hash.
func HashFromBase58(s string) (Hash, error) {
	var h Hash
	raw, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h Hash) String() string { return base58.Encode(h[:]) }

// Keypair is an ed25519 signing identity.
type Keypair struct {
	priv ed25519.PrivateKey
}

// KeypairFromBase58 parses a base58-encoded 64-byte secret key
// (the standard Solana keypair export format: seed followed by the
// public key).
func KeypairFromBase58(s string) (Keypair, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Keypair{}, fmt.Errorf("decode keypair: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return Keypair{priv: ed25519.PrivateKey(raw)}, nil
}

// PublicKey returns the keypair's public half.
func (k Keypair) PublicKey() PublicKey {
	var key PublicKey
	copy(key[:], k.priv.Public().(ed25519.PublicKey))
	return key
}

// Sign signs the given message bytes.
func (k Keypair) Sign(message []byte) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(k.priv, message))
	return sig
}

// pdaMarker terminates the hash input when deriving program addresses,
// mirroring the on-chain derivation.
const pdaMarker = "ProgramDerivedAddress"

// ErrNoViableBump is returned when no bump seed in [0, 255] yields an
// off-curve address, which is vanishingly unlikely in practice.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// CreateProgramAddress derives the address for the given seeds, failing
// if the result lands on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	var key PublicKey
	digest := programAddressDigest(seeds, program)
	if isOnCurve(digest[:]) {
		return key, errors.New("derived address is on the ed25519 curve")
	}
	copy(key[:], digest[:])
	return key, nil
}

// FindProgramAddress searches bump seeds from 255 downward for the first
// off-curve derived address, returning the address and the bump used.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		bumped := make([][]byte, 0, len(seeds)+1)
		bumped = append(bumped, seeds...)
		bumped = append(bumped, []byte{byte(bump)})
		address, err := CreateProgramAddress(bumped, program)
		if err == nil {
			return address, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

func programAddressDigest(seeds [][]byte, program PublicKey) [32]byte {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte(pdaMarker))
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
