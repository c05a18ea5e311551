package solana

import "crypto/sha256"

// AccountDiscriminator returns the 8-byte tag an Anchor program writes at
// offset 0 of every account of the named type.
func AccountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:8]
}

// InstructionDiscriminator returns the 8-byte method tag for the named
// Anchor instruction handler.
func InstructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}
