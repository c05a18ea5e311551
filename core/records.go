// Package core defines the on-ledger record types the oracle consumes:
// interaction requests awaiting a generated reply, and the shared
// context they reference. Records are Anchor accounts — an 8-byte type
// discriminator at offset 0 followed by the Borsh-encoded body.
package core

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"github.com/becomeliminal/llm-oracle/solana"
)

var (
	// InteractionDiscriminator tags interaction accounts and doubles as
	// the offset-0 filter for enumeration and subscription.
	InteractionDiscriminator = solana.AccountDiscriminator("Interaction")

	// ContextDiscriminator tags context accounts.
	ContextDiscriminator = solana.AccountDiscriminator("ContextAccount")
)

// ErrUnknownRecord is returned when account data does not carry the
// expected discriminator. The live feed reports every account matching
// the offset-0 filter, so foreign payloads are expected traffic, not
// corruption.
var ErrUnknownRecord = errors.New("account data does not match record discriminator")

// CallbackAccount is one extra account the requester asked to have
// passed through to its callback, with the original access flags.
type CallbackAccount struct {
	Address    solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Interaction is an on-ledger request awaiting a generated reply.
// Field order is the Borsh wire layout.
type Interaction struct {
	Context           solana.PublicKey
	Text              string
	IsProcessed       bool
	CallbackProgramID solana.PublicKey
	CallbackAccounts  []CallbackAccount
}

// ContextAccount is the shared background text an interaction refers to.
type ContextAccount struct {
	Text string
}

// DecodeInteraction parses raw account data into an Interaction.
func DecodeInteraction(data []byte) (*Interaction, error) {
	body, err := stripDiscriminator(data, InteractionDiscriminator)
	if err != nil {
		return nil, err
	}
	var record Interaction
	if err := borsh.Deserialize(&record, body); err != nil {
		return nil, fmt.Errorf("decode interaction: %w", err)
	}
	return &record, nil
}

// DecodeContextAccount parses raw account data into a ContextAccount.
func DecodeContextAccount(data []byte) (*ContextAccount, error) {
	body, err := stripDiscriminator(data, ContextDiscriminator)
	if err != nil {
		return nil, err
	}
	var record ContextAccount
	if err := borsh.Deserialize(&record, body); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return &record, nil
}

func stripDiscriminator(data, discriminator []byte) ([]byte, error) {
	if len(data) < len(discriminator) || !bytes.Equal(data[:len(discriminator)], discriminator) {
		return nil, ErrUnknownRecord
	}
	return data[len(discriminator):], nil
}
