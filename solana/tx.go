package solana

import (
	"fmt"
)

// AccountMeta references an account in an instruction, with its access
// flags. Flags are merged when the same account appears more than once
// in a transaction.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// NewSignedTransaction compiles the instructions into a legacy
// transaction message paid for and signed by payer, and returns the
// serialized wire bytes ready for submission.
func NewSignedTransaction(instructions []Instruction, payer Keypair, recentBlockhash Hash) ([]byte, error) {
	msg, err := compileMessage(payer.PublicKey(), recentBlockhash, instructions)
	if err != nil {
		return nil, err
	}
	msgBytes := msg.serialize()
	sig := payer.Sign(msgBytes)

	out := appendShortvec(nil, 1)
	out = append(out, sig[:]...)
	out = append(out, msgBytes...)
	return out, nil
}

type compiledInstruction struct {
	programIDIndex uint8
	accountIndexes []uint8
	data           []byte
}

type message struct {
	numRequiredSignatures uint8
	numReadonlySigned     uint8
	numReadonlyUnsigned   uint8
	accounts              []PublicKey
	recentBlockhash       Hash
	instructions          []compiledInstruction
}

// compileMessage collects every account touched by the instructions,
// merges duplicate references, and orders them the way the runtime
// expects: payer first, then writable signers, readonly signers,
// writable non-signers, and readonly non-signers.
func compileMessage(payer PublicKey, recentBlockhash Hash, instructions []Instruction) (*message, error) {
	merged := make(map[PublicKey]*AccountMeta)
	order := []PublicKey{payer}
	merged[payer] = &AccountMeta{PublicKey: payer, IsSigner: true, IsWritable: true}

	add := func(meta AccountMeta) {
		if existing, ok := merged[meta.PublicKey]; ok {
			existing.IsSigner = existing.IsSigner || meta.IsSigner
			existing.IsWritable = existing.IsWritable || meta.IsWritable
			return
		}
		copied := meta
		merged[meta.PublicKey] = &copied
		order = append(order, meta.PublicKey)
	}

	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			add(meta)
		}
		add(AccountMeta{PublicKey: ix.ProgramID})
	}

	var writableSigners, readonlySigners, writable, readonly []PublicKey
	for _, key := range order {
		if key == payer {
			continue
		}
		meta := merged[key]
		switch {
		case meta.IsSigner && meta.IsWritable:
			writableSigners = append(writableSigners, key)
		case meta.IsSigner:
			readonlySigners = append(readonlySigners, key)
		case meta.IsWritable:
			writable = append(writable, key)
		default:
			readonly = append(readonly, key)
		}
	}

	accounts := make([]PublicKey, 0, len(order))
	accounts = append(accounts, payer)
	accounts = append(accounts, writableSigners...)
	accounts = append(accounts, readonlySigners...)
	accounts = append(accounts, writable...)
	accounts = append(accounts, readonly...)

	index := make(map[PublicKey]uint8, len(accounts))
	for i, key := range accounts {
		if i > 255 {
			return nil, fmt.Errorf("transaction references %d accounts, limit is 256", len(accounts))
		}
		index[key] = uint8(i)
	}

	compiled := make([]compiledInstruction, 0, len(instructions))
	for _, ix := range instructions {
		indexes := make([]uint8, 0, len(ix.Accounts))
		for _, meta := range ix.Accounts {
			indexes = append(indexes, index[meta.PublicKey])
		}
		compiled = append(compiled, compiledInstruction{
			programIDIndex: index[ix.ProgramID],
			accountIndexes: indexes,
			data:           ix.Data,
		})
	}

	return &message{
		numRequiredSignatures: uint8(1 + len(writableSigners) + len(readonlySigners)),
		numReadonlySigned:     uint8(len(readonlySigners)),
		numReadonlyUnsigned:   uint8(len(readonly)),
		accounts:              accounts,
		recentBlockhash:       recentBlockhash,
		instructions:          compiled,
	}, nil
}

func (m *message) serialize() []byte {
	out := []byte{m.numRequiredSignatures, m.numReadonlySigned, m.numReadonlyUnsigned}
	out = appendShortvec(out, len(m.accounts))
	for _, key := range m.accounts {
		out = append(out, key[:]...)
	}
	out = append(out, m.recentBlockhash[:]...)
	out = appendShortvec(out, len(m.instructions))
	for _, ix := range m.instructions {
		out = append(out, ix.programIDIndex)
		out = appendShortvec(out, len(ix.accountIndexes))
		out = append(out, ix.accountIndexes...)
		out = appendShortvec(out, len(ix.data))
		out = append(out, ix.data...)
	}
	return out
}

// appendShortvec appends n in the compact-u16 encoding used for all
// length prefixes in the transaction wire format.
func appendShortvec(b []byte, n int) []byte {
	for {
		if n < 0x80 {
			return append(b, byte(n))
		}
		b = append(b, byte(n)&0x7f|0x80)
		n >>= 7
	}
}
