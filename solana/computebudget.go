package solana

import "encoding/binary"

// ComputeBudgetProgramID is the native program controlling per-transaction
// compute limits and priority fees.
var ComputeBudgetProgramID = MustPublicKey("ComputeBudget111111111111111111111111111111")

// SetComputeUnitLimit builds the directive capping the transaction's
// compute units.
func SetComputeUnitLimit(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}

// SetComputeUnitPrice builds the directive attaching a priority fee, in
// micro-lamports per compute unit.
func SetComputeUnitPrice(microLamports uint64) Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}
