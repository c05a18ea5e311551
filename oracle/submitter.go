package oracle

import (
	"context"
	"fmt"
	"log"

	"github.com/becomeliminal/llm-oracle/solana"
)

// Submitter builds, signs, and submits callback transactions with
// bounded retries and fee escalation directives.
type Submitter struct {
	cfg   Config
	rpc   Ledger
	payer solana.Keypair
}

// NewSubmitter creates a submitter signing with the given identity.
func NewSubmitter(cfg Config, rpc Ledger, payer solana.Keypair) *Submitter {
	return &Submitter{cfg: cfg, rpc: rpc, payer: payer}
}

// Submit sends the callback instruction in a transaction prefixed with
// the compute-unit limit and priority-fee directives. Each attempt uses
// a fresh blockhash; a failed blockhash fetch does not consume an
// attempt but counts against its own budget, so the loop stays bounded
// under sustained RPC failure.
//
// Exhausting all submission attempts is not an error: Submit returns an
// empty signature and a nil error, leaving the interaction to be picked
// up again on the next snapshot or feed event.
func (s *Submitter) Submit(ctx context.Context, callback solana.Instruction) (string, error) {
	attempts := 0
	fetchFailures := 0
	for attempts < s.cfg.MaxSubmitAttempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		blockhash, err := s.rpc.GetLatestBlockhash(ctx)
		if err != nil {
			fetchFailures++
			log.Printf("[TX] blockhash fetch failed (%d/%d): %v", fetchFailures, s.cfg.MaxBlockhashFailures, err)
			if fetchFailures >= s.cfg.MaxBlockhashFailures {
				return "", fmt.Errorf("fetch blockhash: %w", err)
			}
			continue
		}

		tx, err := solana.NewSignedTransaction([]solana.Instruction{
			solana.SetComputeUnitLimit(s.cfg.ComputeUnitLimit),
			solana.SetComputeUnitPrice(s.cfg.ComputeUnitPrice),
			callback,
		}, s.payer, blockhash)
		if err != nil {
			return "", fmt.Errorf("build transaction: %w", err)
		}

		signature, err := s.rpc.SendAndConfirm(ctx, tx)
		if err == nil {
			log.Printf("[TX] transaction signature: %s", signature)
			return signature, nil
		}
		attempts++
		log.Printf("[TX] failed to send transaction (attempt %d/%d): %v", attempts, s.cfg.MaxSubmitAttempts, err)
	}

	log.Printf("[TX] giving up after %d attempts; reply not committed", s.cfg.MaxSubmitAttempts)
	return "", nil
}
