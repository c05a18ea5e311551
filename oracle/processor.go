package oracle

import (
	"context"
	"fmt"
	"log"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"github.com/near/borsh-go"

	"github.com/becomeliminal/llm-oracle/core"
	"github.com/becomeliminal/llm-oracle/llm"
	"github.com/becomeliminal/llm-oracle/memory"
	"github.com/becomeliminal/llm-oracle/solana"
)

// callbackMethod names the Anchor handler the reply is delivered to.
const callbackMethod = "callback_from_llm"

// Processor runs the per-interaction pipeline: decode the update, fetch
// its context, generate a reply with bounded retries, and submit the
// callback transaction.
//
// Process is called from a single goroutine; the conversation store
// relies on that confinement.
type Processor struct {
	cfg           Config
	rpc           Ledger
	provider      llm.Provider
	conversations *memory.Conversations
	submitter     *Submitter
	payer         solana.Keypair
	identityPDA   solana.PublicKey

	// answered remembers interactions this process has already committed
	// a reply for, closing the window where the on-chain processed flag
	// is still stale. Best-effort only: it does not coordinate across
	// responder instances.
	answered *ristretto.Cache
}

// NewProcessor wires the pipeline. The conversation store is injected
// so history survives supervisor restarts, mirroring its process-long
// ownership.
func NewProcessor(cfg Config, rpc Ledger, provider llm.Provider, conversations *memory.Conversations, payer solana.Keypair, identityPDA solana.PublicKey) (*Processor, error) {
	answered, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create answered cache: %w", err)
	}
	return &Processor{
		cfg:           cfg,
		rpc:           rpc,
		provider:      provider,
		conversations: conversations,
		submitter:     NewSubmitter(cfg, rpc, payer),
		payer:         payer,
		identityPDA:   identityPDA,
		answered:      answered,
	}, nil
}

// Process handles one observed account update. Payloads that do not
// decode as interactions are dropped silently — the feed reports every
// account matching the type tag, and foreign payloads are expected.
// Already-processed interactions are skipped with no side effects, as
// are interactions declaring no callback program to deliver a reply to.
//
// A context-fetch failure or LLM retry exhaustion aborts this update
// with an error; the interaction stays unanswered on-chain and will be
// retried on the next snapshot or feed event. Submission exhaustion is
// silent (see Submitter.Submit).
func (p *Processor) Process(ctx context.Context, update solana.AccountUpdate) error {
	record, err := core.DecodeInteraction(update.Data)
	if err != nil {
		return nil
	}
	if record.IsProcessed {
		return nil
	}
	if record.CallbackProgramID.IsZero() {
		log.Printf("[ORACLE] skipping interaction %s: no callback program", update.Address)
		return nil
	}
	if _, seen := p.answered.Get(update.Address.String()); seen {
		return nil
	}

	trace := uuid.New().String()
	log.Printf("[ORACLE] processing interaction %s (trace=%s)", update.Address, trace)

	contextData, err := p.rpc.GetAccountInfo(ctx, record.Context)
	if err != nil {
		return fmt.Errorf("fetch context %s: %w", record.Context, err)
	}
	contextRecord, err := core.DecodeContextAccount(contextData)
	if err != nil {
		return fmt.Errorf("decode context %s: %w", record.Context, err)
	}

	working := p.conversations.History(update.Address)
	p.conversations.Add(update.Address, record.Text, llm.RoleUser)
	working = append(working, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("With context: %q, respond to: %q", contextRecord.Text, record.Text),
	})

	reply, err := p.generateWithRetry(ctx, working)
	if err != nil {
		return err
	}
	p.conversations.Add(update.Address, reply, llm.RoleAssistant)

	callback, err := p.callbackInstruction(update.Address, record, reply)
	if err != nil {
		return fmt.Errorf("build callback: %w", err)
	}

	signature, err := p.submitter.Submit(ctx, callback)
	if err != nil {
		return err
	}
	if signature != "" {
		p.answered.Set(update.Address.String(), struct{}{}, 1)
		log.Printf("[ORACLE] interaction %s answered (trace=%s)", update.Address, trace)
	}
	return nil
}

// generateWithRetry calls the backend up to MaxGenerateAttempts times.
// After a failed attempt k it drops the 2k oldest turns of the working
// history, never emptying it — shrinking the prompt recovers from
// context-length failures while keeping the newest turn. On exhaustion
// the last error is returned unmodified.
func (p *Processor) generateWithRetry(ctx context.Context, history []llm.Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxGenerateAttempts; attempt++ {
		reply, err := p.provider.Generate(ctx, history)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		log.Printf("[LLM] generate failed (attempt %d/%d): %v", attempt, p.cfg.MaxGenerateAttempts, err)

		skip := attempt * 2
		if skip >= len(history) {
			history = history[len(history)-1:]
		} else {
			history = history[skip:]
		}
	}
	return "", lastErr
}

// callbackInstruction assembles the reply delivery instruction: the
// fixed account head (payer, identity PDA, the interaction, the callback
// program) followed by the requester's declared extra accounts in their
// original order and flags; data is the method discriminator plus the
// length-prefixed reply.
func (p *Processor) callbackInstruction(address solana.PublicKey, record *core.Interaction, reply string) (solana.Instruction, error) {
	payload, err := borsh.Serialize(reply)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("serialize reply: %w", err)
	}
	data := append(solana.InstructionDiscriminator(callbackMethod), payload...)

	accounts := []solana.AccountMeta{
		{PublicKey: p.payer.PublicKey(), IsSigner: true, IsWritable: true},
		{PublicKey: p.identityPDA},
		{PublicKey: address, IsWritable: true},
		{PublicKey: record.CallbackProgramID},
	}
	for _, meta := range record.CallbackAccounts {
		accounts = append(accounts, solana.AccountMeta{
			PublicKey:  meta.Address,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		})
	}

	return solana.Instruction{
		ProgramID: record.CallbackProgramID,
		Accounts:  accounts,
		Data:      data,
	}, nil
}
