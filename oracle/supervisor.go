package oracle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/becomeliminal/llm-oracle/solana"
)

// Source produces the unified change sequence the supervisor drives:
// a snapshot of existing matching accounts, then a live queue.
// *ChangeSource implements it.
type Source interface {
	Snapshot(ctx context.Context) ([]solana.AccountUpdate, error)
	Subscribe(ctx context.Context) (<-chan solana.AccountUpdate, func(), error)
}

// UpdateProcessor consumes one account update. *Processor implements it.
type UpdateProcessor interface {
	Process(ctx context.Context, update solana.AccountUpdate) error
}

// Supervisor runs the pipeline forever. Each cycle reconciles a
// snapshot and then drains the live queue sequentially — one update,
// including its LLM call and transaction submission, at a time. A
// propagated error restarts the cycle after RestartDelay; a cleanly
// ended feed restarts immediately.
type Supervisor struct {
	cfg       Config
	source    Source
	processor UpdateProcessor
}

// NewSupervisor creates the top-level control loop.
func NewSupervisor(cfg Config, source Source, processor UpdateProcessor) *Supervisor {
	return &Supervisor{cfg: cfg, source: source, processor: processor}
}

// Run loops until ctx is cancelled. It never returns on transient
// pipeline failure.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.runPipeline(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("[ORACLE] pipeline error: %v; restarting in %s", err, s.cfg.RestartDelay)
			select {
			case <-time.After(s.cfg.RestartDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		log.Printf("[ORACLE] feed ended; resubscribing")
	}
}

// runPipeline performs one cycle: snapshot, process existing records,
// subscribe, then drain the queue until end-of-stream (nil) or a
// propagated error.
func (s *Supervisor) runPipeline(ctx context.Context) error {
	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	log.Printf("[ORACLE] snapshot: %d candidate accounts", len(snapshot))
	for _, update := range snapshot {
		if err := s.processor.Process(ctx, update); err != nil {
			return err
		}
	}

	queue, stop, err := s.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer stop()

	for {
		select {
		case update, ok := <-queue:
			if !ok {
				return nil
			}
			if err := s.processor.Process(ctx, update); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
