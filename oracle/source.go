package oracle

import (
	"context"
	"sync"

	"github.com/becomeliminal/llm-oracle/solana"
)

// Ledger is the RPC surface the pipeline needs. *solana.Client
// implements it; tests substitute fakes.
type Ledger interface {
	GetProgramAccounts(ctx context.Context, program solana.PublicKey, tag []byte) ([]solana.AccountUpdate, error)
	GetAccountInfo(ctx context.Context, address solana.PublicKey) ([]byte, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendAndConfirm(ctx context.Context, tx []byte) (string, error)
}

// Feed is a live account-change subscription. *solana.Subscription
// implements it.
type Feed interface {
	Updates() <-chan solana.AccountUpdate
	Close()
}

// SubscribeFunc opens a new live feed. It is injected so the transport
// (WebSocket endpoint, filters) stays outside the pipeline.
type SubscribeFunc func(ctx context.Context) (Feed, error)

// ChangeSource produces the unified sequence of candidate-interaction
// changes: first an enumeration snapshot of existing matching accounts,
// then a live subscription pumped through a bounded queue.
type ChangeSource struct {
	rpc       Ledger
	subscribe SubscribeFunc
	program   solana.PublicKey
	tag       []byte
	queueSize int
}

// NewChangeSource creates a source over the given ledger and feed for
// accounts of program tagged with the given discriminator bytes.
func NewChangeSource(rpc Ledger, subscribe SubscribeFunc, program solana.PublicKey, tag []byte, queueSize int) *ChangeSource {
	return &ChangeSource{
		rpc:       rpc,
		subscribe: subscribe,
		program:   program,
		tag:       tag,
		queueSize: queueSize,
	}
}

// Snapshot enumerates all currently matching accounts.
func (s *ChangeSource) Snapshot(ctx context.Context) ([]solana.AccountUpdate, error) {
	return s.rpc.GetProgramAccounts(ctx, s.program, s.tag)
}

// Subscribe opens the live feed and returns a queue of updates with
// capacity queueSize. A background goroutine pumps the feed into the
// queue and blocks when it is full, so a slow consumer applies
// backpressure instead of dropping events. The queue closes when the
// feed ends, cleanly or with error — both surface as end-of-stream.
// The returned stop function tears the feed down and releases the pump
// even when the queue is full and nobody is draining it.
func (s *ChangeSource) Subscribe(ctx context.Context) (<-chan solana.AccountUpdate, func(), error) {
	feed, err := s.subscribe(ctx)
	if err != nil {
		return nil, nil, err
	}

	queue := make(chan solana.AccountUpdate, s.queueSize)
	quit := make(chan struct{})
	go func() {
		defer close(queue)
		for update := range feed.Updates() {
			select {
			case queue <- update:
			case <-quit:
				return
			}
		}
	}()

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			close(quit)
			feed.Close()
		})
	}
	return queue, stop, nil
}
