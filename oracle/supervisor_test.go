package oracle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/becomeliminal/llm-oracle/oracle"
	"github.com/becomeliminal/llm-oracle/solana"
)

type fakeFeed struct {
	updates chan solana.AccountUpdate
	closed  bool
}

func (f *fakeFeed) Updates() <-chan solana.AccountUpdate { return f.updates }
func (f *fakeFeed) Close()                               { f.closed = true }

// fakeSource scripts each cycle by call number.
type fakeSource struct {
	snapshotCalls  int
	subscribeCalls int
	snapshotFn     func(call int) ([]solana.AccountUpdate, error)
	subscribeFn    func(call int) (<-chan solana.AccountUpdate, func(), error)
}

func (s *fakeSource) Snapshot(ctx context.Context) ([]solana.AccountUpdate, error) {
	s.snapshotCalls++
	return s.snapshotFn(s.snapshotCalls)
}

func (s *fakeSource) Subscribe(ctx context.Context) (<-chan solana.AccountUpdate, func(), error) {
	s.subscribeCalls++
	return s.subscribeFn(s.subscribeCalls)
}

// recordingProcessor records the addresses it was handed, in order.
type recordingProcessor struct {
	seen []solana.PublicKey
	err  error
}

func (p *recordingProcessor) Process(ctx context.Context, update solana.AccountUpdate) error {
	p.seen = append(p.seen, update.Address)
	return p.err
}

func closedQueue(updates ...solana.AccountUpdate) <-chan solana.AccountUpdate {
	queue := make(chan solana.AccountUpdate, len(updates))
	for _, u := range updates {
		queue <- u
	}
	close(queue)
	return queue
}

func runSupervisor(t *testing.T, s *oracle.Supervisor, ctx context.Context) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not return")
		return nil
	}
}

func TestChangeSourceSubscribePumpsFeed(t *testing.T) {
	feed := &fakeFeed{updates: make(chan solana.AccountUpdate, 2)}
	source := oracle.NewChangeSource(&fakeLedger{}, func(ctx context.Context) (oracle.Feed, error) {
		return feed, nil
	}, solana.PublicKey{1}, []byte{1, 2}, 8)

	queue, stop, err := source.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	feed.updates <- solana.AccountUpdate{Address: solana.PublicKey{1}}
	feed.updates <- solana.AccountUpdate{Address: solana.PublicKey{2}}
	close(feed.updates)

	var got []solana.PublicKey
	for update := range queue {
		got = append(got, update.Address)
	}
	if len(got) != 2 || got[0] != (solana.PublicKey{1}) || got[1] != (solana.PublicKey{2}) {
		t.Errorf("queue yielded %v", got)
	}

	stop()
	if !feed.closed {
		t.Error("stop must close the underlying feed")
	}
}

func TestChangeSourceStopReleasesFullQueuePump(t *testing.T) {
	feed := &fakeFeed{updates: make(chan solana.AccountUpdate, 3)}
	source := oracle.NewChangeSource(&fakeLedger{}, func(ctx context.Context) (oracle.Feed, error) {
		return feed, nil
	}, solana.PublicKey{1}, []byte{1, 2}, 1)

	queue, stop, err := source.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Three pending updates against a capacity-1 queue that nobody
	// drains: the pump fills the queue and blocks on the next send.
	for i := 1; i <= 3; i++ {
		feed.updates <- solana.AccountUpdate{Address: solana.PublicKey{byte(i)}}
	}

	stop()

	// stop must unblock the pump; its deferred close of the queue is
	// the observable proof it exited.
	done := make(chan struct{})
	go func() {
		for range queue {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pump still blocked after stop")
	}

	if !feed.closed {
		t.Error("stop must close the underlying feed")
	}
}

func TestChangeSourceSnapshotUsesLedger(t *testing.T) {
	want := []solana.AccountUpdate{{Address: solana.PublicKey{7}}}
	source := oracle.NewChangeSource(&fakeLedger{snapshot: want}, nil, solana.PublicKey{1}, []byte{1, 2}, 8)

	got, err := source.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(got) != 1 || got[0].Address != want[0].Address {
		t.Errorf("Snapshot = %v", got)
	}
}

func TestSupervisorSnapshotThenFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrA := solana.PublicKey{0xA}
	addrB := solana.PublicKey{0xB}

	source := &fakeSource{
		snapshotFn: func(call int) ([]solana.AccountUpdate, error) {
			if call > 1 {
				cancel()
				return nil, nil
			}
			return []solana.AccountUpdate{{Address: addrA}}, nil
		},
		subscribeFn: func(call int) (<-chan solana.AccountUpdate, func(), error) {
			return closedQueue(solana.AccountUpdate{Address: addrB}), func() {}, nil
		},
	}
	processor := &recordingProcessor{}

	cfg := oracle.DefaultConfig()
	cfg.RestartDelay = time.Millisecond
	err := runSupervisor(t, oracle.NewSupervisor(cfg, source, processor), ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	// Snapshot results are processed before any feed update.
	if len(processor.seen) < 2 || processor.seen[0] != addrA || processor.seen[1] != addrB {
		t.Errorf("processed order = %v, want [%v %v ...]", processor.seen, addrA, addrB)
	}
}

func TestSupervisorRestartsAfterErrorWithDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		snapshotFn: func(call int) ([]solana.AccountUpdate, error) {
			if call > 1 {
				cancel()
				return nil, nil
			}
			return nil, errors.New("rpc down")
		},
		subscribeFn: func(call int) (<-chan solana.AccountUpdate, func(), error) {
			return closedQueue(), func() {}, nil
		},
	}

	cfg := oracle.DefaultConfig()
	cfg.RestartDelay = time.Millisecond
	err := runSupervisor(t, oracle.NewSupervisor(cfg, source, &recordingProcessor{}), ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if source.snapshotCalls != 2 {
		t.Errorf("snapshot calls = %d, want 2", source.snapshotCalls)
	}
}

func TestSupervisorResubscribesImmediatelyOnCleanFeedEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		snapshotFn: func(call int) ([]solana.AccountUpdate, error) {
			if call > 2 {
				cancel()
			}
			return nil, nil
		},
		subscribeFn: func(call int) (<-chan solana.AccountUpdate, func(), error) {
			return closedQueue(), func() {}, nil
		},
	}

	// A clean feed end must restart without waiting out RestartDelay;
	// an hour-long delay would trip the watchdog in runSupervisor.
	cfg := oracle.DefaultConfig()
	cfg.RestartDelay = time.Hour
	err := runSupervisor(t, oracle.NewSupervisor(cfg, source, &recordingProcessor{}), ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if source.subscribeCalls < 2 {
		t.Errorf("subscribe calls = %d, want at least 2", source.subscribeCalls)
	}
}

func TestSupervisorRestartsOnProcessError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		snapshotFn: func(call int) ([]solana.AccountUpdate, error) {
			if call > 1 {
				cancel()
				return nil, nil
			}
			return []solana.AccountUpdate{{Address: solana.PublicKey{1}}}, nil
		},
		subscribeFn: func(call int) (<-chan solana.AccountUpdate, func(), error) {
			return closedQueue(), func() {}, nil
		},
	}
	processor := &recordingProcessor{err: errors.New("context fetch failed")}

	cfg := oracle.DefaultConfig()
	cfg.RestartDelay = time.Millisecond
	err := runSupervisor(t, oracle.NewSupervisor(cfg, source, processor), ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	// The failing update was retried on the second cycle's snapshot.
	if source.snapshotCalls != 2 {
		t.Errorf("snapshot calls = %d, want 2", source.snapshotCalls)
	}
}
