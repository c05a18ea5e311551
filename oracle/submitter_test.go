package oracle_test

import (
	"context"
	"testing"

	"github.com/becomeliminal/llm-oracle/oracle"
	"github.com/becomeliminal/llm-oracle/solana"
)

func testCallback() solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.PublicKey{30},
		Accounts:  []solana.AccountMeta{{PublicKey: solana.PublicKey{20}, IsWritable: true}},
		Data:      []byte{1, 2, 3},
	}
}

func TestSubmitterSuccessHaltsRetries(t *testing.T) {
	ledger := &fakeLedger{sendErrs: 2}
	submitter := oracle.NewSubmitter(oracle.DefaultConfig(), ledger, testPayer(t))

	sig, err := submitter.Submit(context.Background(), testCallback())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sig == "" {
		t.Fatal("expected a signature")
	}
	if ledger.sendCalls != 3 {
		t.Errorf("send calls = %d, want 3", ledger.sendCalls)
	}
	// Every real attempt refreshed the blockhash.
	if ledger.blockhashCalls != 3 {
		t.Errorf("blockhash fetches = %d, want 3", ledger.blockhashCalls)
	}
}

func TestSubmitterExhaustionReturnsEmptySignature(t *testing.T) {
	ledger := &fakeLedger{sendErrs: 1 << 10}
	submitter := oracle.NewSubmitter(oracle.DefaultConfig(), ledger, testPayer(t))

	sig, err := submitter.Submit(context.Background(), testCallback())
	if err != nil {
		t.Fatalf("exhaustion must not be an error, got %v", err)
	}
	if sig != "" {
		t.Errorf("signature = %q, want empty", sig)
	}
	if ledger.sendCalls != 5 {
		t.Errorf("send calls = %d, want 5", ledger.sendCalls)
	}
	if ledger.blockhashCalls != 5 {
		t.Errorf("blockhash fetches = %d, want 5", ledger.blockhashCalls)
	}
}

func TestSubmitterBlockhashFailuresDoNotConsumeAttempts(t *testing.T) {
	ledger := &fakeLedger{blockhashErrs: 3}
	submitter := oracle.NewSubmitter(oracle.DefaultConfig(), ledger, testPayer(t))

	sig, err := submitter.Submit(context.Background(), testCallback())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sig == "" {
		t.Fatal("expected a signature")
	}
	if ledger.sendCalls != 1 {
		t.Errorf("send calls = %d, want 1", ledger.sendCalls)
	}
	if ledger.blockhashCalls != 4 {
		t.Errorf("blockhash fetches = %d, want 4", ledger.blockhashCalls)
	}
}

func TestSubmitterBoundedUnderBlockhashOutage(t *testing.T) {
	ledger := &fakeLedger{blockhashErrs: 1 << 10}
	submitter := oracle.NewSubmitter(oracle.DefaultConfig(), ledger, testPayer(t))

	_, err := submitter.Submit(context.Background(), testCallback())
	if err == nil {
		t.Fatal("expected error after sustained blockhash failures")
	}
	if ledger.blockhashCalls != 10 {
		t.Errorf("blockhash fetches = %d, want 10", ledger.blockhashCalls)
	}
	if ledger.sendCalls != 0 {
		t.Errorf("send calls = %d, want 0", ledger.sendCalls)
	}
}

func TestSubmitterRespectsCancellation(t *testing.T) {
	ledger := &fakeLedger{}
	submitter := oracle.NewSubmitter(oracle.DefaultConfig(), ledger, testPayer(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := submitter.Submit(ctx, testCallback())
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if ledger.sendCalls != 0 {
		t.Errorf("send calls = %d, want 0", ledger.sendCalls)
	}
}
