// Command oracled watches an oracle program's interaction queue and
// answers each pending request with a generated reply, committed back
// on-chain through the requester's callback. It runs forever; transient
// failures are retried and never exit the process.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/becomeliminal/llm-oracle/core"
	"github.com/becomeliminal/llm-oracle/llm"
	"github.com/becomeliminal/llm-oracle/memory"
	"github.com/becomeliminal/llm-oracle/oracle"
	"github.com/becomeliminal/llm-oracle/solana"
)

func main() {
	// Load .env if present; system env vars are used otherwise.
	_ = godotenv.Load()

	identity := os.Getenv("IDENTITY")
	if identity == "" {
		log.Fatal("IDENTITY environment variable is required")
	}
	payer, err := solana.KeypairFromBase58(identity)
	if err != nil {
		log.Fatalf("invalid IDENTITY: %v", err)
	}

	programEnv := os.Getenv("ORACLE_PROGRAM_ID")
	if programEnv == "" {
		log.Fatal("ORACLE_PROGRAM_ID environment variable is required")
	}
	program, err := solana.PublicKeyFromBase58(programEnv)
	if err != nil {
		log.Fatalf("invalid ORACLE_PROGRAM_ID: %v", err)
	}

	rpcURL := getenv("RPC_URL", "https://devnet.magicblock.app/")
	wsURL := getenv("WEBSOCKET_URL", "wss://devnet.magicblock.app/")

	provider, err := llm.Select(os.Getenv("GEMINI_API_KEY"), os.Getenv("ANTHROPIC_API_KEY"))
	if err != nil {
		log.Fatal(err)
	}

	identityPDA, _, err := solana.FindProgramAddress([][]byte{[]byte("identity")}, program)
	if err != nil {
		log.Fatalf("derive identity PDA: %v", err)
	}

	log.Printf("[ORACLE] identity: %s", payer.PublicKey())
	log.Printf("[ORACLE] RPC: %s", rpcURL)
	log.Printf("[ORACLE] WS: %s", wsURL)

	cfg := oracle.DefaultConfig()
	client := solana.NewClient(rpcURL, solana.CommitmentProcessed)
	tag := core.InteractionDiscriminator

	source := oracle.NewChangeSource(client, func(ctx context.Context) (oracle.Feed, error) {
		return solana.ProgramSubscribe(ctx, wsURL, program, tag, solana.CommitmentProcessed)
	}, program, tag, cfg.QueueSize)

	// Conversation history lives outside the supervisor so it survives
	// pipeline restarts.
	conversations := memory.New(cfg.MemoryBound)

	processor, err := oracle.NewProcessor(cfg, client, provider, conversations, payer, identityPDA)
	if err != nil {
		log.Fatalf("create processor: %v", err)
	}

	supervisor := oracle.NewSupervisor(cfg, source, processor)
	if err := supervisor.Run(context.Background()); err != nil {
		log.Fatalf("[ORACLE] stopped: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
