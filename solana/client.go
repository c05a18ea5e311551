package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
)

// Commitment is the staleness guarantee applied to ledger reads.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// AccountUpdate is one observed account: its address plus the raw data
// bytes, from either an enumeration snapshot or the live feed.
type AccountUpdate struct {
	Address PublicKey
	Data    []byte
}

// Client is a minimal Solana JSON-RPC client covering the calls the
// oracle needs: account enumeration, single-account reads, blockhash
// retrieval, and transaction submission.
type Client struct {
	url        string
	commitment Commitment
	httpClient *http.Client
	requestID  atomic.Int64

	confirmTimeout time.Duration
	confirmPoll    time.Duration
}

// NewClient creates a client against the given RPC endpoint. All reads
// and preflight checks use the given commitment level.
func NewClient(url string, commitment Commitment) *Client {
	return &Client{
		url:        url,
		commitment: commitment,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		confirmTimeout: 30 * time.Second,
		confirmPoll:    500 * time.Millisecond,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.requestID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

// memcmpFilter matches accounts whose data carries the given byte tag at
// offset 0.
func (c *Client) memcmpFilter(tag []byte) []interface{} {
	return []interface{}{
		map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": 0,
				"bytes":  base58.Encode(tag),
			},
		},
	}
}

type uiAccount struct {
	Data []string `json:"data"` // [content, encoding]
}

func (a uiAccount) decode() ([]byte, error) {
	if len(a.Data) != 2 || a.Data[1] != "base64" {
		return nil, fmt.Errorf("unexpected account data encoding")
	}
	return base64.StdEncoding.DecodeString(a.Data[0])
}

// GetProgramAccounts enumerates every account owned by program whose
// data starts with the given tag bytes.
func (c *Client) GetProgramAccounts(ctx context.Context, program PublicKey, tag []byte) ([]AccountUpdate, error) {
	var result []struct {
		Pubkey  string    `json:"pubkey"`
		Account uiAccount `json:"account"`
	}
	params := []interface{}{
		program.String(),
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": string(c.commitment),
			"filters":    c.memcmpFilter(tag),
		},
	}
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, fmt.Errorf("getProgramAccounts: %w", err)
	}

	updates := make([]AccountUpdate, 0, len(result))
	for _, entry := range result {
		address, err := PublicKeyFromBase58(entry.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("getProgramAccounts: %w", err)
		}
		data, err := entry.Account.decode()
		if err != nil {
			return nil, fmt.Errorf("getProgramAccounts %s: %w", entry.Pubkey, err)
		}
		updates = append(updates, AccountUpdate{Address: address, Data: data})
	}
	return updates, nil
}

// GetAccountInfo fetches the raw data of a single account.
func (c *Client) GetAccountInfo(ctx context.Context, address PublicKey) ([]byte, error) {
	var result struct {
		Value *uiAccount `json:"value"`
	}
	params := []interface{}{
		address.String(),
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": string(c.commitment),
		},
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, fmt.Errorf("getAccountInfo: %w", err)
	}
	if result.Value == nil {
		return nil, fmt.Errorf("account %s not found", address)
	}
	data, err := result.Value.decode()
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", address, err)
	}
	return data, nil
}

// GetLatestBlockhash fetches a fresh recency token for transaction
// construction.
func (c *Client) GetLatestBlockhash(ctx context.Context) (Hash, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	params := []interface{}{
		map[string]interface{}{"commitment": string(c.commitment)},
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return Hash{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	return HashFromBase58(result.Value.Blockhash)
}

// SendTransaction submits serialized transaction bytes and returns the
// signature without waiting for confirmation.
func (c *Client) SendTransaction(ctx context.Context, tx []byte) (string, error) {
	var signature string
	params := []interface{}{
		base64.StdEncoding.EncodeToString(tx),
		map[string]interface{}{
			"encoding":            "base64",
			"preflightCommitment": string(c.commitment),
		},
	}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}
	return signature, nil
}

// SendAndConfirm submits a transaction and polls its signature status
// until the ledger reports it landed, the transaction itself failed, or
// the confirmation window elapses.
func (c *Client) SendAndConfirm(ctx context.Context, tx []byte) (string, error) {
	signature, err := c.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(c.confirmTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.confirmPoll):
		}

		status, err := c.signatureStatus(ctx, signature)
		if err != nil {
			return "", err
		}
		if status == nil {
			continue
		}
		if len(status.Err) > 0 && string(status.Err) != "null" {
			return "", fmt.Errorf("transaction %s failed: %s", signature, string(status.Err))
		}
		return signature, nil
	}
	return "", fmt.Errorf("transaction %s not confirmed within %s", signature, c.confirmTimeout)
}

type signatureStatus struct {
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

func (c *Client) signatureStatus(ctx context.Context, signature string) (*signatureStatus, error) {
	var result struct {
		Value []*signatureStatus `json:"value"`
	}
	params := []interface{}{
		[]string{signature},
		map[string]interface{}{"searchTransactionHistory": false},
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}
