package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"
)

// Subscription is a live feed of account changes. Updates are delivered
// on the channel returned by Updates; the channel is closed when the
// underlying connection ends, cleanly or otherwise. Callers treat the
// close as end-of-stream and decide for themselves whether to
// resubscribe.
type Subscription struct {
	conn    *websocket.Conn
	updates chan AccountUpdate
	done    chan struct{}

	closeOnce sync.Once
}

// Updates returns the stream of observed account changes.
func (s *Subscription) Updates() <-chan AccountUpdate { return s.updates }

// Close tears down the connection. The updates channel closes shortly
// after as the read loop unwinds, even when it is mid-send to a
// receiver that stopped draining.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

type wsMessage struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Pubkey  string    `json:"pubkey"`
				Account uiAccount `json:"account"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
	Error *rpcError `json:"error,omitempty"`
}

// ProgramSubscribe opens a WebSocket subscription for every account
// owned by program whose data starts with the given tag bytes, at the
// given commitment level.
func ProgramSubscribe(ctx context.Context, wsURL string, program PublicKey, tag []byte, commitment Commitment) (*Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "programSubscribe",
		"params": []interface{}{
			program.String(),
			map[string]interface{}{
				"encoding":   "base64",
				"commitment": string(commitment),
				"filters": []interface{}{
					map[string]interface{}{
						"memcmp": map[string]interface{}{
							"offset": 0,
							"bytes":  base58.Encode(tag),
						},
					},
				},
			},
		},
	}
	if err := conn.WriteJSON(request); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe request: %w", err)
	}

	sub := &Subscription{
		conn:    conn,
		updates: make(chan AccountUpdate),
		done:    make(chan struct{}),
	}
	go sub.readLoop()
	return sub, nil
}

func (s *Subscription) readLoop() {
	defer close(s.updates)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] feed closed: %v", err)
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[WS] skipping malformed message: %v", err)
			continue
		}
		if msg.Error != nil {
			log.Printf("[WS] subscription error %d: %s", msg.Error.Code, msg.Error.Message)
			s.Close()
			return
		}
		if msg.Method != "programNotification" {
			// Subscription confirmation or an unrelated server message.
			continue
		}

		address, err := PublicKeyFromBase58(msg.Params.Result.Value.Pubkey)
		if err != nil {
			log.Printf("[WS] skipping notification with bad pubkey: %v", err)
			continue
		}
		data, err := msg.Params.Result.Value.Account.decode()
		if err != nil {
			log.Printf("[WS] skipping notification for %s: %v", address, err)
			continue
		}
		select {
		case s.updates <- AccountUpdate{Address: address, Data: data}:
		case <-s.done:
			return
		}
	}
}
