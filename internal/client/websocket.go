package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSClient is a minimal WebSocket client for signature subscriptions
type WSClient struct {
	url    string
	logger *logrus.Logger
}

// wsMessage is the JSON-RPC envelope used on the WebSocket transport
type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wsError        `json:"error,omitempty"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *wsError) Error() string {
	return fmt.Sprintf("ws error %d: %s", e.Code, e.Message)
}

// signatureNotification carries the result of a signatureSubscribe
type signatureNotification struct {
	Subscription int `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Err interface{} `json:"err"`
		} `json:"value"`
	} `json:"result"`
}

// NewWSClient creates a new WebSocket client
func NewWSClient(url string, logger *logrus.Logger) *WSClient {
	return &WSClient{
		url:    url,
		logger: logger,
	}
}

// AwaitSignature subscribes to a signature's confirmation and blocks until
// the node reports it processed, the node reports a transaction error, or
// ctx is cancelled. The connection is scoped to this one wait.
func (ws *WSClient) AwaitSignature(ctx context.Context, signature solana.Signature) (interface{}, error) {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, resp, err := dialer.DialContext(ctx, ws.url, nil)
	if err != nil {
		if resp != nil {
			ws.logger.WithFields(logrus.Fields{
				"status": resp.Status,
				"url":    ws.url,
			}).Error("WebSocket connection failed")
		}
		return nil, fmt.Errorf("failed to connect to WebSocket: %w", err)
	}
	defer conn.Close()

	// Unblock the read loop when ctx is cancelled
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	subscribe := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "signatureSubscribe",
		"params": []interface{}{
			signature.String(),
			map[string]string{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return nil, fmt.Errorf("failed to send signatureSubscribe: %w", err)
	}

	ws.logger.WithField("signature", signature.String()).Debug("Subscribed to signature")

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read WebSocket message: %w", err)
		}

		if msg.Error != nil {
			return nil, msg.Error
		}

		// Subscription confirmation echoes our request id
		if msg.ID != nil {
			continue
		}

		if msg.Method == "signatureNotification" {
			var note signatureNotification
			if err := json.Unmarshal(msg.Params, &note); err != nil {
				return nil, fmt.Errorf("failed to decode signature notification: %w", err)
			}
			return note.Result.Value.Err, nil
		}
	}
}
