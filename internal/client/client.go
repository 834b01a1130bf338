package client

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"
)

// Client represents a Solana RPC client wrapper
type Client struct {
	client *rpc.Client
	logger *logrus.Logger
}

// ClientConfig contains configuration for Solana client
type ClientConfig struct {
	RPCEndpoint string
	APIKey      string
	Timeout     time.Duration
}

// TokenAccount is one raw token account returned by the owner scan
type TokenAccount struct {
	Pubkey   solana.PublicKey
	Lamports uint64
	Data     []byte
}

// SignatureStatus is the reduced view of a signature's confirmation state
type SignatureStatus struct {
	Found     bool
	Confirmed bool
	Finalized bool
	Err       interface{}
}

// NewClient creates a new Solana RPC client
func NewClient(config ClientConfig, logger *logrus.Logger) *Client {
	var rpcClient *rpc.Client
	if config.APIKey != "" {
		rpcClient = rpc.NewWithHeaders(config.RPCEndpoint, map[string]string{
			"Authorization": "Bearer " + config.APIKey,
		})
	} else {
		rpcClient = rpc.New(config.RPCEndpoint)
	}

	return &Client{
		client: rpcClient,
		logger: logger,
	}
}

// TokenAccountsByOwner lists the owner's raw token accounts under the given
// token program, base64-encoded so the account layout can be inspected byte
// by byte.
func (c *Client) TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, program solana.PublicKey) ([]TokenAccount, error) {
	result, err := c.client.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{
			ProgramId: &program,
		},
		&rpc.GetTokenAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner failed: %w", err)
	}

	accounts := make([]TokenAccount, 0, len(result.Value))
	for _, entry := range result.Value {
		if entry == nil {
			continue
		}
		var data []byte
		if entry.Account.Data != nil {
			data = entry.Account.Data.GetBinary()
		}
		accounts = append(accounts, TokenAccount{
			Pubkey:   entry.Pubkey,
			Lamports: entry.Account.Lamports,
			Data:     data,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"owner":    owner.String(),
		"accounts": len(accounts),
	}).Debug("Fetched token accounts")

	return accounts, nil
}

// LatestBlockhash fetches a fresh recent blockhash. Callers must request a
// new one per transaction since blockhashes expire quickly.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction and returns its signature
func (c *Client) SendTransaction(ctx context.Context, transaction *solana.Transaction) (solana.Signature, error) {
	sig, err := c.client.SendTransactionWithOpts(ctx, transaction, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction failed: %w", err)
	}

	c.logger.WithField("signature", sig.String()).Debug("Transaction sent")
	return sig, nil
}

// SignatureStatus returns the reduced confirmation state for one signature
func (c *Client) SignatureStatus(ctx context.Context, signature solana.Signature) (*SignatureStatus, error) {
	result, err := c.client.GetSignatureStatuses(ctx, true, signature)
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses failed: %w", err)
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return &SignatureStatus{}, nil
	}

	status := result.Value[0]
	return &SignatureStatus{
		Found:     true,
		Confirmed: status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || status.ConfirmationStatus == rpc.ConfirmationStatusFinalized,
		Finalized: status.ConfirmationStatus == rpc.ConfirmationStatusFinalized,
		Err:       status.Err,
	}, nil
}

// AccountData fetches raw account data, or nil if the account does not exist
func (c *Client) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	result, err := c.client.GetAccountInfo(ctx, address)
	if err != nil {
		if err == rpc.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	if result == nil || result.Value == nil || result.Value.Data == nil {
		return nil, nil
	}
	return result.Value.Data.GetBinary(), nil
}

// Balance returns the account balance in lamports
func (c *Client) Balance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	result, err := c.client.GetBalance(ctx, address, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("getBalance failed: %w", err)
	}
	return result.Value, nil
}
