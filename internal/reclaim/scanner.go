package reclaim

import (
	"context"
	"fmt"

	"rent-reclaim-go/internal/client"
	"rent-reclaim-go/internal/config"
	"rent-reclaim-go/internal/retry"
	"rent-reclaim-go/pkg/utils"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

// TokenAccountReader lists an owner's raw token accounts
type TokenAccountReader interface {
	TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, program solana.PublicKey) ([]client.TokenAccount, error)
}

// Scanner enumerates a wallet's token accounts and classifies each as
// closable or not by inspecting the raw account bytes.
type Scanner struct {
	chain  TokenAccountReader
	policy retry.Policy
	logger *logrus.Logger
}

// NewScanner creates a new account scanner
func NewScanner(chain TokenAccountReader, policy retry.Policy, logger *logrus.Logger) *Scanner {
	return &Scanner{
		chain:  chain,
		policy: policy,
		logger: logger,
	}
}

// Scan fetches all token accounts owned by the given address and returns the
// closable subset with aggregate totals. The single network call is retried
// on provider throttles.
func (s *Scanner) Scan(ctx context.Context, ownerAddress string) (*ScanResult, error) {
	owner, err := solana.PublicKeyFromBase58(ownerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, ownerAddress)
	}

	var accounts []client.TokenAccount
	err = s.policy.Do(ctx, func() error {
		var opErr error
		accounts, opErr = s.chain.TokenAccountsByOwner(ctx, owner, config.TokenProgramID)
		return opErr
	})
	if err != nil {
		if retry.IsRateLimit(err) {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("token account scan failed: %w", err)
	}

	result := &ScanResult{Owner: owner.String()}
	for _, account := range accounts {
		if !IsClosable(account.Data) {
			continue
		}

		mint := base58.Encode(account.Data[config.TokenAccountMintOffset : config.TokenAccountMintOffset+32])
		result.Rows = append(result.Rows, &ClosableAccount{
			AccountAddress:  account.Pubkey.String(),
			MintAddress:     mint,
			DepositLamports: account.Lamports,
			ReclaimableSOL:  utils.ConvertLamportsToSOL(account.Lamports),
		})
	}
	result.Recompute()

	s.logger.WithFields(logrus.Fields{
		"owner":          result.Owner,
		"scanned":        len(accounts),
		"closable":       result.Count,
		"total_lamports": result.TotalLamports,
		"total_sol":      result.TotalReclaimableSOL,
	}).Info("🔍 Scan complete")

	return result, nil
}

// IsClosable reports whether a raw SPL token account holds a zero token
// balance. The u64 amount lives at byte offset 64; the account is closable
// iff all 8 balance bytes are zero, which avoids numeric parsing entirely.
func IsClosable(data []byte) bool {
	if len(data) < config.TokenAccountMinSize {
		return false
	}
	for i := 0; i < 8; i++ {
		if data[config.TokenAccountBalanceOffset+i] != 0 {
			return false
		}
	}
	return true
}
