package reclaim

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Signer is the external wallet collaborator: it exposes the connected
// identity and signs transactions. The engine never holds key material.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(tx *solana.Transaction) error
}

// TxChain covers the ledger-write surface needed to settle a transaction
type TxChain interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// ConfirmWaiter blocks until a submitted signature resolves
type ConfirmWaiter interface {
	Await(ctx context.Context, signature solana.Signature) error
}

// Transactor runs one instruction set through the full submit/confirm
// discipline: fresh blockhash, build, sign, send, await confirmation.
type Transactor struct {
	chain   TxChain
	tracker ConfirmWaiter
	signer  Signer
	dryRun  bool
	logger  *logrus.Logger
}

// NewTransactor creates a new transactor
func NewTransactor(chain TxChain, tracker ConfirmWaiter, signer Signer, dryRun bool, logger *logrus.Logger) *Transactor {
	return &Transactor{
		chain:   chain,
		tracker: tracker,
		signer:  signer,
		dryRun:  dryRun,
		logger:  logger,
	}
}

// Submit builds, signs, sends and confirms one transaction carrying the
// given instructions. The blockhash is always fetched fresh; a stale one is
// rejected by the ledger.
func (t *Transactor) Submit(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	blockhash, err := t.chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(t.signer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := t.signer.Sign(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if t.dryRun {
		t.logger.WithFields(logrus.Fields{
			"instructions": len(instructions),
			"blockhash":    blockhash.String(),
		}).Info("Dry run: transaction built and signed, not sent")
		return solana.Signature{}, nil
	}

	sig, err := t.chain.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	if err := t.tracker.Await(ctx, sig); err != nil {
		return sig, err
	}

	t.logger.WithFields(logrus.Fields{
		"signature":    sig.String(),
		"instructions": len(instructions),
	}).Info("✅ Transaction confirmed")

	return sig, nil
}
