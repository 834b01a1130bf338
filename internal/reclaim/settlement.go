package reclaim

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/sirupsen/logrus"
)

// Engine partitions closable rows into bounded batches and settles them as
// closing transactions, strictly one batch at a time.
type Engine struct {
	tx        *Transactor
	batchSize int
	logger    *logrus.Logger
}

// NewEngine creates a batch settlement engine
func NewEngine(tx *Transactor, batchSize int, logger *logrus.Logger) *Engine {
	return &Engine{
		tx:        tx,
		batchSize: batchSize,
		logger:    logger,
	}
}

// CloseOne settles a single close-account transaction for one row
func (e *Engine) CloseOne(ctx context.Context, row *ClosableAccount) (solana.Signature, error) {
	instruction, err := e.closeInstruction(row)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := e.tx.Submit(ctx, []solana.Instruction{instruction})
	if err != nil {
		return sig, err
	}

	e.logger.WithFields(logrus.Fields{
		"account":   row.AccountAddress,
		"mint":      row.MintAddress,
		"lamports":  row.DepositLamports,
		"signature": sig.String(),
	}).Info("🗑️ Token account closed")

	return sig, nil
}

// CloseAll settles the given rows in sequential batches of at most the batch
// ceiling. Each batch obtains a fresh blockhash at submit time. After a batch
// confirms, onBatch is invoked with the closed rows and the signature so the
// caller can prune its state before the next batch starts; a failed batch
// aborts the remainder and is reported with the rows left unsettled.
func (e *Engine) CloseAll(ctx context.Context, rows []*ClosableAccount, onBatch func(closed []*ClosableAccount, sig solana.Signature)) error {
	for start := 0; start < len(rows); start += e.batchSize {
		end := start + e.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		instructions := make([]solana.Instruction, 0, len(batch))
		for _, row := range batch {
			instruction, err := e.closeInstruction(row)
			if err != nil {
				return err
			}
			instructions = append(instructions, instruction)
		}

		sig, err := e.tx.Submit(ctx, instructions)
		if err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"batch_start": start,
				"batch_size":  len(batch),
				"remaining":   len(rows) - start,
			}).Error("❌ Settlement batch failed, aborting remainder")
			return fmt.Errorf("batch starting at row %d failed: %w", start, err)
		}

		e.logger.WithFields(logrus.Fields{
			"signature": sig.String(),
			"closed":    len(batch),
			"remaining": len(rows) - end,
		}).Info("✅ Settlement batch confirmed")

		if onBatch != nil {
			onBatch(batch, sig)
		}
	}
	return nil
}

// closeInstruction builds the SPL close-account instruction refunding the
// row's rent deposit to the signer.
func (e *Engine) closeInstruction(row *ClosableAccount) (solana.Instruction, error) {
	account, err := solana.PublicKeyFromBase58(row.AccountAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, row.AccountAddress)
	}

	owner := e.tx.signer.PublicKey()
	return token.NewCloseAccountInstruction(
		account, // Account to close
		owner,   // Destination for lamports
		owner,   // Owner/authority
		[]solana.PublicKey{},
	).Build(), nil
}
