package reclaim

import (
	"context"
	"fmt"
	"time"

	"rent-reclaim-go/internal/client"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// StatusReader polls a signature's confirmation state
type StatusReader interface {
	SignatureStatus(ctx context.Context, signature solana.Signature) (*client.SignatureStatus, error)
}

// SignatureSubscriber waits for a signature over a push subscription. It
// returns the remote-reported transaction error, or nil on success.
type SignatureSubscriber interface {
	AwaitSignature(ctx context.Context, signature solana.Signature) (interface{}, error)
}

// Tracker observes a submitted transaction until it confirms, the remote
// reports a failure, or the wall-clock budget runs out. A timeout is
// surfaced distinctly from a failure since the true outcome is unknown.
type Tracker struct {
	status     StatusReader
	subscriber SignatureSubscriber // optional push-based path
	interval   time.Duration
	budget     time.Duration
	logger     *logrus.Logger
}

// NewTracker creates a polling confirmation tracker
func NewTracker(status StatusReader, interval, budget time.Duration, logger *logrus.Logger) *Tracker {
	return &Tracker{
		status:   status,
		interval: interval,
		budget:   budget,
		logger:   logger,
	}
}

// WithSubscriber switches the tracker to the subscription-based wait
func (t *Tracker) WithSubscriber(sub SignatureSubscriber) *Tracker {
	t.subscriber = sub
	return t
}

// Await blocks until the signature confirms. It returns ErrTimeout when the
// budget elapses without an observed outcome, or a *TransactionFailedError
// when the remote reports an error for the signature.
func (t *Tracker) Await(ctx context.Context, signature solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, t.budget)
	defer cancel()

	if t.subscriber != nil {
		return t.awaitSubscription(ctx, signature)
	}
	return t.awaitPolling(ctx, signature)
}

func (t *Tracker) awaitPolling(ctx context.Context, signature solana.Signature) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return t.mapDeadline(ctx, signature)
		case <-ticker.C:
			status, err := t.status.SignatureStatus(ctx, signature)
			if err != nil {
				// Transient status-read failures keep the poll alive; the
				// budget bounds the total wait either way.
				t.logger.WithError(err).WithField("signature", signature.String()).
					Debug("Signature status read failed, still waiting")
				continue
			}
			if !status.Found {
				continue
			}
			if status.Err != nil {
				return &TransactionFailedError{
					Signature: signature.String(),
					Detail:    status.Err,
				}
			}
			if status.Confirmed {
				return nil
			}
		}
	}
}

func (t *Tracker) awaitSubscription(ctx context.Context, signature solana.Signature) error {
	txErr, err := t.subscriber.AwaitSignature(ctx, signature)
	if err != nil {
		if ctx.Err() != nil {
			return t.mapDeadline(ctx, signature)
		}
		return fmt.Errorf("signature subscription failed: %w", err)
	}
	if txErr != nil {
		return &TransactionFailedError{
			Signature: signature.String(),
			Detail:    txErr,
		}
	}
	return nil
}

// mapDeadline distinguishes the budget elapsing (unconfirmed, outcome
// unknown) from the caller abandoning the wait.
func (t *Tracker) mapDeadline(ctx context.Context, signature solana.Signature) error {
	if ctx.Err() == context.DeadlineExceeded {
		t.logger.WithField("signature", signature.String()).
			Warn("⏳ Confirmation not observed within budget")
		return fmt.Errorf("%w: %s", ErrTimeout, signature.String())
	}
	return ctx.Err()
}
