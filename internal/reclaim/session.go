package reclaim

import (
	"context"
	"fmt"
	"sync"

	"rent-reclaim-go/internal/logger"
	"rent-reclaim-go/pkg/utils"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Enricher resolves display metadata for mints, applying partial patches as
// they arrive. It returns an error only when the pass as a whole failed;
// individual mint failures are swallowed.
type Enricher interface {
	Enrich(ctx context.Context, mints []string, apply func(MetaPatch)) error
}

// ClaimRecorder persists settled claim batches
type ClaimRecorder interface {
	LogClaim(claim logger.ClaimLog) error
}

// Session owns the reconciled scan/settlement state for one user session.
// All row mutations happen synchronously under the session lock, one
// resolved operation at a time; enrichment patches only touch row metadata
// and only while their originating scan is still current.
type Session struct {
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	scanner  *Scanner
	enricher Enricher
	fees     *FeeLedger
	engine   *Engine
	tx       *Transactor
	signer   Signer
	claims   ClaimRecorder
	logger   *logrus.Logger

	generation uint64
	result     *ScanResult
	metaWarned bool
}

// NewSession creates a session. signer, tx, engine and claims may be nil for
// a read-only (scan/display) session.
func NewSession(scanner *Scanner, enricher Enricher, fees *FeeLedger, engine *Engine, tx *Transactor, signer Signer, log *logrus.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ctx:      ctx,
		cancel:   cancel,
		scanner:  scanner,
		enricher: enricher,
		fees:     fees,
		engine:   engine,
		tx:       tx,
		signer:   signer,
		logger:   log,
	}
}

// SetClaimRecorder attaches a claim log
func (s *Session) SetClaimRecorder(claims ClaimRecorder) {
	s.claims = claims
}

// Close abandons any in-flight enrichment work
func (s *Session) Close() {
	s.cancel()
}

// Scan runs a fresh scan for the owner. The result is installed and visible
// immediately; metadata enrichment runs in the background and patches rows
// in place. Starting a new scan supersedes any older in-flight enrichment:
// resolutions carrying a stale generation are discarded, not aborted.
func (s *Session) Scan(ctx context.Context, ownerAddress string) (*ScanResult, error) {
	result, err := s.scanner.Scan(ctx, ownerAddress)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.result = result
	s.metaWarned = false
	s.fees.Reset(result)
	s.mu.Unlock()

	if s.enricher != nil && result.Count > 0 {
		mints := result.Mints()
		go func() {
			err := s.enricher.Enrich(s.ctx, mints, func(patch MetaPatch) {
				s.applyPatch(gen, patch)
			})
			if err != nil {
				s.warnMeta(gen)
			}
		}()
	}

	return s.Snapshot(), nil
}

// applyPatch attaches metadata to every live row of the patched mint,
// discarding resolutions from superseded scans.
func (s *Session) applyPatch(gen uint64, patch MetaPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.result == nil {
		return
	}
	for _, row := range s.result.Rows {
		if row.MintAddress == patch.Mint {
			meta := patch.Meta
			row.Meta = &meta
		}
	}
}

func (s *Session) warnMeta(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.metaWarned = true
		s.logger.Warn("Token names/logos unavailable right now")
	}
}

// MetaWarned reports whether the current scan's enrichment pass failed
// broadly
func (s *Session) MetaWarned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metaWarned
}

// Snapshot returns a copy of the current result set for display
func (s *Session) Snapshot() *ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil
	}
	copied := &ScanResult{
		Owner:               s.result.Owner,
		Count:               s.result.Count,
		TotalLamports:       s.result.TotalLamports,
		TotalReclaimableSOL: s.result.TotalReclaimableSOL,
	}
	for _, row := range s.result.Rows {
		r := *row
		if row.Meta != nil {
			meta := *row.Meta
			r.Meta = &meta
		}
		copied.Rows = append(copied.Rows, &r)
	}
	return copied
}

// RequiredFeeLamports returns the fee owed for the whole current result set
func (s *Session) RequiredFeeLamports() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fees.RequiredLamports()
}

// checkIdentity re-derives the identity check on every action: the scanned
// address must equal the connected signer. Never cached as a trust decision.
func (s *Session) checkIdentity() error {
	if s.result == nil {
		return ErrNoScan
	}
	if s.signer == nil || s.tx == nil {
		return fmt.Errorf("%w: connect a wallet to pay or claim", ErrNoSigner)
	}
	if s.signer.PublicKey().String() != s.result.Owner {
		return fmt.Errorf("%w: connected wallet must match the scanned address", ErrIdentityMismatch)
	}
	return nil
}

// PayFeeAll pays the claim fee for the whole result set with a single
// transfer, unlocking every row's claim gate.
func (s *Session) PayFeeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdentity(); err != nil {
		return err
	}

	required := s.fees.RequiredLamports()
	if required == 0 {
		s.fees.MarkAll()
		return nil
	}

	instruction := s.fees.TransferInstruction(s.signer.PublicKey(), required)
	sig, err := s.tx.Submit(ctx, []solana.Instruction{instruction})
	if err != nil {
		return err
	}

	s.fees.MarkAll()
	s.logger.WithFields(logrus.Fields{
		"signature":    sig.String(),
		"fee_lamports": required,
	}).Info("💸 Whole-set claim fee paid")
	return nil
}

// PayFeeRow pays the claim fee for one row, unlocking only that row's gate
func (s *Session) PayFeeRow(ctx context.Context, accountAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdentity(); err != nil {
		return err
	}

	row := s.result.Find(accountAddress)
	if row == nil {
		return fmt.Errorf("%w: account %s not in result set", ErrInvalidAddress, accountAddress)
	}

	required := s.fees.RequiredFor(row.DepositLamports)
	if required == 0 {
		s.fees.MarkRow(accountAddress)
		return nil
	}

	instruction := s.fees.TransferInstruction(s.signer.PublicKey(), required)
	sig, err := s.tx.Submit(ctx, []solana.Instruction{instruction})
	if err != nil {
		return err
	}

	s.fees.MarkRow(accountAddress)
	s.logger.WithFields(logrus.Fields{
		"signature":    sig.String(),
		"account":      accountAddress,
		"fee_lamports": required,
	}).Info("💸 Row claim fee paid")
	return nil
}

// CloseOne closes a single account after its gate is satisfied, then prunes
// it from the result set and recomputes totals and fee state.
func (s *Session) CloseOne(ctx context.Context, accountAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdentity(); err != nil {
		return err
	}

	row := s.result.Find(accountAddress)
	if row == nil {
		return fmt.Errorf("%w: account %s not in result set", ErrInvalidAddress, accountAddress)
	}
	if !s.fees.Gate(accountAddress) {
		return fmt.Errorf("%w: account %s", ErrFeeUnpaid, accountAddress)
	}

	sig, err := s.engine.CloseOne(ctx, row)
	if err != nil {
		return err
	}

	s.pruneClosed([]*ClosableAccount{row}, sig)
	return nil
}

// CloseAll closes every row in sequential batches. The gate must be
// satisfied for every row up front. After each confirmed batch the closed
// rows are pruned and totals and fee state recomputed before the next batch
// starts, so a mid-sequence failure leaves exactly the unsettled rows behind.
func (s *Session) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdentity(); err != nil {
		return err
	}
	if s.result.Count == 0 {
		return nil
	}
	for _, row := range s.result.Rows {
		if !s.fees.Gate(row.AccountAddress) {
			return fmt.Errorf("%w: account %s", ErrFeeUnpaid, row.AccountAddress)
		}
	}

	snapshot := make([]*ClosableAccount, len(s.result.Rows))
	copy(snapshot, s.result.Rows)

	return s.engine.CloseAll(ctx, snapshot, func(closed []*ClosableAccount, sig solana.Signature) {
		// Runs on the session's own control flow, already under the lock.
		s.pruneClosed(closed, sig)
	})
}

// pruneClosed removes confirmed-closed rows, recomputes totals from the
// surviving set, and rebases fee gating. Caller holds the lock.
func (s *Session) pruneClosed(closed []*ClosableAccount, sig solana.Signature) {
	addresses := make([]string, 0, len(closed))
	var reclaimed uint64
	for _, row := range closed {
		addresses = append(addresses, row.AccountAddress)
		reclaimed += row.DepositLamports
	}

	s.result.RemoveAddresses(addresses)
	s.fees.Rebase(s.result)

	s.logger.WithFields(logrus.Fields{
		"closed":             len(closed),
		"reclaimed_lamports": reclaimed,
		"remaining":          s.result.Count,
	}).Info("State pruned after settlement")

	if s.claims != nil {
		record := logger.ClaimLog{
			Owner:             s.result.Owner,
			Signature:         sig.String(),
			Accounts:          addresses,
			ReclaimedLamports: reclaimed,
			ReclaimedSOL:      utils.ConvertLamportsToSOL(reclaimed),
			Status:            "success",
		}
		if err := s.claims.LogClaim(record); err != nil {
			s.logger.WithError(err).Warn("Failed to write claim log")
		}
	}
}
