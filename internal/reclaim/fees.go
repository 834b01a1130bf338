package reclaim

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// FeeLedger computes the required claim fee and tracks which accounts have
// paid it. The gate for one account is satisfied by either a whole-set
// payment or that account's own payment.
type FeeLedger struct {
	basisPoints uint64
	treasury    solana.PublicKey

	requiredLamports uint64
	paidAll          bool
	paidRows         map[string]bool
}

// NewFeeLedger creates a fee ledger with the given rate and treasury
func NewFeeLedger(basisPoints uint64, treasury solana.PublicKey) *FeeLedger {
	return &FeeLedger{
		basisPoints: basisPoints,
		treasury:    treasury,
		paidRows:    make(map[string]bool),
	}
}

// RequiredFee returns floor(lamports * basisPoints / 10000). The split form
// keeps the intermediate product within uint64 for any lamport total.
func RequiredFee(lamports, basisPoints uint64) uint64 {
	return (lamports/10_000)*basisPoints + (lamports%10_000)*basisPoints/10_000
}

// RequiredFor returns the fee for one deposit at the ledger's rate
func (l *FeeLedger) RequiredFor(lamports uint64) uint64 {
	return RequiredFee(lamports, l.basisPoints)
}

// RequiredLamports returns the fee for the whole current result set
func (l *FeeLedger) RequiredLamports() uint64 {
	return l.requiredLamports
}

// Treasury returns the fee collection destination
func (l *FeeLedger) Treasury() solana.PublicKey {
	return l.treasury
}

// Gate reports whether the account is claimable: paid-all satisfies every
// row; otherwise the row needs its own payment. A zero fee rate gates
// nothing.
func (l *FeeLedger) Gate(accountAddress string) bool {
	if l.basisPoints == 0 {
		return true
	}
	return l.paidAll || l.paidRows[accountAddress]
}

// PaidAll reports whether the whole-set fee has been paid
func (l *FeeLedger) PaidAll() bool {
	return l.paidAll
}

// MarkAll records a successful whole-set fee payment
func (l *FeeLedger) MarkAll() {
	l.paidAll = true
}

// MarkRow records a successful per-row fee payment
func (l *FeeLedger) MarkRow(accountAddress string) {
	l.paidRows[accountAddress] = true
}

// Rebase re-derives the required fee from the result set and reconciles
// payment state with it: the whole-set payment is invalidated since it was
// computed against a total that no longer matches, per-row flags for
// departed addresses are purged, and surviving rows keep their flags.
func (l *FeeLedger) Rebase(result *ScanResult) {
	l.requiredLamports = RequiredFee(result.TotalLamports, l.basisPoints)
	l.paidAll = false

	alive := make(map[string]bool, len(result.Rows))
	for _, row := range result.Rows {
		alive[row.AccountAddress] = true
	}
	for addr := range l.paidRows {
		if !alive[addr] {
			delete(l.paidRows, addr)
		}
	}
}

// Reset clears all payment state for a fresh scan
func (l *FeeLedger) Reset(result *ScanResult) {
	l.paidRows = make(map[string]bool)
	l.Rebase(result)
}

// TransferInstruction builds the fee transfer for the given amount. Fee
// payment is always a single transfer, never batched.
func (l *FeeLedger) TransferInstruction(from solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, l.treasury).Build()
}
