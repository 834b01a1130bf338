package reclaim

import (
	"context"
	"sync"
	"testing"
	"time"

	"rent-reclaim-go/internal/client"
	"rent-reclaim-go/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitBudget = time.Second
	waitTick   = 2 * time.Millisecond
)

// waitForApply blocks until the background enrichment pass has handed its
// apply callback to the recording enricher.
func waitForApply(t *testing.T, r *recordingEnricher) func(MetaPatch) {
	t.Helper()
	var apply func(MetaPatch)
	require.Eventually(t, func() bool {
		apply = r.lastApply()
		return apply != nil
	}, waitBudget, waitTick)
	return apply
}

type sessionHarness struct {
	chain    *fakeChain
	signer   *testSigner
	enricher *recordingEnricher
	fees     *FeeLedger
	session  *Session
}

// newSessionHarness wires a full session against the fake chain. Every seeded
// account is a zero-balance deposit owned by the harness signer.
func newSessionHarness(t *testing.T, deposits ...uint64) *sessionHarness {
	t.Helper()

	chain := newFakeChain()
	for _, deposit := range deposits {
		chain.accounts = append(chain.accounts, client.TokenAccount{
			Pubkey:   randomKey(),
			Lamports: deposit,
			Data:     tokenAccountData(randomKey(), 0),
		})
	}

	signer := newTestSigner()
	enricher := &recordingEnricher{}
	fees := NewFeeLedger(1000, randomKey())

	log := testLogger()
	tx := NewTransactor(chain, okWaiter{}, signer, false, log)
	engine := NewEngine(tx, 8, log)
	scanner := NewScanner(chain, fastPolicy(), log)
	session := NewSession(scanner, enricher, fees, engine, tx, signer, log)
	t.Cleanup(session.Close)

	return &sessionHarness{
		chain:    chain,
		signer:   signer,
		enricher: enricher,
		fees:     fees,
		session:  session,
	}
}

func (h *sessionHarness) scan(t *testing.T) *ScanResult {
	t.Helper()
	result, err := h.session.Scan(context.Background(), h.signer.PublicKey().String())
	require.NoError(t, err)
	return result
}

func TestSession_ActionsRequireScanFirst(t *testing.T) {
	h := newSessionHarness(t)

	assert.ErrorIs(t, h.session.PayFeeAll(context.Background()), ErrNoScan)
	assert.ErrorIs(t, h.session.CloseAll(context.Background()), ErrNoScan)
}

func TestSession_IdentityMismatchBlocksActions(t *testing.T) {
	h := newSessionHarness(t, 2_039_280)

	// Scan a stranger's address; the connected signer does not match it.
	_, err := h.session.Scan(context.Background(), randomKey().String())
	require.NoError(t, err)

	assert.ErrorIs(t, h.session.PayFeeAll(context.Background()), ErrIdentityMismatch)
	assert.ErrorIs(t, h.session.CloseAll(context.Background()), ErrIdentityMismatch)
	assert.Equal(t, 0, h.chain.sends)
}

func TestSession_UnpaidFeeBlocksClose(t *testing.T) {
	h := newSessionHarness(t, 2_039_280, 2_039_280)
	result := h.scan(t)

	err := h.session.CloseAll(context.Background())
	assert.ErrorIs(t, err, ErrFeeUnpaid)

	err = h.session.CloseOne(context.Background(), result.Rows[0].AccountAddress)
	assert.ErrorIs(t, err, ErrFeeUnpaid)
	assert.Equal(t, 0, h.chain.sends)
}

func TestSession_PayFeeAllUnlocksEveryRow(t *testing.T) {
	h := newSessionHarness(t, 2_039_280, 2_039_280, 2_039_280)
	h.scan(t)

	require.NoError(t, h.session.PayFeeAll(context.Background()))
	assert.Equal(t, 1, h.chain.sends, "whole-set fee is one transfer")

	require.NoError(t, h.session.CloseAll(context.Background()))

	snapshot := h.session.Snapshot()
	assert.Equal(t, 0, snapshot.Count)
	assert.Equal(t, uint64(0), snapshot.TotalLamports)
}

func TestSession_PayFeeRowUnlocksOnlyThatRow(t *testing.T) {
	h := newSessionHarness(t, 2_039_280, 2_039_280)
	result := h.scan(t)

	paid := result.Rows[0].AccountAddress
	unpaid := result.Rows[1].AccountAddress

	require.NoError(t, h.session.PayFeeRow(context.Background(), paid))
	require.NoError(t, h.session.CloseOne(context.Background(), paid))

	err := h.session.CloseOne(context.Background(), unpaid)
	assert.ErrorIs(t, err, ErrFeeUnpaid)

	snapshot := h.session.Snapshot()
	assert.Equal(t, 1, snapshot.Count)
	assert.Equal(t, unpaid, snapshot.Rows[0].AccountAddress)
}

func TestSession_CloseRebasesFeeState(t *testing.T) {
	h := newSessionHarness(t, 2_039_280, 2_039_280)
	result := h.scan(t)

	require.NoError(t, h.session.PayFeeAll(context.Background()))
	require.NoError(t, h.session.CloseOne(context.Background(), result.Rows[0].AccountAddress))

	// The whole-set payment was consumed by the prune; the survivor must be
	// paid for again before it can be closed.
	err := h.session.CloseOne(context.Background(), result.Rows[1].AccountAddress)
	assert.ErrorIs(t, err, ErrFeeUnpaid)

	expected := RequiredFee(2_039_280, 1000)
	assert.Equal(t, expected, h.session.RequiredFeeLamports())
}

func TestSession_ZeroFeeRateMarksWithoutTransfer(t *testing.T) {
	h := newSessionHarness(t, 2_039_280)
	h.fees = NewFeeLedger(0, randomKey())
	h.session.fees = h.fees
	h.scan(t)

	require.NoError(t, h.session.PayFeeAll(context.Background()))
	assert.Equal(t, 0, h.chain.sends, "zero fee must not submit a transfer")

	require.NoError(t, h.session.CloseAll(context.Background()))
	assert.Equal(t, 1, h.chain.sends)
}

func TestSession_EnrichmentPatchesCurrentScan(t *testing.T) {
	h := newSessionHarness(t, 2_039_280)
	result := h.scan(t)

	apply := waitForApply(t, h.enricher)
	apply(MetaPatch{
		Mint: result.Rows[0].MintAddress,
		Meta: TokenMeta{Name: "Wrapped SOL", Symbol: "wSOL"},
	})

	snapshot := h.session.Snapshot()
	require.NotNil(t, snapshot.Rows[0].Meta)
	assert.Equal(t, "Wrapped SOL", snapshot.Rows[0].Meta.Name)
}

func TestSession_StalePatchDiscardedAfterRescan(t *testing.T) {
	h := newSessionHarness(t, 2_039_280)
	first := h.scan(t)

	staleApply := waitForApply(t, h.enricher)

	// Rescan supersedes the first pass before its resolution lands.
	h.scan(t)

	staleApply(MetaPatch{
		Mint: first.Rows[0].MintAddress,
		Meta: TokenMeta{Name: "Stale"},
	})

	snapshot := h.session.Snapshot()
	for _, row := range snapshot.Rows {
		assert.Nil(t, row.Meta, "superseded resolution must not patch the new scan")
	}
}

func TestSession_MetaWarnedOnEnrichmentFailure(t *testing.T) {
	h := newSessionHarness(t, 2_039_280)
	h.enricher.err = assert.AnError
	h.scan(t)

	assert.Eventually(t, h.session.MetaWarned, waitBudget, waitTick)
}

func TestSession_ClaimRecorderReceivesBatch(t *testing.T) {
	h := newSessionHarness(t, 2_039_280, 2_039_280)
	recorder := &captureRecorder{}
	h.session.SetClaimRecorder(recorder)
	h.scan(t)

	require.NoError(t, h.session.PayFeeAll(context.Background()))
	require.NoError(t, h.session.CloseAll(context.Background()))

	claims := recorder.logged()
	require.Len(t, claims, 1)
	assert.Equal(t, h.signer.PublicKey().String(), claims[0].Owner)
	assert.Len(t, claims[0].Accounts, 2)
	assert.Equal(t, uint64(2*2_039_280), claims[0].ReclaimedLamports)
	assert.Equal(t, "success", claims[0].Status)
}

type captureRecorder struct {
	mu     sync.Mutex
	claims []logger.ClaimLog
}

func (c *captureRecorder) LogClaim(claim logger.ClaimLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.claims = append(c.claims, claim)
	return nil
}

func (c *captureRecorder) logged() []logger.ClaimLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]logger.ClaimLog(nil), c.claims...)
}
