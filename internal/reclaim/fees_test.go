package reclaim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredFee(t *testing.T) {
	testCases := []struct {
		name        string
		lamports    uint64
		basisPoints uint64
		expected    uint64
	}{
		{
			name:        "ten percent",
			lamports:    20_000_000,
			basisPoints: 1000,
			expected:    2_000_000,
		},
		{
			name:        "zero total",
			lamports:    0,
			basisPoints: 1000,
			expected:    0,
		},
		{
			name:        "floors fractional fee",
			lamports:    9_999,
			basisPoints: 1000,
			expected:    999,
		},
		{
			name:        "one lamport below fee threshold",
			lamports:    9,
			basisPoints: 1000,
			expected:    0,
		},
		{
			name:        "zero rate",
			lamports:    1_000_000,
			basisPoints: 0,
			expected:    0,
		},
		{
			name:        "full rate",
			lamports:    12_345,
			basisPoints: 10_000,
			expected:    12_345,
		},
		{
			name:        "large total does not overflow",
			lamports:    500_000_000_000_000_000, // 500M SOL in lamports
			basisPoints: 1000,
			expected:    50_000_000_000_000_000,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RequiredFee(tc.lamports, tc.basisPoints))
		})
	}
}

func TestFeeLedger_Gating(t *testing.T) {
	ledger := NewFeeLedger(1000, randomKey())
	result := makeResult(1_000_000, 2_000_000)
	ledger.Reset(result)

	first := result.Rows[0].AccountAddress
	second := result.Rows[1].AccountAddress

	assert.False(t, ledger.Gate(first))
	assert.False(t, ledger.Gate(second))

	ledger.MarkRow(first)
	assert.True(t, ledger.Gate(first))
	assert.False(t, ledger.Gate(second), "paying one row satisfies only that row")

	ledger.MarkAll()
	assert.True(t, ledger.Gate(first))
	assert.True(t, ledger.Gate(second), "paying all satisfies every row regardless of per-row flags")
}

func TestFeeLedger_ZeroRateGatesNothing(t *testing.T) {
	ledger := NewFeeLedger(0, randomKey())
	result := makeResult(1_000_000)
	ledger.Reset(result)

	assert.True(t, ledger.Gate(result.Rows[0].AccountAddress))
	assert.Equal(t, uint64(0), ledger.RequiredLamports())
}

func TestFeeLedger_RebaseInvalidatesPaidAll(t *testing.T) {
	ledger := NewFeeLedger(1000, randomKey())
	result := makeResult(1_000_000, 2_000_000, 3_000_000)
	ledger.Reset(result)

	survivor := result.Rows[0].AccountAddress
	departed := result.Rows[2].AccountAddress

	ledger.MarkRow(survivor)
	ledger.MarkRow(departed)
	ledger.MarkAll()
	assert.True(t, ledger.PaidAll())

	result.RemoveAddresses([]string{departed})
	ledger.Rebase(result)

	assert.False(t, ledger.PaidAll(), "paid-all was computed against a stale total")
	assert.True(t, ledger.Gate(survivor), "surviving row keeps its individual paid flag")
	assert.False(t, ledger.Gate(departed), "departed row's flag is purged")
	assert.Equal(t, RequiredFee(result.TotalLamports, 1000), ledger.RequiredLamports())
}

func TestFeeLedger_ResetClearsRowFlags(t *testing.T) {
	ledger := NewFeeLedger(1000, randomKey())
	first := makeResult(1_000_000)
	ledger.Reset(first)
	ledger.MarkRow(first.Rows[0].AccountAddress)

	second := makeResult(2_000_000)
	ledger.Reset(second)

	assert.False(t, ledger.Gate(first.Rows[0].AccountAddress))
	assert.False(t, ledger.PaidAll())
}
