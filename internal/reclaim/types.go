package reclaim

import (
	"rent-reclaim-go/pkg/utils"
)

// TokenMeta is optional display metadata for a mint
type TokenMeta struct {
	Name    string
	Symbol  string
	LogoURI string
}

// MetaPatch attaches resolved metadata to every row of one mint
type MetaPatch struct {
	Mint string
	Meta TokenMeta
}

// ClosableAccount is one zero-balance token account found during a scan.
// The deposit is the account's own rent in lamports, not token units.
type ClosableAccount struct {
	AccountAddress  string
	MintAddress     string
	DepositLamports uint64
	ReclaimableSOL  float64
	Meta            *TokenMeta
}

// ScanResult owns the ordered closable rows plus aggregate totals. Totals
// are a pure function of the row set; Recompute must be called after any
// structural change instead of patching totals incrementally.
type ScanResult struct {
	Owner               string
	Rows                []*ClosableAccount
	Count               int
	TotalLamports       uint64
	TotalReclaimableSOL float64
}

// Recompute rebuilds the aggregate totals from the current row set. The
// lamport sum is converted to SOL once, after summation, so display totals
// cannot drift from per-row rounding.
func (sr *ScanResult) Recompute() {
	var total uint64
	for _, row := range sr.Rows {
		total += row.DepositLamports
	}
	sr.Count = len(sr.Rows)
	sr.TotalLamports = total
	sr.TotalReclaimableSOL = utils.ConvertLamportsToSOL(total)
}

// RemoveAddresses drops the named rows and recomputes totals
func (sr *ScanResult) RemoveAddresses(addresses []string) {
	if len(addresses) == 0 {
		return
	}
	drop := make(map[string]bool, len(addresses))
	for _, addr := range addresses {
		drop[addr] = true
	}

	kept := sr.Rows[:0]
	for _, row := range sr.Rows {
		if !drop[row.AccountAddress] {
			kept = append(kept, row)
		}
	}
	sr.Rows = kept
	sr.Recompute()
}

// Find returns the row with the given account address, or nil
func (sr *ScanResult) Find(accountAddress string) *ClosableAccount {
	for _, row := range sr.Rows {
		if row.AccountAddress == accountAddress {
			return row
		}
	}
	return nil
}

// Mints returns the distinct mint addresses across the row set, in first-seen
// order
func (sr *ScanResult) Mints() []string {
	seen := make(map[string]bool, len(sr.Rows))
	mints := make([]string, 0, len(sr.Rows))
	for _, row := range sr.Rows {
		if !seen[row.MintAddress] {
			seen[row.MintAddress] = true
			mints = append(mints, row.MintAddress)
		}
	}
	return mints
}
