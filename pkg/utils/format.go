package utils

import (
	"fmt"

	"rent-reclaim-go/internal/config"
)

// ConvertSOLToLamports converts SOL to lamports
func ConvertSOLToLamports(sol float64) uint64 {
	return uint64(sol * config.LamportsPerSol)
}

// ConvertLamportsToSOL converts lamports to SOL
func ConvertLamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / config.LamportsPerSol
}

// FormatSOL renders a SOL amount with six decimal places
func FormatSOL(sol float64) string {
	return fmt.Sprintf("%.6f", sol)
}

// ShortAddress abbreviates a base58 address for display
func ShortAddress(addr string) string {
	return ShortAddressN(addr, 4)
}

// ShortAddressN abbreviates a base58 address keeping n leading and trailing
// characters
func ShortAddressN(addr string, n int) string {
	if len(addr) <= 2*n+3 {
		return addr
	}
	return addr[:n] + "…" + addr[len(addr)-n:]
}

// MinU64 returns the minimum of two uint64 values
func MinU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
