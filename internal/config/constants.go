package config

import "github.com/gagliardetto/solana-go"

// Solana network constants
const (
	SolanaMainnetRPC = "https://api.mainnet-beta.solana.com"
	SolanaDevnetRPC  = "https://api.devnet.solana.com"

	// WebSocket endpoints
	SolanaMainnetWS = "wss://api.mainnet-beta.solana.com"
	SolanaDevnetWS  = "wss://api.devnet.solana.com"

	// Solana constants
	LamportsPerSol = 1_000_000_000
)

// Program addresses
var (
	// SPL token program
	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// System program
	SystemProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")

	// Metaplex token metadata program
	MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

	// Default fee collection destination
	DefaultFeeTreasury = solana.MustPublicKeyFromBase58("PpokPuQ4zhMkTc8B376acPzAXiVZTaakWjqMaWKfJ9P")
)

// Reclamation constants
const (
	// Claim fee in basis points (1000 = 10%)
	DefaultFeeBasisPoints = 1000

	// Close instructions per settlement transaction
	MaxClosesPerTx = 8

	// SPL token account layout offsets
	TokenAccountMintOffset    = 0
	TokenAccountBalanceOffset = 64
	TokenAccountMinSize       = 72
)

// Retry constants
const (
	DefaultRetryAttempts = 4
	DefaultRetryBaseMs   = 400
	DefaultRetryJitterMs = 200
)

// Confirmation constants
const (
	DefaultConfirmPollMs     = 1200
	DefaultConfirmTimeoutSec = 90
)

// Metadata enrichment constants
const (
	DefaultMetaFetchTimeoutMs = 4500
	DefaultMetaCacheSize      = 2048

	// IPFS gateway used to rewrite content-addressed logo URIs
	IPFSGateway = "https://ipfs.io/ipfs/"
)

// DefaultTokenListSources are the external token lists consulted, in priority
// order, when on-chain metadata is missing for a mint.
var DefaultTokenListSources = []string{
	"https://token.jup.ag/all",
	"https://cache.jup.ag/tokens",
	"https://raw.githubusercontent.com/solana-labs/token-list/main/src/tokens/solana.tokenlist.json",
}
