package config

import "github.com/gagliardetto/solana-go"

// Solana network constants
const (
	SolanaMainnetRPC = "https://api.mainnet-beta.solana.com"
	SolanaDevnetRPC  = "https://api.devnet.solana.com"

	LamportsPerSol = 1_000_000_000

	// Rent held by a standard SPL token account. Used only as a fallback when
	// a live pre-closure read fails; actual reclaimed amounts come from chain.
	TokenAccountRentLamports = 2_039_280

	// Minimum lamports for rent exemption (~0.0009 SOL)
	MinimumRentLamports = 890_880
)

// Program addresses
var (
	SystemProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")

	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

	// Metaplex token metadata program (on-chain symbol fallback)
	MetaplexMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// Fee and settlement constants
const (
	// Service fee rate - fixed and transparent
	DefaultFeeRate = 0.10

	// Fees below this are not worth a transfer instruction
	DefaultDustThresholdLamports = 1000

	// Burn+close pairs are two instructions per account, so burn batches
	// are smaller than close-only batches.
	DefaultBurnBatchSize  = 3
	DefaultCloseBatchSize = 6

	// Submission and confirmation defaults
	DefaultMaxSendRetries      = 3
	DefaultConfirmPollAttempts = 30
	DefaultConfirmPollMs       = 1000

	// Accounts with no transaction newer than this are considered abandoned
	DefaultStalenessWindowHours = 5 * 24

	// How many recent signatures to probe when classifying activity
	DefaultSignatureProbeLimit = 10
)

// Token registry endpoints for symbol resolution
const (
	JupiterStrictListURL = "https://token.jup.ag/strict"
	JupiterAllListURL    = "https://token.jup.ag/all"

	DefaultRegistryTimeoutMs = 3000
)

// GetRPCEndpoint returns RPC endpoint based on network
func GetRPCEndpoint(network string) string {
	switch network {
	case "devnet":
		return SolanaDevnetRPC
	default:
		return SolanaMainnetRPC
	}
}

// ConvertSOLToLamports converts SOL to lamports
func ConvertSOLToLamports(sol float64) uint64 {
	return uint64(sol * LamportsPerSol)
}

// ConvertLamportsToSOL converts lamports to SOL
func ConvertLamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSol
}
