package metadata

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/sirupsen/logrus"

	"github.com/TheUnknownIndividual/solbeck/internal/config"
)

// TokenInfo is the best-effort display metadata for a mint.
type TokenInfo struct {
	Symbol   string
	Decimals uint8
}

// ChainReader is the on-chain read surface the resolver needs.
type ChainReader interface {
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// Resolver maps a mint to a display symbol and decimal precision. Lookups are
// best-effort: registry misses fall back to an on-chain metadata parse, and
// finally to a placeholder label. A failed resolution never fails the caller.
type Resolver struct {
	chain      ChainReader
	httpClient *http.Client
	logger     *logrus.Logger

	registryURLs    []string
	registryTimeout time.Duration

	mu    sync.RWMutex
	cache map[solana.PublicKey]TokenInfo
}

// NewResolver creates a metadata resolver.
func NewResolver(chain ChainReader, logger *logrus.Logger, registryTimeout time.Duration) *Resolver {
	return &Resolver{
		chain:           chain,
		httpClient:      &http.Client{},
		logger:          logger,
		registryURLs:    []string{config.JupiterStrictListURL, config.JupiterAllListURL},
		registryTimeout: registryTimeout,
		cache:           make(map[solana.PublicKey]TokenInfo),
	}
}

// SetRegistryURLs overrides the registry endpoints (used in tests).
func (r *Resolver) SetRegistryURLs(urls []string) {
	r.registryURLs = urls
}

// Resolve returns display metadata for a mint. The returned info always
// carries a usable symbol; decimals default to 9 when the mint itself cannot
// be read.
func (r *Resolver) Resolve(ctx context.Context, mint solana.PublicKey) TokenInfo {
	r.mu.RLock()
	if info, ok := r.cache[mint]; ok {
		r.mu.RUnlock()
		return info
	}
	r.mu.RUnlock()

	info := TokenInfo{Decimals: 9}

	if decimals, err := r.mintDecimals(ctx, mint); err == nil {
		info.Decimals = decimals
	} else {
		r.logger.WithField("mint", mint.String()).WithError(err).Debug("Failed to read mint decimals")
	}

	symbol := r.lookupRegistries(ctx, mint)
	if symbol == "" {
		symbol = r.lookupOnChain(ctx, mint)
	}
	if symbol == "" {
		symbol = Placeholder(mint)
	}
	info.Symbol = symbol

	r.mu.Lock()
	r.cache[mint] = info
	r.mu.Unlock()

	return info
}

// Placeholder is the display label used when no symbol can be resolved.
func Placeholder(mint solana.PublicKey) string {
	s := mint.String()
	return fmt.Sprintf("Unknown (%s...%s)", s[:4], s[len(s)-4:])
}

func (r *Resolver) mintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	data, err := r.chain.AccountData(ctx, mint)
	if err != nil {
		return 0, err
	}
	var m token.Mint
	if err := bin.NewBinDecoder(data).Decode(&m); err != nil {
		return 0, fmt.Errorf("failed to decode mint account: %w", err)
	}
	return m.Decimals, nil
}

type registryToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

// lookupRegistries tries each token registry in order with a short timeout.
func (r *Resolver) lookupRegistries(ctx context.Context, mint solana.PublicKey) string {
	target := mint.String()
	for _, url := range r.registryURLs {
		symbol, err := r.queryRegistry(ctx, url, target)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"registry": url,
				"mint":     target,
			}).WithError(err).Debug("Registry lookup failed")
			continue
		}
		if symbol != "" {
			return symbol
		}
	}
	return ""
}

func (r *Resolver) queryRegistry(ctx context.Context, url, mint string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.registryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var tokens []registryToken
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return "", err
	}
	for _, t := range tokens {
		if t.Address == mint {
			return t.Symbol, nil
		}
	}
	return "", nil
}

// lookupOnChain parses the Metaplex metadata account for the mint.
func (r *Resolver) lookupOnChain(ctx context.Context, mint solana.PublicKey) string {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			config.MetaplexMetadataProgramID.Bytes(),
			mint.Bytes(),
		},
		config.MetaplexMetadataProgramID,
	)
	if err != nil {
		return ""
	}

	data, err := r.chain.AccountData(ctx, pda)
	if err != nil {
		return ""
	}
	symbol, err := ParseMetadataSymbol(data)
	if err != nil {
		r.logger.WithField("mint", mint.String()).WithError(err).Debug("Metadata parsing failed")
		return ""
	}
	return symbol
}

// ParseMetadataSymbol extracts the symbol field from a raw Metaplex token
// metadata account. Layout: key (1) | update authority (32) | mint (32) |
// name (u32 length prefix) | symbol (u32 length prefix) | ...
func ParseMetadataSymbol(data []byte) (string, error) {
	offset := 1 + 32 + 32
	if len(data) < offset+4 {
		return "", fmt.Errorf("metadata account too short")
	}

	nameLen := binary.LittleEndian.Uint32(data[offset:])
	offset += 4 + int(nameLen)
	if len(data) < offset+4 {
		return "", fmt.Errorf("metadata account truncated at name")
	}

	symbolLen := binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	if symbolLen == 0 || symbolLen >= 20 {
		return "", fmt.Errorf("implausible symbol length %d", symbolLen)
	}
	if len(data) < offset+int(symbolLen) {
		return "", fmt.Errorf("metadata account truncated at symbol")
	}

	symbol := strings.TrimRight(string(data[offset:offset+int(symbolLen)]), "\x00")
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", fmt.Errorf("empty symbol")
	}
	return symbol, nil
}
