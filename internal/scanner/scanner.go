package scanner

import (
	"context"
	"fmt"
	"math"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/sirupsen/logrus"

	"github.com/TheUnknownIndividual/solbeck/internal/client"
	"github.com/TheUnknownIndividual/solbeck/internal/logger"
	"github.com/TheUnknownIndividual/solbeck/internal/metadata"
	"github.com/TheUnknownIndividual/solbeck/internal/wallet"
)

// Activity classifies recent usage of a token account.
type Activity int

const (
	ActivityUnknown Activity = iota
	ActivityActive
	ActivityInactive
)

// Record represents one token account discovered during a scan. Records are
// read-only after the scan and are discarded when the operation completes.
type Record struct {
	Owner      *wallet.Identity
	Address    solana.PublicKey
	Mint       solana.PublicKey
	RawBalance uint64
	Decimals   uint8
	Symbol     string
	UIBalance  float64
	Activity   Activity
}

// DisplayName renders the record for user-facing lists.
func (r Record) DisplayName() string {
	return fmt.Sprintf("%.6f %s", r.UIBalance, r.Symbol)
}

// Result partitions discovered accounts. The three sets are disjoint and
// their union is exactly the accounts discovered for the scanned identities.
type Result struct {
	Empty       []Record
	WithBalance []Record
	Inactive    []Record
}

// Total returns the number of discovered accounts.
func (r *Result) Total() int {
	return len(r.Empty) + len(r.WithBalance) + len(r.Inactive)
}

// ChainReader is the on-chain read surface the scanner needs.
type ChainReader interface {
	TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]client.TokenAccountInfo, error)
	SignaturesForAddress(ctx context.Context, address solana.PublicKey, limit int) ([]client.SignatureInfo, error)
	TransactionBlockTime(ctx context.Context, sig solana.Signature) (*time.Time, error)
}

// MetadataResolver resolves display metadata for a mint.
type MetadataResolver interface {
	Resolve(ctx context.Context, mint solana.PublicKey) metadata.TokenInfo
}

// Scanner discovers and classifies token accounts owned by signing
// identities.
type Scanner struct {
	chain           ChainReader
	meta            MetadataResolver
	log             *logger.Logger
	entry           *logrus.Entry
	stalenessWindow time.Duration
	probeLimit      int

	// now is swappable for tests
	now func() time.Time
}

// New creates a scanner.
func New(chain ChainReader, meta MetadataResolver, log *logger.Logger, stalenessWindow time.Duration, probeLimit int) *Scanner {
	return &Scanner{
		chain:           chain,
		meta:            meta,
		log:             log,
		entry:           log.WithComponent("scanner"),
		stalenessWindow: stalenessWindow,
		probeLimit:      probeLimit,
		now:             time.Now,
	}
}

// Scan enumerates all token accounts owned by each identity and classifies
// them as empty, balance-bearing, or (when checkActivity is set) inactive.
// A failure to read a single account classifies it conservatively as empty;
// a failure to enumerate a whole identity aborts the scan.
func (s *Scanner) Scan(ctx context.Context, identities []*wallet.Identity, checkActivity bool) (*Result, error) {
	result := &Result{}
	s.log.LogScanStarted(len(identities), checkActivity)

	for _, id := range identities {
		owner := id.PublicKey()
		accounts, err := s.chain.TokenAccountsByOwner(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate token accounts for %s: %w", owner, err)
		}

		s.entry.WithFields(logrus.Fields{
			"wallet":   owner.String(),
			"accounts": len(accounts),
		}).Info("🔎 Checking wallet")

		for _, acct := range accounts {
			record, err := s.classify(ctx, id, acct, checkActivity)
			if err != nil {
				// Conservative: attempt closure. Closing a nonzero-balance
				// account fails loudly on-chain, so this cannot silently
				// destroy funds.
				s.entry.WithField("account", acct.Pubkey.String()).WithError(err).
					Error("Error reading token account, treating as empty")
				result.Empty = append(result.Empty, Record{Owner: id, Address: acct.Pubkey})
				continue
			}

			switch {
			case record.RawBalance == 0:
				result.Empty = append(result.Empty, record)
			case record.Activity == ActivityInactive:
				result.Inactive = append(result.Inactive, record)
			default:
				result.WithBalance = append(result.WithBalance, record)
			}
		}
	}

	s.log.LogScanCompleted(len(result.Empty), len(result.WithBalance), len(result.Inactive))
	return result, nil
}

func (s *Scanner) classify(ctx context.Context, id *wallet.Identity, acct client.TokenAccountInfo, checkActivity bool) (Record, error) {
	var ta token.Account
	if err := bin.NewBinDecoder(acct.Data).Decode(&ta); err != nil {
		return Record{}, fmt.Errorf("failed to decode token account: %w", err)
	}

	record := Record{
		Owner:      id,
		Address:    acct.Pubkey,
		Mint:       ta.Mint,
		RawBalance: ta.Amount,
	}

	if ta.Amount == 0 {
		// No metadata lookup for accounts that will simply be closed.
		return record, nil
	}

	info := s.meta.Resolve(ctx, ta.Mint)
	record.Decimals = info.Decimals
	record.Symbol = info.Symbol
	record.UIBalance = float64(ta.Amount) / math.Pow10(int(info.Decimals))

	if checkActivity {
		if s.isInactive(ctx, acct.Pubkey) {
			record.Activity = ActivityInactive
		} else {
			record.Activity = ActivityActive
		}
	}

	return record, nil
}

// isInactive reports whether the account's most recent transaction is older
// than the staleness window. An account with no history at all counts as
// inactive: absence of history is evidence of abandonment.
func (s *Scanner) isInactive(ctx context.Context, address solana.PublicKey) bool {
	sigs, err := s.chain.SignaturesForAddress(ctx, address, s.probeLimit)
	if err != nil {
		s.entry.WithField("account", address.String()).WithError(err).
			Error("Error checking account activity, assuming active")
		return false
	}

	if len(sigs) == 0 {
		return true
	}

	latest := sigs[0]
	blockTime := latest.BlockTime
	if blockTime == nil {
		bt, err := s.chain.TransactionBlockTime(ctx, latest.Signature)
		if err != nil || bt == nil {
			return true
		}
		blockTime = bt
	}

	return blockTime.Before(s.now().Add(-s.stalenessWindow))
}
