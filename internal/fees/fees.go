package fees

import (
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/sirupsen/logrus"
)

// FeelessChecker decides whether a user qualifies for feeless service for an
// operation covering walletCount wallets.
type FeelessChecker interface {
	IsFeeless(userID int64, walletCount int) bool
}

// Quote is the fee split for one settlement operation.
type Quote struct {
	FeeLamports uint64
	NetLamports uint64
	Feeless     bool

	// Instruction transfers the fee from the consolidation destination to
	// the collector. Nil when the fee is zero, feeless, or below dust.
	Instruction solana.Instruction
}

// Calculator computes the service-fee split for reclaimed amounts. The rate
// is fixed and transparent; fees are taken from the pool of already
// consolidated funds at the destination, never from the original wallets.
type Calculator struct {
	rate      float64
	collector solana.PublicKey
	dust      uint64
	quota     FeelessChecker
	logger    *logrus.Logger
}

// NewCalculator creates a fee calculator. quota may be nil, in which case no
// user is ever feeless.
func NewCalculator(rate float64, collector solana.PublicKey, dust uint64, quota FeelessChecker, logger *logrus.Logger) *Calculator {
	return &Calculator{
		rate:      rate,
		collector: collector,
		dust:      dust,
		quota:     quota,
		logger:    logger,
	}
}

// Rate returns the configured fee rate.
func (c *Calculator) Rate() float64 {
	return c.rate
}

// QuoteFor computes the fee for grossLamports reclaimed on behalf of userID
// across walletCount wallets, with the transfer sourced at destination.
// userID 0 means anonymous; anonymous users are never feeless.
func (c *Calculator) QuoteFor(grossLamports uint64, destination solana.PublicKey, userID int64, walletCount int) Quote {
	feeless := userID != 0 && c.quota != nil && c.quota.IsFeeless(userID, walletCount)

	var fee uint64
	if !feeless {
		fee = uint64(math.Floor(float64(grossLamports) * c.rate))
	}

	quote := Quote{
		FeeLamports: fee,
		NetLamports: grossLamports - fee,
		Feeless:     feeless,
	}

	// A fee that costs more in transaction overhead than it is worth is not
	// collected.
	if fee > c.dust && !feeless {
		quote.Instruction = system.NewTransferInstruction(
			fee,
			destination,
			c.collector,
		).Build()
	}

	if feeless {
		c.logger.WithFields(logrus.Fields{
			"user_id":        userID,
			"gross_lamports": grossLamports,
		}).Info("🎁 Feeless service applied for referral user")
	}

	return quote
}
