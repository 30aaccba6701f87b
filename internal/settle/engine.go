package settle

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TheUnknownIndividual/solbeck/internal/batch"
	"github.com/TheUnknownIndividual/solbeck/internal/fees"
	"github.com/TheUnknownIndividual/solbeck/internal/logger"
	"github.com/TheUnknownIndividual/solbeck/internal/scanner"
	"github.com/TheUnknownIndividual/solbeck/internal/wallet"
)

// Request describes one settlement run over a user's already-scanned wallets.
type Request struct {
	UserID     int64
	Identities []*wallet.Identity

	// Destination receives reclaimed rent, swept balances and burn proceeds.
	// Nil means the first identity's own address.
	Destination *solana.PublicKey

	// BurnTokens are accounts whose balances get burned before closing.
	// EmptyAccounts are closed directly.
	BurnTokens    []scanner.Record
	EmptyAccounts []scanner.Record
}

// Result is the reconciled outcome of a settlement run. FeeLamports is what
// the quote owed; FeeCollectedLamports is what the collection transaction
// actually moved, and stays zero when collection fails or is skipped.
type Result struct {
	OperationID          string
	UserID               int64
	WalletCount          int
	ClosedAccounts       int
	BurnedTokens         int
	BurnedDetails        []string
	GrossLamports        uint64
	FeeLamports          uint64
	FeeCollectedLamports uint64
	NetLamports          uint64
	Feeless              bool
	Destination          solana.PublicKey
	LastSignature        solana.Signature
	CompletedAt          time.Time
}

// ChainReader supplies the pre-closure balance reads the reconciler needs.
type ChainReader interface {
	AccountLamports(ctx context.Context, address solana.PublicKey) (uint64, error)
	Balance(ctx context.Context, address solana.PublicKey) (uint64, error)
}

// Batcher submits signed instruction batches and waits for confirmation.
type Batcher interface {
	Submit(ctx context.Context, kind string, jobs []batch.Job, batchSize int) (solana.Signature, error)
}

// Quoter prices the service fee for a gross reclaim amount.
type Quoter interface {
	QuoteFor(grossLamports uint64, destination solana.PublicKey, userID int64, walletCount int) fees.Quote
}

// QuotaLedger commits wallet usage against a user's feeless allowance.
type QuotaLedger interface {
	IncrementWalletCount(userID int64, walletCount int)
}

// Store persists settlement outcomes and guards fee collection against
// duplicate attempts. BeginFeeCollection must record the operation before
// any lamports move and report whether this operation already tried.
type Store interface {
	BeginFeeCollection(operationID string) (first bool, err error)
	MarkFeeCollected(operationID string) error
	SaveSettlement(res *Result) error
}

// Engine runs the burn, close, sweep and fee phases of a settlement and
// reconciles what was actually reclaimed.
type Engine struct {
	chain  ChainReader
	batch  Batcher
	quoter Quoter
	quota  QuotaLedger
	store  Store
	log    *logger.Logger
	entry  *logrus.Entry

	burnBatchSize  int
	closeBatchSize int
	estimatedRent  uint64
}

func NewEngine(chain ChainReader, batcher Batcher, quoter Quoter, quota QuotaLedger, store Store, log *logger.Logger, burnBatchSize, closeBatchSize int, estimatedRent uint64) *Engine {
	return &Engine{
		chain:          chain,
		batch:          batcher,
		quoter:         quoter,
		quota:          quota,
		store:          store,
		log:            log,
		entry:          log.WithComponent("settle"),
		burnBatchSize:  burnBatchSize,
		closeBatchSize: closeBatchSize,
		estimatedRent:  estimatedRent,
	}
}

// Settle executes the full settlement. Batch failures abort the run and are
// returned to the caller; fee collection failures never do. Gross lamports
// are read before each closure so the reconciliation reflects actual rent,
// falling back to the estimated rent when a read fails.
func (e *Engine) Settle(ctx context.Context, req Request) (*Result, error) {
	if len(req.Identities) == 0 {
		return nil, fmt.Errorf("settle: no wallets to settle")
	}

	destination := req.Identities[0].PublicKey()
	if req.Destination != nil {
		destination = *req.Destination
	}

	res := &Result{
		OperationID: uuid.NewString(),
		UserID:      req.UserID,
		WalletCount: len(req.Identities),
		Destination: destination,
	}

	e.entry.WithFields(logrus.Fields{
		"operation": res.OperationID,
		"user_id":   req.UserID,
		"wallets":   res.WalletCount,
		"burn":      len(req.BurnTokens),
		"close":     len(req.EmptyAccounts),
	}).Info("🧹 Settlement started")

	if len(req.BurnTokens) > 0 {
		sig, err := e.runBurnPass(ctx, req.BurnTokens, destination, res)
		if err != nil {
			return nil, fmt.Errorf("burn pass: %w", err)
		}
		res.LastSignature = sig
	}

	if len(req.EmptyAccounts) > 0 {
		sig, err := e.runClosePass(ctx, req.EmptyAccounts, destination, res)
		if err != nil {
			return nil, fmt.Errorf("close pass: %w", err)
		}
		res.LastSignature = sig
	}

	if err := e.runSweepPass(ctx, req.Identities, destination, res); err != nil {
		return nil, fmt.Errorf("sweep pass: %w", err)
	}

	quote := e.quoter.QuoteFor(res.GrossLamports, destination, req.UserID, res.WalletCount)
	res.FeeLamports = quote.FeeLamports
	res.NetLamports = quote.NetLamports
	res.Feeless = quote.Feeless

	if quote.Instruction != nil {
		res.FeeCollectedLamports = e.collectFee(ctx, res.OperationID, req, destination, quote)
	}

	if e.quota != nil {
		e.quota.IncrementWalletCount(req.UserID, res.WalletCount)
	}

	res.CompletedAt = time.Now()

	if e.store != nil {
		if err := e.store.SaveSettlement(res); err != nil {
			e.entry.WithError(err).WithField("operation", res.OperationID).Warn("Failed to persist settlement record")
		}
	}

	e.log.LogSettlement(req.UserID, res.ClosedAccounts, res.BurnedTokens, res.GrossLamports, res.FeeLamports, res.NetLamports)

	return res, nil
}

// runBurnPass burns each selected balance and closes the account in the same
// transaction, so a burn without its closure can never be confirmed alone.
func (e *Engine) runBurnPass(ctx context.Context, records []scanner.Record, destination solana.PublicKey, res *Result) (solana.Signature, error) {
	jobs := make([]batch.Job, 0, len(records))
	for _, rec := range records {
		res.GrossLamports += e.accountRent(ctx, rec.Address)

		owner := rec.Owner.PublicKey()
		burnIx := token.NewBurnInstruction(rec.RawBalance, rec.Address, rec.Mint, owner, []solana.PublicKey{}).Build()
		closeIx := token.NewCloseAccountInstruction(rec.Address, destination, owner, []solana.PublicKey{}).Build()

		jobs = append(jobs, batch.Job{
			Owner:        rec.Owner.PrivateKey(),
			Instructions: []solana.Instruction{burnIx, closeIx},
		})
		res.BurnedDetails = append(res.BurnedDetails, rec.DisplayName())
	}

	sig, err := e.batch.Submit(ctx, "burn", jobs, e.burnBatchSize)
	if err != nil {
		return solana.Signature{}, err
	}
	res.BurnedTokens += len(records)
	res.ClosedAccounts += len(records)
	return sig, nil
}

func (e *Engine) runClosePass(ctx context.Context, records []scanner.Record, destination solana.PublicKey, res *Result) (solana.Signature, error) {
	jobs := make([]batch.Job, 0, len(records))
	for _, rec := range records {
		res.GrossLamports += e.accountRent(ctx, rec.Address)

		closeIx := token.NewCloseAccountInstruction(rec.Address, destination, rec.Owner.PublicKey(), []solana.PublicKey{}).Build()
		jobs = append(jobs, batch.Job{
			Owner:        rec.Owner.PrivateKey(),
			Instructions: []solana.Instruction{closeIx},
		})
	}

	sig, err := e.batch.Submit(ctx, "close", jobs, e.closeBatchSize)
	if err != nil {
		return solana.Signature{}, err
	}
	res.ClosedAccounts += len(records)
	return sig, nil
}

// runSweepPass moves each wallet's native balance to the destination. The
// destination wallet's own balance still counts toward the gross total even
// though no transfer is needed for it.
func (e *Engine) runSweepPass(ctx context.Context, identities []*wallet.Identity, destination solana.PublicKey, res *Result) error {
	for _, id := range identities {
		owner := id.PublicKey()
		lamports, err := e.chain.Balance(ctx, owner)
		if err != nil {
			e.entry.WithError(err).WithField("wallet", owner.String()).Warn("Balance read failed, skipping sweep for wallet")
			continue
		}
		if lamports == 0 {
			continue
		}

		res.GrossLamports += lamports
		if owner.Equals(destination) {
			continue
		}

		job := batch.Job{
			Owner:        id.PrivateKey(),
			Instructions: []solana.Instruction{system.NewTransferInstruction(lamports, owner, destination).Build()},
		}
		sig, err := e.batch.Submit(ctx, "sweep", []batch.Job{job}, 1)
		if err != nil {
			return fmt.Errorf("sweep %s: %w", owner.String(), err)
		}
		res.LastSignature = sig
	}
	return nil
}

// accountRent reads the lamports held by a token account before it is closed.
// A failed read falls back to the rent-exempt estimate so reconciliation
// stays close to the true total instead of dropping the account entirely.
func (e *Engine) accountRent(ctx context.Context, address solana.PublicKey) uint64 {
	lamports, err := e.chain.AccountLamports(ctx, address)
	if err != nil {
		e.entry.WithError(err).WithField("account", address.String()).Warn("Rent read failed, using estimate")
		return e.estimatedRent
	}
	return lamports
}

// collectFee moves the service fee from the destination wallet to the fee
// collector in its own transaction. The fee can only be paid by whichever
// identity holds the destination address; when none of them does, or when the
// transfer fails, the fee is forfeited and the settlement still succeeds.
func (e *Engine) collectFee(ctx context.Context, operationID string, req Request, destination solana.PublicKey, quote fees.Quote) uint64 {
	if e.store != nil {
		first, err := e.store.BeginFeeCollection(operationID)
		if err != nil {
			e.entry.WithError(err).WithField("operation", operationID).Warn("Fee collection skipped, could not record attempt")
			return 0
		}
		if !first {
			e.entry.WithField("operation", operationID).Warn("Fee collection skipped, already attempted")
			return 0
		}
	}

	var payer *wallet.Identity
	for _, id := range req.Identities {
		if id.PublicKey().Equals(destination) {
			payer = id
			break
		}
	}
	if payer == nil {
		e.entry.WithFields(logrus.Fields{
			"operation":   operationID,
			"destination": destination.String(),
		}).Warn("Fee collection skipped, destination key not held")
		return 0
	}

	job := batch.Job{
		Owner:        payer.PrivateKey(),
		Instructions: []solana.Instruction{quote.Instruction},
	}
	if _, err := e.batch.Submit(ctx, "fee", []batch.Job{job}, 1); err != nil {
		reason := feeFailureReason(ClassifyFailure(err))
		e.log.LogFeeCollectionFailed(req.UserID, quote.FeeLamports, reason, err)
		return 0
	}

	if e.store != nil {
		if err := e.store.MarkFeeCollected(operationID); err != nil {
			e.entry.WithError(err).WithField("operation", operationID).Warn("Failed to mark fee collected")
		}
	}
	return quote.FeeLamports
}

func feeFailureReason(kind FailureKind) string {
	switch kind {
	case FailureInsufficientFunds:
		return "insufficient funds in destination wallet"
	case FailureInvalidOwner:
		return "destination key does not own the funding account"
	case FailureFrozenToken:
		return "funding account frozen"
	default:
		return "transaction failed"
	}
}
