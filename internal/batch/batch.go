package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/TheUnknownIndividual/solbeck/internal/logger"
)

// Job is one instruction group and the identity that must authorize it.
// A job's instructions always land in the same transaction.
type Job struct {
	Owner        solana.PrivateKey
	Instructions []solana.Instruction
}

// ChainSubmitter is the transaction surface the submitter needs.
type ChainSubmitter interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) error
	SendTransaction(ctx context.Context, tx *solana.Transaction, maxRetries uint) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (confirmed bool, txErr error, err error)
}

// Submitter groups jobs into bounded-size batches and pushes each batch
// through simulate -> send -> poll-for-confirmation. The fee payer signs and
// pays every transaction; it is a process-wide resource, read-only after
// startup. The submitter itself is stateless per batch; callers are
// responsible for ordering (burn batches before dependent close batches).
type Submitter struct {
	chain        ChainSubmitter
	feePayer     solana.PrivateKey
	log          *logger.Logger
	entry        *logrus.Entry
	sendRetries  uint
	pollAttempts int
	pollInterval time.Duration
}

// NewSubmitter creates a batch submitter.
func NewSubmitter(chain ChainSubmitter, feePayer solana.PrivateKey, log *logger.Logger, sendRetries uint, pollAttempts int, pollInterval time.Duration) *Submitter {
	return &Submitter{
		chain:        chain,
		feePayer:     feePayer,
		log:          log,
		entry:        log.WithComponent("batch"),
		sendRetries:  sendRetries,
		pollAttempts: pollAttempts,
		pollInterval: pollInterval,
	}
}

// Submit sends all jobs in batches of at most batchSize jobs, one
// transaction at a time, each fully confirmed or timed-out before the next
// begins. A simulation error is fatal for the whole call: partial execution
// would leave the reclaimed-amount ledger inconsistent. Returns the
// signature of the last submitted transaction.
func (s *Submitter) Submit(ctx context.Context, kind string, jobs []Job, batchSize int) (solana.Signature, error) {
	if batchSize <= 0 {
		return solana.Signature{}, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	var lastSig solana.Signature
	total := (len(jobs) + batchSize - 1) / batchSize

	for i := 0; i < len(jobs); i += batchSize {
		end := i + batchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		chunk := jobs[i:end]
		batchNum := i/batchSize + 1

		sig, err := s.submitBatch(ctx, kind, chunk)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("%s batch %d/%d failed: %w", kind, batchNum, total, err)
		}
		lastSig = sig

		instructionCount := 0
		for _, j := range chunk {
			instructionCount += len(j.Instructions)
		}
		s.log.LogBatchSubmitted(kind, batchNum, total, instructionCount, sig.String())
	}

	return lastSig, nil
}

func (s *Submitter) submitBatch(ctx context.Context, kind string, chunk []Job) (solana.Signature, error) {
	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	var instructions []solana.Instruction
	for _, job := range chunk {
		instructions = append(instructions, job.Instructions...)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(s.feePayer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	signers := SignerSet(s.feePayer, chunk)
	if err := signTransaction(tx, signers); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	s.entry.WithField("kind", kind).Debug("🧪 Simulating transaction")
	if err := s.chain.SimulateTransaction(ctx, tx); err != nil {
		return solana.Signature{}, err
	}

	sig, err := s.chain.SendTransaction(ctx, tx, s.sendRetries)
	if err != nil {
		return solana.Signature{}, err
	}

	s.confirmByPolling(ctx, sig)
	return sig, nil
}

// SignerSet returns the fee payer plus the distinct job owners, the fee
// payer first. A single identity owning multiple jobs in the batch appears
// exactly once.
func SignerSet(feePayer solana.PrivateKey, jobs []Job) []solana.PrivateKey {
	signers := []solana.PrivateKey{feePayer}
	seen := map[solana.PublicKey]bool{feePayer.PublicKey(): true}

	for _, job := range jobs {
		if job.Owner == nil {
			continue
		}
		pub := job.Owner.PublicKey()
		if seen[pub] {
			continue
		}
		seen[pub] = true
		signers = append(signers, job.Owner)
	}
	return signers
}

func signTransaction(tx *solana.Transaction, signers []solana.PrivateKey) error {
	keys := make(map[solana.PublicKey]solana.PrivateKey, len(signers))
	for _, signer := range signers {
		keys[signer.PublicKey()] = signer
	}

	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if priv, ok := keys[key]; ok {
			return &priv
		}
		return nil
	})
	return err
}

// confirmByPolling polls the signature status a bounded number of times.
// Exhausting the attempts is logged but not raised: the transaction may
// still land, and the operation proceeds optimistically rather than
// blocking indefinitely. No resubmission is attempted, to avoid a
// double-spend from resubmitting a transaction that actually landed.
func (s *Submitter) confirmByPolling(ctx context.Context, sig solana.Signature) {
	log := s.entry.WithField("signature", sig.String())
	log.Info("⏳ Waiting for confirmation")

	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		confirmed, txErr, err := s.chain.SignatureStatus(ctx, sig)
		if err != nil {
			log.WithError(err).Debug("Status poll failed")
		} else if txErr != nil {
			log.WithError(txErr).Error("❌ Transaction failed on chain")
			return
		} else if confirmed {
			log.Info("✅ Transaction confirmed")
			return
		}

		select {
		case <-ctx.Done():
			log.Warn("⚠️ Confirmation polling cancelled")
			return
		case <-time.After(s.pollInterval):
		}
	}

	log.WithField("attempts", s.pollAttempts).Warn("⚠️ Transaction not confirmed within polling window")
}
