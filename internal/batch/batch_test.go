package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/TheUnknownIndividual/solbeck/internal/logger"
)

type fakeChain struct {
	sent      []*solana.Transaction
	simErr    error
	sendErr   error
	simulated int
	polls     int
}

func (f *fakeChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{1}, nil
}

func (f *fakeChain) SimulateTransaction(ctx context.Context, tx *solana.Transaction) error {
	f.simulated++
	return f.simErr
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *solana.Transaction, maxRetries uint) (solana.Signature, error) {
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	var sig solana.Signature
	sig[0] = byte(len(f.sent))
	return sig, nil
}

func (f *fakeChain) SignatureStatus(ctx context.Context, sig solana.Signature) (bool, error, error) {
	f.polls++
	return true, nil, nil
}

func testSubmitter(chain *fakeChain) (*Submitter, solana.PrivateKey) {
	log, _ := logger.NewLogger(logger.LogConfig{Level: "panic"})
	feePayer := solana.NewWallet().PrivateKey
	return NewSubmitter(chain, feePayer, log, 3, 5, time.Millisecond), feePayer
}

func transferJob(owner *solana.Wallet, dest solana.PublicKey, count int) Job {
	job := Job{Owner: owner.PrivateKey}
	for i := 0; i < count; i++ {
		job.Instructions = append(job.Instructions,
			system.NewTransferInstruction(1000, owner.PublicKey(), dest).Build())
	}
	return job
}

func TestSubmit_ChunksJobsByBatchSize(t *testing.T) {
	chain := &fakeChain{}
	sub, _ := testSubmitter(chain)
	dest := solana.NewWallet().PublicKey()

	var jobs []Job
	for i := 0; i < 7; i++ {
		jobs = append(jobs, transferJob(solana.NewWallet(), dest, 1))
	}

	lastSig, err := sub.Submit(context.Background(), "close", jobs, 3)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// 7 jobs at size 3 -> 3 transactions (3+3+1)
	if len(chain.sent) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(chain.sent))
	}
	if lastSig[0] != 3 {
		t.Errorf("expected last signature from third send, got %v", lastSig[0])
	}
	if got := len(chain.sent[0].Message.Instructions); got != 3 {
		t.Errorf("expected 3 instructions in first batch, got %d", got)
	}
	if got := len(chain.sent[2].Message.Instructions); got != 1 {
		t.Errorf("expected 1 instruction in final batch, got %d", got)
	}
}

func TestSubmit_JobInstructionsStayTogether(t *testing.T) {
	chain := &fakeChain{}
	sub, _ := testSubmitter(chain)
	dest := solana.NewWallet().PublicKey()

	// one job carrying a burn+close style pair
	jobs := []Job{transferJob(solana.NewWallet(), dest, 2)}

	if _, err := sub.Submit(context.Background(), "burn", jobs, 3); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(chain.sent) != 1 {
		t.Fatalf("expected a single transaction, got %d", len(chain.sent))
	}
	if got := len(chain.sent[0].Message.Instructions); got != 2 {
		t.Errorf("expected both instructions in one transaction, got %d", got)
	}
}

func TestSubmit_SimulationFailureAborts(t *testing.T) {
	chain := &fakeChain{simErr: errors.New("custom program error: 0xb")}
	sub, _ := testSubmitter(chain)
	dest := solana.NewWallet().PublicKey()

	jobs := []Job{
		transferJob(solana.NewWallet(), dest, 1),
		transferJob(solana.NewWallet(), dest, 1),
	}

	_, err := sub.Submit(context.Background(), "close", jobs, 1)
	if err == nil {
		t.Fatal("expected simulation failure to abort the submit")
	}
	if len(chain.sent) != 0 {
		t.Errorf("nothing should be sent after a failed simulation, sent %d", len(chain.sent))
	}
	if chain.simulated != 1 {
		t.Errorf("expected the run to stop at the first failed batch, simulated %d", chain.simulated)
	}
}

func TestSubmit_SendFailureAborts(t *testing.T) {
	chain := &fakeChain{sendErr: errors.New("blockhash not found")}
	sub, _ := testSubmitter(chain)
	dest := solana.NewWallet().PublicKey()

	_, err := sub.Submit(context.Background(), "sweep", []Job{transferJob(solana.NewWallet(), dest, 1)}, 1)
	if err == nil {
		t.Fatal("expected send failure to surface")
	}
}

func TestSubmit_RejectsNonPositiveBatchSize(t *testing.T) {
	sub, _ := testSubmitter(&fakeChain{})
	if _, err := sub.Submit(context.Background(), "close", nil, 0); err == nil {
		t.Error("expected error for batch size 0")
	}
}

func TestSubmit_EmptyJobsNoTransactions(t *testing.T) {
	chain := &fakeChain{}
	sub, _ := testSubmitter(chain)

	sig, err := sub.Submit(context.Background(), "close", nil, 6)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !sig.IsZero() {
		t.Error("expected zero signature for empty job list")
	}
	if len(chain.sent) != 0 {
		t.Errorf("expected no transactions, sent %d", len(chain.sent))
	}
}

func TestSignerSet_DedupesOwners(t *testing.T) {
	feePayer := solana.NewWallet().PrivateKey
	owner := solana.NewWallet()
	other := solana.NewWallet()
	dest := solana.NewWallet().PublicKey()

	jobs := []Job{
		transferJob(owner, dest, 1),
		transferJob(owner, dest, 1),
		transferJob(other, dest, 1),
	}

	signers := SignerSet(feePayer, jobs)

	if len(signers) != 3 {
		t.Fatalf("expected 3 distinct signers, got %d", len(signers))
	}
	if !signers[0].PublicKey().Equals(feePayer.PublicKey()) {
		t.Error("fee payer must be the first signer")
	}
}

func TestSignerSet_SkipsNilOwner(t *testing.T) {
	feePayer := solana.NewWallet().PrivateKey
	signers := SignerSet(feePayer, []Job{{Owner: nil}})

	if len(signers) != 1 {
		t.Fatalf("expected only the fee payer, got %d signers", len(signers))
	}
}
