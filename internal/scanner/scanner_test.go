package scanner

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/TheUnknownIndividual/solbeck/internal/client"
	"github.com/TheUnknownIndividual/solbeck/internal/logger"
	"github.com/TheUnknownIndividual/solbeck/internal/metadata"
	"github.com/TheUnknownIndividual/solbeck/internal/wallet"
)

type fakeChain struct {
	accounts   map[solana.PublicKey][]client.TokenAccountInfo
	accountErr error
	sigs       map[solana.PublicKey][]client.SignatureInfo
	sigErr     error
	blockTimes map[solana.Signature]*time.Time
}

func (f *fakeChain) TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]client.TokenAccountInfo, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.accounts[owner], nil
}

func (f *fakeChain) SignaturesForAddress(ctx context.Context, address solana.PublicKey, limit int) ([]client.SignatureInfo, error) {
	if f.sigErr != nil {
		return nil, f.sigErr
	}
	return f.sigs[address], nil
}

func (f *fakeChain) TransactionBlockTime(ctx context.Context, sig solana.Signature) (*time.Time, error) {
	return f.blockTimes[sig], nil
}

type fakeMeta struct{}

func (fakeMeta) Resolve(ctx context.Context, mint solana.PublicKey) metadata.TokenInfo {
	return metadata.TokenInfo{Symbol: "TST", Decimals: 6}
}

func testIdentity(t *testing.T) *wallet.Identity {
	t.Helper()
	ids, err := wallet.ParseSecretKeys(solana.NewWallet().PrivateKey.String())
	if err != nil {
		t.Fatalf("ParseSecretKeys: %v", err)
	}
	return ids[0]
}

func tokenAccountData(t *testing.T, mint, owner solana.PublicKey, amount uint64) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).Encode(token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
	}); err != nil {
		t.Fatalf("encode token account: %v", err)
	}
	return buf.Bytes()
}

func testScanner(chain *fakeChain) *Scanner {
	log, _ := logger.NewLogger(logger.LogConfig{Level: "panic"})
	s := New(chain, fakeMeta{}, log, 5*24*time.Hour, 10)
	return s
}

func TestScan_PartitionsAccounts(t *testing.T) {
	id := testIdentity(t)
	owner := id.PublicKey()
	mint := solana.NewWallet().PublicKey()

	emptyAcct := solana.NewWallet().PublicKey()
	activeAcct := solana.NewWallet().PublicKey()
	staleAcct := solana.NewWallet().PublicKey()

	recent := time.Now().Add(-1 * time.Hour)
	old := time.Now().Add(-10 * 24 * time.Hour)

	chain := &fakeChain{
		accounts: map[solana.PublicKey][]client.TokenAccountInfo{
			owner: {
				{Pubkey: emptyAcct, Data: tokenAccountData(t, mint, owner, 0)},
				{Pubkey: activeAcct, Data: tokenAccountData(t, mint, owner, 5_000_000)},
				{Pubkey: staleAcct, Data: tokenAccountData(t, mint, owner, 3_000_000)},
			},
		},
		sigs: map[solana.PublicKey][]client.SignatureInfo{
			activeAcct: {{Signature: solana.Signature{1}, BlockTime: &recent}},
			staleAcct:  {{Signature: solana.Signature{2}, BlockTime: &old}},
		},
	}

	result, err := testScanner(chain).Scan(context.Background(), []*wallet.Identity{id}, true)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if result.Total() != 3 {
		t.Fatalf("expected 3 accounts total, got %d", result.Total())
	}
	if len(result.Empty) != 1 || !result.Empty[0].Address.Equals(emptyAcct) {
		t.Errorf("expected the zero-balance account in Empty, got %+v", result.Empty)
	}
	if len(result.WithBalance) != 1 || !result.WithBalance[0].Address.Equals(activeAcct) {
		t.Errorf("expected the recently used account in WithBalance, got %+v", result.WithBalance)
	}
	if len(result.Inactive) != 1 || !result.Inactive[0].Address.Equals(staleAcct) {
		t.Errorf("expected the stale account in Inactive, got %+v", result.Inactive)
	}

	rec := result.WithBalance[0]
	if rec.Symbol != "TST" || rec.UIBalance != 5.0 {
		t.Errorf("unexpected metadata on record: symbol %q balance %f", rec.Symbol, rec.UIBalance)
	}
}

func TestScan_NoHistoryMeansInactive(t *testing.T) {
	id := testIdentity(t)
	owner := id.PublicKey()
	acct := solana.NewWallet().PublicKey()

	chain := &fakeChain{
		accounts: map[solana.PublicKey][]client.TokenAccountInfo{
			owner: {{Pubkey: acct, Data: tokenAccountData(t, solana.NewWallet().PublicKey(), owner, 100)}},
		},
		sigs: map[solana.PublicKey][]client.SignatureInfo{},
	}

	result, err := testScanner(chain).Scan(context.Background(), []*wallet.Identity{id}, true)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(result.Inactive) != 1 {
		t.Errorf("an account with no signature history should classify as inactive, got %+v", result)
	}
}

func TestScan_ActivityProbeErrorMeansActive(t *testing.T) {
	id := testIdentity(t)
	owner := id.PublicKey()
	acct := solana.NewWallet().PublicKey()

	chain := &fakeChain{
		accounts: map[solana.PublicKey][]client.TokenAccountInfo{
			owner: {{Pubkey: acct, Data: tokenAccountData(t, solana.NewWallet().PublicKey(), owner, 100)}},
		},
		sigErr: errors.New("rpc node unavailable"),
	}

	result, err := testScanner(chain).Scan(context.Background(), []*wallet.Identity{id}, true)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(result.WithBalance) != 1 {
		t.Errorf("a failed activity probe must classify as active, got %+v", result)
	}
	if len(result.Inactive) != 0 {
		t.Error("a failed activity probe must never mark an account inactive")
	}
}

func TestScan_MissingBlockTimeFallsBackToFetch(t *testing.T) {
	id := testIdentity(t)
	owner := id.PublicKey()
	acct := solana.NewWallet().PublicKey()
	sig := solana.Signature{9}

	chain := &fakeChain{
		accounts: map[solana.PublicKey][]client.TokenAccountInfo{
			owner: {{Pubkey: acct, Data: tokenAccountData(t, solana.NewWallet().PublicKey(), owner, 100)}},
		},
		sigs: map[solana.PublicKey][]client.SignatureInfo{
			acct: {{Signature: sig, BlockTime: nil}},
		},
		blockTimes: map[solana.Signature]*time.Time{},
	}

	// Fallback fetch yields nothing either, so the account counts as abandoned.
	result, err := testScanner(chain).Scan(context.Background(), []*wallet.Identity{id}, true)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Inactive) != 1 {
		t.Errorf("unresolvable block time should classify as inactive, got %+v", result)
	}

	// With a recent block time resolved through the fallback, it is active.
	recent := time.Now().Add(-time.Hour)
	chain.blockTimes[sig] = &recent
	result, err = testScanner(chain).Scan(context.Background(), []*wallet.Identity{id}, true)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.WithBalance) != 1 {
		t.Errorf("recent fallback block time should classify as active, got %+v", result)
	}
}

func TestScan_UndecodableAccountTreatedAsEmpty(t *testing.T) {
	id := testIdentity(t)
	owner := id.PublicKey()
	acct := solana.NewWallet().PublicKey()

	chain := &fakeChain{
		accounts: map[solana.PublicKey][]client.TokenAccountInfo{
			owner: {{Pubkey: acct, Data: []byte{0x01, 0x02}}},
		},
	}

	result, err := testScanner(chain).Scan(context.Background(), []*wallet.Identity{id}, true)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(result.Empty) != 1 || !result.Empty[0].Address.Equals(acct) {
		t.Errorf("undecodable account should be queued for closure, got %+v", result)
	}
}

func TestScan_EnumerationFailureAborts(t *testing.T) {
	id := testIdentity(t)
	chain := &fakeChain{accountErr: errors.New("rpc down")}

	if _, err := testScanner(chain).Scan(context.Background(), []*wallet.Identity{id}, true); err == nil {
		t.Error("expected enumeration failure to abort the scan")
	}
}

func TestScan_ActivityCheckDisabled(t *testing.T) {
	id := testIdentity(t)
	owner := id.PublicKey()
	acct := solana.NewWallet().PublicKey()

	chain := &fakeChain{
		accounts: map[solana.PublicKey][]client.TokenAccountInfo{
			owner: {{Pubkey: acct, Data: tokenAccountData(t, solana.NewWallet().PublicKey(), owner, 100)}},
		},
	}

	result, err := testScanner(chain).Scan(context.Background(), []*wallet.Identity{id}, false)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(result.WithBalance) != 1 || len(result.Inactive) != 0 {
		t.Errorf("with activity checks off, balance-bearing accounts stay in WithBalance, got %+v", result)
	}
}
