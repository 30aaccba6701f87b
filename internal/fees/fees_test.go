package fees

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type stubQuota struct {
	feeless bool
}

func (s stubQuota) IsFeeless(userID int64, walletCount int) bool {
	return s.feeless
}

func testCalculator(t *testing.T, rate float64, dust uint64, feeless bool) *Calculator {
	t.Helper()
	collector := solana.NewWallet().PublicKey()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewCalculator(rate, collector, dust, stubQuota{feeless: feeless}, log)
}

func TestQuoteFor_TenPercentFloor(t *testing.T) {
	calc := testCalculator(t, 0.10, 1000, false)
	dest := solana.NewWallet().PublicKey()

	quote := calc.QuoteFor(2_039_280, dest, 42, 1)

	// floor(2039280 * 0.10) = 203928
	if quote.FeeLamports != 203_928 {
		t.Errorf("expected fee 203928, got %d", quote.FeeLamports)
	}
	if quote.NetLamports != 2_039_280-203_928 {
		t.Errorf("expected net %d, got %d", 2_039_280-203_928, quote.NetLamports)
	}
	if quote.Feeless {
		t.Error("expected non-feeless quote")
	}
	if quote.Instruction == nil {
		t.Error("expected a transfer instruction for a fee above the dust threshold")
	}
}

func TestQuoteFor_FeePlusNetEqualsGross(t *testing.T) {
	calc := testCalculator(t, 0.10, 1000, false)
	dest := solana.NewWallet().PublicKey()

	for _, gross := range []uint64{1, 999, 10_001, 2_039_280, 5_000_000_123} {
		quote := calc.QuoteFor(gross, dest, 42, 1)
		if quote.FeeLamports+quote.NetLamports != gross {
			t.Errorf("gross %d: fee %d + net %d != gross", gross, quote.FeeLamports, quote.NetLamports)
		}
	}
}

func TestQuoteFor_DustFeeSkipsCollection(t *testing.T) {
	calc := testCalculator(t, 0.10, 1000, false)
	dest := solana.NewWallet().PublicKey()

	// fee = floor(9999 * 0.10) = 999 <= dust threshold
	quote := calc.QuoteFor(9_999, dest, 42, 1)

	if quote.FeeLamports != 999 {
		t.Errorf("expected fee 999, got %d", quote.FeeLamports)
	}
	if quote.Instruction != nil {
		t.Error("expected no instruction for a dust-level fee")
	}
}

func TestQuoteFor_Feeless(t *testing.T) {
	calc := testCalculator(t, 0.10, 1000, true)
	dest := solana.NewWallet().PublicKey()

	quote := calc.QuoteFor(10_000_000, dest, 42, 3)

	if !quote.Feeless {
		t.Error("expected feeless quote")
	}
	if quote.FeeLamports != 0 {
		t.Errorf("expected zero fee, got %d", quote.FeeLamports)
	}
	if quote.NetLamports != 10_000_000 {
		t.Errorf("expected full net, got %d", quote.NetLamports)
	}
	if quote.Instruction != nil {
		t.Error("expected no instruction for a feeless quote")
	}
}

func TestQuoteFor_AnonymousUserNeverFeeless(t *testing.T) {
	calc := testCalculator(t, 0.10, 1000, true)
	dest := solana.NewWallet().PublicKey()

	quote := calc.QuoteFor(10_000_000, dest, 0, 1)

	if quote.Feeless {
		t.Error("user ID 0 must never quote feeless")
	}
	if quote.FeeLamports == 0 {
		t.Error("expected a fee for user ID 0")
	}
}

func TestQuoteFor_ZeroGross(t *testing.T) {
	calc := testCalculator(t, 0.10, 1000, false)
	dest := solana.NewWallet().PublicKey()

	quote := calc.QuoteFor(0, dest, 42, 1)

	if quote.FeeLamports != 0 || quote.NetLamports != 0 {
		t.Errorf("expected zero quote, got fee %d net %d", quote.FeeLamports, quote.NetLamports)
	}
	if quote.Instruction != nil {
		t.Error("expected no instruction for zero gross")
	}
}
