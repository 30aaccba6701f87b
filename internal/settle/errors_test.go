package settle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/TheUnknownIndividual/solbeck/internal/wallet"
)

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureGeneric},
		{"invalid key", fmt.Errorf("parsing input: %w", wallet.ErrInvalidKey), FailureInvalidKey},
		{"invalid address", fmt.Errorf("destination: %w", wallet.ErrInvalidAddress), FailureInvalidAddress},
		{"nonzero balance code", errors.New("Transaction simulation failed: custom program error: 0xb"), FailureNonzeroBalance},
		{"nonzero balance message", errors.New("Non-native account can only be closed if its balance is zero"), FailureNonzeroBalance},
		{"frozen code", errors.New("custom program error: 0x11"), FailureFrozenToken},
		{"frozen message", errors.New("Account is frozen"), FailureFrozenToken},
		{"owner mismatch", errors.New("custom program error: 0x4"), FailureInvalidOwner},
		{"insufficient code", errors.New("custom program error: 0x1"), FailureInsufficientFunds},
		{"insufficient message", errors.New("Insufficient funds for fee"), FailureInsufficientFunds},
		{"generic", errors.New("blockhash not found"), FailureGeneric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyFailure(tc.err); got != tc.want {
				t.Errorf("ClassifyFailure(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyFailure_WrappedProgramError(t *testing.T) {
	err := fmt.Errorf("close batch 1/2 failed: %w",
		errors.New("Transaction simulation failed: Error processing Instruction 0: custom program error: 0x11"))

	if got := ClassifyFailure(err); got != FailureFrozenToken {
		t.Errorf("expected frozen classification through wrapping, got %v", got)
	}
}
