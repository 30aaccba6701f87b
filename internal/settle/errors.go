package settle

import (
	"errors"
	"regexp"
	"strings"

	"github.com/TheUnknownIndividual/solbeck/internal/wallet"
)

// FailureKind is the user-facing classification of an operation failure.
// Distinct kinds let the transport show an actionable message instead of a
// generic one; FailureNonzeroBalance in particular signals a user-selection
// mistake ("select this token for burning first"), not a system fault.
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureInvalidKey
	FailureInvalidAddress
	FailureInsufficientFunds
	FailureFrozenToken
	FailureInvalidOwner
	FailureNonzeroBalance
)

var programErrorPattern = regexp.MustCompile(`[Cc]ustom program error: (0x[0-9a-fA-F]+)`)

// SPL token program error codes surfaced through simulation or preflight.
const (
	tokenErrInsufficientFunds   = "0x1"
	tokenErrOwnerMismatch       = "0x4"
	tokenErrNonNativeHasBalance = "0xb"
	tokenErrAccountFrozen       = "0x11"
)

// ClassifyFailure maps an operation error to its user-facing kind.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureGeneric
	}
	if errors.Is(err, wallet.ErrInvalidKey) {
		return FailureInvalidKey
	}
	if errors.Is(err, wallet.ErrInvalidAddress) {
		return FailureInvalidAddress
	}

	msg := err.Error()

	if match := programErrorPattern.FindStringSubmatch(msg); match != nil {
		switch strings.ToLower(match[1]) {
		case tokenErrNonNativeHasBalance:
			return FailureNonzeroBalance
		case tokenErrAccountFrozen:
			return FailureFrozenToken
		case tokenErrOwnerMismatch:
			return FailureInvalidOwner
		case tokenErrInsufficientFunds:
			return FailureInsufficientFunds
		}
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "Non-native account can only be closed if its balance is zero"):
		return FailureNonzeroBalance
	case strings.Contains(lower, "insufficient"):
		return FailureInsufficientFunds
	case strings.Contains(lower, "frozen"):
		return FailureFrozenToken
	}
	return FailureGeneric
}
