package wallet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

var (
	// ErrInvalidKey is returned when a supplied secret key cannot be decoded
	// into a signing identity.
	ErrInvalidKey = errors.New("invalid secret key")

	// ErrInvalidAddress is returned when a destination address is malformed.
	ErrInvalidAddress = errors.New("invalid address")
)

var keySeparator = regexp.MustCompile(`[\s,]+`)

// Identity is a keypair capable of authorizing on-chain instructions. It is
// owned exclusively by the operation that decoded it and must not outlive it.
type Identity struct {
	key solana.PrivateKey
}

// PublicKey returns the identity's public key.
func (id *Identity) PublicKey() solana.PublicKey {
	return id.key.PublicKey()
}

// PrivateKey returns the raw signing key for transaction signing.
func (id *Identity) PrivateKey() solana.PrivateKey {
	return id.key
}

// Zeroize overwrites the secret key material in place. The identity is
// unusable afterwards.
func (id *Identity) Zeroize() {
	for i := range id.key {
		id.key[i] = 0
	}
	id.key = nil
}

// ZeroizeAll zeroizes every identity in the slice.
func ZeroizeAll(ids []*Identity) {
	for _, id := range ids {
		if id != nil {
			id.Zeroize()
		}
	}
}

// ParseSecretKeys decodes user-supplied secret key material into signing
// identities. Each line is either a mnemonic phrase or any number of base58
// secret keys separated by whitespace or commas. Validation happens before
// any network call; a single bad entry rejects the whole input.
func ParseSecretKeys(input string) ([]*Identity, error) {
	var identities []*Identity

	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if looksLikeMnemonic(line) {
			id, err := identityFromMnemonic(line)
			if err != nil {
				ZeroizeAll(identities)
				return nil, err
			}
			identities = append(identities, id)
			continue
		}

		for _, part := range keySeparator.Split(line, -1) {
			if part == "" {
				continue
			}
			id, err := identityFromBase58(part)
			if err != nil {
				ZeroizeAll(identities)
				return nil, err
			}
			identities = append(identities, id)
		}
	}

	if len(identities) == 0 {
		return nil, fmt.Errorf("%w: no keys supplied", ErrInvalidKey)
	}
	return identities, nil
}

// ParseDestination validates a consolidation destination address.
func ParseDestination(input string) (solana.PublicKey, error) {
	addr := strings.TrimSpace(input)
	pubkey, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	return pubkey, nil
}

func identityFromBase58(encoded string) (*Identity, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: not base58", ErrInvalidKey)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("%w: bad secret key size %d", ErrInvalidKey, len(raw))
	}
	return &Identity{key: solana.PrivateKey(raw)}, nil
}

// identityFromMnemonic derives the first account from a BIP-39 seed phrase.
func identityFromMnemonic(phrase string) (*Identity, error) {
	seed := bip39.NewSeed(strings.Join(strings.Fields(phrase), " "), "")
	account, err := types.AccountFromSeed(seed[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Identity{key: solana.PrivateKey(account.PrivateKey)}, nil
}

// looksLikeMnemonic reports whether a line is a valid seed phrase rather
// than a list of base58 keys.
func looksLikeMnemonic(line string) bool {
	words := strings.Fields(line)
	if len(words) != 12 && len(words) != 24 {
		return false
	}
	return bip39.IsMnemonicValid(strings.Join(words, " "))
}
