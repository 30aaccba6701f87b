package client

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"github.com/TheUnknownIndividual/solbeck/internal/config"
)

// Client wraps the Solana RPC client with the read/submit surface the
// settlement pipeline needs.
type Client struct {
	client *rpc.Client
	logger *logrus.Logger
}

// ClientConfig contains configuration for the Solana client
type ClientConfig struct {
	RPCEndpoint string
	APIKey      string
	Timeout     time.Duration
}

// TokenAccountInfo is one raw token account returned from an owner scan.
type TokenAccountInfo struct {
	Pubkey   solana.PublicKey
	Lamports uint64
	Data     []byte
}

// SignatureInfo is one entry of an address's recent signature history.
type SignatureInfo struct {
	Signature solana.Signature
	BlockTime *time.Time
	Failed    bool
}

// NewClient creates a new Solana RPC client
func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	var rpcClient *rpc.Client
	if cfg.APIKey != "" {
		rpcClient = rpc.NewWithHeaders(cfg.RPCEndpoint, map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		})
	} else {
		rpcClient = rpc.New(cfg.RPCEndpoint)
	}

	return &Client{
		client: rpcClient,
		logger: logger,
	}
}

// TokenAccountsByOwner enumerates all token-program accounts owned by owner.
func (c *Client) TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenAccountInfo, error) {
	programID := config.TokenProgramID
	result, err := c.client.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner failed: %w", err)
	}

	accounts := make([]TokenAccountInfo, 0, len(result.Value))
	for _, entry := range result.Value {
		if entry.Account.Data == nil {
			continue
		}
		data := entry.Account.Data.GetBinary()
		if len(data) == 0 {
			continue
		}
		accounts = append(accounts, TokenAccountInfo{
			Pubkey:   entry.Pubkey,
			Lamports: entry.Account.Lamports,
			Data:     data,
		})
	}
	return accounts, nil
}

// AccountLamports reads an account's current lamport balance.
// A missing account is not an error; it returns zero.
func (c *Client) AccountLamports(ctx context.Context, address solana.PublicKey) (uint64, error) {
	result, err := c.client.GetAccountInfo(ctx, address)
	if err != nil {
		if err == rpc.ErrNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	if result.Value == nil {
		return 0, nil
	}
	return result.Value.Lamports, nil
}

// AccountData reads an account's raw data bytes.
func (c *Client) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	result, err := c.client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	if result.Value == nil {
		return nil, fmt.Errorf("account %s not found", address)
	}
	return result.Value.Data.GetBinary(), nil
}

// Balance reads the native balance of an address at confirmed commitment.
func (c *Client) Balance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	result, err := c.client.GetBalance(ctx, address, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("getBalance failed: %w", err)
	}
	return result.Value, nil
}

// LatestBlockhash fetches a recent blockhash for transaction construction.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	return result.Value.Blockhash, nil
}

// SimulateTransaction runs a preflight simulation. A non-nil return
// error includes simulation-reported transaction errors.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) error {
	result, err := c.client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return fmt.Errorf("simulateTransaction failed: %w", err)
	}
	if result.Value != nil && result.Value.Err != nil {
		c.logger.WithFields(logrus.Fields{
			"err":  result.Value.Err,
			"logs": result.Value.Logs,
		}).Error("Transaction simulation reported an error")
		return fmt.Errorf("simulation failed: %v", result.Value.Err)
	}
	return nil
}

// SendTransaction submits a signed transaction with preflight enabled and a
// bounded retry count.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, maxRetries uint) (solana.Signature, error) {
	sig, err := c.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction failed: %w", err)
	}
	return sig, nil
}

// SignatureStatus reports whether a signature has reached confirmed (or
// finalized) commitment, and whether the transaction itself failed.
func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (confirmed bool, txErr error, err error) {
	result, err := c.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, nil, fmt.Errorf("getSignatureStatuses failed: %w", err)
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return false, nil, nil
	}
	status := result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed: %v", status.Err), nil
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return true, nil, nil
	}
	return false, nil, nil
}

// SignaturesForAddress returns up to limit recent signatures touching address,
// most recent first.
func (c *Client) SignaturesForAddress(ctx context.Context, address solana.PublicKey, limit int) ([]SignatureInfo, error) {
	results, err := c.client.GetSignaturesForAddressWithOpts(ctx, address, &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress failed: %w", err)
	}

	infos := make([]SignatureInfo, 0, len(results))
	for _, r := range results {
		info := SignatureInfo{Signature: r.Signature, Failed: r.Err != nil}
		if r.BlockTime != nil {
			t := r.BlockTime.Time()
			info.BlockTime = &t
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// TransactionBlockTime reads the block time of a landed transaction.
func (c *Client) TransactionBlockTime(ctx context.Context, sig solana.Signature) (*time.Time, error) {
	maxVersion := uint64(0)
	result, err := c.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("getTransaction failed: %w", err)
	}
	if result == nil || result.BlockTime == nil {
		return nil, nil
	}
	t := result.BlockTime.Time()
	return &t, nil
}
