package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	_ "github.com/mattn/go-sqlite3"

	"github.com/TheUnknownIndividual/solbeck/internal/referral"
	"github.com/TheUnknownIndividual/solbeck/internal/settle"
)

var ErrNotFound = errors.New("not found")

// Storage handles all database operations. It backs the referral ledger,
// the fee collection idempotency guard and the per-user settlement history.
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS referrals (
			user_id INTEGER PRIMARY KEY,
			code TEXT NOT NULL,
			wallet_count INTEGER NOT NULL DEFAULT 0,
			joined_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS settlements (
			operation_id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			wallet_count INTEGER NOT NULL,
			closed_accounts INTEGER NOT NULL,
			burned_tokens INTEGER NOT NULL,
			gross_lamports INTEGER NOT NULL,
			fee_lamports INTEGER NOT NULL,
			fee_collected_lamports INTEGER NOT NULL,
			net_lamports INTEGER NOT NULL,
			feeless INTEGER NOT NULL,
			last_signature TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_user_id ON settlements(user_id)`,

		`CREATE TABLE IF NOT EXISTS fee_collections (
			operation_id TEXT PRIMARY KEY,
			collected INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Referrals ---

// SaveReferral upserts a user's referral membership and usage counter.
func (s *Storage) SaveReferral(userID int64, code string, walletCount int, joinedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO referrals (user_id, code, wallet_count, joined_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			code = excluded.code,
			wallet_count = excluded.wallet_count`,
		userID, code, walletCount, joinedAt.Unix(),
	)
	return err
}

// LoadReferrals returns the full referral ledger, keyed by user ID.
func (s *Storage) LoadReferrals() (map[int64]referral.State, error) {
	rows, err := s.db.Query("SELECT user_id, code, wallet_count, joined_at FROM referrals")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[int64]referral.State)
	for rows.Next() {
		var userID, joinedAt int64
		var state referral.State
		if err := rows.Scan(&userID, &state.Code, &state.WalletCount, &joinedAt); err != nil {
			return nil, err
		}
		state.JoinedAt = time.Unix(joinedAt, 0)
		states[userID] = state
	}

	return states, rows.Err()
}

// --- Fee collections ---

// BeginFeeCollection records that an operation is about to attempt fee
// collection. Returns false when the operation already has a recorded
// attempt, which means no lamports may be moved again for it.
func (s *Storage) BeginFeeCollection(operationID string) (bool, error) {
	result, err := s.db.Exec(
		"INSERT OR IGNORE INTO fee_collections (operation_id, collected, created_at) VALUES (?, 0, ?)",
		operationID, time.Now().Unix(),
	)
	if err != nil {
		return false, err
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkFeeCollected flags an operation's fee as successfully moved.
func (s *Storage) MarkFeeCollected(operationID string) error {
	_, err := s.db.Exec(
		"UPDATE fee_collections SET collected = 1 WHERE operation_id = ?",
		operationID,
	)
	return err
}

// --- Settlements ---

// SaveSettlement records a completed settlement for stats and auditing.
func (s *Storage) SaveSettlement(res *settle.Result) error {
	feeless := 0
	if res.Feeless {
		feeless = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO settlements (
			operation_id, user_id, wallet_count, closed_accounts, burned_tokens,
			gross_lamports, fee_lamports, fee_collected_lamports, net_lamports,
			feeless, last_signature, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.OperationID, res.UserID, res.WalletCount, res.ClosedAccounts, res.BurnedTokens,
		res.GrossLamports, res.FeeLamports, res.FeeCollectedLamports, res.NetLamports,
		feeless, res.LastSignature.String(), res.CompletedAt.Unix(),
	)
	return err
}

// UserStats aggregates a user's settlement history.
type UserStats struct {
	Settlements    int
	WalletsCleaned int
	ClosedAccounts int
	BurnedTokens   int
	GrossLamports  uint64
	NetLamports    uint64
}

// Stats returns the aggregate settlement history for one user.
func (s *Storage) Stats(userID int64) (*UserStats, error) {
	var stats UserStats
	err := s.db.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(wallet_count), 0),
			COALESCE(SUM(closed_accounts), 0),
			COALESCE(SUM(burned_tokens), 0),
			COALESCE(SUM(gross_lamports), 0),
			COALESCE(SUM(net_lamports), 0)
		 FROM settlements WHERE user_id = ?`,
		userID,
	).Scan(&stats.Settlements, &stats.WalletsCleaned, &stats.ClosedAccounts,
		&stats.BurnedTokens, &stats.GrossLamports, &stats.NetLamports)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// LatestSettlement returns the most recent settlement for a user.
func (s *Storage) LatestSettlement(userID int64) (*settle.Result, error) {
	var res settle.Result
	var feeless int
	var sigText string
	var createdAt int64

	err := s.db.QueryRow(
		`SELECT operation_id, user_id, wallet_count, closed_accounts, burned_tokens,
			gross_lamports, fee_lamports, fee_collected_lamports, net_lamports,
			feeless, last_signature, created_at
		 FROM settlements WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&res.OperationID, &res.UserID, &res.WalletCount, &res.ClosedAccounts, &res.BurnedTokens,
		&res.GrossLamports, &res.FeeLamports, &res.FeeCollectedLamports, &res.NetLamports,
		&feeless, &sigText, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res.Feeless = feeless == 1
	res.CompletedAt = time.Unix(createdAt, 0)
	if sig, sigErr := solana.SignatureFromBase58(sigText); sigErr == nil {
		res.LastSignature = sig
	}

	return &res, nil
}
