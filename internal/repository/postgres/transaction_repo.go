package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
	"github.com/evmkeeper/custodial-wallet/internal/model"
)

// TransactionRepo implements TransactionRepository using PostgreSQL.
type TransactionRepo struct{ db *DB }

// NewTransactionRepo constructs a transaction history repository.
func NewTransactionRepo(db *DB) *TransactionRepo { return &TransactionRepo{db: db} }

// Create appends one submission record.
func (r *TransactionRepo) Create(ctx context.Context, t *model.TransactionHistory) error {
	const q = `
INSERT INTO transaction_history (id, wallet_id, chain_id, to_address, amount_in_eth, transaction_hash, nonce, is_internal, to_wallet_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q,
		t.ID, t.WalletID, t.ChainID, t.ToAddress, t.AmountInEth,
		t.TransactionHash, t.Nonce, t.IsInternal, t.ToWalletID,
	).Scan(&t.CreatedAt)
}

// LatestByChainAndAddress returns the newest row for the sending wallet
// address on the chain, matched case-insensitively.
func (r *TransactionRepo) LatestByChainAndAddress(ctx context.Context, chainID uint64, address string) (*model.TransactionHistory, error) {
	const q = `
SELECT t.id, t.wallet_id, t.chain_id, t.to_address, t.amount_in_eth, t.transaction_hash, t.nonce, t.is_internal, t.to_wallet_id, t.created_at
FROM transaction_history t
JOIN custodial_wallets w ON w.id = t.wallet_id
WHERE t.chain_id = $1 AND lower(w.address) = lower($2)
ORDER BY t.created_at DESC
LIMIT 1`
	var t model.TransactionHistory
	err := r.db.Pool.QueryRow(ctx, q, chainID, address).Scan(
		&t.ID, &t.WalletID, &t.ChainID, &t.ToAddress, &t.AmountInEth,
		&t.TransactionHash, &t.Nonce, &t.IsInternal, &t.ToWalletID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

const linkedColumns = `
t.id, t.wallet_id, t.chain_id, t.to_address, t.amount_in_eth, t.transaction_hash, t.nonce, t.is_internal, t.to_wallet_id, t.created_at,
w.address, w.nick_name, tw.nick_name`

func scanLinked(rows pgx.Rows) ([]model.LinkedTransaction, error) {
	defer rows.Close()
	out := make([]model.LinkedTransaction, 0)
	for rows.Next() {
		var lt model.LinkedTransaction
		err := rows.Scan(
			&lt.ID, &lt.WalletID, &lt.ChainID, &lt.ToAddress, &lt.AmountInEth,
			&lt.TransactionHash, &lt.Nonce, &lt.IsInternal, &lt.ToWalletID, &lt.CreatedAt,
			&lt.FromAddress, &lt.FromNickName, &lt.ToNickName,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

// FindByHashesForAddress returns rows on the chain whose hash is among
// hashes and which touch the address as sender or internal recipient.
func (r *TransactionRepo) FindByHashesForAddress(ctx context.Context, chainID uint64, address string, hashes []string) ([]model.LinkedTransaction, error) {
	if len(hashes) == 0 {
		return []model.LinkedTransaction{}, nil
	}
	const q = `
SELECT ` + linkedColumns + `
FROM transaction_history t
JOIN custodial_wallets w ON w.id = t.wallet_id
LEFT JOIN custodial_wallets tw ON tw.id = t.to_wallet_id
WHERE t.chain_id = $1
  AND t.transaction_hash = ANY($3)
  AND (lower(w.address) = lower($2) OR lower(tw.address) = lower($2))`
	rows, err := r.db.Pool.Query(ctx, q, chainID, address, hashes)
	if err != nil {
		return nil, err
	}
	return scanLinked(rows)
}

// ListPendingCandidates returns the wallet's rows on the chain not yet seen
// by the indexer: hash outside excludeHashes and nonce >= minNonce.
func (r *TransactionRepo) ListPendingCandidates(ctx context.Context, chainID uint64, address string, excludeHashes []string, minNonce uint64) ([]model.LinkedTransaction, error) {
	if excludeHashes == nil {
		excludeHashes = []string{}
	}
	const q = `
SELECT ` + linkedColumns + `
FROM transaction_history t
JOIN custodial_wallets w ON w.id = t.wallet_id
LEFT JOIN custodial_wallets tw ON tw.id = t.to_wallet_id
WHERE t.chain_id = $1
  AND lower(w.address) = lower($2)
  AND NOT (t.transaction_hash = ANY($3))
  AND t.nonce >= $4
ORDER BY t.created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, chainID, address, excludeHashes, minNonce)
	if err != nil {
		return nil, err
	}
	return scanLinked(rows)
}
