package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
	"github.com/evmkeeper/custodial-wallet/internal/model"
)

// WalletRepo implements WalletRepository using PostgreSQL.
type WalletRepo struct{ db *DB }

// NewWalletRepo constructs a wallet repository.
func NewWalletRepo(db *DB) *WalletRepo { return &WalletRepo{db: db} }

const walletColumns = `w.id, w.user_id, w.address, w.public_key, w.private_key_enc, w.private_key_iv, w.nick_name, w.created_at`

func scanWallet(row pgx.Row) (*model.CustodialWallet, error) {
	var w model.CustodialWallet
	err := row.Scan(&w.ID, &w.UserID, &w.Address, &w.PublicKey, &w.PrivateKeyEnc, &w.PrivateKeyIV, &w.NickName, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListByDynamicUserID selects the user's wallets ordered by creation time ascending.
func (r *WalletRepo) ListByDynamicUserID(ctx context.Context, dynamicUserID string) ([]model.CustodialWallet, error) {
	const q = `
SELECT ` + walletColumns + `
FROM custodial_wallets w
JOIN users u ON u.id = w.user_id
WHERE u.dynamic_user_id = $1
ORDER BY w.created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, dynamicUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CustodialWallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// CountByDynamicUserID counts the user's wallets. Unknown users count zero.
func (r *WalletRepo) CountByDynamicUserID(ctx context.Context, dynamicUserID string) (int64, error) {
	const q = `
SELECT count(*)
FROM custodial_wallets w
JOIN users u ON u.id = w.user_id
WHERE u.dynamic_user_id = $1`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q, dynamicUserID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateWithUser upserts the user row and attaches the wallet in one
// transaction. The upsert is idempotent on dynamic_user_id; it is not atomic
// with the nickname counter read, which happens in the service before this
// call (known race, kept as-is).
func (r *WalletRepo) CreateWithUser(ctx context.Context, dynamicUserID string, w *model.CustodialWallet) error {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	userID, err := uuid.NewV4()
	if err != nil {
		return err
	}

	const upsertUser = `
INSERT INTO users (id, dynamic_user_id) VALUES ($1, $2)
ON CONFLICT (dynamic_user_id) DO UPDATE SET dynamic_user_id = EXCLUDED.dynamic_user_id
RETURNING id`
	if err := tx.QueryRow(ctx, upsertUser, userID, dynamicUserID).Scan(&w.UserID); err != nil {
		return err
	}

	const insertWallet = `
INSERT INTO custodial_wallets (id, user_id, address, public_key, private_key_enc, private_key_iv, nick_name)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`
	err = tx.QueryRow(ctx, insertWallet,
		w.ID, w.UserID, w.Address, w.PublicKey, w.PrivateKeyEnc, w.PrivateKeyIV, w.NickName,
	).Scan(&w.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByAddressForUser resolves a wallet by address scoped to its owner,
// matching the address case-insensitively.
func (r *WalletRepo) GetByAddressForUser(ctx context.Context, dynamicUserID, address string) (*model.CustodialWallet, error) {
	const q = `
SELECT ` + walletColumns + `
FROM custodial_wallets w
JOIN users u ON u.id = w.user_id
WHERE u.dynamic_user_id = $1 AND lower(w.address) = lower($2)`
	w, err := scanWallet(r.db.Pool.QueryRow(ctx, q, dynamicUserID, address))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return w, nil
}

// GetByAddress resolves a wallet by address across all users.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*model.CustodialWallet, error) {
	const q = `
SELECT ` + walletColumns + `
FROM custodial_wallets w
WHERE lower(w.address) = lower($1)`
	w, err := scanWallet(r.db.Pool.QueryRow(ctx, q, address))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return w, nil
}
