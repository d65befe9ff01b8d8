package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/evmkeeper/custodial-wallet/internal/model"
)

// MessageRepo implements MessageRepository using PostgreSQL.
type MessageRepo struct{ db *DB }

// NewMessageRepo constructs a message history repository.
func NewMessageRepo(db *DB) *MessageRepo { return &MessageRepo{db: db} }

// Create appends one message record.
func (r *MessageRepo) Create(ctx context.Context, m *model.MessageHistory) error {
	const q = `
INSERT INTO message_history (id, wallet_id, message, signature_enc, signature_iv)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q, m.ID, m.WalletID, m.Message, m.SignatureEnc, m.SignatureIV).
		Scan(&m.CreatedAt)
}

// ListByWallet selects a window ordered by created_at descending.
func (r *MessageRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, skip, take int) ([]model.MessageHistory, error) {
	const q = `
SELECT id, wallet_id, message, signature_enc, signature_iv, created_at
FROM message_history
WHERE wallet_id = $1
ORDER BY created_at DESC
OFFSET $2 LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, walletID, skip, take)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.MessageHistory, 0, take)
	for rows.Next() {
		var m model.MessageHistory
		if err := rows.Scan(&m.ID, &m.WalletID, &m.Message, &m.SignatureEnc, &m.SignatureIV, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountByWallet counts all messages for the wallet.
func (r *MessageRepo) CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	const q = `SELECT count(*) FROM message_history WHERE wallet_id = $1`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q, walletID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
