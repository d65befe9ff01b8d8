package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/evmkeeper/custodial-wallet/internal/model"
)

// MessageRepository stores the append-only signed-message history.
type MessageRepository interface {
	// Create appends one message record.
	Create(ctx context.Context, m *model.MessageHistory) error

	// ListByWallet returns a window ordered by created_at descending.
	ListByWallet(ctx context.Context, walletID uuid.UUID, skip, take int) ([]model.MessageHistory, error)

	// CountByWallet returns the total number of messages for the wallet.
	CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
}

// TransactionRepository stores the local pending-transaction ledger. Rows
// are written once at submission time and never updated.
type TransactionRepository interface {
	// Create appends one submission record.
	Create(ctx context.Context, t *model.TransactionHistory) error

	// LatestByChainAndAddress returns the most recently created row for the
	// sending wallet address on the chain, or errs.ErrNotFound.
	LatestByChainAndAddress(ctx context.Context, chainID uint64, address string) (*model.TransactionHistory, error)

	// FindByHashesForAddress returns rows on the chain whose hash is in
	// hashes and whose sending or internal-destination wallet has the given
	// address, joined with both wallets' nicknames.
	FindByHashesForAddress(ctx context.Context, chainID uint64, address string, hashes []string) ([]model.LinkedTransaction, error)

	// ListPendingCandidates returns the wallet's rows on the chain whose
	// hash is not in excludeHashes and whose nonce is >= minNonce: the
	// locally known but not-yet-indexed submissions.
	ListPendingCandidates(ctx context.Context, chainID uint64, address string, excludeHashes []string, minNonce uint64) ([]model.LinkedTransaction, error)
}
