// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/evmkeeper/custodial-wallet/internal/model"
)

// WalletRepository provides access to users and their custodial wallets.
// Address lookups are case-insensitive.
type WalletRepository interface {
	// ListByDynamicUserID returns the user's wallets ordered by created_at
	// ascending. Unknown users get an empty slice, not an error.
	ListByDynamicUserID(ctx context.Context, dynamicUserID string) ([]model.CustodialWallet, error)

	// CountByDynamicUserID returns how many wallets the user owns.
	CountByDynamicUserID(ctx context.Context, dynamicUserID string) (int64, error)

	// CreateWithUser inserts the wallet, creating the user row first if it
	// does not exist (idempotent on the user).
	CreateWithUser(ctx context.Context, dynamicUserID string, w *model.CustodialWallet) error

	// GetByAddressForUser resolves a wallet by address scoped to its owner.
	// Returns errs.ErrNotFound when no wallet matches for that user.
	GetByAddressForUser(ctx context.Context, dynamicUserID, address string) (*model.CustodialWallet, error)

	// GetByAddress resolves a wallet by address across all users. Used only
	// for internal-transfer detection; never exposed to the API layer.
	GetByAddress(ctx context.Context, address string) (*model.CustodialWallet, error)
}
