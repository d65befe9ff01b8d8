// Package service contains the wallet registry and the transaction coordinator.
package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
	"github.com/evmkeeper/custodial-wallet/internal/keyvault"
	"github.com/evmkeeper/custodial-wallet/internal/model"
	"github.com/evmkeeper/custodial-wallet/internal/repository"
)

// SigningWallet is a wallet resolved for signing: the stored row plus its
// decrypted private key. It lives only for the duration of one operation.
type SigningWallet struct {
	Wallet *model.CustodialWallet
	Key    *ecdsa.PrivateKey
}

// WalletRegistry owns the mapping from an authenticated principal to their
// custodial wallets.
type WalletRegistry interface {
	// ListWallets returns the user's wallets ascending by creation time;
	// empty slice for unknown users.
	ListWallets(ctx context.Context, userID string) ([]model.WalletSummary, error)
	// CreateWallet generates a key pair, encrypts the private key and
	// attaches the wallet to the user, creating the user if absent.
	CreateWallet(ctx context.Context, userID string) (model.NewWallet, error)
	// ResolveSigningWallet looks up the wallet by address scoped to the
	// owner and decrypts its key. Fails with WalletNotFoundError on a miss,
	// so a user can never sign with another user's wallet.
	ResolveSigningWallet(ctx context.Context, userID, address string) (*SigningWallet, error)
}

// RegistryImpl implements WalletRegistry over a wallet repository and the key vault.
type RegistryImpl struct {
	wallets repository.WalletRepository
	vault   *keyvault.Vault
}

// NewRegistry constructs the wallet registry.
func NewRegistry(wallets repository.WalletRepository, vault *keyvault.Vault) *RegistryImpl {
	return &RegistryImpl{wallets: wallets, vault: vault}
}

// ListWallets returns listing views in ascending created_at order.
func (s *RegistryImpl) ListWallets(ctx context.Context, userID string) ([]model.WalletSummary, error) {
	if userID == "" {
		return nil, errors.New("validation: empty userID")
	}
	wallets, err := s.wallets.ListByDynamicUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.WalletSummary, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, model.WalletSummary{
			Address:   w.Address,
			NickName:  w.NickName,
			PublicKey: w.PublicKey,
			CreatedAt: w.CreatedAt,
		})
	}
	return out, nil
}

// CreateWallet generates and stores a new wallet.
//
// The default nickname is "Account {n}" with n = 1 + current wallet count.
// The count read and the insert are not one transaction: two concurrent
// creations for the same user can produce duplicate nicknames. Known race,
// kept as-is.
func (s *RegistryImpl) CreateWallet(ctx context.Context, userID string) (model.NewWallet, error) {
	if userID == "" {
		return model.NewWallet{}, errors.New("validation: empty userID")
	}

	kp, err := keyvault.GenerateKeyPair()
	if err != nil {
		return model.NewWallet{}, err
	}

	encKey, iv, err := s.vault.Encrypt(kp.PrivateKey, nil)
	if err != nil {
		return model.NewWallet{}, err
	}

	count, err := s.wallets.CountByDynamicUserID(ctx, userID)
	if err != nil {
		return model.NewWallet{}, err
	}
	nickName := fmt.Sprintf("Account %d", count+1)

	id, err := uuid.NewV4()
	if err != nil {
		return model.NewWallet{}, err
	}
	w := &model.CustodialWallet{
		ID:            id,
		Address:       kp.Address,
		PublicKey:     kp.PublicKey,
		PrivateKeyEnc: encKey,
		PrivateKeyIV:  iv,
		NickName:      nickName,
	}
	if err := s.wallets.CreateWithUser(ctx, userID, w); err != nil {
		return model.NewWallet{}, err
	}

	return model.NewWallet{
		Address:   w.Address,
		NickName:  w.NickName,
		PublicKey: w.PublicKey,
	}, nil
}

// ResolveSigningWallet decrypts the wallet's key for one signing operation.
func (s *RegistryImpl) ResolveSigningWallet(ctx context.Context, userID, address string) (*SigningWallet, error) {
	w, err := s.wallets.GetByAddressForUser(ctx, userID, address)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, &errs.WalletNotFoundError{Address: address}
		}
		return nil, err
	}

	keyHex, err := s.vault.Decrypt(w.PrivateKeyEnc, w.PrivateKeyIV)
	if err != nil {
		return nil, err // decryption class, never masked as not-found
	}
	key, err := keyvault.ParsePrivateKey(keyHex)
	if err != nil {
		return nil, err
	}
	return &SigningWallet{Wallet: w, Key: key}, nil
}
