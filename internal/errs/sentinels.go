// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrWalletNotFound indicates no custodial wallet matched the address for the caller.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInvalidChainID indicates the request referenced an unconfigured chain.
	ErrInvalidChainID = errors.New("invalid chain id")

	// ErrHasPendingTransaction indicates the wallet already has an unconfirmed transaction.
	ErrHasPendingTransaction = errors.New("has pending transaction")

	// ErrInsufficientFunds indicates the signer cannot cover value plus fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRateLimited indicates upstream provider throttling.
	ErrRateLimited = errors.New("rate limited")

	// ErrDecryption indicates a ciphertext/IV pair could not be decrypted.
	ErrDecryption = errors.New("decryption failed")
)

// WalletNotFoundError carries the address that failed the owner-scoped lookup.
type WalletNotFoundError struct {
	Address string
}

func (e *WalletNotFoundError) Error() string {
	return fmt.Sprintf("wallet with address %s not found", e.Address)
}

func (e *WalletNotFoundError) Unwrap() error { return ErrWalletNotFound }

// InvalidChainIDError carries the unsupported chain id.
type InvalidChainIDError struct {
	ChainID uint64
}

func (e *InvalidChainIDError) Error() string {
	return fmt.Sprintf("chain id %d is not supported", e.ChainID)
}

func (e *InvalidChainIDError) Unwrap() error { return ErrInvalidChainID }

// PendingTransactionError carries the hash of the unconfirmed transaction blocking submission.
type PendingTransactionError struct {
	Hash string
}

func (e *PendingTransactionError) Error() string {
	return fmt.Sprintf("transaction %s is pending, please wait until it is confirmed", e.Hash)
}

func (e *PendingTransactionError) Unwrap() error { return ErrHasPendingTransaction }
