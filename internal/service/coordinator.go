package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
	"github.com/evmkeeper/custodial-wallet/internal/evm"
	"github.com/evmkeeper/custodial-wallet/internal/keyvault"
	"github.com/evmkeeper/custodial-wallet/internal/model"
	"github.com/evmkeeper/custodial-wallet/internal/repository"
)

// Pagination defaults for message history.
const (
	defaultPage     = 1
	defaultPageSize = 20
)

// Coordinator orchestrates signing, pending-transaction guarding, submission
// and the reconciled transaction history.
type Coordinator interface {
	// SignMessage signs message with the wallet's key (EIP-191) and appends
	// an encrypted record to the message history.
	SignMessage(ctx context.Context, userID, address, message string) (model.SignedMessage, error)
	// SendTransaction submits a native transfer after the pending guard.
	SendTransaction(ctx context.Context, userID string, chainID uint64, address, to string, amountInEth float64) (model.SendReceipt, error)
	// GetBalance returns the native balance for the address on the chain.
	GetBalance(ctx context.Context, chainID uint64, address string) (model.Balance, error)
	// GetMessageHistory returns a page of signed messages, newest first.
	GetMessageHistory(ctx context.Context, userID, address string, page, pageSize int) (model.MessagePage, error)
	// GetTransactionHistory merges indexed on-chain transfers with locally
	// tracked pending submissions.
	GetTransactionHistory(ctx context.Context, chainID uint64, address string) ([]model.HistoryEntry, error)
}

// CoordinatorImpl implements Coordinator.
type CoordinatorImpl struct {
	registry WalletRegistry
	wallets  repository.WalletRepository
	messages repository.MessageRepository
	txs      repository.TransactionRepository
	gateway  evm.Gateway
	vault    *keyvault.Vault
}

// NewCoordinator constructs the transaction coordinator.
func NewCoordinator(
	registry WalletRegistry,
	wallets repository.WalletRepository,
	messages repository.MessageRepository,
	txs repository.TransactionRepository,
	gateway evm.Gateway,
	vault *keyvault.Vault,
) *CoordinatorImpl {
	return &CoordinatorImpl{
		registry: registry,
		wallets:  wallets,
		messages: messages,
		txs:      txs,
		gateway:  gateway,
		vault:    vault,
	}
}

// SignMessage implements Coordinator. The returned signature is plaintext;
// only the stored copy is encrypted.
func (s *CoordinatorImpl) SignMessage(ctx context.Context, userID, address, message string) (model.SignedMessage, error) {
	sw, err := s.registry.ResolveSigningWallet(ctx, userID, address)
	if err != nil {
		return model.SignedMessage{}, err
	}

	signature, err := keyvault.SignMessage(sw.Key, message)
	if err != nil {
		return model.SignedMessage{}, err
	}

	encSig, iv, err := s.vault.Encrypt(signature, nil)
	if err != nil {
		return model.SignedMessage{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.SignedMessage{}, err
	}
	rec := &model.MessageHistory{
		ID:           id,
		WalletID:     sw.Wallet.ID,
		Message:      message,
		SignatureEnc: encSig,
		SignatureIV:  iv,
	}
	if err := s.messages.Create(ctx, rec); err != nil {
		return model.SignedMessage{}, err
	}

	return model.SignedMessage{Address: sw.Wallet.Address, Message: message, Signature: signature}, nil
}

// SendTransaction implements Coordinator.
//
// The pending guard is check-then-act against the chain's receipt oracle: it
// refuses a second submission while the wallet's most recent transaction on
// the chain is unconfirmed. A tight race between two concurrent calls can
// let both through; that is a documented property of this policy, not a
// locking bug to fix here.
func (s *CoordinatorImpl) SendTransaction(ctx context.Context, userID string, chainID uint64, address, to string, amountInEth float64) (model.SendReceipt, error) {
	last, err := s.txs.LatestByChainAndAddress(ctx, chainID, address)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.SendReceipt{}, err
	}
	if last != nil {
		rcpt, err := s.gateway.GetTransactionReceipt(ctx, chainID, last.TransactionHash)
		if err != nil {
			return model.SendReceipt{}, err
		}
		if rcpt == nil {
			return model.SendReceipt{}, &errs.PendingTransactionError{Hash: last.TransactionHash}
		}
	}

	sw, err := s.registry.ResolveSigningWallet(ctx, userID, address)
	if err != nil {
		return model.SendReceipt{}, err
	}

	hash, nonce, err := s.gateway.SubmitTransaction(ctx, chainID, sw.Key, to, amountInEth)
	if err != nil {
		return model.SendReceipt{}, err
	}

	// Internal-transfer detection: the recipient may be a custodial wallet
	// of any user in the system.
	isInternal := false
	var toWalletID uuid.NullUUID
	dest, err := s.wallets.GetByAddress(ctx, to)
	switch {
	case err == nil:
		isInternal = true
		toWalletID = uuid.NullUUID{UUID: dest.ID, Valid: true}
	case errors.Is(err, errs.ErrNotFound):
		// external recipient
	default:
		return model.SendReceipt{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return model.SendReceipt{}, err
	}
	rec := &model.TransactionHistory{
		ID:              id,
		WalletID:        sw.Wallet.ID,
		ChainID:         chainID,
		ToAddress:       to,
		AmountInEth:     amountInEth,
		TransactionHash: hash,
		Nonce:           nonce,
		IsInternal:      isInternal,
		ToWalletID:      toWalletID,
	}
	if err := s.txs.Create(ctx, rec); err != nil {
		return model.SendReceipt{}, err
	}

	return model.SendReceipt{
		ChainID:         chainID,
		Address:         sw.Wallet.Address,
		To:              to,
		AmountInEth:     amountInEth,
		TransactionHash: hash,
		Nonce:           nonce,
	}, nil
}

// GetBalance implements Coordinator.
func (s *CoordinatorImpl) GetBalance(ctx context.Context, chainID uint64, address string) (model.Balance, error) {
	balance, err := s.gateway.GetBalance(ctx, chainID, address)
	if err != nil {
		return model.Balance{}, err
	}
	return model.Balance{Address: address, Balance: balance}, nil
}

// GetMessageHistory implements Coordinator. The ownership check reuses
// signing-wallet resolution, so a foreign address fails with WalletNotFound.
func (s *CoordinatorImpl) GetMessageHistory(ctx context.Context, userID, address string, page, pageSize int) (model.MessagePage, error) {
	sw, err := s.registry.ResolveSigningWallet(ctx, userID, address)
	if err != nil {
		return model.MessagePage{}, err
	}

	if page <= 0 {
		page = defaultPage
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	skip := pageSize * (page - 1)

	items, err := s.messages.ListByWallet(ctx, sw.Wallet.ID, skip, pageSize)
	if err != nil {
		return model.MessagePage{}, err
	}
	totalCount, err := s.messages.CountByWallet(ctx, sw.Wallet.ID)
	if err != nil {
		return model.MessagePage{}, err
	}

	// A pageSize above the true count always reports exactly one page,
	// including for an empty history.
	totalPages := int64(1)
	if totalCount >= int64(pageSize) {
		totalPages = (totalCount + int64(pageSize) - 1) / int64(pageSize)
	}

	out := make([]model.MessageItem, 0, len(items))
	for _, m := range items {
		out = append(out, model.MessageItem{
			Address:   sw.Wallet.Address,
			Message:   m.Message,
			CreatedAt: m.CreatedAt,
		})
	}
	return model.MessagePage{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
		Items:      out,
	}, nil
}

// GetTransactionHistory implements Coordinator.
//
// Reconciliation: indexed transfers are tagged sealed with a direction
// relative to the queried address and enriched with internal-transfer
// metadata from local rows matched by hash. Local rows the indexer has not
// seen yet, at or above the minimum on-chain outgoing nonce, are presented
// as pending. Pending entries come first; the final sort by creation time is
// best-effort recency across two different clocks, not a total order.
func (s *CoordinatorImpl) GetTransactionHistory(ctx context.Context, chainID uint64, address string) ([]model.HistoryEntry, error) {
	transfers, err := s.gateway.GetTransferHistory(ctx, chainID, address)
	if err != nil {
		return nil, err
	}

	onchain := make([]model.HistoryEntry, 0, len(transfers))
	hashes := make([]string, 0, len(transfers))
	var minNonce uint64
	haveOutgoing := false
	for _, tr := range transfers {
		direction := model.DirectionIncoming
		if strings.EqualFold(tr.From, address) {
			direction = model.DirectionOutgoing
			if !haveOutgoing || tr.Nonce < minNonce {
				minNonce = tr.Nonce
				haveOutgoing = true
			}
		}
		hashes = append(hashes, tr.Hash)
		onchain = append(onchain, model.HistoryEntry{
			From:            tr.From,
			To:              tr.To,
			TransactionHash: tr.Hash,
			Nonce:           tr.Nonce,
			Sealed:          true,
			AmountInEth:     evm.WeiToEther(tr.Value),
			Direction:       direction,
			CreatedAt:       tr.Timestamp,
		})
	}

	local, err := s.txs.FindByHashesForAddress(ctx, chainID, address, hashes)
	if err != nil {
		return nil, err
	}
	byHash := make(map[string]model.LinkedTransaction, len(local))
	for _, lt := range local {
		byHash[lt.TransactionHash] = lt
	}
	for i := range onchain {
		lt, ok := byHash[onchain[i].TransactionHash]
		if !ok {
			continue
		}
		onchain[i].IsInternal = lt.IsInternal
		if onchain[i].Direction == model.DirectionIncoming {
			nick := lt.FromNickName
			onchain[i].NickName = &nick
		} else {
			onchain[i].NickName = lt.ToNickName
		}
	}

	pendingRows, err := s.txs.ListPendingCandidates(ctx, chainID, address, hashes, minNonce)
	if err != nil {
		return nil, err
	}
	pending := make([]model.HistoryEntry, 0, len(pendingRows))
	for _, lt := range pendingRows {
		pending = append(pending, model.HistoryEntry{
			From:            lt.FromAddress,
			To:              lt.ToAddress,
			TransactionHash: lt.TransactionHash,
			Nonce:           lt.Nonce,
			Sealed:          false,
			AmountInEth:     formatAmount(lt.AmountInEth),
			IsInternal:      lt.IsInternal,
			NickName:        lt.ToNickName,
			Direction:       model.DirectionOutgoing, // only own submissions are tracked locally
			CreatedAt:       lt.CreatedAt,
		})
	}

	out := append(pending, onchain...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func formatAmount(amountInEth float64) string {
	return strconv.FormatFloat(amountInEth, 'f', -1, 64)
}
