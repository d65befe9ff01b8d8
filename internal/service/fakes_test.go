package service

import (
	"context"
	"crypto/ecdsa"
	"slices"
	"strings"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/gofrs/uuid/v5"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
	"github.com/evmkeeper/custodial-wallet/internal/evm"
	"github.com/evmkeeper/custodial-wallet/internal/model"
	"github.com/evmkeeper/custodial-wallet/internal/repository"
)

// fakeWalletRepo keeps wallets in memory, scoped per user, with
// case-insensitive address matching like the SQL implementation.
type fakeWalletRepo struct {
	owners  map[string][]model.CustodialWallet
	nowSeq  time.Time
	listErr error
}

var _ repository.WalletRepository = (*fakeWalletRepo)(nil)

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{owners: map[string][]model.CustodialWallet{}, nowSeq: time.Unix(1700000000, 0)}
}

func (f *fakeWalletRepo) ListByDynamicUserID(_ context.Context, userID string) ([]model.CustodialWallet, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.owners[userID]), nil
}

func (f *fakeWalletRepo) CountByDynamicUserID(_ context.Context, userID string) (int64, error) {
	return int64(len(f.owners[userID])), nil
}

func (f *fakeWalletRepo) CreateWithUser(_ context.Context, userID string, w *model.CustodialWallet) error {
	f.nowSeq = f.nowSeq.Add(time.Second)
	w.UserID = uuid.Must(uuid.NewV4())
	w.CreatedAt = f.nowSeq
	f.owners[userID] = append(f.owners[userID], *w)
	return nil
}

func (f *fakeWalletRepo) GetByAddressForUser(_ context.Context, userID, address string) (*model.CustodialWallet, error) {
	for _, w := range f.owners[userID] {
		if strings.EqualFold(w.Address, address) {
			w := w
			return &w, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeWalletRepo) GetByAddress(_ context.Context, address string) (*model.CustodialWallet, error) {
	for _, ws := range f.owners {
		for _, w := range ws {
			if strings.EqualFold(w.Address, address) {
				w := w
				return &w, nil
			}
		}
	}
	return nil, errs.ErrNotFound
}

// fakeMessageRepo appends to a slice; listing returns newest first.
type fakeMessageRepo struct {
	rows []model.MessageHistory
	now  time.Time
}

var _ repository.MessageRepository = (*fakeMessageRepo)(nil)

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{now: time.Unix(1700000000, 0)}
}

func (f *fakeMessageRepo) Create(_ context.Context, m *model.MessageHistory) error {
	f.now = f.now.Add(time.Second)
	m.CreatedAt = f.now
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMessageRepo) ListByWallet(_ context.Context, walletID uuid.UUID, skip, take int) ([]model.MessageHistory, error) {
	var all []model.MessageHistory
	for i := len(f.rows) - 1; i >= 0; i-- { // newest first
		if f.rows[i].WalletID == walletID {
			all = append(all, f.rows[i])
		}
	}
	if skip >= len(all) {
		return nil, nil
	}
	all = all[skip:]
	if take < len(all) {
		all = all[:take]
	}
	return all, nil
}

func (f *fakeMessageRepo) CountByWallet(_ context.Context, walletID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range f.rows {
		if m.WalletID == walletID {
			n++
		}
	}
	return n, nil
}

// fakeTxRepo stores LinkedTransaction rows and applies the same hash/nonce
// filters as the SQL implementation.
type fakeTxRepo struct {
	rows    []model.LinkedTransaction
	created []model.TransactionHistory
}

var _ repository.TransactionRepository = (*fakeTxRepo)(nil)

func (f *fakeTxRepo) Create(_ context.Context, t *model.TransactionHistory) error {
	t.CreatedAt = time.Now()
	f.created = append(f.created, *t)
	return nil
}

func (f *fakeTxRepo) LatestByChainAndAddress(_ context.Context, chainID uint64, address string) (*model.TransactionHistory, error) {
	var latest *model.TransactionHistory
	for i := range f.rows {
		r := f.rows[i]
		if r.ChainID != chainID || !strings.EqualFold(r.FromAddress, address) {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			th := r.TransactionHistory
			latest = &th
		}
	}
	if latest == nil {
		return nil, errs.ErrNotFound
	}
	return latest, nil
}

func (f *fakeTxRepo) FindByHashesForAddress(_ context.Context, chainID uint64, address string, hashes []string) ([]model.LinkedTransaction, error) {
	out := make([]model.LinkedTransaction, 0)
	for _, r := range f.rows {
		if r.ChainID != chainID || !slices.Contains(hashes, r.TransactionHash) {
			continue
		}
		if strings.EqualFold(r.FromAddress, address) || (r.IsInternal && strings.EqualFold(r.ToAddress, address)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeTxRepo) ListPendingCandidates(_ context.Context, chainID uint64, address string, excludeHashes []string, minNonce uint64) ([]model.LinkedTransaction, error) {
	out := make([]model.LinkedTransaction, 0)
	for _, r := range f.rows {
		if r.ChainID != chainID || !strings.EqualFold(r.FromAddress, address) {
			continue
		}
		if slices.Contains(excludeHashes, r.TransactionHash) || r.Nonce < minNonce {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// fakeGateway scripts chain responses without any network.
type fakeGateway struct {
	balance      string
	balanceErr   error
	receipts     map[string]*ethtypes.Receipt
	receiptErr   error
	submitHash   string
	submitNonce  uint64
	submitErr    error
	submitCalls  int
	transfers    []evm.Transfer
	transfersErr error
}

var _ evm.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) GetBalance(_ context.Context, chainID uint64, address string) (string, error) {
	if f.balanceErr != nil {
		return "", f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeGateway) SubmitTransaction(_ context.Context, chainID uint64, key *ecdsa.PrivateKey, to string, amountInEth float64) (string, uint64, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return "", 0, f.submitErr
	}
	return f.submitHash, f.submitNonce, nil
}

func (f *fakeGateway) GetTransactionReceipt(_ context.Context, chainID uint64, hash string) (*ethtypes.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return f.receipts[hash], nil
}

func (f *fakeGateway) GetTransferHistory(_ context.Context, chainID uint64, address string) ([]evm.Transfer, error) {
	if f.transfersErr != nil {
		return nil, f.transfersErr
	}
	return slices.Clone(f.transfers), nil
}
