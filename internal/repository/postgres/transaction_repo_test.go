package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
	"github.com/evmkeeper/custodial-wallet/internal/model"
)

var txCols = []string{"id", "wallet_id", "chain_id", "to_address", "amount_in_eth", "transaction_hash", "nonce", "is_internal", "to_wallet_id", "created_at"}

var linkedCols = append(append([]string{}, txCols...), "address", "nick_name", "to_nick_name")

func TestTransactionRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTransactionRepo(db)

	tx := &model.TransactionHistory{
		ID:              uuid.Must(uuid.NewV4()),
		WalletID:        uuid.Must(uuid.NewV4()),
		ChainID:         11155111,
		ToAddress:       "0xBoB",
		AmountInEth:     0.5,
		TransactionHash: "0xhash",
		Nonce:           4,
		IsInternal:      false,
	}

	mock.ExpectQuery(`INSERT INTO transaction_history`).
		WithArgs(tx.ID, tx.WalletID, tx.ChainID, tx.ToAddress, tx.AmountInEth, tx.TransactionHash, tx.Nonce, tx.IsInternal, tx.ToWalletID).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	require.NoError(t, r.Create(context.Background(), tx))
	require.False(t, tx.CreatedAt.IsZero())
}

func TestTransactionRepo_LatestByChainAndAddress(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTransactionRepo(db)

	id := uuid.Must(uuid.NewV4())
	walletID := uuid.Must(uuid.NewV4())
	created := time.Now()

	mock.ExpectQuery(`ORDER BY t.created_at DESC`).
		WithArgs(uint64(11155111), "0xAbC").
		WillReturnRows(pgxmock.NewRows(txCols).AddRow(
			id, walletID, uint64(11155111), "0xBoB", 0.25, "0xhash", uint64(9), true, uuid.NullUUID{}, created,
		))

	got, err := r.LatestByChainAndAddress(context.Background(), 11155111, "0xAbC")
	require.NoError(t, err)
	require.Equal(t, "0xhash", got.TransactionHash)
	require.Equal(t, uint64(9), got.Nonce)
	require.True(t, got.IsInternal)
}

func TestTransactionRepo_LatestByChainAndAddress_None(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTransactionRepo(db)

	mock.ExpectQuery(`ORDER BY t.created_at DESC`).
		WithArgs(uint64(84532), "0xAbC").
		WillReturnError(pgx.ErrNoRows)

	_, err := r.LatestByChainAndAddress(context.Background(), 84532, "0xAbC")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTransactionRepo_FindByHashesForAddress_EmptyHashes(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTransactionRepo(db)

	// No query must be issued for an empty hash set.
	out, err := r.FindByHashesForAddress(context.Background(), 11155111, "0xAbC", nil)
	require.NoError(t, err)
	require.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListPendingCandidates(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTransactionRepo(db)

	nick := "Account 2"
	mock.ExpectQuery(`AND t.nonce >= \$4`).
		WithArgs(uint64(11155111), "0xAbC", []string{"0xseen"}, uint64(7)).
		WillReturnRows(pgxmock.NewRows(linkedCols).AddRow(
			uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uint64(11155111), "0xBoB", 0.1,
			"0xpending", uint64(8), true, uuid.NullUUID{}, time.Now(),
			"0xAbC", "Account 1", &nick,
		))

	out, err := r.ListPendingCandidates(context.Background(), 11155111, "0xAbC", []string{"0xseen"}, 7)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "0xpending", out[0].TransactionHash)
	require.Equal(t, "Account 1", out[0].FromNickName)
	require.NotNil(t, out[0].ToNickName)
	require.Equal(t, "Account 2", *out[0].ToNickName)
}
