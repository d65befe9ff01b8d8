package evm

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
)

func TestNewRegistry_Validation(t *testing.T) {
	_, err := NewRegistry(ChainConfig{Name: "no-id", RPCURL: "http://x", IndexerURL: "http://y"})
	require.Error(t, err)

	_, err = NewRegistry(ChainConfig{ChainID: 1, Name: "no-rpc", IndexerURL: "http://y"})
	require.Error(t, err)

	_, err = NewRegistry(ChainConfig{ChainID: 1, Name: "no-indexer", RPCURL: "http://x"})
	require.Error(t, err)

	c := ChainConfig{ChainID: ChainSepolia, Name: "sepolia", RPCURL: "http://x", IndexerURL: "http://y"}
	_, err = NewRegistry(c, c)
	require.Error(t, err)
}

func TestRegistry_Lookup_FailsClosed(t *testing.T) {
	r, err := NewRegistry(ChainConfig{
		ChainID:    ChainSepolia,
		Name:       "sepolia",
		RPCURL:     "http://localhost:8545",
		IndexerURL: "http://localhost:8080",
	})
	require.NoError(t, err)

	_, err = r.Lookup(ChainBaseSepolia)
	require.ErrorIs(t, err, errs.ErrInvalidChainID)

	var ice *errs.InvalidChainIDError
	require.True(t, errors.As(err, &ice))
	require.Equal(t, ChainBaseSepolia, ice.ChainID)

	cfg, err := r.Lookup(ChainSepolia)
	require.NoError(t, err)
	require.Equal(t, "sepolia", cfg.Name)
}

func TestClassifyRPCError(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"insufficient funds for gas * price + value", errs.ErrInsufficientFunds},
		{"429 Too Many Requests", errs.ErrRateLimited},
		{"too many requests", errs.ErrRateLimited},
		{"could not coalesce error", errs.ErrRateLimited},
		{"rpc error -32000", errs.ErrRateLimited},
	}
	for _, tc := range cases {
		got := classifyRPCError(errors.New(tc.msg))
		require.ErrorIs(t, got, tc.want, tc.msg)
	}

	// Unrecognized errors must propagate unmodified.
	unknown := errors.New("execution reverted")
	require.Same(t, unknown, classifyRPCError(unknown))
}

func TestWeiToEther(t *testing.T) {
	one := new(big.Int)
	one.SetString("1000000000000000000", 10)
	require.Equal(t, "1", WeiToEther(one))

	half := new(big.Int)
	half.SetString("1500000000000000000", 10)
	require.Equal(t, "1.5", WeiToEther(half))

	require.Equal(t, "0.000000000000000001", WeiToEther(big.NewInt(1)))
	require.Equal(t, "0", WeiToEther(big.NewInt(0)))
	require.Equal(t, "0", WeiToEther(nil))
}

func TestEtherToWei(t *testing.T) {
	want := new(big.Int)
	want.SetString("1500000000000000000", 10)
	require.Equal(t, 0, want.Cmp(EtherToWei(1.5)))
	require.Equal(t, 0, big.NewInt(0).Cmp(EtherToWei(0)))
}
