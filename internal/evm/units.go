package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// WeiToEther formats a wei amount as a decimal ether string without
// trailing zeros ("1.5", "0.0001", "0").
func WeiToEther(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether)).FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// EtherToWei converts an ether amount to wei, truncating anything below
// 1 wei of precision.
func EtherToWei(amountInEth float64) *big.Int {
	f := new(big.Float).SetFloat64(amountInEth)
	f.Mul(f, big.NewFloat(params.Ether))
	wei, _ := f.Int(nil)
	return wei
}
