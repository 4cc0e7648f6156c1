package events

import (
	"encoding/hex"
	"math/big"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatDigest(digest [32]byte) string {
	return "0x" + hex.EncodeToString(digest[:])
}
