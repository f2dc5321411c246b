package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema. Prefix-based so each record family can be range
// scanned independently; order ids are big-endian for lexicographic
// ordering.
const (
	prefixReferral = "ref:"
	prefixOrder    = "ord:"
	keyRound       = "round"
)

// referralKey: "ref:{address}"
func referralKey(acct common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixReferral, acct.Hex()))
}

// orderKey: "ord:{8-byte big-endian id}"
func orderKey(id uint64) []byte {
	k := make([]byte, len(prefixOrder)+8)
	copy(k, prefixOrder)
	binary.BigEndian.PutUint64(k[len(prefixOrder):], id)
	return k
}

func roundKey() []byte { return []byte(keyRound) }

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// referralKeyAddress extracts the account address from a referral key.
func referralKeyAddress(key []byte) (common.Address, error) {
	if len(key) != len(prefixReferral)+42 { // 42 = "0x" + 40 hex chars
		return common.Address{}, fmt.Errorf("invalid referral key length: %d", len(key))
	}
	hex := string(key[len(prefixReferral):])
	if !common.IsHexAddress(hex) {
		return common.Address{}, fmt.Errorf("invalid address in key: %s", hex)
	}
	return common.HexToAddress(hex), nil
}
