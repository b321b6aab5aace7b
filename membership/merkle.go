package membership

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/zkkb/interfaces"
)

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

// EmptyRoot is the root of a group with no members.
var EmptyRoot = hexutil.Encode(crypto.Keccak256())

// ComputeRoot returns the Merkle root over commitments in the given order.
// Leaves and inner nodes are hashed under distinct prefixes; an unpaired node
// is promoted to the next level unchanged.
func ComputeRoot(commitments []string) (string, error) {
	if len(commitments) == 0 {
		return EmptyRoot, nil
	}

	level := make([][]byte, 0, len(commitments))
	for _, c := range commitments {
		raw, err := hex.DecodeString(c)
		if err != nil {
			return "", fmt.Errorf("%w: commitment is not hex: %v", interfaces.ErrInvalidInput, err)
		}
		level = append(level, crypto.Keccak256([]byte{leafPrefix}, raw))
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, crypto.Keccak256([]byte{nodePrefix}, level[i], level[i+1]))
		}
		level = next
	}

	return hexutil.Encode(level[0]), nil
}

// SameRoot compares two hex roots ignoring case.
func SameRoot(a, b string) bool {
	ra, err := hexutil.Decode(a)
	if err != nil {
		return false
	}
	rb, err := hexutil.Decode(b)
	if err != nil {
		return false
	}
	return hex.EncodeToString(ra) == hex.EncodeToString(rb)
}
