package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// namehash implements the ENS namehash algorithm (EIP-137), used to derive
// the reverse-resolution node for "<addr>.addr.reverse" (spec §4.2 HasName).
func namehash(name string) common.Hash {
	node := common.Hash{}
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256Hash([]byte(labels[i]))
		node = crypto.Keccak256Hash(append(node.Bytes(), labelHash.Bytes()...))
	}
	return node
}

// reverseNode returns the namehash of "<lowercased hex address, no 0x>.addr.reverse".
func reverseNode(addr common.Address) common.Hash {
	hex := strings.ToLower(addr.Hex()[2:])
	return namehash(hex + ".addr.reverse")
}
