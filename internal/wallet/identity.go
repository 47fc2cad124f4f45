// Package wallet resolves the signing identity for a session.
//
// The resolver never holds keys. It asks a Provider (a browser-style wallet,
// an Ethereum node, or a static dev account list) which accounts are
// authorized and keeps the first one as the session Identity.
package wallet

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is the authorized signer address for the current session.
// The zero value means no identity has been authorized.
type Identity string

// ParseIdentity validates a hex address and returns it in EIP-55 checksum form.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address %q: must be a 20-byte hex address", s)
	}
	return Identity(common.HexToAddress(s).Hex()), nil
}

// IsZero reports whether no identity is set.
func (i Identity) IsZero() bool {
	return i == ""
}

// Address returns the identity as a go-ethereum address.
func (i Identity) Address() common.Address {
	return common.HexToAddress(string(i))
}

func (i Identity) String() string {
	return string(i)
}
