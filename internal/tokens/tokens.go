// Package tokens defines the token registry domain model.
package tokens

import "github.com/ethereum/go-ethereum/common"

// TokenID is the registry-wide numeric identifier of a token.
type TokenID uint16

// Token is a registered asset definition.
//
// An all-zero Address denotes the chain-native asset rather than a
// deployed contract.
type Token struct {
	ID       TokenID        `json:"id"`
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// IsNative reports whether the token stands for the chain-native asset.
func (t Token) IsNative() bool {
	return t.Address == (common.Address{})
}
