package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TrackedAccount is a wallet address watched on one network.
type TrackedAccount struct {
	Address string `json:"address"`
	Network string `json:"network"`
	Label   string `json:"label,omitempty"`
}

// NewTrackedAccount validates the address and normalizes it to its checksummed form.
func NewTrackedAccount(address, network, label string) (TrackedAccount, error) {
	address = strings.TrimSpace(address)
	network = NormalizeNetwork(network)
	if !common.IsHexAddress(address) {
		return TrackedAccount{}, fmt.Errorf("invalid address: %s", address)
	}
	if network == "" {
		return TrackedAccount{}, fmt.Errorf("network is required")
	}
	return TrackedAccount{
		Address: common.HexToAddress(address).Hex(),
		Network: network,
		Label:   strings.TrimSpace(label),
	}, nil
}

// Common returns the account address as a go-ethereum address.
func (a TrackedAccount) Common() common.Address {
	return common.HexToAddress(a.Address)
}

// Key identifies the (address, network) pair.
func (a TrackedAccount) Key() AccountKey {
	return NewAccountKey(a.Address, a.Network)
}

// DisplayName prefers the label over the raw address.
func (a TrackedAccount) DisplayName() string {
	if a.Label != "" {
		return a.Label
	}
	return a.Address
}

// AccountKey is the cache and uniqueness key of a tracked account.
type AccountKey struct {
	Address common.Address
	Network string
}

func NewAccountKey(address, network string) AccountKey {
	return AccountKey{
		Address: common.HexToAddress(strings.TrimSpace(address)),
		Network: NormalizeNetwork(network),
	}
}

// String renders the key as "<network>:<lower-case address>".
func (k AccountKey) String() string {
	return k.Network + ":" + strings.ToLower(k.Address.Hex())
}

// ParseAccountKey parses the String form of a key.
func ParseAccountKey(input string) (AccountKey, error) {
	parts := strings.SplitN(strings.TrimSpace(input), ":", 2)
	if len(parts) != 2 {
		return AccountKey{}, fmt.Errorf("invalid account key: %s", input)
	}
	if !common.IsHexAddress(parts[1]) {
		return AccountKey{}, fmt.Errorf("invalid account key address: %s", input)
	}
	key := NewAccountKey(parts[1], parts[0])
	if key.Network == "" {
		return AccountKey{}, fmt.Errorf("invalid account key network: %s", input)
	}
	return key, nil
}

func NormalizeNetwork(network string) string {
	return strings.ToLower(strings.TrimSpace(network))
}
