package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"healthScope/internal/model"
)

// Network is one lending pool deployment.
type Network struct {
	Key         string         `yaml:"key" json:"key"`
	DisplayName string         `yaml:"display_name" json:"display_name"`
	Pool        common.Address `yaml:"-" json:"pool"`
	RPCURL      string         `yaml:"rpc_url" json:"rpc_url"`
	ChainID     uint64         `yaml:"chain_id" json:"chain_id"`
	ExplorerURL string         `yaml:"explorer_url" json:"explorer_url,omitempty"`
}

// AddressURL links an address on the network's block explorer.
func (n Network) AddressURL(address string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(n.ExplorerURL, "/") + "/address/" + address
}

var builtin = []Network{
	{Key: "ethereum", DisplayName: "Ethereum", Pool: common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"), RPCURL: "https://eth.public-rpc.com", ChainID: 1, ExplorerURL: "https://etherscan.io"},
	{Key: "polygon", DisplayName: "Polygon", Pool: common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"), RPCURL: "https://polygon-rpc.com", ChainID: 137, ExplorerURL: "https://polygonscan.com"},
	{Key: "avalanche", DisplayName: "Avalanche", Pool: common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"), RPCURL: "https://api.avax.network/ext/bc/C/rpc", ChainID: 43114, ExplorerURL: "https://snowtrace.io"},
	{Key: "optimism", DisplayName: "Optimism", Pool: common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"), RPCURL: "https://mainnet.optimism.io", ChainID: 10, ExplorerURL: "https://optimistic.etherscan.io"},
	{Key: "arbitrum", DisplayName: "Arbitrum", Pool: common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"), RPCURL: "https://arb1.arbitrum.io/rpc", ChainID: 42161, ExplorerURL: "https://arbiscan.io"},
	{Key: "gnosis", DisplayName: "Gnosis", Pool: common.HexToAddress("0xb50201558B00496A145fE76f7424749556E326D8"), RPCURL: "https://rpc.gnosischain.com", ChainID: 100, ExplorerURL: "https://gnosisscan.io"},
	{Key: "base", DisplayName: "Base", Pool: common.HexToAddress("0xA238Dd80C259a72e81d7e4664a9801593F98d1c5"), RPCURL: "https://mainnet.base.org", ChainID: 8453, ExplorerURL: "https://basescan.org"},
}

// Registry maps network keys to deployments. It is read-mostly and safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	networks map[string]Network
}

// Default returns a registry holding the built-in Aave V3 deployments.
func Default() *Registry {
	r := &Registry{networks: make(map[string]Network, len(builtin))}
	for _, n := range builtin {
		r.networks[n.Key] = n
	}
	return r
}

// New builds a registry from an explicit network list.
func New(networks ...Network) (*Registry, error) {
	r := &Registry{networks: make(map[string]Network, len(networks))}
	for _, n := range networks {
		if err := r.Set(n); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Lookup fails with model.ErrUnknownNetwork for keys absent from the table.
func (r *Registry) Lookup(key string) (Network, error) {
	r.mu.RLock()
	n, ok := r.networks[model.NormalizeNetwork(key)]
	r.mu.RUnlock()
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", model.ErrUnknownNetwork, key)
	}
	return n, nil
}

// Set adds or replaces a network entry.
func (r *Registry) Set(n Network) error {
	n.Key = model.NormalizeNetwork(n.Key)
	if n.Key == "" {
		return fmt.Errorf("network key is required")
	}
	if n.Pool == (common.Address{}) {
		return fmt.Errorf("network %s: pool address is required", n.Key)
	}
	if n.RPCURL == "" {
		return fmt.Errorf("network %s: rpc url is required", n.Key)
	}
	if n.DisplayName == "" {
		n.DisplayName = n.Key
	}
	r.mu.Lock()
	r.networks[n.Key] = n
	r.mu.Unlock()
	return nil
}

// Keys returns the network keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.networks))
	for k := range r.networks {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Networks returns all entries sorted by key.
func (r *Registry) Networks() []Network {
	keys := r.Keys()
	out := make([]Network, 0, len(keys))
	r.mu.RLock()
	for _, k := range keys {
		out = append(out, r.networks[k])
	}
	r.mu.RUnlock()
	return out
}

type overrideFile struct {
	Networks []networkOverride `yaml:"networks"`
}

type networkOverride struct {
	Key         string `yaml:"key"`
	DisplayName string `yaml:"display_name"`
	Pool        string `yaml:"pool"`
	RPCURL      string `yaml:"rpc_url"`
	ChainID     uint64 `yaml:"chain_id"`
	ExplorerURL string `yaml:"explorer_url"`
}

// LoadFile merges a YAML override file into the registry. Fields left empty keep
// the existing entry's values, so a file may only swap the RPC URL of a built-in network.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read networks file: %w", err)
	}
	return r.Merge(data)
}

// Merge applies YAML overrides from data.
func (r *Registry) Merge(data []byte) error {
	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse networks file: %w", err)
	}

	for _, o := range file.Networks {
		key := model.NormalizeNetwork(o.Key)
		if key == "" {
			return fmt.Errorf("networks file: entry without key")
		}

		r.mu.RLock()
		n, exists := r.networks[key]
		r.mu.RUnlock()
		if !exists {
			n = Network{Key: key}
		}

		if o.DisplayName != "" {
			n.DisplayName = o.DisplayName
		}
		if o.Pool != "" {
			if !common.IsHexAddress(o.Pool) {
				return fmt.Errorf("network %s: invalid pool address: %s", key, o.Pool)
			}
			n.Pool = common.HexToAddress(o.Pool)
		}
		if o.RPCURL != "" {
			n.RPCURL = o.RPCURL
		}
		if o.ChainID != 0 {
			n.ChainID = o.ChainID
		}
		if o.ExplorerURL != "" {
			n.ExplorerURL = o.ExplorerURL
		}

		if err := r.Set(n); err != nil {
			return err
		}
	}
	return nil
}
