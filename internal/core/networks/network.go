package networks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AccountFormat describes how account addresses are encoded on a network
type AccountFormat string

const (
	FormatSS58 AccountFormat = "ss58"
	FormatEVM  AccountFormat = "evm"
)

// MaxSS58Prefix is the largest prefix representable in the two-byte SS58 form
const MaxSS58Prefix = 16383

// ErrUnknownNetwork is returned when a network name is not registered
var ErrUnknownNetwork = errors.New("unknown network")

// Network describes a chain the AppView can resolve identities on
type Network struct {
	Name            string        `toml:"name" json:"name"`
	SS58Prefix      uint16        `toml:"ss58_prefix" json:"ss58Prefix"`
	AccountFormat   AccountFormat `toml:"account_format" json:"accountFormat"`
	FederatedNaming bool          `toml:"federated_naming" json:"federatedNaming"`
	// RegistryURL overrides the default chain registry endpoint for this network
	RegistryURL string `toml:"registry_url" json:"registryUrl,omitempty"`
}

// Defaults returns the built-in network table
func Defaults() []Network {
	return []Network{
		{Name: "polkadot", SS58Prefix: 0, AccountFormat: FormatSS58, FederatedNaming: true},
		{Name: "kusama", SS58Prefix: 2, AccountFormat: FormatSS58},
		{Name: "kilt", SS58Prefix: 38, AccountFormat: FormatSS58, FederatedNaming: true},
		{Name: "westend", SS58Prefix: 42, AccountFormat: FormatSS58},
	}
}

// Registry is an immutable, name-indexed set of networks
type Registry struct {
	byName map[string]Network
}

// NewRegistry validates the given networks and indexes them by lowercase name
func NewRegistry(nets []Network) (*Registry, error) {
	r := &Registry{byName: make(map[string]Network, len(nets))}
	for _, n := range nets {
		n.Name = strings.ToLower(strings.TrimSpace(n.Name))
		if n.Name == "" {
			return nil, fmt.Errorf("network name is required")
		}
		if _, dup := r.byName[n.Name]; dup {
			return nil, fmt.Errorf("duplicate network %q", n.Name)
		}
		if n.AccountFormat == "" {
			n.AccountFormat = FormatSS58
		}
		switch n.AccountFormat {
		case FormatSS58:
			if n.SS58Prefix > MaxSS58Prefix {
				return nil, fmt.Errorf("network %q: ss58 prefix %d out of range", n.Name, n.SS58Prefix)
			}
		case FormatEVM:
		default:
			return nil, fmt.Errorf("network %q: unknown account format %q", n.Name, n.AccountFormat)
		}
		r.byName[n.Name] = n
	}
	return r, nil
}

// MustDefaultRegistry returns a registry over Defaults()
func MustDefaultRegistry() *Registry {
	r, err := NewRegistry(Defaults())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the named network or ErrUnknownNetwork
func (r *Registry) Lookup(name string) (Network, error) {
	n, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return n, nil
}

// SupportsFederatedNaming reports whether federated names are resolved on the network
func (r *Registry) SupportsFederatedNaming(name string) bool {
	n, err := r.Lookup(name)
	return err == nil && n.FederatedNaming
}

// Names returns all registered network names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
