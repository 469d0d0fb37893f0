package domain

import (
	"sort"
	"strings"
)

// Token describes one tradable asset in the upstream registry.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	ChainID  int64  `json:"chainId,omitempty"`
	CoinKey  string `json:"coinKey,omitempty"`
	LogoURI  string `json:"logoURI,omitempty"`
	PriceUSD string `json:"priceUSD,omitempty"`
}

// TokensResponse is the body of a successful /tokens call, keyed by chain id.
type TokensResponse struct {
	Tokens map[string][]Token `json:"tokens"`
}

// ChainIDs returns the chain keys in ascending order.
func (r *TokensResponse) ChainIDs() []string {
	if r == nil || len(r.Tokens) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r.Tokens))
	for id := range r.Tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TokenCount is the number of descriptors across all chains.
func (r *TokensResponse) TokenCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, list := range r.Tokens {
		n += len(list)
	}
	return n
}

// UniqueChains splits a comma separated chain filter into its distinct, trimmed ids in input order.
func UniqueChains(filter string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(filter, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SameKeys reports whether both responses list the same chain ids.
func SameKeys(a, b *TokensResponse) bool {
	ak, bk := a.ChainIDs(), b.ChainIDs()
	if len(ak) != len(bk) {
		return false
	}
	for i := range ak {
		if ak[i] != bk[i] {
			return false
		}
	}
	return true
}
