package suite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/tokens-api-suite/internal/domain"
)

var errUnexpectedSuccess = errors.New("expected the request to fail, it succeeded")

// expectFailure requires err to be non-nil and its message to contain every substring.
func expectFailure(err error, substrings ...string) error {
	if err == nil {
		return errUnexpectedSuccess
	}
	return messageContains(err, substrings...)
}

// tolerateFailure accepts success; a failure must still mention every substring.
func tolerateFailure(err error, substrings ...string) error {
	if err == nil {
		return nil
	}
	return messageContains(err, substrings...)
}

func messageContains(err error, substrings ...string) error {
	msg := err.Error()
	for _, s := range substrings {
		if !strings.Contains(msg, s) {
			return fmt.Errorf("error %q does not contain %q", msg, s)
		}
	}
	return nil
}

func requireWithin(what string, elapsed, limit time.Duration) error {
	if limit > 0 && elapsed > limit {
		return fmt.Errorf("%s exceeded limit: %dms > %dms", what, elapsed.Milliseconds(), limit.Milliseconds())
	}
	return nil
}

func requireTokens(resp *domain.TokensResponse) error {
	if resp == nil || resp.Tokens == nil {
		return errors.New("response has no tokens mapping")
	}
	if len(resp.Tokens) == 0 {
		return errors.New("tokens mapping is empty")
	}
	return nil
}

// requireChains checks the response lists exactly the given chain ids, in any order.
func requireChains(resp *domain.TokensResponse, ids ...string) error {
	if err := requireTokens(resp); err != nil {
		return err
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	got := resp.ChainIDs()
	if len(got) != len(want) {
		return fmt.Errorf("expected chains %v, got %v", ids, got)
	}
	for _, id := range got {
		if _, ok := want[id]; !ok {
			return fmt.Errorf("expected chains %v, got %v", ids, got)
		}
	}
	return nil
}

func requireChainTokens(resp *domain.TokensResponse, id string) error {
	if err := requireTokens(resp); err != nil {
		return err
	}
	list, ok := resp.Tokens[id]
	if !ok {
		return fmt.Errorf("tokens mapping has no chain %q", id)
	}
	if len(list) == 0 {
		return fmt.Errorf("token list for chain %q is empty", id)
	}
	return nil
}

// rawTokens digs the tokens object out of an undecoded response.
func rawTokens(data any) (map[string]any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response is %T, not an object", data)
	}
	raw, ok := obj["tokens"]
	if !ok {
		return nil, errors.New("response has no tokens property")
	}
	tokens, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tokens is %T, not an object", raw)
	}
	return tokens, nil
}

// rawFirstToken returns the first descriptor listed for chain.
func rawFirstToken(data any, chain string) (map[string]any, error) {
	tokens, err := rawTokens(data)
	if err != nil {
		return nil, err
	}
	list, ok := tokens[chain].([]any)
	if !ok {
		return nil, fmt.Errorf("tokens[%q] is %T, not an array", chain, tokens[chain])
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("tokens[%q] is empty", chain)
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tokens[%q][0] is %T, not an object", chain, list[0])
	}
	return first, nil
}

var descriptorKeys = []string{"address", "symbol", "name", "decimals"}

func requireDescriptorKeys(token map[string]any) error {
	for _, key := range descriptorKeys {
		if _, ok := token[key]; !ok {
			return fmt.Errorf("token descriptor is missing %q", key)
		}
	}
	return nil
}

func requireDescriptorTypes(token map[string]any) error {
	if err := requireDescriptorKeys(token); err != nil {
		return err
	}
	for _, key := range []string{"address", "symbol", "name"} {
		if _, ok := token[key].(string); !ok {
			return fmt.Errorf("token %s is %T, not a string", key, token[key])
		}
	}
	if _, ok := token["decimals"].(float64); !ok {
		return fmt.Errorf("token decimals is %T, not a number", token["decimals"])
	}
	return nil
}
