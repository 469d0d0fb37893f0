package suite

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/tokens-api-suite/internal/domain"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

// failureMarker is the substring every normalized gateway error carries.
const failureMarker = "GET Request Failed"

// unsupportedChainMessage is the upstream validator's wording for a rejected chain id.
const unsupportedChainMessage = "/chains/0 must be equal to one of the allowed values"

func functionalScenarios() []Scenario {
	return []Scenario{
		{
			ID:       scenarioID(1),
			Category: CategoryFunctional,
			Name:     "returns a valid list of tokens when no parameters are provided",
			Run: func(ctx context.Context, env *Env) error {
				data, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{}, nil)
				if err != nil {
					return err
				}
				tokens, err := rawTokens(data)
				if err != nil {
					return err
				}
				if len(tokens) == 0 {
					return errors.New("tokens mapping is empty")
				}
				env.Measure("chains", float64(len(tokens)))
				return nil
			},
		},
		{
			ID:       scenarioID(2),
			Category: CategoryFunctional,
			Name:     "returns tokens for all chains when no chain parameter is provided",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Gateway.Tokens(ctx, gateway.Params{}, nil)
				if err != nil {
					return err
				}
				if n := len(resp.Tokens); n <= 1 {
					return fmt.Errorf("expected more than one chain, got %d", n)
				}
				env.Measure("chains", float64(len(resp.Tokens)))
				return nil
			},
		},
		{
			ID:       scenarioID(3),
			Category: CategoryFunctional,
			Name:     "retrieves tokens for a specified chain id",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Gateway.Tokens(ctx, gateway.Params{"chains": "1"}, nil)
				if err != nil {
					return err
				}
				return requireChainTokens(resp, "1")
			},
		},
		{
			ID:       scenarioID(4),
			Category: CategoryFunctional,
			Name:     "retrieves tokens for multiple chains",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Gateway.Tokens(ctx, gateway.Params{"chains": "1,137"}, nil)
				if err != nil {
					return err
				}
				if err := requireChains(resp, "1", "137"); err != nil {
					return err
				}
				if err := requireChainTokens(resp, "1"); err != nil {
					return err
				}
				return requireChainTokens(resp, "137")
			},
		},
		{
			ID:       scenarioID(5),
			Category: CategoryFunctional,
			Name:     "collapses duplicate chain ids in the query",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Gateway.Tokens(ctx, gateway.Params{"chains": "1,1"}, nil)
				if err != nil {
					return err
				}
				return requireChains(resp, "1")
			},
		},
		{
			ID:       scenarioID(6),
			Category: CategoryFunctional,
			Name:     "token descriptors carry address, symbol, name and decimals",
			Run: func(ctx context.Context, env *Env) error {
				data, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"chains": "1"}, nil)
				if err != nil {
					return err
				}
				token, err := rawFirstToken(data, "1")
				if err != nil {
					return err
				}
				return requireDescriptorKeys(token)
			},
		},
		{
			ID:       scenarioID(7),
			Category: CategoryFunctional,
			Name:     "token descriptor fields have the expected types",
			Run: func(ctx context.Context, env *Env) error {
				data, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"chains": "1"}, nil)
				if err != nil {
					return err
				}
				token, err := rawFirstToken(data, "1")
				if err != nil {
					return err
				}
				return requireDescriptorTypes(token)
			},
		},
		{
			ID:       scenarioID(8),
			Category: CategoryFunctional,
			Name:     "returns a non-empty page when no limit is specified",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Gateway.Tokens(ctx, gateway.Params{"chains": "1"}, nil)
				if err != nil {
					return err
				}
				if err := requireChainTokens(resp, "1"); err != nil {
					return err
				}
				env.Measure("tokens", float64(len(resp.Tokens["1"])))
				return nil
			},
		},
		{
			ID:       scenarioID(9),
			Category: CategoryFunctional,
			Name:     "handles an upper-case chain name",
			Run: func(ctx context.Context, env *Env) error {
				_, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"chains": "ETHEREUM"}, nil)
				return tolerateFailure(err, failureMarker)
			},
		},
		{
			ID:       scenarioID(10),
			Category: CategoryFunctional,
			Name:     "handles empty query parameters",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Gateway.Tokens(ctx, nil, nil)
				if err != nil {
					return err
				}
				return requireTokens(resp)
			},
		},
		{
			ID:       scenarioID(11),
			Category: CategoryFunctional,
			Name:     "rejects an invalid chain parameter",
			Run: func(ctx context.Context, env *Env) error {
				_, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"chains": "invalid_chain"}, nil)
				return expectFailure(err, failureMarker)
			},
		},
		{
			ID:       scenarioID(12),
			Category: CategoryFunctional,
			Name:     "rejects an unknown query parameter with 400",
			Run: func(ctx context.Context, env *Env) error {
				_, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"invalidParam": "test"}, nil)
				return expectFailure(err, failureMarker, "400")
			},
		},
		{
			ID:       scenarioID(13),
			Category: CategoryFunctional,
			Name:     "rejects an excessively long chain id",
			Run: func(ctx context.Context, env *Env) error {
				_, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"chains": "12345678901234567890"}, nil)
				return expectFailure(err, failureMarker)
			},
		},
		{
			ID:       scenarioID(14),
			Category: CategoryFunctional,
			Name:     "rejects a request with an unexpected parameter in place of a required one",
			Run: func(ctx context.Context, env *Env) error {
				_, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"missingParam": "test"}, nil)
				return expectFailure(err, failureMarker, "400")
			},
		},
		{
			ID:       scenarioID(15),
			Category: CategoryFunctional,
			Name:     "rejects an unsupported chain id",
			Run: func(ctx context.Context, env *Env) error {
				_, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"chains": "0"}, nil)
				return expectFailure(err, failureMarker, unsupportedChainMessage)
			},
		},
	}
}

func consistencyScenarios() []Scenario {
	return []Scenario{
		{
			ID:       scenarioID(36),
			Category: CategoryFunctional,
			Name:     "repeating a request yields the same chain key set",
			Run: func(ctx context.Context, env *Env) error {
				params := gateway.Params{"chains": "1,137"}
				first, err := env.Gateway.Tokens(ctx, params, nil)
				if err != nil {
					return fmt.Errorf("first request: %w", err)
				}
				second, err := env.Gateway.Tokens(ctx, params, nil)
				if err != nil {
					return fmt.Errorf("second request: %w", err)
				}
				if err := requireChains(first, "1", "137"); err != nil {
					return err
				}
				return requireChains(second, first.ChainIDs()...)
			},
		},
		{
			ID:       scenarioID(37),
			Category: CategoryFunctional,
			Name:     "returns exactly the requested unique chains",
			Run: func(ctx context.Context, env *Env) error {
				filter := "1,137,1,56,137"
				resp, err := env.Gateway.Tokens(ctx, gateway.Params{"chains": filter}, nil)
				if err != nil {
					return err
				}
				return requireChains(resp, domain.UniqueChains(filter)...)
			},
		},
	}
}
