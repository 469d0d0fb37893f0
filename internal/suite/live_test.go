package suite

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/tokens-api-suite/internal/config"
	"github.com/samvad-hq/tokens-api-suite/internal/domain"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

// TestLiveCatalog runs the catalog against the real API. It is opt-in:
//
//	TOKENSUITE_LIVE=1 go test ./internal/suite -run TestLiveCatalog -timeout 10m
//
// API_BASE_URL points it elsewhere; SUITE_FILE narrows or tunes the run.
func TestLiveCatalog(t *testing.T) {
	if os.Getenv("TOKENSUITE_LIVE") != "1" {
		t.Skip("set TOKENSUITE_LIVE=1 to run the live catalog")
	}
	if testing.Short() {
		t.Skip("live catalog skipped in short mode")
	}

	baseURL := config.DefaultBaseURL
	if v := os.Getenv("API_BASE_URL"); v != "" {
		baseURL = v
	}
	gw, err := gateway.New(gateway.Options{BaseURL: baseURL})
	require.NoError(t, err)

	var file *File
	if path := os.Getenv("SUITE_FILE"); path != "" {
		file, err = LoadFile(path)
		require.NoError(t, err)
	}
	scenarios, err := Select(Catalog(), file)
	require.NoError(t, err)

	runner := NewRunner(gw, nil, nil)
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			res := runner.RunOne(context.Background(), s)
			for name, v := range res.Measurements {
				t.Logf("%s %s = %.2f", s.ID, name, v)
			}
			switch res.Status {
			case domain.StatusSkipped:
				t.Skip(res.Error)
			case domain.StatusFailed:
				t.Fatalf("%s: %s", s.Name, res.Error)
			}
		})
	}
}
