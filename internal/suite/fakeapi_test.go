package suite

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/samvad-hq/tokens-api-suite/internal/domain"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
	"github.com/samvad-hq/tokens-api-suite/pkg/httpclient"
)

var fakeChains = []string{"1", "10", "56", "100", "137", "250", "43114", "42161"}

// fakeTokensAPI emulates the upstream /v1/tokens validation rules closely
// enough for every catalog scenario to be exercised offline.
type fakeTokensAPI struct {
	requests atomic.Int64
	// forbidIP answers requests carrying an ip parameter with 403.
	forbidIP bool
	// leakStack makes unknown endpoints return a page with a stack trace.
	leakStack bool
	// scriptOnly makes unknown endpoints mention a stack trace inside a script tag only.
	scriptOnly bool
	// lenient accepts every query and always answers with chain 1 only.
	lenient bool
}

func (f *fakeTokensAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	if r.URL.Path != "/v1/tokens" {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		page := "<!DOCTYPE html><html><head><title>Not Found</title></head><body><h1>Cannot GET " + r.URL.Path + "</h1></body></html>"
		switch {
		case f.leakStack:
			page = "<!DOCTYPE html><html><body><pre>Error: not found<br> at Object.&lt;anonymous&gt; (/srv/app/node_modules/router/index.js:12)</pre></body></html>"
		case f.scriptOnly:
			page = "<!DOCTYPE html><html><head><script>// stack trace helper\nwindow.onerror = function () {};</script></head><body><h1>Not Found</h1></body></html>"
		}
		_, _ = w.Write([]byte(page))
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "Method Not Allowed"})
		return
	}

	if f.lenient {
		writeJSON(w, http.StatusOK, domain.TokensResponse{Tokens: map[string][]domain.Token{
			"1": {{Address: "0x0000000000000000000000000000000000000000", Symbol: "ETH", Name: "Ether", Decimals: 18}},
		}})
		return
	}

	query := r.URL.Query()
	if f.forbidIP && query.Has("ip") {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "Forbidden"})
		return
	}
	for key := range query {
		if key != "chains" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": fmt.Sprintf("must NOT have additional properties: %s", key),
				"code":    1011,
			})
			return
		}
	}

	chains := fakeChains
	if query.Has("chains") {
		chains = nil
		seen := map[string]bool{}
		for i, raw := range strings.Split(query.Get("chains"), ",") {
			id := strings.TrimSpace(raw)
			if !isFakeChain(id) {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"message": fmt.Sprintf("/chains/%d must be equal to one of the allowed values", i),
					"code":    1011,
				})
				return
			}
			if !seen[id] {
				seen[id] = true
				chains = append(chains, id)
			}
		}
	}

	resp := domain.TokensResponse{Tokens: make(map[string][]domain.Token, len(chains))}
	for _, id := range chains {
		resp.Tokens[id] = []domain.Token{
			{Address: "0x0000000000000000000000000000000000000000", Symbol: "NATIVE", Name: "Native " + id, Decimals: 18},
			{Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func isFakeChain(id string) bool {
	for _, c := range fakeChains {
		if c == id {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// newFakeGateway starts a TLS fake API and returns a gateway trusting it.
func newFakeGateway(t *testing.T, api *fakeTokensAPI) *gateway.Gateway {
	t.Helper()
	srv := httptest.NewTLSServer(api)
	t.Cleanup(srv.Close)

	gw, err := gateway.New(gateway.Options{
		BaseURL: srv.URL + "/v1",
		Client:  httpclient.NewRestyClientFromHTTP(srv.Client()),
	})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	return gw
}

// lightLoad shrinks the load-heavy scenarios so the catalog runs in a few seconds.
func lightLoad() *File {
	one, three := 1, 3
	return &File{Overrides: map[string]Override{
		"TC_LIFI-API_019": {Concurrency: &three},
		"TC_LIFI-API_023": {Concurrency: &three},
		"TC_LIFI-API_024": {Concurrency: &three},
		"TC_LIFI-API_025": {Loads: []int{2, 3}},
		"TC_LIFI-API_026": {Batches: &three, Concurrency: &three},
		"TC_LIFI-API_027": {RatePerSecond: &three, DurationSeconds: &one},
	}}
}

// newPlainGateway points a gateway at a plain-HTTP fake API.
func newPlainGateway(t *testing.T) (*gateway.Gateway, error) {
	t.Helper()
	srv := httptest.NewServer(&fakeTokensAPI{})
	t.Cleanup(srv.Close)
	return gateway.New(gateway.Options{BaseURL: srv.URL + "/v1"})
}
