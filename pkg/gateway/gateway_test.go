package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/samvad-hq/tokens-api-suite/pkg/httpclient"
)

const tokensBody = `{"tokens":{"1":[{"address":"0x0","symbol":"ETH","name":"ETH","decimals":18}],"137":[{"address":"0x1","symbol":"POL","name":"Polygon","decimals":18}]}}`

type recordingObserver struct {
	mu    sync.Mutex
	calls []Kind
}

func (r *recordingObserver) ObserveRequest(_ string, _ int, kind Kind, _ time.Duration) {
	r.mu.Lock()
	r.calls = append(r.calls, kind)
	r.mu.Unlock()
}

type recordingLogger struct {
	warns int
}

func (r *recordingLogger) WarnObj(string, string, interface{})  { r.warns++ }
func (r *recordingLogger) DebugObj(string, string, interface{}) {}

// failingClient always returns a transport error.
type failingClient struct{ err error }

func (f failingClient) Get(context.Context, string, map[string]string, map[string]string) (httpclient.Response, error) {
	return nil, f.err
}

func (f failingClient) Execute(context.Context, string, string, map[string]string) (httpclient.Response, error) {
	return nil, f.err
}

func newTestGateway(t *testing.T, handler http.HandlerFunc, obs Observer, log Logger) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := New(Options{BaseURL: srv.URL + "/v1/", Observer: obs, Logger: log})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "  ", "li.quest/v1", "://bad"} {
		if _, err := New(Options{BaseURL: base}); err == nil {
			t.Fatalf("expected error for base url %q", base)
		}
	}
}

func TestSendReturnsDecodedBody(t *testing.T) {
	obs := &recordingObserver{}
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tokens" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("chains"); got != "1,137" {
			t.Errorf("chains = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		_, _ = w.Write([]byte(tokensBody))
	}, obs, nil)

	data, err := g.Send(context.Background(), TokensPath, Params{"chains": "1,137"}, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	obj, ok := data.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", data)
	}
	tokens, ok := obj["tokens"].(map[string]any)
	if !ok || len(tokens) != 2 {
		t.Fatalf("unexpected tokens %#v", obj["tokens"])
	}
	if len(obs.calls) != 1 || obs.calls[0] != 0 {
		t.Fatalf("observer calls = %v", obs.calls)
	}
}

func TestTokensDecodesTypedResponse(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(tokensBody))
	}, nil, nil)

	resp, err := g.Tokens(context.Background(), Params{"chains": []string{"1", "137"}}, nil)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if ids := resp.ChainIDs(); len(ids) != 2 || ids[0] != "1" || ids[1] != "137" {
		t.Fatalf("ChainIDs = %v", ids)
	}
	if resp.Tokens["1"][0].Decimals != 18 {
		t.Fatalf("decimals = %d", resp.Tokens["1"][0].Decimals)
	}
}

func TestHeaderOverridesReplaceDefaults(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "text/plain" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := r.Header.Get("Origin"); got != "http://unauthorized.example.com" {
			t.Errorf("Origin = %q", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}, nil, nil)

	_, err := g.Send(context.Background(), TokensPath, nil, map[string]string{
		"content-type": "text/plain",
		"Origin":       "http://unauthorized.example.com",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestClientErrorIsNormalized(t *testing.T) {
	log := &recordingLogger{}
	obs := &recordingObserver{}
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{ "message": "/chains/0 must be equal to one of the allowed values", "code": 1011 }`))
	}, obs, log)

	_, err := g.Send(context.Background(), TokensPath, Params{"chains": "0"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	want := `GET Request Failed: status 400: {"message":"/chains/0 must be equal to one of the allowed values","code":1011}`
	if msg != want {
		t.Fatalf("message = %q\nwant      %q", msg, want)
	}
	if !IsClientError(err) || IsServerError(err) || IsTransport(err) {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d", StatusCode(err))
	}
	if !strings.Contains(string(Body(err)), "1011") {
		t.Fatalf("Body = %s", Body(err))
	}
	if log.warns != 1 {
		t.Fatalf("expected one diagnostic log line, got %d", log.warns)
	}
	if len(obs.calls) != 1 || obs.calls[0] != KindClient {
		t.Fatalf("observer calls = %v", obs.calls)
	}
}

func TestServerErrorWithPlainBody(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}, nil, nil)

	_, err := g.Send(context.Background(), TokensPath, nil, nil)
	if !IsServerError(err) {
		t.Fatalf("expected server error, got %v", err)
	}
	if got := err.Error(); got != `GET Request Failed: status 502: "upstream exploded"` {
		t.Fatalf("message = %q", got)
	}
}

func TestEmptyErrorBodyFallsBackToStatusMessage(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil, nil)

	_, err := g.Send(context.Background(), "/invalidEndpoint", nil, nil)
	if got := err.Error(); got != "GET Request Failed: request failed with status code 404" {
		t.Fatalf("message = %q", got)
	}
}

func TestTransportErrorKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: lookup li.quest: no such host")
	obs := &recordingObserver{}
	g, err := New(Options{BaseURL: "https://li.quest/v1", Client: failingClient{err: cause}, Observer: obs})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = g.Send(context.Background(), TokensPath, nil, nil)
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause")
	}
	if got := err.Error(); got != FailurePrefix+cause.Error() {
		t.Fatalf("message = %q", got)
	}
	if StatusCode(err) != 0 {
		t.Fatalf("transport errors carry no status")
	}
	if obs.calls[0] != KindTransport {
		t.Fatalf("observer kind = %v", obs.calls[0])
	}
}

func TestProbeReportsStatusWithoutError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, nil, nil)

	status, err := g.Probe(context.Background(), "patch", TokensPath)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if status != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", status)
	}
}

func TestSendRejectsEmptyEndpoint(t *testing.T) {
	g, err := New(Options{BaseURL: "https://li.quest/v1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.Send(context.Background(), " ", nil, nil); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}

func TestConcurrentSendsAreIndependent(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("chains") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"bad"}`))
			return
		}
		_, _ = w.Write([]byte(tokensBody))
	}, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chains := "1"
			if i%5 == 0 {
				chains = "bad"
			}
			_, errs[i] = g.Tokens(context.Background(), Params{"chains": chains}, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if i%5 == 0 {
			if !IsClientError(err) {
				t.Fatalf("call %d: expected client error, got %v", i, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestSendReturnsNonJSONBodyAsString(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}, nil, nil)

	data, err := g.Send(context.Background(), TokensPath, nil, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got, ok := data.(string); !ok || got != "<html>maintenance</html>" {
		t.Fatalf("data = %#v", data)
	}
}

func TestUndecodableBodyIsNormalized(t *testing.T) {
	log := &recordingLogger{}
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}, nil, log)

	_, err := g.Tokens(context.Background(), nil, nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T %v", err, err)
	}
	if reqErr.Kind != KindDecode || KindOf(err) != KindDecode || reqErr.StatusCode != http.StatusOK {
		t.Fatalf("unexpected error %+v", reqErr)
	}
	if !strings.HasPrefix(err.Error(), FailurePrefix+"status 200: decode response: ") {
		t.Fatalf("message = %q", err.Error())
	}
	if !strings.HasSuffix(reqErr.URL, "/v1/tokens") {
		t.Fatalf("url = %q", reqErr.URL)
	}
	if IsClientError(err) || IsServerError(err) || IsTransport(err) {
		t.Fatalf("decode failure must not be classified as a status or transport failure")
	}
	if log.warns != 1 {
		t.Fatalf("expected one warning, got %d", log.warns)
	}
}

func TestSendIntoRejectsMismatchedShape(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tokens":[1,2,3]}`))
	}, nil, nil)

	_, err := g.Tokens(context.Background(), nil, nil)
	if KindOf(err) != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	s := snippet([]byte(strings.Repeat("a", 511) + "é"))
	if !utf8.ValidString(s) {
		t.Fatalf("snippet produced invalid UTF-8: %q", s)
	}
	if s != strings.Repeat("a", 511)+"..." {
		t.Fatalf("snippet = %q", s)
	}
	if got := snippet([]byte("  short  ")); got != "short" {
		t.Fatalf("snippet = %q", got)
	}
}
